package controller

import "github.com/labstack/echo/v4"

type CycleController interface {
	Preview(c echo.Context) error
	Generate(c echo.Context) error
	Undo(c echo.Context) error
	Finalize(c echo.Context) error
	List(c echo.Context) error
	Get(c echo.Context) error
	Bootstrap(c echo.Context) error
	ProposeBootstrap(c echo.Context) error
	Override(c echo.Context) error
}
