package controller

import "github.com/labstack/echo/v4"

type CropController interface {
	List(c echo.Context) error
	Grouped(c echo.Context) error
	Create(c echo.Context) error
	Import(c echo.Context) error

	Sequence(c echo.Context) error
	ReplaceSequence(c echo.Context) error
}
