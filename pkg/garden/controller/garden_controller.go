package controller

import "github.com/labstack/echo/v4"

type GardenController interface {
	List(c echo.Context) error
	Create(c echo.Context) error
	Get(c echo.Context) error
	Stats(c echo.Context) error
	GlobalStats(c echo.Context) error
}
