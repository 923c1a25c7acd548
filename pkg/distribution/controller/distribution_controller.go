package controller

import "github.com/labstack/echo/v4"

type DistributionController interface {
	Get(c echo.Context) error
	Update(c echo.Context) error
}
