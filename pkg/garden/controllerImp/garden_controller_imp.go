package controllerImp

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hbiaou/crop-rotation/pkg/apperr"
	"github.com/hbiaou/crop-rotation/pkg/garden/controller"
	"github.com/hbiaou/crop-rotation/pkg/garden/service"
	"github.com/hbiaou/crop-rotation/pkg/validate"
)

type GardenCtrl struct{ s service.GardenService }

func New(s service.GardenService) *GardenCtrl { return &GardenCtrl{s} }

var _ controller.GardenController = (*GardenCtrl)(nil)

func (h *GardenCtrl) List(c echo.Context) error {
	out, err := h.s.List()
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *GardenCtrl) Create(c echo.Context) error {
	var req service.CreateGardenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad json"})
	}
	if err := c.Validate(&req); err != nil {
		return apperr.JSON(c, err)
	}
	g, err := h.s.Create(req)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *GardenCtrl) Get(c echo.Context) error {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		return apperr.JSON(c, err)
	}
	g, err := h.s.Get(id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *GardenCtrl) Stats(c echo.Context) error {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		return apperr.JSON(c, err)
	}
	st, err := h.s.Stats(id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *GardenCtrl) GlobalStats(c echo.Context) error {
	st, err := h.s.GlobalStats()
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
