package controllerImp

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hbiaou/crop-rotation/pkg/apperr"
	"github.com/hbiaou/crop-rotation/pkg/distribution/controller"
	"github.com/hbiaou/crop-rotation/pkg/distribution/service"
	"github.com/hbiaou/crop-rotation/pkg/validate"
)

type DistributionCtrl struct{ s service.DistributionService }

func New(s service.DistributionService) *DistributionCtrl { return &DistributionCtrl{s} }

var _ controller.DistributionController = (*DistributionCtrl)(nil)

func (h *DistributionCtrl) Get(c echo.Context) error {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		return apperr.JSON(c, err)
	}
	d, err := h.s.Get(id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Update replaces the garden's targets and answers with the stored result.
func (h *DistributionCtrl) Update(c echo.Context) error {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		return apperr.JSON(c, err)
	}
	var req service.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad json"})
	}
	if err := c.Validate(&req); err != nil {
		return apperr.JSON(c, err)
	}
	d, err := h.s.Update(id, req)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, d)
}
