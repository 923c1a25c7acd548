package controllerImp

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hbiaou/crop-rotation/pkg/apperr"
	"github.com/hbiaou/crop-rotation/pkg/cycle/controller"
	"github.com/hbiaou/crop-rotation/pkg/cycle/service"
	"github.com/hbiaou/crop-rotation/pkg/validate"
)

type CycleCtrl struct{ s service.CycleService }

func New(s service.CycleService) *CycleCtrl { return &CycleCtrl{s} }

var _ controller.CycleController = (*CycleCtrl)(nil)

func (h *CycleCtrl) options(c echo.Context) (uint, service.GenerateOptions, error) {
	var opts service.GenerateOptions
	id, err := validate.ParamID(c, "id")
	if err != nil {
		return 0, opts, err
	}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&opts); err != nil {
			return 0, opts, apperr.Validation("body", "bad json")
		}
	}
	if q := strings.TrimSpace(c.QueryParam("cycle")); q != "" && opts.Cycle == "" {
		opts.Cycle = q
	}
	return id, opts, nil
}

func (h *CycleCtrl) Preview(c echo.Context) error {
	id, opts, err := h.options(c)
	if err != nil {
		return apperr.JSON(c, err)
	}
	p, err := h.s.Preview(c.Request().Context(), id, opts)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CycleCtrl) Generate(c echo.Context) error {
	id, opts, err := h.options(c)
	if err != nil {
		return apperr.JSON(c, err)
	}
	res, err := h.s.Generate(c.Request().Context(), id, opts)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *CycleCtrl) Undo(c echo.Context) error {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		return apperr.JSON(c, err)
	}
	run, err := h.s.Undo(c.Request().Context(), id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"undone": run})
}

func (h *CycleCtrl) Finalize(c echo.Context) error {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		return apperr.JSON(c, err)
	}
	run, err := h.s.Finalize(c.Request().Context(), id, c.Param("cycle"))
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

func (h *CycleCtrl) List(c echo.Context) error {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		return apperr.JSON(c, err)
	}
	runs, err := h.s.List(id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, runs)
}

func (h *CycleCtrl) Get(c echo.Context) error {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		return apperr.JSON(c, err)
	}
	res, err := h.s.Get(id, c.Param("cycle"))
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *CycleCtrl) Bootstrap(c echo.Context) error {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		return apperr.JSON(c, err)
	}
	var req service.BootstrapRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad json"})
	}
	if err := c.Validate(&req); err != nil {
		return apperr.JSON(c, err)
	}
	res, err := h.s.Bootstrap(c.Request().Context(), id, req)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ProposeBootstrap returns a bootstrap body that can be edited and posted back.
func (h *CycleCtrl) ProposeBootstrap(c echo.Context) error {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		return apperr.JSON(c, err)
	}
	req, err := h.s.ProposeBootstrap(c.Request().Context(), id)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, req)
}

// Override records what was actually planted on one sub-bed.
func (h *CycleCtrl) Override(c echo.Context) error {
	id, err := validate.ParamID(c, "plan_id")
	if err != nil {
		return apperr.JSON(c, err)
	}
	var in service.OverrideInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad json"})
	}
	if err := c.Validate(&in); err != nil {
		return apperr.JSON(c, err)
	}
	p, err := h.s.Override(c.Request().Context(), id, in)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
