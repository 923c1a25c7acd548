package controllerImp

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hbiaou/crop-rotation/pkg/apperr"
	"github.com/hbiaou/crop-rotation/pkg/crop/controller"
	"github.com/hbiaou/crop-rotation/pkg/crop/importer"
	"github.com/hbiaou/crop-rotation/pkg/crop/service"
)

type CropCtrl struct{ s service.CropService }

func New(s service.CropService) *CropCtrl { return &CropCtrl{s} }

var _ controller.CropController = (*CropCtrl)(nil)

type importURLReq struct {
	URL string `json:"url" form:"url" validate:"required,url"`
}

type sequenceReq struct {
	Categories []string `json:"categories" validate:"required,min=1,dive,required"`
}

func (h *CropCtrl) List(c echo.Context) error {
	out, err := h.s.List(strings.TrimSpace(c.QueryParam("category")))
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CropCtrl) Grouped(c echo.Context) error {
	out, err := h.s.Grouped()
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CropCtrl) Create(c echo.Context) error {
	var req service.CreateCropRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad json"})
	}
	if err := c.Validate(&req); err != nil {
		return apperr.JSON(c, err)
	}
	crop, err := h.s.Create(req)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, crop)
}

// Import takes a multipart "file" (CSV, XLSX or an HTML table) or a "url"
// pointing at one.
func (h *CropCtrl) Import(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		var req importURLReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "file or url required"})
		}
		if err := c.Validate(&req); err != nil {
			return apperr.JSON(c, err)
		}
		rep, err := h.s.ImportURL(c.Request().Context(), req.URL)
		if err != nil {
			return apperr.JSON(c, err)
		}
		return c.JSON(http.StatusOK, rep)
	}

	format, err := importer.DetectFormat(fh.Filename, fh.Header.Get(echo.HeaderContentType))
	if err != nil {
		return apperr.JSON(c, apperr.Validation("file", "%v", err))
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "cannot read upload"})
	}
	defer src.Close()

	rep, err := h.s.Import(src, format)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *CropCtrl) Sequence(c echo.Context) error {
	out, err := h.s.Sequence()
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CropCtrl) ReplaceSequence(c echo.Context) error {
	var req sequenceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad json"})
	}
	if err := c.Validate(&req); err != nil {
		return apperr.JSON(c, err)
	}
	out, err := h.s.ReplaceSequence(req.Categories)
	if err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
