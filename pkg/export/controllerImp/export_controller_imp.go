package controllerImp

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"github.com/hbiaou/crop-rotation/pkg/apperr"
	"github.com/hbiaou/crop-rotation/pkg/export"
	gardensvc "github.com/hbiaou/crop-rotation/pkg/garden/service"
	"github.com/hbiaou/crop-rotation/pkg/validate"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportCtrl struct {
	exp     *export.Exporter
	gardens gardensvc.GardenService
}

func New(exp *export.Exporter, gardens gardensvc.GardenService) *ExportCtrl {
	return &ExportCtrl{exp: exp, gardens: gardens}
}

// cycleParam accepts "2026A" as well as "2026A.xlsx".
func cycleParam(c echo.Context) string {
	return strings.TrimSuffix(strings.TrimSpace(c.Param("cycle")), ".xlsx")
}

func (h *ExportCtrl) Garden(c echo.Context) error {
	id, err := validate.ParamID(c, "id")
	if err != nil {
		return apperr.JSON(c, err)
	}
	f, name, err := h.exp.Garden(id, cycleParam(c))
	if err != nil {
		return apperr.JSON(c, err)
	}
	return send(c, f, name)
}

func (h *ExportCtrl) All(c echo.Context) error {
	f, name, err := h.exp.All(cycleParam(c))
	if err != nil {
		return apperr.JSON(c, err)
	}
	return send(c, f, name)
}

// Statistics exports the all-gardens statistics.
func (h *ExportCtrl) Statistics(c echo.Context) error {
	st, err := h.gardens.GlobalStats()
	if err != nil {
		return apperr.JSON(c, err)
	}
	f, name, err := h.exp.Statistics(st, time.Now())
	if err != nil {
		return apperr.JSON(c, err)
	}
	return send(c, f, name)
}

func send(c echo.Context, f *excelize.File, name string) error {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return apperr.JSON(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
