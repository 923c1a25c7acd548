package controllerImp

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hbiaou/crop-rotation/database"
	"github.com/hbiaou/crop-rotation/pkg/apperr"
	repo "github.com/hbiaou/crop-rotation/pkg/setting/repository"
)

type SettingCtrl struct{ repo repo.SettingRepository }

func New(r repo.SettingRepository) *SettingCtrl { return &SettingCtrl{r} }

type settingReq struct {
	Value string `json:"value" validate:"required"`
}

func (h *SettingCtrl) List(c echo.Context) error {
	all, err := h.repo.All()
	if err != nil {
		return apperr.JSON(c, err)
	}
	out := make(map[string]string, len(all))
	for _, s := range all {
		out[s.Key] = s.Value
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SettingCtrl) Put(c echo.Context) error {
	key := strings.TrimSpace(c.Param("key"))
	var req settingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad json"})
	}
	if err := c.Validate(&req); err != nil {
		return apperr.JSON(c, err)
	}
	value := strings.TrimSpace(req.Value)
	if err := check(key, value); err != nil {
		return apperr.JSON(c, err)
	}
	if err := h.repo.Set(key, value); err != nil {
		return apperr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{key: value})
}

func check(key, value string) error {
	switch key {
	case database.SettingCyclesPerYear:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 4 {
			return apperr.Validation("value", "cycles per year must be 1 to 4")
		}
		return nil
	default:
		return apperr.Validation("key", "unknown setting %q", key)
	}
}
