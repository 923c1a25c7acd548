package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hbiaou/crop-rotation/pkg/logger"
)

// JSON writes err as {"error": ...} with the status StatusCode picks.
// Server errors are logged with the request logger.
func JSON(c echo.Context, err error) error {
	status := StatusCode(err)
	body := map[string]string{"error": err.Error()}
	var ve *ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		body["field"] = ve.Field
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request().Context()).WithError(err).Error("handler failed")
	}
	return c.JSON(status, body)
}
