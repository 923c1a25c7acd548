package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hbiaou/crop-rotation/pkg/logger"
)

const RequestIDHeader = "X-Request-Id"

// RequestLogger tags every request with an id, stores a request-scoped logger
// in the request context and logs the outcome once the handler returns.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(RequestIDHeader, rid)

			log := logger.New().WithField("request_id", rid)
			c.SetRequest(req.WithContext(logger.NewContext(req.Context(), log)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			entry := log.WithFields(map[string]interface{}{
				"method":      req.Method,
				"path":        c.Path(),
				"uri":         req.RequestURI,
				"status":      c.Response().Status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			switch {
			case c.Response().Status >= 500:
				entry.WithError(err).Error("request failed")
			case c.Response().Status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request served")
			}
			return nil
		}
	}
}
