package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vbncursed/vkr/pass-service/internal/logger"
)

// RequestLogger puts a request-scoped logrus entry into the request context
// and logs one line per completed request. Must run after RequestID.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := logger.WithFields(req.Context(), logrus.Fields{
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
				"method":     req.Method,
				"path":       c.Path(),
			})
			c.SetRequest(req.WithContext(ctx))

			start := time.Now()
			err := next(c)
			if err != nil {
				// lets the error handler write the final status before logging
				c.Error(err)
			}
			entry := logger.GetLogger(ctx).WithFields(logrus.Fields{
				"status":  c.Response().Status,
				"latency": time.Since(start).String(),
			})
			if c.Response().Status >= 500 {
				entry.WithError(err).Error("request failed")
			} else {
				entry.Debug("request served")
			}
			return nil
		}
	}
}
