package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vbncursed/vkr/pass-service/internal/logger"
)

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(c echo.Context, status int, v any) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(status, v)
}

// writeError отвечает статусом из MapError; с ненулевым fallback всё, кроме 404, отдаётся как fallback
func writeError(c echo.Context, err error, fallback int) error {
	status, body := MapError(err)
	if fallback != 0 && status != http.StatusNotFound {
		if status == http.StatusInternalServerError {
			body = APIError{Code: "request_failed", Message: err.Error()}
		}
		status = fallback
	}
	log := logger.GetLogger(c.Request().Context()).WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Info("request rejected")
	}
	return writeJSON(c, status, body)
}

func DefaultHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = writeJSON(c, he.Code, APIError{
			Code:    http.StatusText(he.Code),
			Message: messageOf(he),
		})
		return
	}
	_ = writeError(c, err, 0)
}

func messageOf(he *echo.HTTPError) string {
	if s, ok := he.Message.(string); ok {
		return s
	}
	return http.StatusText(he.Code)
}
