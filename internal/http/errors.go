package http

import (
	"errors"
	"net/http"

	"github.com/vbncursed/vkr/pass-service/internal/crypto"
	"github.com/vbncursed/vkr/pass-service/internal/pkpass"
	"github.com/vbncursed/vkr/pass-service/internal/service"
)

// MapError переводит доменные ошибки в HTTP статус и тело APIError
func MapError(err error) (int, APIError) {
	var verr *pkpass.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, APIError{Code: "invalid_pass", Message: "pass validation failed", Details: verr.Problems()}
	case errors.Is(err, pkpass.ErrInvalidTemplate):
		return http.StatusBadRequest, APIError{Code: "invalid_template", Message: err.Error()}
	case errors.Is(err, crypto.ErrCredentialNotFound):
		return http.StatusBadRequest, APIError{Code: "credential_not_found", Message: "no signing credentials for pass type"}
	case errors.Is(err, crypto.ErrCredentialLoad):
		return http.StatusBadRequest, APIError{Code: "credential_load", Message: "signing credentials unreadable"}
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, APIError{Code: "invalid_request", Message: err.Error()}

	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, APIError{Code: "unauthorized", Message: "unauthorized"}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, APIError{Code: "not_found", Message: "pass not found"}
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, APIError{Code: "conflict", Message: "pass changed concurrently"}
	case errors.Is(err, service.ErrStorage):
		return http.StatusForbidden, APIError{Code: "storage_io", Message: "pass bundle unavailable"}
	}
	return http.StatusInternalServerError, APIError{Code: "internal", Message: "internal error"}
}
