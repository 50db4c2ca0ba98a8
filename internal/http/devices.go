package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vbncursed/vkr/pass-service/internal/http/dto"
	"github.com/vbncursed/vkr/pass-service/internal/service"
	"github.com/vbncursed/vkr/pass-service/internal/util"
)

func passToken(c echo.Context) string {
	return util.PassToken(c.Request().Header.Get(echo.HeaderAuthorization), c.QueryParam("authenticationToken"))
}

// RegisterDevice регистрирует устройство на push
// @Summary     Register a device for pass updates
// @Tags        devices
// @Accept      json
// @Produce     json
// @Param       deviceLibraryIdentifier path   string true "Device library identifier"
// @Param       passTypeId              path   string true "Pass type identifier"
// @Param       serialNumber            path   string true "Serial number"
// @Param       Authorization           header string true "ApplePass <token>"
// @Param       request body dto.RegisterDeviceRequest true "Push token"
// @Success     201 "Registered"
// @Success     200 "Already registered"
// @Failure     400 {object} APIError
// @Failure     401 {object} APIError
// @Router      /v1/devices/{deviceLibraryIdentifier}/registrations/{passTypeId}/{serialNumber} [post]
func RegisterDevice(svc *service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req dto.RegisterDeviceRequest
		if err := c.Bind(&req); err != nil {
			return writeJSON(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: "malformed"})
		}
		created, err := svc.RegisterDevice(c.Request().Context(), param(c, "deviceLibraryIdentifier"), passKey(c), passToken(c), req.PushToken)
		if err != nil {
			return writeError(c, err, 0)
		}
		if created {
			return c.NoContent(http.StatusCreated)
		}
		return c.NoContent(http.StatusOK)
	}
}

// UnregisterDevice снимает регистрацию
// @Summary     Unregister a device
// @Tags        devices
// @Param       deviceLibraryIdentifier path   string true "Device library identifier"
// @Param       passTypeId              path   string true "Pass type identifier"
// @Param       serialNumber            path   string true "Serial number"
// @Param       Authorization           header string true "ApplePass <token>"
// @Success     200 "Unregistered"
// @Failure     401 {object} APIError
// @Router      /v1/devices/{deviceLibraryIdentifier}/registrations/{passTypeId}/{serialNumber} [delete]
func UnregisterDevice(svc *service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.UnregisterDevice(c.Request().Context(), param(c, "deviceLibraryIdentifier"), passKey(c), passToken(c)); err != nil {
			return writeError(c, err, 0)
		}
		return c.NoContent(http.StatusOK)
	}
}

// UpdatedSerials список изменённых пропусков типа
// @Summary     Serial numbers updated since a tag
// @Tags        devices
// @Produce     json
// @Param       deviceLibraryIdentifier path  string true  "Device library identifier"
// @Param       passTypeId              path  string true  "Pass type identifier"
// @Param       passesUpdatedSince      query string false "lastUpdated tag of a previous response"
// @Success     200 {object} dto.SerialNumbersResponse
// @Success     204 "No matching passes"
// @Failure     400 {object} APIError
// @Router      /v1/devices/{deviceLibraryIdentifier}/registrations/{passTypeId} [get]
func UpdatedSerials(svc *service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		res, err := svc.UpdatedSerials(c.Request().Context(), param(c, "deviceLibraryIdentifier"), param(c, "passTypeId"), c.QueryParam("passesUpdatedSince"))
		if err != nil {
			return writeError(c, err, 0)
		}
		if len(res.SerialNumbers) == 0 {
			return c.NoContent(http.StatusNoContent)
		}
		return writeJSON(c, http.StatusOK, dto.FromUpdatedSerials(res))
	}
}

// DeviceLog принимает логи устройств
// @Summary     Device diagnostics
// @Tags        devices
// @Accept      json
// @Param       request body dto.LogRequest true "Log messages"
// @Success     200 "Recorded"
// @Failure     400 {object} APIError
// @Router      /v1/log [post]
func DeviceLog(svc *service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req dto.LogRequest
		if err := c.Bind(&req); err != nil {
			return writeJSON(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: "malformed"})
		}
		svc.RecordDeviceLogs(c.Request().Context(), req.Logs)
		return c.NoContent(http.StatusOK)
	}
}
