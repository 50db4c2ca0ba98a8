package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vbncursed/vkr/pass-service/internal/http/dto"
	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/pkpass"
	"github.com/vbncursed/vkr/pass-service/internal/service"
	"github.com/vbncursed/vkr/pass-service/internal/util"
)

const maxTemplateSize = 16 << 20

// param раскодирует path-параметр, echo оставляет его экранированным
func param(c echo.Context, name string) string {
	v := c.Param(name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func passKey(c echo.Context) models.PassKey {
	return models.PassKey{PassTypeID: param(c, "passTypeId"), SerialNumber: param(c, "serialNumber")}
}

// readTemplate берёт первый файл из multipart или всё тело запроса
func readTemplate(c echo.Context) ([]byte, error) {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxTemplateSize)

	mt, _, _ := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))
	if !strings.HasPrefix(mt, "multipart/") {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
		}
		if len(b) == 0 {
			return nil, fmt.Errorf("%w: template upload missing", service.ErrInvalidInput)
		}
		return b, nil
	}

	mr, err := req.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: template upload missing", service.ErrInvalidInput)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
		}
		if part.FileName() == "" {
			_ = part.Close()
			continue
		}
		b, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
		}
		return b, nil
	}
}

// CreatePass выпуск пропуска из шаблона
// @Summary     Create or rebuild a pass from a template package
// @Tags        passes
// @Accept      multipart/form-data
// @Produce     json
// @Param       template formData file true "Template package (zip with pass.json, images, localizations)"
// @Success     201 {object} dto.CreatePassResponse
// @Success     304 "Content unchanged"
// @Failure     400 {object} APIError
// @Failure     401 {object} APIError
// @Security    AdminBearer
// @Router      /v1/passes [post]
func CreatePass(svc *service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		template, err := readTemplate(c)
		if err != nil {
			return writeError(c, err, http.StatusBadRequest)
		}
		res, err := svc.CreatePass(c.Request().Context(), template)
		if err != nil {
			return writeError(c, err, http.StatusBadRequest)
		}
		if !res.Changed {
			return c.NoContent(http.StatusNotModified)
		}
		return writeJSON(c, http.StatusCreated, dto.FromCreateResult(res))
	}
}

// UpdatePass обновление штрихкода и срока действия
// @Summary     Update barcode and expiration date
// @Description Every call replaces all three fields; omitted fields are cleared.
// @Tags        passes
// @Accept      json
// @Produce     json
// @Param       passTypeId   path string true "Pass type identifier"
// @Param       serialNumber path string true "Serial number"
// @Param       request body dto.UpdatePassRequest true "Mutable fields"
// @Success     200 {object} dto.UpdatePassResponse
// @Success     304 "Content unchanged"
// @Failure     400 {object} APIError
// @Failure     404 {object} APIError
// @Security    AdminBearer
// @Router      /v1/passes/{passTypeId}/{serialNumber} [put]
func UpdatePass(svc *service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req dto.UpdatePassRequest
		if err := bindJSON(c, &req, false); err != nil {
			return writeJSON(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: "malformed"})
		}
		res, err := svc.UpdatePass(c.Request().Context(), req.ToCommand(passKey(c)))
		if err != nil {
			return writeError(c, err, http.StatusBadRequest)
		}
		if !res.Changed {
			return c.NoContent(http.StatusNotModified)
		}
		return writeJSON(c, http.StatusOK, dto.FromUpdateResult(res))
	}
}

// FetchPass выдача подписанного бандла
// @Summary     Download the latest pass bundle
// @Tags        passes
// @Produce     application/vnd.apple.pkpass
// @Param       passTypeId          path   string true  "Pass type identifier"
// @Param       serialNumber        path   string true  "Serial number"
// @Param       authenticationToken query  string false "Token when no Authorization header is sent"
// @Param       Authorization       header string false "ApplePass <token>"
// @Param       If-Modified-Since   header string false "HTTP date or RFC 3339"
// @Success     200 {file} binary
// @Success     304 "Not modified"
// @Failure     401 {object} APIError
// @Failure     403 {object} APIError
// @Router      /v1/passes/{passTypeId}/{serialNumber} [get]
func FetchPass(svc *service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		key := passKey(c)
		token := util.PassToken(req.Header.Get(echo.HeaderAuthorization), c.QueryParam("authenticationToken"))

		var ims *time.Time
		if t, ok := util.ParseIfModifiedSince(req.Header.Get(echo.HeaderIfModifiedSince)); ok {
			ims = &t
		}

		res, err := svc.FetchPass(req.Context(), key, token, ims)
		if err != nil {
			return writeError(c, err, 0)
		}
		h := c.Response().Header()
		// whole seconds, rounded down
		h.Set(echo.HeaderLastModified, res.UpdatedAt.UTC().Format(http.TimeFormat))
		h.Set(echo.HeaderCacheControl, "no-cache")
		if res.NotModified {
			return c.NoContent(http.StatusNotModified)
		}
		h.Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{
			"filename": key.SerialNumber + pkpass.Extension,
		}))
		return c.Blob(http.StatusOK, pkpass.ContentType, res.Data)
	}
}
