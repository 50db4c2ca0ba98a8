package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbncursed/vkr/pass-service/internal/config"
	"github.com/vbncursed/vkr/pass-service/internal/crypto"
	"github.com/vbncursed/vkr/pass-service/internal/http/dto"
	"github.com/vbncursed/vkr/pass-service/internal/pkpass"
	"github.com/vbncursed/vkr/pass-service/internal/pkpass/pkpasstest"
	"github.com/vbncursed/vkr/pass-service/internal/repo"
	"github.com/vbncursed/vkr/pass-service/internal/service"
	"github.com/vbncursed/vkr/pass-service/internal/storage"
)

const (
	passType = "pass.com.example.demo"
	serial   = "001"
	passPath = "/v1/passes/" + passType + "/" + serial
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recordingNotifier) Notify(_ context.Context, _ string, tokens []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, tokens)
	return nil
}

func (r *recordingNotifier) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

// secondClock ticks one whole second per call.
type secondClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *secondClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type testServer struct {
	e        *echo.Echo
	svc      *service.Service
	notifier *recordingNotifier
	bundles  *storage.FileStore
}

func newTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()
	certDir := t.TempDir()
	pkpasstest.WriteCredentials(t, certDir, passType, "")
	creds, err := crypto.NewFileStore(certDir, "", "")
	require.NoError(t, err)
	bundles, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	store := repo.NewMemoryStore()
	n := &recordingNotifier{}

	svc := service.New(service.Deps{
		Passes:        store,
		Registrations: store,
		Bundles:       bundles,
		Credentials:   creds,
		Notifier:      n,
		Clock:         &secondClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)},
		WebServiceURL: "https://passes.example.com",
	})
	return &testServer{e: Router(svc, store, nil, cfg), svc: svc, notifier: n, bundles: bundles}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, template []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "ignored"))
	fw, err := mw.CreateFormFile("template", "demo.zip")
	require.NoError(t, err)
	_, err = fw.Write(template)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/passes", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func (s *testServer) create(t *testing.T) dto.CreatePassResponse {
	t.Helper()
	rec := s.do(t, uploadRequest(t, pkpasstest.Template(t, passType, serial)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out dto.CreatePassResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func Test_EndToEnd(t *testing.T) {
	s := newTestServer(t, config.Config{})

	created := s.create(t)
	assert.Equal(t, passType, created.PassTypeIdentifier)
	assert.Equal(t, serial, created.SerialNumber)
	assert.GreaterOrEqual(t, len(created.AuthenticationToken), 20)
	assert.True(t, strings.HasSuffix(created.PassURL, "?authenticationToken="+created.AuthenticationToken))

	rec := s.do(t, uploadRequest(t, pkpasstest.Template(t, passType, serial)))
	assert.Equal(t, http.StatusNotModified, rec.Code)

	for _, dev := range []string{"dev1", "dev2"} {
		req := jsonRequest(http.MethodPost, "/v1/devices/"+dev+"/registrations/"+passType+"/"+serial, `{"pushToken":"push-`+dev+`"}`)
		req.Header.Set(echo.HeaderAuthorization, "ApplePass "+created.AuthenticationToken)
		rec = s.do(t, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = s.do(t, jsonRequest(http.MethodPut, passPath, `{"expirationDate":"2025-01-01T00:00:00Z"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"passTypeIdentifier":"`+passType+`","serialNumber":"`+serial+`"}`, rec.Body.String())
	s.svc.Wait()
	require.Len(t, s.notifier.Calls(), 1)
	assert.ElementsMatch(t, []string{"push-dev1", "push-dev2"}, s.notifier.Calls()[0])

	rec = s.do(t, jsonRequest(http.MethodPut, passPath, `{"expirationDate":"2025-01-01T00:00:00Z"}`))
	assert.Equal(t, http.StatusNotModified, rec.Code)
	s.svc.Wait()
	assert.Len(t, s.notifier.Calls(), 1)
}

func Test_FetchPassHTTP(t *testing.T) {
	s := newTestServer(t, config.Config{})
	created := s.create(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, passPath+"?authenticationToken="+created.AuthenticationToken, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pkpass.ContentType, rec.Header().Get(echo.HeaderContentType))
	lastModified := rec.Header().Get(echo.HeaderLastModified)
	require.NotEmpty(t, lastModified)
	p, err := pkpass.Read(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, created.AuthenticationToken, p.AuthenticationToken())

	req := httptest.NewRequest(http.MethodGet, passPath, nil)
	req.Header.Set(echo.HeaderAuthorization, "ApplePass "+created.AuthenticationToken)
	req.Header.Set(echo.HeaderIfModifiedSince, lastModified)
	rec = s.do(t, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.Bytes())

	lm, err := http.ParseTime(lastModified)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, passPath, nil)
	req.Header.Set(echo.HeaderAuthorization, "ApplePass "+created.AuthenticationToken)
	req.Header.Set(echo.HeaderIfModifiedSince, lm.Add(-time.Minute).Format(http.TimeFormat))
	rec = s.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, passPath, nil)
	req.Header.Set(echo.HeaderAuthorization, "ApplePass "+created.AuthenticationToken)
	req.Header.Set(echo.HeaderIfModifiedSince, "garbage")
	rec = s.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_FetchPassUnauthorizedHTTP(t *testing.T) {
	s := newTestServer(t, config.Config{})
	s.create(t)

	wrong := s.do(t, httptest.NewRequest(http.MethodGet, passPath+"?authenticationToken=nope", nil))
	missing := s.do(t, httptest.NewRequest(http.MethodGet, "/v1/passes/"+passType+"/999?authenticationToken=nope", nil))
	none := s.do(t, httptest.NewRequest(http.MethodGet, passPath, nil))

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, missing.Code)
	assert.Equal(t, http.StatusUnauthorized, none.Code)
	assert.Equal(t, wrong.Body.String(), missing.Body.String())
}

func Test_CreatePassFailures(t *testing.T) {
	s := newTestServer(t, config.Config{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no file"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/v1/passes", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, s.do(t, req).Code)

	rec := s.do(t, uploadRequest(t, pkpasstest.Template(t, "pass.com.example.unknown", serial)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "credential_not_found")

	noIcon := pkpasstest.Zip(t, map[string][]byte{"pass.json": pkpasstest.Descriptor(passType, serial)})
	rec = s.do(t, uploadRequest(t, noIcon))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "invalid_pass", apiErr.Code)
	assert.Contains(t, apiErr.Details, "icon.png is required")

	raw := httptest.NewRequest(http.MethodPost, "/v1/passes", bytes.NewReader(pkpasstest.Template(t, passType, serial)))
	raw.Header.Set(echo.HeaderContentType, "application/zip")
	assert.Equal(t, http.StatusCreated, s.do(t, raw).Code)
}

func Test_CreatePassStorageFailure(t *testing.T) {
	s := newTestServer(t, config.Config{})
	require.NoError(t, os.RemoveAll(s.bundles.Dir))
	require.NoError(t, os.WriteFile(s.bundles.Dir, []byte("not a directory"), 0o600))

	rec := s.do(t, uploadRequest(t, pkpasstest.Template(t, passType, serial)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "storage_io")
}

func Test_UpdatePassFailures(t *testing.T) {
	s := newTestServer(t, config.Config{})

	rec := s.do(t, jsonRequest(http.MethodPut, passPath, `{}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	created := s.create(t)
	rec = s.do(t, jsonRequest(http.MethodPut, passPath, `{"expirationDate":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, jsonRequest(http.MethodPut, passPath, `{"expirationDate":"soon"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, jsonRequest(http.MethodPut, passPath, ``))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, jsonRequest(http.MethodPut, passPath, `{"barcodeMessage":"M-1","note":"extra"}`))
	assert.Equal(t, http.StatusOK, rec.Code)

	path, err := s.bundles.Path(passType, serial)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("corrupt"), 0o600))
	rec = s.do(t, jsonRequest(http.MethodPut, passPath, `{"barcodeMessage":"M-2"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "storage_io")

	require.NoError(t, os.Remove(path))
	rec = s.do(t, jsonRequest(http.MethodPut, passPath, `{"barcodeMessage":"M-3"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, passPath+"?authenticationToken="+created.AuthenticationToken, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_WriteErrorFallback(t *testing.T) {
	cases := []struct {
		err      error
		fallback int
		want     int
	}{
		{service.ErrConflict, http.StatusBadRequest, http.StatusBadRequest},
		{service.ErrStorage, http.StatusBadRequest, http.StatusBadRequest},
		{errors.New("boom"), http.StatusBadRequest, http.StatusBadRequest},
		{service.ErrNotFound, http.StatusBadRequest, http.StatusNotFound},
		{service.ErrStorage, 0, http.StatusForbidden},
		{service.ErrConflict, 0, http.StatusConflict},
	}
	for _, tt := range cases {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, writeError(c, tt.err, tt.fallback))
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}

func Test_AdminRoutesRequireJWT(t *testing.T) {
	s := newTestServer(t, config.Config{AdminJWTSecret: "secret"})

	rec := s.do(t, uploadRequest(t, pkpasstest.Template(t, passType, serial)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, jsonRequest(http.MethodPut, passPath, `{}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_DeviceRoutes(t *testing.T) {
	s := newTestServer(t, config.Config{})
	created := s.create(t)
	regPath := "/v1/devices/dev1/registrations/" + passType + "/" + serial
	auth := "ApplePass " + created.AuthenticationToken

	req := jsonRequest(http.MethodPost, regPath, `{"pushToken":"push-1"}`)
	req.Header.Set(echo.HeaderAuthorization, auth)
	assert.Equal(t, http.StatusCreated, s.do(t, req).Code)

	req = jsonRequest(http.MethodPost, regPath, `{"pushToken":"push-1"}`)
	req.Header.Set(echo.HeaderAuthorization, auth)
	assert.Equal(t, http.StatusOK, s.do(t, req).Code)

	req = jsonRequest(http.MethodPost, regPath, `{"pushToken":"push-1"}`)
	req.Header.Set(echo.HeaderAuthorization, "ApplePass wrong")
	assert.Equal(t, http.StatusUnauthorized, s.do(t, req).Code)

	req = jsonRequest(http.MethodPost, regPath, `{}`)
	req.Header.Set(echo.HeaderAuthorization, auth)
	assert.Equal(t, http.StatusBadRequest, s.do(t, req).Code)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/v1/devices/dev1/registrations/"+passType, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var serials dto.SerialNumbersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &serials))
	assert.Equal(t, []string{serial}, serials.SerialNumbers)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/v1/devices/dev1/registrations/"+passType+"?passesUpdatedSince="+serials.LastUpdated, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/v1/devices/dev1/registrations/"+passType+"?passesUpdatedSince=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, regPath, nil)
	req.Header.Set(echo.HeaderAuthorization, auth)
	assert.Equal(t, http.StatusOK, s.do(t, req).Code)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/v1/devices/dev1/registrations/"+passType, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, jsonRequest(http.MethodPost, "/v1/log", `{"logs":["hello from device"]}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func Test_Probes(t *testing.T) {
	s := newTestServer(t, config.Config{})
	assert.Equal(t, http.StatusOK, s.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, http.StatusOK, s.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil)).Code)

	e := echo.New()
	e.GET("/readyz", Readyz(failingPinger{}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func Test_MapError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrConflict, http.StatusConflict},
		{service.ErrStorage, http.StatusForbidden},
		{service.ErrInvalidInput, http.StatusBadRequest},
		{pkpass.ErrInvalidTemplate, http.StatusBadRequest},
		{crypto.ErrCredentialLoad, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range cases {
		status, _ := MapError(tt.err)
		assert.Equal(t, tt.want, status, tt.err.Error())
	}
}
