package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbncursed/vkr/pass-service/internal/config"
)

func serve(e *echo.Echo, method, target, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func signed(t *testing.T, method jwt.SigningMethod, key any, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, jwt.RegisteredClaims{Subject: "ops", ExpiresAt: jwt.NewNumericDate(exp)})
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func Test_AdminJWT(t *testing.T) {
	secret := "top-secret"
	e := echo.New()
	e.POST("/admin", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get(ContextKeySubject).(string))
	}, AdminJWT(secret))

	rec := serve(e, http.MethodPost, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodPost, "/admin", "Bearer "+signed(t, jwt.SigningMethodHS256, []byte("other"), time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodPost, "/admin", "Bearer "+signed(t, jwt.SigningMethodHS256, []byte(secret), time.Now().Add(-time.Minute)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodPost, "/admin", "Bearer "+signed(t, jwt.SigningMethodHS512, []byte(secret), time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodPost, "/admin", "Bearer "+signed(t, jwt.SigningMethodHS256, []byte(secret), time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops", rec.Body.String())
}

func Test_AdminJWTDisabled(t *testing.T) {
	e := echo.New()
	e.POST("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, AdminJWT(""))
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPost, "/admin", "").Code)
}

func Test_RateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            2 * time.Hour,
		Prefix:         "rl",
	}
	e := echo.New()
	e.GET("/v1/things", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RateLimit(cfg, rdb))

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodGet, "/v1/things", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := serve(e, http.MethodGet, "/v1/things", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func Test_RateLimitWithoutRedis(t *testing.T) {
	e := echo.New()
	e.GET("/v1/things", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		RateLimit(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/v1/things", "").Code)
	}
}
