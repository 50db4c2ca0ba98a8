package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/vbncursed/vkr/pass-service/internal/config"
	mw "github.com/vbncursed/vkr/pass-service/internal/http/middleware"
	"github.com/vbncursed/vkr/pass-service/internal/service"
)

// Router монтирует API в корень: WEB_SERVICE_URL + "/v1/...". rdb может быть nil
func Router(svc *service.Service, ready Pinger, rdb *redis.Client, cfg config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(mw.RequestLogger())
	e.Use(middleware.Secure())
	e.Binder = StrictJSONBinder{}
	e.HTTPErrorHandler = DefaultHTTPErrorHandler

	if cfg.EnableSwagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	e.GET("/healthz", Healthz)
	e.GET("/readyz", Readyz(ready))

	v1 := e.Group("/v1")

	admin := mw.AdminJWT(cfg.AdminJWTSecret)
	v1.POST("/passes", CreatePass(svc), admin)
	v1.PUT("/passes/:passTypeId/:serialNumber", UpdatePass(svc), admin)

	// device-facing routes
	limit := mw.RateLimit(cfg.RateLimit, rdb)
	v1.GET("/passes/:passTypeId/:serialNumber", FetchPass(svc), limit)
	v1.POST("/devices/:deviceLibraryIdentifier/registrations/:passTypeId/:serialNumber", RegisterDevice(svc), limit)
	v1.DELETE("/devices/:deviceLibraryIdentifier/registrations/:passTypeId/:serialNumber", UnregisterDevice(svc), limit)
	v1.GET("/devices/:deviceLibraryIdentifier/registrations/:passTypeId", UpdatedSerials(svc), limit)
	v1.POST("/log", DeviceLog(svc), limit)

	return e
}
