// Package httpserve is the HTTP boundary: upload, status, catalog, health and
// metrics endpoints served with echo.
package httpserve

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bnema/tarpush/internal/server"
)

// NewRouter builds the echo instance with middleware and routes registered.
// HTTP metrics are registered on reg; nil means the default registerer.
func NewRouter(a *server.App, reg prometheus.Registerer) *echo.Echo {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// Large archives take a while to upload and to load.
	e.Server.ReadTimeout = 30 * time.Minute
	e.Server.WriteTimeout = 30 * time.Minute
	e.HTTPErrorHandler = jsonErrorHandler(a)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(accessLogger(a))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "tarpush",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	RegisterRoutes(e, a)
	return e
}

func RegisterRoutes(e *echo.Echo, a *server.App) *echo.Echo {
	api := e.Group("/api")
	api.POST("/upload-docker-tar", func(c echo.Context) error { return UploadDockerTarHandler(c, a) })
	api.GET("/docker-images-status", func(c echo.Context) error { return DockerImagesStatusHandler(c, a) })
	api.GET("/registry-catalog", func(c echo.Context) error { return RegistryCatalogHandler(c, a) })
	api.GET("/health", func(c echo.Context) error { return HealthHandler(c, a) })

	e.GET("/metrics", echoprometheus.NewHandler())
	return e
}
