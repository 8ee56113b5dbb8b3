package httpserve

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bnema/tarpush/internal/registry"
	"github.com/bnema/tarpush/internal/server"
)

// DockerImagesStatusHandler handles GET /api/docker-images-status.
func DockerImagesStatusHandler(c echo.Context, a *server.App) error {
	return c.JSON(http.StatusOK, a.Status(c.Request().Context()))
}

type CatalogResponse struct {
	Registry     string                `json:"registry"`
	Repositories []registry.Repository `json:"repositories"`
}

// RegistryCatalogHandler handles GET /api/registry-catalog.
func RegistryCatalogHandler(c echo.Context, a *server.App) error {
	repos, err := a.Registry.Catalog(c.Request().Context())
	if err != nil {
		a.Log.Warn("Registry catalog failed", "registry", a.Registry.URL(), "error", err)
		return sendError(c, http.StatusBadGateway, "Registry is not reachable", err.Error(), "RegistryUnreachable")
	}
	if repos == nil {
		repos = []registry.Repository{}
	}
	return c.JSON(http.StatusOK, CatalogResponse{Registry: a.Registry.URL(), Repositories: repos})
}

type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

func HealthHandler(c echo.Context, a *server.App) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Uptime:  a.GetUptime().String(),
		Version: a.Config.GetVersion(),
	})
}
