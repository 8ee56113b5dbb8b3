// Package server owns the application context shared by the HTTP handlers and
// the CLI: configuration, engine, registry client and pipeline.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bnema/tarpush/internal/common"
	"github.com/bnema/tarpush/internal/domain"
	"github.com/bnema/tarpush/internal/pipeline"
	"github.com/bnema/tarpush/internal/registry"
	"github.com/bnema/tarpush/pkg/docker"
	"github.com/bnema/tarpush/pkg/logger"
	"github.com/bnema/tarpush/pkg/verify"
)

// Engine is what the application needs from the container engine beyond the
// pipeline itself.
type Engine interface {
	pipeline.Engine
	Version(ctx context.Context) (docker.VersionInfo, error)
	Close() error
}

// Registry is the registry client surface used for status and catalog.
type Registry interface {
	pipeline.Registry
	URL() string
	Catalog(ctx context.Context) ([]registry.Repository, error)
}

// Pipeline runs one archive through validation, load and push.
type Pipeline interface {
	Run(ctx context.Context, tarPath string) (*domain.PipelineResult, error)
}

var (
	_ Engine   = (*docker.Client)(nil)
	_ Registry = (*registry.Client)(nil)
	_ Pipeline = (*pipeline.Orchestrator)(nil)
)

type App struct {
	Config    *common.Config
	Engine    Engine
	Registry  Registry
	Pipeline  Pipeline
	Validator *verify.Validator
	StartTime time.Time
	Log       *logger.Logger
}

// NewApp wires the real engine, registry client and pipeline from config.
// It does not contact the daemon or the registry.
func NewApp(config *common.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	maxFile, err := config.MaxFileBytes()
	if err != nil {
		return nil, err
	}

	reg, err := registry.New(registry.Config{
		URL:          config.Registry.URL,
		Insecure:     config.Registry.Insecure,
		Username:     config.Registry.Username,
		Password:     config.Registry.Password,
		ProbeTimeout: config.Registry.ProbeTimeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry client: %w", err)
	}

	engine, err := docker.NewClient(docker.Config{
		Host:             config.Engine.Host,
		LoadTimeout:      config.Engine.LoadTimeout,
		PushTimeout:      config.Engine.PushTimeout,
		CommandTimeout:   config.Engine.CommandTimeout,
		RegistryServer:   reg.Host(),
		RegistryUsername: config.Registry.Username,
		RegistryPassword: config.Registry.Password,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	validator := verify.NewValidator(maxFile, log)
	return New(config, engine, reg, validator, log), nil
}

// New assembles an App from already built collaborators.
func New(config *common.Config, engine Engine, reg Registry, validator *verify.Validator, log *logger.Logger) *App {
	if log == nil {
		log = logger.GetLogger()
	}
	if validator == nil {
		validator = verify.NewValidator(0, log)
	}
	orchestrator := pipeline.NewOrchestrator(engine, reg, validator, pipeline.Options{
		RecentImageLimit: config.Pipeline.RecentImageLimit,
		KeepLocalTags:    config.Pipeline.KeepLocalTags,
	}, log)

	return &App{
		Config:    config,
		Engine:    engine,
		Registry:  reg,
		Pipeline:  orchestrator,
		Validator: validator,
		StartTime: time.Now(),
		Log:       log,
	}
}

// PrepareUploadDir creates the staging directory for uploaded archives.
func (a *App) PrepareUploadDir() error {
	if err := os.MkdirAll(a.Config.General.UploadDir, 0o750); err != nil {
		return fmt.Errorf("failed to create upload directory %s: %w", a.Config.General.UploadDir, err)
	}
	return nil
}

// CheckEngine pings the daemon and warns when it is older than engine.minVersion.
func (a *App) CheckEngine(ctx context.Context) (docker.VersionInfo, error) {
	if err := a.Engine.Ping(ctx); err != nil {
		return docker.VersionInfo{}, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}
	v, err := a.Engine.Version(ctx)
	if err != nil {
		return docker.VersionInfo{}, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}

	ok, err := common.CheckEngineVersion(a.Config.Engine.MinVersion, v.Version)
	switch {
	case err != nil:
		a.Log.Warn("Could not compare engine version", "version", v.Version, "error", err)
	case !ok:
		a.Log.Warn("Docker daemon is older than the configured minimum",
			"version", v.Version, "minVersion", a.Config.Engine.MinVersion)
	default:
		a.Log.Info("Docker daemon reachable", "version", v.Version, "api", v.APIVersion)
	}
	return v, nil
}

func (a *App) GetUptime() time.Duration {
	return time.Since(a.StartTime).Round(time.Second)
}

// Shutdown releases the engine client.
func (a *App) Shutdown() error {
	a.Log.Info("Initiating application shutdown")
	if a.Engine == nil {
		return nil
	}
	if err := a.Engine.Close(); err != nil && !errors.Is(err, docker.ErrNotInitialized) {
		a.Log.Error("Error closing docker client", "error", err)
		return err
	}
	return nil
}
