// Package docker is the container engine adapter used by the ingestion pipeline.
package docker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"

	"github.com/bnema/tarpush/pkg/logger"
)

const (
	DefaultLoadTimeout    = 5 * time.Minute
	DefaultPushTimeout    = 10 * time.Minute
	DefaultCommandTimeout = 30 * time.Second
)

var ErrNotInitialized = errors.New("docker client is not initialized")

type Config struct {
	// Host is a docker host URL (unix:///var/run/docker.sock, tcp://...).
	// Empty means DOCKER_HOST or the platform default.
	Host           string
	LoadTimeout    time.Duration
	PushTimeout    time.Duration
	CommandTimeout time.Duration

	RegistryServer   string
	RegistryUsername string
	RegistryPassword string
}

// VersionInfo is the subset of the daemon version we report.
type VersionInfo struct {
	Version    string `json:"version"`
	APIVersion string `json:"apiVersion"`
	Os         string `json:"os"`
	Arch       string `json:"arch"`
}

// Client wraps the Docker Engine API client with the timeouts of each operation.
type Client struct {
	cli          *client.Client
	cfg          Config
	registryAuth string
	log          *logger.Logger
}

// NewClient creates the API client. It does not contact the daemon; use Ping for that.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	applyDefaults(&cfg)

	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing Docker client: %w", err)
	}

	auth, err := EncodeRegistryAuth(cfg.RegistryServer, cfg.RegistryUsername, cfg.RegistryPassword)
	if err != nil {
		return nil, err
	}

	log.Debug("Docker client initialized", "host", cli.DaemonHost())
	return &Client{cli: cli, cfg: cfg, registryAuth: auth, log: log}, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = DefaultPushTimeout
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
}

// EncodeRegistryAuth builds the X-Registry-Auth value. Newer daemons reject a
// missing header, so an anonymous config is still encoded.
func EncodeRegistryAuth(server, username, password string) (string, error) {
	auth, err := registry.EncodeAuthConfig(registry.AuthConfig{
		Username:      username,
		Password:      password,
		ServerAddress: server,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode registry auth: %w", err)
	}
	return auth, nil
}

// Close releases the underlying HTTP transport.
func (c *Client) Close() error {
	if c == nil || c.cli == nil {
		return nil
	}
	return c.cli.Close()
}

// Ping checks that the daemon answers.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.cli == nil {
		return ErrNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()

	if _, err := c.cli.Ping(ctx); err != nil {
		return fmt.Errorf("cannot connect to Docker daemon at %s: %w", c.cli.DaemonHost(), err)
	}
	return nil
}

// Version returns the daemon version.
func (c *Client) Version(ctx context.Context) (VersionInfo, error) {
	if c == nil || c.cli == nil {
		return VersionInfo{}, ErrNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()

	v, err := c.cli.ServerVersion(ctx)
	if err != nil {
		return VersionInfo{}, fmt.Errorf("failed to get Docker version: %w", err)
	}
	return VersionInfo{Version: v.Version, APIVersion: v.APIVersion, Os: v.Os, Arch: v.Arch}, nil
}
