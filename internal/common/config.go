package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/bnema/tarpush/pkg/docker"
	"github.com/bnema/tarpush/pkg/logger"
	"github.com/bnema/tarpush/pkg/verify"
)

const ConfigFileName = "config.yml"

type Config struct {
	General  GeneralConfig  `yaml:"general"`
	Http     HttpConfig     `yaml:"http"`
	Engine   EngineConfig   `yaml:"engine"`
	Registry RegistryConfig `yaml:"registry"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Build    BuildConfig    `yaml:"-"`
}

type GeneralConfig struct {
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"` // text, logfmt or json
	UploadDir string `yaml:"uploadDir"`
}

type HttpConfig struct {
	Port          string `yaml:"port"`
	MaxUploadSize string `yaml:"maxUploadSize"` // e.g. "5GiB"
}

type EngineConfig struct {
	Host           string        `yaml:"host"` // empty means DOCKER_HOST or the default socket
	LoadTimeout    time.Duration `yaml:"loadTimeout"`
	PushTimeout    time.Duration `yaml:"pushTimeout"`
	CommandTimeout time.Duration `yaml:"commandTimeout"`
	MinVersion     string        `yaml:"minVersion"`
}

type RegistryConfig struct {
	URL          string        `yaml:"url"`
	Insecure     bool          `yaml:"insecure"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	ProbeTimeout time.Duration `yaml:"probeTimeout"`
}

type PipelineConfig struct {
	MaxFileSize      string `yaml:"maxFileSize"`
	RecentImageLimit int    `yaml:"recentImageLimit"`
	KeepLocalTags    bool   `yaml:"keepLocalTags"`
}

// Default values
var (
	defaultLogLevel         = "info"
	defaultLogFormat        = "text"
	defaultHttpPort         = "3000"
	defaultMaxSize          = "5GiB"
	defaultRegistryURL      = "http://localhost:5000"
	defaultMinVersion       = "20.10.0"
	defaultRecentImageLimit = 5
)

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// applyDefaults fills zero values and reports whether anything was filled.
func (c *Config) applyDefaults() bool {
	applied := false
	setString := func(field *string, value, name string) {
		if *field == "" {
			*field = value
			logger.Debug("Applied default value", "key", name, "value", value)
			applied = true
		}
	}
	setDuration := func(field *time.Duration, value time.Duration, name string) {
		if *field == 0 {
			*field = value
			logger.Debug("Applied default value", "key", name, "value", value)
			applied = true
		}
	}

	setString(&c.General.LogLevel, defaultLogLevel, "general.logLevel")
	setString(&c.General.LogFormat, defaultLogFormat, "general.logFormat")
	setString(&c.General.UploadDir, filepath.Join(os.TempDir(), "tarpush-uploads"), "general.uploadDir")
	setString(&c.Http.Port, defaultHttpPort, "http.port")
	setString(&c.Http.MaxUploadSize, defaultMaxSize, "http.maxUploadSize")
	setDuration(&c.Engine.LoadTimeout, docker.DefaultLoadTimeout, "engine.loadTimeout")
	setDuration(&c.Engine.PushTimeout, docker.DefaultPushTimeout, "engine.pushTimeout")
	setDuration(&c.Engine.CommandTimeout, docker.DefaultCommandTimeout, "engine.commandTimeout")
	setString(&c.Engine.MinVersion, defaultMinVersion, "engine.minVersion")
	setString(&c.Registry.URL, defaultRegistryURL, "registry.url")
	setDuration(&c.Registry.ProbeTimeout, 5*time.Second, "registry.probeTimeout")
	setString(&c.Pipeline.MaxFileSize, defaultMaxSize, "pipeline.maxFileSize")
	if c.Pipeline.RecentImageLimit <= 0 {
		c.Pipeline.RecentImageLimit = defaultRecentImageLimit
		applied = true
	}
	return applied
}

// LoadConfig reads the file at path, or the default location when path is
// empty. A missing file is not an error: defaults and env overrides still apply.
func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	if path == "" {
		var err error
		path, err = ConfigFilePath()
		if err != nil {
			return nil, err
		}
	}

	err := readConfigFile(path, config)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("Config file not found, using defaults", "path", path)
	case err != nil:
		return nil, err
	default:
		logger.Debug("Loaded configuration", "path", path)
	}

	config.applyDefaults()
	loadConfigFromEnv(config, true)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func readConfigFile(path string, config *Config) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(content, config); err != nil {
		return fmt.Errorf("error reading and unmarshaling configuration file %s: %w", path, err)
	}
	return nil
}

// SaveConfig writes the configuration as YAML, creating the parent directory.
func (c *Config) SaveConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating configuration directory: %w", err)
	}
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error encoding configuration: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("error writing configuration file: %w", err)
	}
	logger.Info("Saved configuration", "path", path)
	return nil
}

// Validate checks values that cannot be checked by the YAML decoder.
func (c *Config) Validate() error {
	if _, err := c.MaxUploadBytes(); err != nil {
		return err
	}
	if _, err := c.MaxFileBytes(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Registry.URL) == "" {
		return errors.New("registry.url must not be empty")
	}
	if c.Registry.Username != "" && c.Registry.Password == "" {
		logger.Warn("registry.username is set without a password")
	}
	return nil
}

// MaxUploadBytes is the HTTP body limit.
func (c *Config) MaxUploadBytes() (int64, error) {
	return parseSize("http.maxUploadSize", c.Http.MaxUploadSize)
}

// MaxFileBytes is the size ceiling enforced by the tar validator.
func (c *Config) MaxFileBytes() (int64, error) {
	return parseSize("pipeline.maxFileSize", c.Pipeline.MaxFileSize)
}

func parseSize(key, value string) (int64, error) {
	if value == "" {
		return verify.DefaultMaxSize, nil
	}
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid %s %q: must be greater than zero", key, value)
	}
	return int64(n), nil
}

// GetVersion returns the build version or "dev".
func (c *Config) GetVersion() string {
	if c.Build.BuildVersion == "" {
		return "dev"
	}
	return c.Build.BuildVersion
}
