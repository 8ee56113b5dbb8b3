package common

import (
	"os"
	"strconv"
	"strings"

	"github.com/bnema/tarpush/pkg/logger"
)

// loadConfigFromEnv overrides configuration with TARPUSH_* environment variables.
func loadConfigFromEnv(config *Config, printLogs bool) {
	str := func(name string, field *string, secret bool) {
		val := os.Getenv(name)
		if val == "" {
			return
		}
		*field = val
		if !printLogs {
			return
		}
		if secret {
			logger.Info("Using environment variable " + name)
		} else {
			logger.Info("Using environment variable "+name, "value", val)
		}
	}

	str("TARPUSH_LOG_LEVEL", &config.General.LogLevel, false)
	str("TARPUSH_LOG_FORMAT", &config.General.LogFormat, false)
	str("TARPUSH_UPLOAD_DIR", &config.General.UploadDir, false)
	str("TARPUSH_HTTP_PORT", &config.Http.Port, false)
	str("TARPUSH_MAX_UPLOAD_SIZE", &config.Http.MaxUploadSize, false)
	str("TARPUSH_DOCKER_HOST", &config.Engine.Host, false)
	str("TARPUSH_REGISTRY_URL", &config.Registry.URL, false)
	str("TARPUSH_REGISTRY_USERNAME", &config.Registry.Username, false)
	str("TARPUSH_REGISTRY_PASSWORD", &config.Registry.Password, true)

	if val := os.Getenv("TARPUSH_REGISTRY_INSECURE"); val != "" {
		config.Registry.Insecure = parseBool(val)
		if printLogs {
			logger.Info("Using environment variable TARPUSH_REGISTRY_INSECURE", "value", config.Registry.Insecure)
		}
	}
	if val := os.Getenv("TARPUSH_KEEP_LOCAL_TAGS"); val != "" {
		config.Pipeline.KeepLocalTags = parseBool(val)
		if printLogs {
			logger.Info("Using environment variable TARPUSH_KEEP_LOCAL_TAGS", "value", config.Pipeline.KeepLocalTags)
		}
	}
	if val := os.Getenv("TARPUSH_RECENT_IMAGE_LIMIT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			config.Pipeline.RecentImageLimit = n
		} else {
			logger.Warn("Ignoring invalid TARPUSH_RECENT_IMAGE_LIMIT", "value", val)
		}
	}
}

func parseBool(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
