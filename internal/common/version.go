package common

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

type BuildConfig struct {
	BuildVersion string `yaml:"-"` // come from build ldflags
	BuildCommit  string `yaml:"-"` // come from build ldflags
	BuildDate    string `yaml:"-"` // come from build ldflags
}

// CheckEngineVersion reports whether the daemon version satisfies min.
// Daemon versions such as "28.0.1-rd" or "v27.3" are accepted.
func CheckEngineVersion(min, actual string) (bool, error) {
	if strings.TrimSpace(min) == "" {
		return true, nil
	}
	constraint, err := semver.NewConstraint(">= " + min)
	if err != nil {
		return false, fmt.Errorf("invalid engine.minVersion %q: %w", min, err)
	}
	v, err := semver.NewVersion(strings.TrimPrefix(strings.TrimSpace(actual), "v"))
	if err != nil {
		return false, fmt.Errorf("cannot parse engine version %q: %w", actual, err)
	}
	// Pre-release suffixes would otherwise fail every ">=" constraint.
	if v.Prerelease() != "" {
		stripped, err := v.SetPrerelease("")
		if err == nil {
			v = &stripped
		}
	}
	return constraint.Check(v), nil
}
