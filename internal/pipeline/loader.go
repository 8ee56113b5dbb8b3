package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/tarpush/internal/domain"
	"github.com/bnema/tarpush/internal/metrics"
	"github.com/bnema/tarpush/pkg/logger"
)

// Loader loads an archive into the engine and recovers the resulting image
// references.
type Loader struct {
	engine     Engine
	strategies []RecoveryStrategy
	log        *logger.Logger
}

// NewLoader builds a loader with the default strategies: load output names,
// then load output ids, then the most recent local images.
func NewLoader(engine Engine, recentLimit int, log *logger.Logger) *Loader {
	return NewLoaderWithStrategies(engine, log,
		LoadedNamesStrategy(),
		LoadedIDsStrategy(engine),
		RecentImagesStrategy(engine, recentLimit),
	)
}

func NewLoaderWithStrategies(engine Engine, log *logger.Logger, strategies ...RecoveryStrategy) *Loader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Loader{engine: engine, strategies: strategies, log: log}
}

// Load never fails: a failed engine load is only a warning since the
// strategies may still recover names, and an empty Images list means nothing
// can be pushed.
func (l *Loader) Load(ctx context.Context, tarPath string) *domain.LoadResult {
	result := domain.NewLoadResult()
	start := time.Now()
	defer metrics.ObserveStage("load", start)

	output, loadErr := l.engine.LoadImage(ctx, tarPath)
	if loadErr != nil {
		l.log.Warn("Engine load failed", "path", tarPath, "error", loadErr)
		result.Warnings = append(result.Warnings, fmt.Sprintf("Failed to load images from tar file: %v", loadErr))
	}

	for _, s := range l.strategies {
		images, warnings := s.Recover(ctx, output)
		result.Warnings = append(result.Warnings, warnings...)
		if len(images) == 0 {
			l.log.Debug("Strategy recovered no image", "strategy", s.Name)
			continue
		}
		l.log.Info("Recovered loaded images", "strategy", s.Name, "images", images)
		metrics.CountStrategy(s.Name)
		result.Images = append(result.Images, images...)
		break
	}

	if len(result.Images) == 0 {
		result.Errors = append(result.Errors, domain.MsgNoImagesLoaded)
	}
	return result
}
