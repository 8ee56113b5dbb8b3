package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/bnema/tarpush/internal/domain"
	"github.com/bnema/tarpush/internal/metrics"
	"github.com/bnema/tarpush/pkg/logger"
)

// Orchestrator runs Validator, Loader and Pusher over one uploaded archive and
// owns that archive until it is removed.
type Orchestrator struct {
	engine    Engine
	validator Validator
	loader    *Loader
	pusher    *Pusher
	log       *logger.Logger
}

// Options are the pipeline settings coming from configuration.
type Options struct {
	RecentImageLimit int
	KeepLocalTags    bool
}

func NewOrchestrator(engine Engine, registry Registry, validator Validator, opts Options, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Orchestrator{
		engine:    engine,
		validator: validator,
		loader:    NewLoader(engine, opts.RecentImageLimit, log),
		pusher:    NewPusher(engine, registry, !opts.KeepLocalTags, log),
		log:       log,
	}
}

// Run processes the archive at tarPath and always removes it before returning.
//
// Partial failures (nothing loaded, some pushes failed) are reported inside the
// result. Run only returns an error when the engine is unreachable or the
// archive is rejected by the validator; the latter is a *verify.ValidationError.
func (o *Orchestrator) Run(ctx context.Context, tarPath string) (result *domain.PipelineResult, err error) {
	log := o.log.With("file", tarPath)
	defer func() {
		cleanupErr := removeArchive(tarPath)
		if cleanupErr == nil {
			return
		}
		log.Error("Failed to remove uploaded archive", "error", cleanupErr)
		if result != nil {
			result.Warnings = append(result.Warnings, cleanupErr.Error())
		}
	}()

	if err := o.engine.Ping(ctx); err != nil {
		metrics.CountRun("engine_unavailable")
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}

	start := time.Now()
	report, err := o.validator.Validate(ctx, tarPath)
	metrics.ObserveStage("validate", start)
	if err != nil {
		log.Warn("Archive rejected", "error", err)
		metrics.CountRun("rejected")
		return nil, err
	}
	log.Info("Archive accepted", "size", report.Size, "format", report.Format, "entries", report.Entries)

	result = domain.NewPipelineResult()

	loaded := o.loader.Load(ctx, tarPath)
	result.MergeLoad(loaded)
	if len(loaded.Images) == 0 {
		result.Warnings = append(result.Warnings, domain.MsgSkippingPush)
		metrics.CountRun("nothing_loaded")
		log.Warn("No image loaded, push skipped")
		return result, nil
	}

	result.MergePush(o.pusher.Push(ctx, loaded.Images))

	outcome := "pushed"
	switch {
	case result.SuccessCount() == 0:
		outcome = "not_pushed"
	case result.FailureCount() > 0:
		outcome = "partial"
	}
	metrics.CountRun(outcome)
	log.Info("Pipeline finished", "summary", result.Summary())
	return result, nil
}

func removeArchive(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("%w %s: %v", domain.ErrCleanupFailed, path, err)
}
