package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/tarpush/internal/domain"
	"github.com/bnema/tarpush/internal/metrics"
	"github.com/bnema/tarpush/pkg/imageref"
	"github.com/bnema/tarpush/pkg/logger"
	"github.com/bnema/tarpush/pkg/validation"
)

// Pusher re-tags loaded images under the registry host and pushes them, once
// with their own tag and once as latest.
type Pusher struct {
	engine      Engine
	registry    Registry
	removeLocal bool
	log         *logger.Logger
}

func NewPusher(engine Engine, registry Registry, removeLocal bool, log *logger.Logger) *Pusher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pusher{engine: engine, registry: registry, removeLocal: removeLocal, log: log}
}

// Push handles every image independently; a failure on one never stops the
// others. Each image yields exactly two outcomes.
func (p *Pusher) Push(ctx context.Context, images []string) *domain.PushReport {
	report := domain.NewPushReport()
	start := time.Now()
	defer metrics.ObserveStage("push", start)

	host := p.registry.Host()
	if err := p.registry.Ping(ctx); err != nil {
		p.log.Warn("Registry probe failed, pushing anyway", "registry", host, "error", err)
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Registry %s did not answer the probe (%v); push attempted anyway", host, err))
	}

	for _, src := range images {
		p.pushImage(ctx, host, src, report)
	}
	return report
}

func (p *Pusher) pushImage(ctx context.Context, host, src string, report *domain.PushReport) {
	log := p.log.With("image", src)

	ref, err := pushTarget(src)
	if err != nil {
		log.Error("Cannot derive repository from image reference", "error", err)
		msg := fmt.Sprintf("Cannot push %s: %v", src, err)
		report.Errors = append(report.Errors, msg)
		for _, t := range []domain.PushType{domain.PushTypeOriginal, domain.PushTypeLatest} {
			report.PushedImages = append(report.PushedImages, domain.PushOutcome{
				OriginalName: src,
				RegistryURL:  host,
				Status:       domain.PushFailed,
				Type:         t,
				Error:        err.Error(),
			})
			metrics.CountPush(string(t), string(domain.PushFailed))
		}
		return
	}

	versioned := imageref.Target(host, ref.Repository, ref.Tag)
	latest := imageref.Target(host, ref.Repository, imageref.DefaultTag)

	var created []string
	for _, step := range []struct {
		target string
		tag    string
		typ    domain.PushType
	}{
		{target: versioned, tag: ref.Tag, typ: domain.PushTypeOriginal},
		{target: latest, tag: imageref.DefaultTag, typ: domain.PushTypeLatest},
	} {
		outcome, tagged := p.tagAndPush(ctx, src, step.target, step.tag, step.typ)
		report.PushedImages = append(report.PushedImages, outcome)
		metrics.CountPush(string(outcome.Type), string(outcome.Status))
		if outcome.Status == domain.PushFailed {
			report.Errors = append(report.Errors,
				fmt.Sprintf("Failed to push %s as %s: %s", src, step.target, outcome.Error))
		}
		if tagged && step.target != src && !contains(created, step.target) {
			created = append(created, step.target)
		}
	}

	if p.removeLocal {
		p.removeTags(ctx, created)
	}
}

// tagAndPush reports whether the local tag was created so it can be cleaned up.
func (p *Pusher) tagAndPush(ctx context.Context, src, target, tag string, typ domain.PushType) (domain.PushOutcome, bool) {
	outcome := domain.PushOutcome{
		OriginalName: src,
		LocalName:    target,
		RegistryURL:  p.registry.Host(),
		Tag:          tag,
		Type:         typ,
	}

	if err := p.engine.TagImage(ctx, src, target); err != nil {
		p.log.Error("Tag failed", "image", src, "target", target, "error", err)
		outcome.Status = domain.PushFailed
		outcome.Error = err.Error()
		return outcome, false
	}

	if err := p.engine.PushImage(ctx, target); err != nil {
		p.log.Error("Push failed", "image", src, "target", target, "error", err)
		outcome.Status = domain.PushFailed
		outcome.Error = fmt.Errorf("%w: %v", domain.ErrPushFailed, err).Error()
		return outcome, true
	}

	p.log.Info("Pushed image", "image", src, "target", target, "type", typ)
	outcome.Status = domain.PushSuccess
	return outcome, true
}

// removeTags drops the registry-prefixed local references. Failures are only logged.
func (p *Pusher) removeTags(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := p.engine.RemoveImage(ctx, ref); err != nil {
			p.log.Warn("Failed to remove local tag", "ref", ref, "error", err)
			continue
		}
		p.log.Debug("Removed local tag", "ref", ref)
	}
}

// pushTarget parses src and checks that the derived coordinates are valid
// registry names.
func pushTarget(src string) (imageref.Reference, error) {
	ref, err := imageref.Parse(src)
	if err != nil {
		return ref, err
	}
	if err := validation.ValidateRepositoryName(ref.Repository); err != nil {
		return ref, err
	}
	if err := validation.ValidateTag(ref.Tag); err != nil {
		return ref, err
	}
	return ref, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
