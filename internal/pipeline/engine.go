// Package pipeline ingests an image archive: validate, load into the engine,
// re-tag and push to the registry, then remove the archive.
package pipeline

import (
	"context"

	"github.com/bnema/tarpush/pkg/docker"
	"github.com/bnema/tarpush/pkg/verify"
)

// Engine is the container engine surface the pipeline needs.
// *docker.Client implements it.
type Engine interface {
	Ping(ctx context.Context) error
	LoadImage(ctx context.Context, path string) (string, error)
	ImageRepoTags(ctx context.Context, id string) ([]string, error)
	ListImages(ctx context.Context) ([]docker.ImageSummary, error)
	TagImage(ctx context.Context, source, target string) error
	PushImage(ctx context.Context, ref string) error
	RemoveImage(ctx context.Context, ref string) error
}

// Registry is the target registry. *registry.Client implements it.
type Registry interface {
	Host() string
	Ping(ctx context.Context) error
}

// Validator checks an archive before it reaches the engine.
// *verify.Validator implements it.
type Validator interface {
	Validate(ctx context.Context, path string) (*verify.Report, error)
}

var (
	_ Engine    = (*docker.Client)(nil)
	_ Validator = (*verify.Validator)(nil)
)
