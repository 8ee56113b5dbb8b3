package domain

import "errors"

// Pipeline errors. Validation failures live in pkg/verify next to the validator.
var (
	ErrEngineUnavailable   = errors.New("container engine is unavailable")
	ErrNoImagesLoaded      = errors.New("no images were loaded from the archive")
	ErrPushFailed          = errors.New("image push failed")
	ErrRegistryUnreachable = errors.New("registry is unreachable")
	ErrCleanupFailed       = errors.New("failed to remove uploaded file")
)

// Messages surfaced in PipelineResult lists.
const (
	MsgNoImagesLoaded  = "No Docker images were successfully loaded from the tar file"
	MsgSkippingPush    = "Skipping registry push because no images were loaded"
	MsgApproximateList = "Image names could not be read from the load output; using the most recent local images as an approximation"
)
