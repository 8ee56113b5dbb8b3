// Package domain holds the data model shared by the ingestion pipeline, the
// HTTP layer and the CLI.
package domain

import "fmt"

type PushStatus string

const (
	PushSuccess PushStatus = "success"
	PushFailed  PushStatus = "failed"
)

// PushType tells which of the two tags of a source image an outcome is about.
type PushType string

const (
	PushTypeOriginal PushType = "original"
	PushTypeLatest   PushType = "latest"
)

// PushOutcome records one tag+push attempt. Two are produced per loaded image.
type PushOutcome struct {
	OriginalName string     `json:"originalName"`
	LocalName    string     `json:"localName"`
	RegistryURL  string     `json:"registryUrl"`
	Tag          string     `json:"tag"`
	Status       PushStatus `json:"status"`
	Type         PushType   `json:"type"`
	Error        string     `json:"error,omitempty"`
}

// LoadResult is what the loader recovered from one archive.
type LoadResult struct {
	Images   []string `json:"images"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func NewLoadResult() *LoadResult {
	return &LoadResult{Images: []string{}, Errors: []string{}, Warnings: []string{}}
}

// PushReport is what the pusher produced for a list of images.
type PushReport struct {
	PushedImages []PushOutcome `json:"pushedImages"`
	Errors       []string      `json:"errors"`
	Warnings     []string      `json:"warnings"`
}

func NewPushReport() *PushReport {
	return &PushReport{PushedImages: []PushOutcome{}, Errors: []string{}, Warnings: []string{}}
}

// PipelineResult is the only externally visible artifact of an ingestion run.
// Lists are append-only and always encoded as JSON arrays.
type PipelineResult struct {
	LoadedImages []string      `json:"loadedImages"`
	PushedImages []PushOutcome `json:"pushedImages"`
	Errors       []string      `json:"errors"`
	Warnings     []string      `json:"warnings"`
}

func NewPipelineResult() *PipelineResult {
	return &PipelineResult{
		LoadedImages: []string{},
		PushedImages: []PushOutcome{},
		Errors:       []string{},
		Warnings:     []string{},
	}
}

// MergeLoad appends the loader output.
func (r *PipelineResult) MergeLoad(l *LoadResult) {
	r.LoadedImages = append(r.LoadedImages, l.Images...)
	r.Errors = append(r.Errors, l.Errors...)
	r.Warnings = append(r.Warnings, l.Warnings...)
}

// MergePush appends the pusher output.
func (r *PipelineResult) MergePush(p *PushReport) {
	r.PushedImages = append(r.PushedImages, p.PushedImages...)
	r.Errors = append(r.Errors, p.Errors...)
	r.Warnings = append(r.Warnings, p.Warnings...)
}

// SuccessCount counts outcomes whose status is success, nothing else.
func (r *PipelineResult) SuccessCount() int {
	n := 0
	for _, o := range r.PushedImages {
		if o.Status == PushSuccess {
			n++
		}
	}
	return n
}

// FailureCount counts outcomes whose status is failed.
func (r *PipelineResult) FailureCount() int {
	n := 0
	for _, o := range r.PushedImages {
		if o.Status == PushFailed {
			n++
		}
	}
	return n
}

// Summary distinguishes "nothing loaded", "loaded but not pushed" and
// "loaded and pushed, with N failures".
func (r *PipelineResult) Summary() string {
	switch {
	case len(r.LoadedImages) == 0:
		return "nothing loaded"
	case r.SuccessCount() == 0:
		return fmt.Sprintf("loaded %d image(s) but none were pushed", len(r.LoadedImages))
	default:
		return fmt.Sprintf("loaded %d image(s) and pushed %d tag(s), with %d failure(s)",
			len(r.LoadedImages), r.SuccessCount(), r.FailureCount())
	}
}
