package server

import (
	"context"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type LocalImage struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	Size    string `json:"size"`
	Created string `json:"created"`
}

type RegistryInfo struct {
	URL        string `json:"url"`
	Accessible bool   `json:"accessible"`
}

type DaemonInfo struct {
	Accessible bool   `json:"accessible"`
	Version    string `json:"version"`
}

type StatusReport struct {
	LocalImages  []LocalImage `json:"localImages"`
	RegistryInfo RegistryInfo `json:"registryInfo"`
	DockerDaemon DaemonInfo   `json:"dockerDaemon"`
}

// Status gathers local images, registry reachability and daemon version.
// Unreachable collaborators show up as accessible=false, never as an error.
func (a *App) Status(ctx context.Context) StatusReport {
	report := StatusReport{
		LocalImages:  []LocalImage{},
		RegistryInfo: RegistryInfo{URL: a.Registry.URL()},
	}

	if err := a.Registry.Ping(ctx); err != nil {
		a.Log.Debug("Registry not reachable", "error", err)
	} else {
		report.RegistryInfo.Accessible = true
	}

	if err := a.Engine.Ping(ctx); err != nil {
		a.Log.Debug("Docker daemon not reachable", "error", err)
		return report
	}
	report.DockerDaemon.Accessible = true

	if v, err := a.Engine.Version(ctx); err != nil {
		a.Log.Warn("Failed to read Docker version", "error", err)
	} else {
		report.DockerDaemon.Version = v.Version
	}

	images, err := a.Engine.ListImages(ctx)
	if err != nil {
		a.Log.Warn("Failed to list local images", "error", err)
		return report
	}
	for _, img := range images {
		for _, tag := range img.RepoTags {
			report.LocalImages = append(report.LocalImages, LocalImage{
				Name:    tag,
				ID:      shortImageID(img.ID),
				Size:    humanize.Bytes(uint64(max(img.Size, 0))),
				Created: img.Created.UTC().Format(time.RFC3339),
			})
		}
	}
	return report
}

func shortImageID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
