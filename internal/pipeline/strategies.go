package pipeline

import (
	"context"
	"fmt"
	"regexp"

	"github.com/opencontainers/go-digest"

	"github.com/bnema/tarpush/internal/domain"
	"github.com/bnema/tarpush/pkg/docker"
	"github.com/bnema/tarpush/pkg/imageref"
)

const DefaultRecentImageLimit = 5

var (
	loadedImageRe   = regexp.MustCompile(`(?m)^\s*Loaded image: (\S+)\s*$`)
	loadedImageIDRe = regexp.MustCompile(`(?m)^\s*Loaded image ID: (\S+)\s*$`)
)

// RecoveryStrategy turns the engine's load output into image references.
// Strategies are tried in order until one returns at least one image.
type RecoveryStrategy struct {
	Name    string
	Recover func(ctx context.Context, output string) (images, warnings []string)
}

// ParseLoadedImages returns the names of "Loaded image: <name>" lines.
func ParseLoadedImages(output string) []string {
	var names []string
	for _, m := range loadedImageRe.FindAllStringSubmatch(output, -1) {
		names = append(names, m[1])
	}
	return names
}

// ParseLoadedImageIDs returns the ids of "Loaded image ID: <id>" lines.
// Malformed ids are returned separately so callers can report them.
func ParseLoadedImageIDs(output string) (ids []digest.Digest, malformed []string) {
	for _, m := range loadedImageIDRe.FindAllStringSubmatch(output, -1) {
		d, err := digest.Parse(m[1])
		if err != nil {
			malformed = append(malformed, m[1])
			continue
		}
		ids = append(ids, d)
	}
	return ids, malformed
}

// PickRecent takes up to limit tagged references from images, which must be
// sorted most recent first.
func PickRecent(images []docker.ImageSummary, limit int) []string {
	if limit <= 0 {
		limit = DefaultRecentImageLimit
	}
	var picked []string
	for _, img := range images {
		for _, tag := range img.RepoTags {
			if imageref.IsDangling(tag) {
				continue
			}
			picked = append(picked, tag)
			if len(picked) == limit {
				return picked
			}
		}
	}
	return picked
}

// LoadedNamesStrategy reads "Loaded image: <name>" lines.
func LoadedNamesStrategy() RecoveryStrategy {
	return RecoveryStrategy{
		Name: "loaded-image-lines",
		Recover: func(_ context.Context, output string) ([]string, []string) {
			return ParseLoadedImages(output), nil
		},
	}
}

// LoadedIDsStrategy inspects the ids of "Loaded image ID: <id>" lines.
func LoadedIDsStrategy(engine Engine) RecoveryStrategy {
	return RecoveryStrategy{
		Name: "loaded-image-ids",
		Recover: func(ctx context.Context, output string) ([]string, []string) {
			ids, malformed := ParseLoadedImageIDs(output)
			var images, warnings []string
			for _, raw := range malformed {
				warnings = append(warnings, fmt.Sprintf("Ignoring malformed image ID %q in load output", raw))
			}
			for _, id := range ids {
				tags, err := engine.ImageRepoTags(ctx, id.String())
				if err != nil || len(tags) == 0 {
					warnings = append(warnings, fmt.Sprintf(
						"Image %s was loaded but its name could not be determined", shortID(id)))
					continue
				}
				images = append(images, tags...)
			}
			return images, warnings
		},
	}
}

// RecentImagesStrategy guesses from the most recent local images.
func RecentImagesStrategy(engine Engine, limit int) RecoveryStrategy {
	return RecoveryStrategy{
		Name: "recent-images",
		Recover: func(ctx context.Context, _ string) ([]string, []string) {
			list, err := engine.ListImages(ctx)
			if err != nil {
				return nil, []string{fmt.Sprintf("Could not list local images: %v", err)}
			}
			picked := PickRecent(list, limit)
			if len(picked) == 0 {
				return nil, nil
			}
			return picked, []string{domain.MsgApproximateList}
		},
	}
}

func shortID(d digest.Digest) string {
	enc := d.Encoded()
	if len(enc) > 12 {
		enc = enc[:12]
	}
	return d.Algorithm().String() + ":" + enc
}
