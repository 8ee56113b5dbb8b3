package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/bnema/tarpush/pkg/imageref"
)

// ImageSummary is a local image as listed by the engine.
type ImageSummary struct {
	ID       string
	RepoTags []string
	Size     int64
	Created  time.Time
}

// LoadImage streams the archive at path into the engine and returns the
// textual output of the load ("Loaded image: ..." lines).
func (c *Client) LoadImage(ctx context.Context, path string) (string, error) {
	if c == nil || c.cli == nil {
		return "", ErrNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.LoadTimeout)
	defer cancel()

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	c.log.Info("Loading image archive into engine", "path", path)
	resp, err := c.cli.ImageLoad(ctx, f)
	if err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	if !resp.JSON {
		if _, err := io.Copy(&out, resp.Body); err != nil {
			return out.String(), fmt.Errorf("error reading load response: %w", err)
		}
		return out.String(), nil
	}

	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, &out, 0, false, nil); err != nil {
		return out.String(), fmt.Errorf("load failed: %w", err)
	}
	c.log.Debug("Load output", "output", out.String())
	return out.String(), nil
}

// ImageRepoTags returns the repository:tag references attached to an image id.
func (c *Client) ImageRepoTags(ctx context.Context, id string) ([]string, error) {
	if c == nil || c.cli == nil {
		return nil, ErrNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()

	info, err := c.cli.ImageInspect(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect image %s: %w", id, err)
	}

	tags := make([]string, 0, len(info.RepoTags))
	for _, t := range info.RepoTags {
		if !imageref.IsDangling(t) {
			tags = append(tags, t)
		}
	}
	return tags, nil
}

// ListImages returns non-dangling local images, most recent first.
func (c *Client) ListImages(ctx context.Context) ([]ImageSummary, error) {
	if c == nil || c.cli == nil {
		return nil, ErrNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()

	images, err := c.cli.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("dangling", "false")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	out := make([]ImageSummary, 0, len(images))
	for _, img := range images {
		out = append(out, ImageSummary{
			ID:       img.ID,
			RepoTags: img.RepoTags,
			Size:     img.Size,
			Created:  time.Unix(img.Created, 0),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created.After(out[j].Created)
	})
	return out, nil
}

// TagImage adds target as a new reference to source.
func (c *Client) TagImage(ctx context.Context, source, target string) error {
	if c == nil || c.cli == nil {
		return ErrNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()

	if err := c.cli.ImageTag(ctx, source, target); err != nil {
		return fmt.Errorf("failed to tag %s as %s: %w", source, target, err)
	}
	return nil
}

// PushImage pushes ref and waits for the push stream to finish. An error
// reported inside the stream is returned as an error.
func (c *Client) PushImage(ctx context.Context, ref string) error {
	if c == nil || c.cli == nil {
		return ErrNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PushTimeout)
	defer cancel()

	rc, err := c.cli.ImagePush(ctx, ref, image.PushOptions{RegistryAuth: c.registryAuth})
	if err != nil {
		return fmt.Errorf("failed to push %s: %w", ref, err)
	}
	defer rc.Close()

	if err := jsonmessage.DisplayJSONMessagesStream(rc, io.Discard, 0, false, nil); err != nil {
		return fmt.Errorf("failed to push %s: %w", ref, err)
	}
	return nil
}

// RemoveImage untags ref. Layers still referenced by other tags are kept.
func (c *Client) RemoveImage(ctx context.Context, ref string) error {
	if c == nil || c.cli == nil {
		return ErrNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()

	if _, err := c.cli.ImageRemove(ctx, ref, image.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s: %w", ref, err)
	}
	return nil
}
