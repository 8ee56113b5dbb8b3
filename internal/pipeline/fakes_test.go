package pipeline

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bnema/tarpush/pkg/docker"
)

type fakeEngine struct {
	mu sync.Mutex

	pingErr    error
	loadOutput string
	loadErr    error
	repoTags   map[string][]string
	images     []docker.ImageSummary
	listErr    error
	tagErr     map[string]error
	pushErr    map[string]error
	removeErr  error

	loadCalls int
	tagged    []string
	pushed    []string
	removed   []string
}

func (f *fakeEngine) Ping(context.Context) error { return f.pingErr }

func (f *fakeEngine) LoadImage(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	return f.loadOutput, f.loadErr
}

func (f *fakeEngine) ImageRepoTags(_ context.Context, id string) ([]string, error) {
	tags, ok := f.repoTags[id]
	if !ok {
		return nil, os.ErrNotExist
	}
	return tags, nil
}

func (f *fakeEngine) ListImages(context.Context) ([]docker.ImageSummary, error) {
	return f.images, f.listErr
}

func (f *fakeEngine) TagImage(_ context.Context, _, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.tagErr[target]; err != nil {
		return err
	}
	f.tagged = append(f.tagged, target)
	return nil
}

func (f *fakeEngine) PushImage(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.pushErr[ref]; err != nil {
		return err
	}
	f.pushed = append(f.pushed, ref)
	return nil
}

func (f *fakeEngine) RemoveImage(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, ref)
	return nil
}

type fakeRegistry struct {
	host    string
	pingErr error
}

func (r *fakeRegistry) Host() string { return r.host }
func (r *fakeRegistry) Ping(context.Context) error { return r.pingErr }

// writeArchive writes a minimal docker-archive tar and returns its path.
func writeArchive(t *testing.T, repoTags ...string) string {
	t.Helper()

	manifest := `[{"Config":"config.json","RepoTags":[`
	for i, tag := range repoTags {
		if i > 0 {
			manifest += ","
		}
		manifest += `"` + tag + `"`
	}
	manifest += `],"Layers":[]}]`

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, body := range map[string]string{
		"manifest.json": manifest,
		"config.json":   `{}`,
	} {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(body))}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())

	path := filepath.Join(t.TempDir(), "image.tar")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}
