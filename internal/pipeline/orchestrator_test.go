package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/tarpush/internal/domain"
	"github.com/bnema/tarpush/pkg/logger"
	"github.com/bnema/tarpush/pkg/verify"
)

func newTestOrchestrator(engine *fakeEngine, reg *fakeRegistry) *Orchestrator {
	log := logger.Discard()
	return NewOrchestrator(engine, reg, verify.NewValidator(0, log), Options{}, log)
}

func TestOrchestrator_Run_PushesLoadedImage(t *testing.T) {
	path := writeArchive(t, "myapp:1.2.0")
	engine := &fakeEngine{loadOutput: "Loaded image: myapp:1.2.0\n"}
	reg := &fakeRegistry{host: "localhost:5000"}

	res, err := newTestOrchestrator(engine, reg).Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"myapp:1.2.0"}, res.LoadedImages)
	require.Len(t, res.PushedImages, 2)
	assert.Equal(t, "localhost:5000/myapp:1.2.0", res.PushedImages[0].LocalName)
	assert.Equal(t, "localhost:5000/myapp:latest", res.PushedImages[1].LocalName)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 2, res.SuccessCount())
	assert.NoFileExists(t, path)
}

func TestOrchestrator_Run_NothingLoaded(t *testing.T) {
	path := writeArchive(t)
	engine := &fakeEngine{loadErr: errors.New("open /var/lib/docker/tmp/manifest.json: no such file or directory")}
	reg := &fakeRegistry{host: "localhost:5000"}

	res, err := newTestOrchestrator(engine, reg).Run(context.Background(), path)
	require.NoError(t, err)

	assert.Empty(t, res.LoadedImages)
	assert.Empty(t, res.PushedImages)
	assert.Equal(t, []string{domain.MsgNoImagesLoaded}, res.Errors)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "manifest.json")
	assert.Equal(t, domain.MsgSkippingPush, res.Warnings[1])
	assert.Equal(t, "nothing loaded", res.Summary())
	assert.Empty(t, engine.pushed)
	assert.NoFileExists(t, path)
}

func TestOrchestrator_Run_PartialPush(t *testing.T) {
	path := writeArchive(t, "myapp:1.2.0")
	engine := &fakeEngine{
		loadOutput: "Loaded image: myapp:1.2.0\n",
		pushErr:    map[string]error{"localhost:5000/myapp:latest": errors.New("denied")},
	}
	reg := &fakeRegistry{host: "localhost:5000"}

	res, err := newTestOrchestrator(engine, reg).Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, res.SuccessCount())
	assert.Equal(t, 1, res.FailureCount())
	assert.Len(t, res.Errors, 1)
	assert.NoFileExists(t, path)
}

func TestOrchestrator_Run_RemovesLocalTagsByDefault(t *testing.T) {
	path := writeArchive(t, "myapp:1.2.0")
	engine := &fakeEngine{loadOutput: "Loaded image: myapp:1.2.0\n"}
	reg := &fakeRegistry{host: "localhost:5000"}

	_, err := newTestOrchestrator(engine, reg).Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:5000/myapp:1.2.0", "localhost:5000/myapp:latest"}, engine.removed)
}

func TestOrchestrator_Run_KeepLocalTags(t *testing.T) {
	path := writeArchive(t, "myapp:1.2.0")
	engine := &fakeEngine{loadOutput: "Loaded image: myapp:1.2.0\n"}
	reg := &fakeRegistry{host: "localhost:5000"}
	log := logger.Discard()
	o := NewOrchestrator(engine, reg, verify.NewValidator(0, log), Options{KeepLocalTags: true}, log)

	res, err := o.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount())
	assert.Empty(t, engine.removed)
}

func TestOrchestrator_Run_EngineUnavailable(t *testing.T) {
	path := writeArchive(t, "myapp:1.2.0")
	engine := &fakeEngine{pingErr: errors.New("dial unix /var/run/docker.sock: connect: no such file")}
	reg := &fakeRegistry{host: "localhost:5000"}

	res, err := newTestOrchestrator(engine, reg).Run(context.Background(), path)
	require.ErrorIs(t, err, domain.ErrEngineUnavailable)
	assert.Nil(t, res)
	assert.Zero(t, engine.loadCalls)
	assert.NoFileExists(t, path)
}

func TestOrchestrator_Run_RejectsInvalidArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.tar")
	require.NoError(t, os.WriteFile(path, []byte("this is plain text, not an archive"), 0o600))
	engine := &fakeEngine{}
	reg := &fakeRegistry{host: "localhost:5000"}

	res, err := newTestOrchestrator(engine, reg).Run(context.Background(), path)
	require.Error(t, err)
	assert.Nil(t, res)
	kind, ok := verify.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, verify.KindNotATar, kind)
	assert.Zero(t, engine.loadCalls)
	assert.NoFileExists(t, path)
}

func TestOrchestrator_Run_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tar")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, err := newTestOrchestrator(&fakeEngine{}, &fakeRegistry{host: "r"}).Run(context.Background(), path)
	require.ErrorIs(t, err, verify.ErrEmptyFile)
	assert.NoFileExists(t, path)
}

func TestOrchestrator_Run_MissingFileIsNotACleanupError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.tar")

	_, err := newTestOrchestrator(&fakeEngine{}, &fakeRegistry{host: "r"}).Run(context.Background(), path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCleanupFailed)
}

func TestRemoveArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.tar")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	assert.NoError(t, removeArchive(path))
	assert.NoError(t, removeArchive(path))

	// A non-empty directory cannot be removed with os.Remove.
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(filepath.Join(sub, "child"), 0o700))
	assert.ErrorIs(t, removeArchive(sub), domain.ErrCleanupFailed)
}
