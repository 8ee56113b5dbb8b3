package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/tarpush/internal/domain"
	"github.com/bnema/tarpush/pkg/logger"
)

func TestPusher_Push_TwoTagsPerImage(t *testing.T) {
	engine := &fakeEngine{}
	reg := &fakeRegistry{host: "localhost:5000"}

	report := NewPusher(engine, reg, false, logger.Discard()).Push(context.Background(), []string{"myapp:1.2.0"})

	require.Len(t, report.PushedImages, 2)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)

	original, latest := report.PushedImages[0], report.PushedImages[1]
	assert.Equal(t, domain.PushOutcome{
		OriginalName: "myapp:1.2.0",
		LocalName:    "localhost:5000/myapp:1.2.0",
		RegistryURL:  "localhost:5000",
		Tag:          "1.2.0",
		Status:       domain.PushSuccess,
		Type:         domain.PushTypeOriginal,
	}, original)
	assert.Equal(t, "localhost:5000/myapp:latest", latest.LocalName)
	assert.Equal(t, "latest", latest.Tag)
	assert.Equal(t, domain.PushTypeLatest, latest.Type)
	assert.Equal(t, domain.PushSuccess, latest.Status)

	assert.Equal(t, []string{"localhost:5000/myapp:1.2.0", "localhost:5000/myapp:latest"}, engine.pushed)
	assert.Empty(t, engine.removed)
}

func TestPusher_Push_LatestFailsIndependently(t *testing.T) {
	engine := &fakeEngine{pushErr: map[string]error{
		"localhost:5000/myapp:latest": errors.New("denied"),
	}}
	reg := &fakeRegistry{host: "localhost:5000"}

	report := NewPusher(engine, reg, false, logger.Discard()).Push(context.Background(), []string{"myapp:1.2.0"})

	require.Len(t, report.PushedImages, 2)
	assert.Equal(t, domain.PushSuccess, report.PushedImages[0].Status)
	assert.Equal(t, domain.PushFailed, report.PushedImages[1].Status)
	assert.Contains(t, report.PushedImages[1].Error, "denied")
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "myapp:1.2.0")
	assert.Contains(t, report.Errors[0], "localhost:5000/myapp:latest")
}

func TestPusher_Push_TagFailureSkipsPush(t *testing.T) {
	engine := &fakeEngine{tagErr: map[string]error{
		"localhost:5000/myapp:1.2.0": errors.New("no such image"),
	}}
	reg := &fakeRegistry{host: "localhost:5000"}

	report := NewPusher(engine, reg, false, logger.Discard()).Push(context.Background(), []string{"myapp:1.2.0"})

	require.Len(t, report.PushedImages, 2)
	assert.Equal(t, domain.PushFailed, report.PushedImages[0].Status)
	assert.Equal(t, domain.PushSuccess, report.PushedImages[1].Status)
	assert.Equal(t, []string{"localhost:5000/myapp:latest"}, engine.pushed)
}

func TestPusher_Push_ContinuesAfterFailingImage(t *testing.T) {
	engine := &fakeEngine{pushErr: map[string]error{
		"localhost:5000/a:1":      errors.New("boom"),
		"localhost:5000/a:latest": errors.New("boom"),
	}}
	reg := &fakeRegistry{host: "localhost:5000"}

	report := NewPusher(engine, reg, false, logger.Discard()).Push(context.Background(), []string{"a:1", "b:2"})

	require.Len(t, report.PushedImages, 4)
	assert.Len(t, report.Errors, 2)
	assert.Equal(t, []string{"localhost:5000/b:2", "localhost:5000/b:latest"}, engine.pushed)
}

func TestPusher_Push_SameImageTwice(t *testing.T) {
	engine := &fakeEngine{}
	reg := &fakeRegistry{host: "localhost:5000"}

	report := NewPusher(engine, reg, false, logger.Discard()).Push(context.Background(), []string{"web:1", "web:1"})

	require.Len(t, report.PushedImages, 4)
	for _, o := range report.PushedImages {
		assert.Equal(t, domain.PushSuccess, o.Status)
	}
}

func TestPusher_Push_RegistryProbeIsAdvisory(t *testing.T) {
	engine := &fakeEngine{}
	reg := &fakeRegistry{host: "localhost:5000", pingErr: errors.New("connection refused")}

	report := NewPusher(engine, reg, false, logger.Discard()).Push(context.Background(), []string{"web:1"})

	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "localhost:5000")
	assert.Len(t, engine.pushed, 2)
}

func TestPusher_Push_InvalidReference(t *testing.T) {
	engine := &fakeEngine{}
	reg := &fakeRegistry{host: "localhost:5000"}

	report := NewPusher(engine, reg, false, logger.Discard()).Push(context.Background(), []string{"<none>:<none>"})

	require.Len(t, report.PushedImages, 2)
	assert.Equal(t, domain.PushTypeOriginal, report.PushedImages[0].Type)
	assert.Equal(t, domain.PushTypeLatest, report.PushedImages[1].Type)
	for _, o := range report.PushedImages {
		assert.Equal(t, domain.PushFailed, o.Status)
	}
	assert.Len(t, report.Errors, 1)
	assert.Empty(t, engine.tagged)
}

func TestPusher_Push_RejectsInvalidRepositoryName(t *testing.T) {
	engine := &fakeEngine{}
	reg := &fakeRegistry{host: "localhost:5000"}

	report := NewPusher(engine, reg, false, logger.Discard()).Push(context.Background(), []string{"MyApp:1.0", "ok:1"})

	require.Len(t, report.PushedImages, 4)
	assert.Equal(t, domain.PushFailed, report.PushedImages[0].Status)
	assert.Equal(t, domain.PushFailed, report.PushedImages[1].Status)
	assert.Equal(t, domain.PushSuccess, report.PushedImages[2].Status)
	assert.Equal(t, []string{"localhost:5000/ok:1", "localhost:5000/ok:latest"}, engine.pushed)
}

func TestPusher_Push_RemovesLocalTags(t *testing.T) {
	engine := &fakeEngine{}
	reg := &fakeRegistry{host: "localhost:5000"}

	NewPusher(engine, reg, true, logger.Discard()).Push(context.Background(), []string{"web:1", "localhost:5000/api:2"})

	assert.Equal(t, []string{
		"localhost:5000/web:1",
		"localhost:5000/web:latest",
		"localhost:5000/api:latest",
	}, engine.removed)
}

func TestPusher_Push_RemoveFailureIsIgnored(t *testing.T) {
	engine := &fakeEngine{removeErr: errors.New("in use")}
	reg := &fakeRegistry{host: "localhost:5000"}

	report := NewPusher(engine, reg, true, logger.Discard()).Push(context.Background(), []string{"web:1"})

	assert.Empty(t, report.Errors)
	assert.Equal(t, 2, len(report.PushedImages))
}
