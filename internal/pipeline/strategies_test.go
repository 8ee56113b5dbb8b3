package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/tarpush/internal/domain"
	"github.com/bnema/tarpush/pkg/docker"
)

const testID = "sha256:4f53cda18c2baa0c0354bb5f9a3ecbe5ed12ab4d8e11ba873c2f11161202b945"

func TestParseLoadedImages(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{"single", "Loaded image: myapp:1.2.0\n", []string{"myapp:1.2.0"}},
		{"multiple", "Loaded image: a:1\nLoaded image: b:2\n", []string{"a:1", "b:2"}},
		{"with registry", "Loaded image: localhost:5000/team/api:v3", []string{"localhost:5000/team/api:v3"}},
		{"ids only", "Loaded image ID: " + testID, nil},
		{"empty", "", nil},
		{"noise", "some progress line\nLoaded image: web:2\ndone", []string{"web:2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLoadedImages(tt.output))
		})
	}
}

func TestParseLoadedImageIDs(t *testing.T) {
	ids, malformed := ParseLoadedImageIDs("Loaded image ID: " + testID + "\nLoaded image ID: nope\n")
	require.Len(t, ids, 1)
	assert.Equal(t, testID, ids[0].String())
	assert.Equal(t, []string{"nope"}, malformed)
}

func TestPickRecent(t *testing.T) {
	images := []docker.ImageSummary{
		{ID: "3", RepoTags: []string{"<none>:<none>"}},
		{ID: "2", RepoTags: []string{"web:2", "web:latest"}},
		{ID: "1", RepoTags: []string{"db:1"}},
	}

	assert.Equal(t, []string{"web:2", "web:latest", "db:1"}, PickRecent(images, 5))
	assert.Equal(t, []string{"web:2"}, PickRecent(images, 1))
	assert.Empty(t, PickRecent(nil, 5))
}

func TestLoadedIDsStrategy_Recover(t *testing.T) {
	engine := &fakeEngine{repoTags: map[string][]string{testID: {"myapp:1.2.0"}}}

	images, warnings := LoadedIDsStrategy(engine).Recover(context.Background(), "Loaded image ID: "+testID)
	assert.Equal(t, []string{"myapp:1.2.0"}, images)
	assert.Empty(t, warnings)

	engine.repoTags = map[string][]string{}
	images, warnings = LoadedIDsStrategy(engine).Recover(context.Background(), "Loaded image ID: "+testID)
	assert.Empty(t, images)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "sha256:4f53cda18c2b")
}

func TestRecentImagesStrategy_Recover(t *testing.T) {
	engine := &fakeEngine{images: []docker.ImageSummary{
		{ID: "1", RepoTags: []string{"web:2"}, Created: time.Now()},
	}}
	s := RecentImagesStrategy(engine, 5)
	assert.Equal(t, "recent-images", s.Name)

	images, warnings := s.Recover(context.Background(), "")
	assert.Equal(t, []string{"web:2"}, images)
	assert.Equal(t, []string{domain.MsgApproximateList}, warnings)

	engine.listErr = errors.New("boom")
	images, warnings = s.Recover(context.Background(), "")
	assert.Empty(t, images)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "boom")
}
