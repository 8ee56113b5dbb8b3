package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/tarpush/internal/domain"
	"github.com/bnema/tarpush/pkg/logger"
)

func fakeRegistry(t *testing.T, tags map[string][]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v2/":
			w.Header().Set("Docker-Distribution-API-Version", "registry/2.0")
			_, _ = w.Write([]byte("{}"))
		case r.URL.Path == "/v2/_catalog":
			names := make([]string, 0, len(tags))
			for name := range tags {
				names = append(names, name)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"repositories": names})
		case strings.HasSuffix(r.URL.Path, "/tags/list"):
			name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v2/"), "/tags/list")
			list, ok := tags[name]
			if !ok {
				http.Error(w, `{"errors":[{"code":"NAME_UNKNOWN"}]}`, http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"name": name, "tags": list})
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestParseHost(t *testing.T) {
	tests := []struct {
		raw       string
		wantHost  string
		wantPlain bool
		wantErr   bool
	}{
		{raw: "http://localhost:5000", wantHost: "localhost:5000", wantPlain: true},
		{raw: "https://registry.example.com/", wantHost: "registry.example.com"},
		{raw: "registry.local:5000/", wantHost: "registry.local:5000"},
		{raw: "localhost:5000", wantHost: "localhost:5000", wantPlain: true},
		{raw: "127.0.0.1:5000", wantHost: "127.0.0.1:5000", wantPlain: true},
		{raw: "[::1]:5000", wantHost: "[::1]:5000", wantPlain: true},
		{raw: "localhost", wantHost: "localhost", wantPlain: true},
		{raw: "https://localhost:5000", wantHost: "localhost:5000"},
		{raw: "", wantErr: true},
		{raw: "http://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			host, plain, err := ParseHost(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPlain, plain)
		})
	}
}

func TestClient_Ping(t *testing.T) {
	srv := fakeRegistry(t, nil)
	c, err := New(Config{URL: srv.URL}, logger.Discard())
	require.NoError(t, err)

	assert.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, strings.TrimPrefix(srv.URL, "http://"), c.Host())
	assert.Equal(t, srv.URL, c.URL())
}

func TestClient_Ping_BareLoopbackHost(t *testing.T) {
	srv := fakeRegistry(t, nil)
	c, err := New(Config{URL: strings.TrimPrefix(srv.URL, "http://")}, logger.Discard())
	require.NoError(t, err)

	assert.NoError(t, c.Ping(context.Background()))
}

func TestClient_Ping_Unreachable(t *testing.T) {
	srv := fakeRegistry(t, nil)
	url := srv.URL
	srv.Close()

	c, err := New(Config{URL: url, HTTPClient: &http.Client{}}, logger.Discard())
	require.NoError(t, err)

	err = c.Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrRegistryUnreachable)
}

func TestClient_Catalog(t *testing.T) {
	srv := fakeRegistry(t, map[string][]string{
		"myapp": {"latest", "1.2.0"},
		"web":   {"2.0"},
	})
	c, err := New(Config{URL: srv.URL}, logger.Discard())
	require.NoError(t, err)

	repos, err := c.Catalog(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []Repository{
		{Name: "myapp", Tags: []string{"1.2.0", "latest"}},
		{Name: "web", Tags: []string{"2.0"}},
	}, repos)
}

func TestClient_Catalog_Unreachable(t *testing.T) {
	srv := fakeRegistry(t, nil)
	url := srv.URL
	srv.Close()
	c, err := New(Config{URL: url, HTTPClient: &http.Client{}}, logger.Discard())
	require.NoError(t, err)

	_, err = c.Catalog(context.Background())

	assert.ErrorIs(t, err, domain.ErrRegistryUnreachable)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Config{URL: ""}, logger.Discard())
	assert.Error(t, err)
}
