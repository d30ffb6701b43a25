package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v60/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frm-sh/frm/pkg/version"
)

func TestParseReleaseName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "plain", input: "RabbitMQ 4.3.0-alpha.3", want: "4.3.0-alpha.3", ok: true},
		{name: "trailing text", input: "RabbitMQ 4.3.0-alpha.3 (nightly)", want: "4.3.0-alpha.3", ok: true},
		{name: "ga name", input: "RabbitMQ 4.1.0", want: "4.1.0", ok: true},
		{name: "no prefix", input: "v4.1.0", ok: false},
		{name: "garbage after prefix", input: "RabbitMQ next", ok: false},
		{name: "empty", input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ParseReleaseName(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, v.String())
			}
		})
	}
}

func TestResolveAssetReleaseTrack(t *testing.T) {
	g := NewGitHub()
	ref, err := g.ResolveAsset(context.Background(), version.TrackRelease, version.MustParse("4.1.0"))
	require.NoError(t, err)

	assert.Equal(t, "rabbitmq-server-generic-unix-4.1.0.tar.xz", ref.Name)
	assert.Equal(t,
		"https://github.com/rabbitmq/rabbitmq-server/releases/download/v4.1.0/rabbitmq-server-generic-unix-4.1.0.tar.xz",
		ref.URL)
	assert.Equal(t, ref.URL+".sha256", ref.ChecksumURL)
	assert.Equal(t, ref.URL+".asc", ref.SignatureURL)
}

// newTestCatalog points a GitHub catalog at a local API stub.
func newTestCatalog(t *testing.T, handler http.Handler) *GitHub {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	return NewGitHubWithClient(client)
}

func TestListVersionsReleaseTrack(t *testing.T) {
	g := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/rabbitmq/rabbitmq-server/releases", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"tag_name": "v4.1.0", "name": "RabbitMQ 4.1.0"},
			{"tag_name": "v4.1.0-rc.1", "name": "RabbitMQ 4.1.0-rc.1"},
			{"tag_name": "nightly-tools", "name": "Tooling drop"},
			{"tag_name": "v4.0.9", "name": "RabbitMQ 4.0.9"}
		]`)
	}))

	got, err := g.ListVersions(context.Background(), version.TrackRelease)
	require.NoError(t, err)

	names := make([]string, len(got))
	for i, v := range got {
		names[i] = v.String()
	}
	// Sorted ascending, unparseable tags skipped.
	assert.Equal(t, []string{"4.0.9", "4.1.0-rc.1", "4.1.0"}, names)
}

func TestListVersionsAlphaTrack(t *testing.T) {
	g := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/rabbitmq/server-packages/releases", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"tag_name": "alphas.1712", "name": "RabbitMQ 4.3.0-alpha.12"},
			{"tag_name": "alphas.1698", "name": "RabbitMQ 4.3.0-alpha.3"},
			{"tag_name": "tools.4", "name": "Erlang packages"}
		]`)
	}))

	got, err := g.ListVersions(context.Background(), version.TrackAlpha)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "4.3.0-alpha.12", got[1].String())
}

func TestListVersionsSurfacesCatalogUnavailable(t *testing.T) {
	g := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))

	_, err := g.ListVersions(context.Background(), version.TrackRelease)
	require.Error(t, err)
	var unavailable *UnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestResolveAssetAlphaTrackUsesPackagesTag(t *testing.T) {
	g := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"tag_name": "alphas.1712", "name": "RabbitMQ 4.3.0-alpha.12"}
		]`)
	}))

	ref, err := g.ResolveAsset(context.Background(), version.TrackAlpha, version.MustParse("4.3.0-alpha.12"))
	require.NoError(t, err)
	assert.Equal(t,
		"https://github.com/rabbitmq/server-packages/releases/download/alphas.1712/rabbitmq-server-generic-unix-4.3.0-alpha.12.tar.xz",
		ref.URL)

	_, err = g.ResolveAsset(context.Background(), version.TrackAlpha, version.MustParse("4.3.0-alpha.99"))
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
