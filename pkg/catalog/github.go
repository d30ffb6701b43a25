package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/buildkite/interpolate"
	"github.com/google/go-github/v60/github"
	"github.com/pkg/errors"

	"github.com/frm-sh/frm/pkg/version"
)

const (
	// DefaultServerRepo publishes GA, beta and rc releases.
	DefaultServerRepo = "rabbitmq/rabbitmq-server"
	// DefaultPackagesRepo publishes nightly alpha builds.
	DefaultPackagesRepo = "rabbitmq/server-packages"

	// assetTemplate names the generic-unix archive inside a release.
	assetTemplate = "rabbitmq-server-generic-unix-${VERSION}.tar.xz"

	perPage = 100
)

// GitHub is the release catalog backed by the GitHub releases API.
type GitHub struct {
	client       *github.Client
	serverRepo   string
	packagesRepo string
}

// NewGitHub returns a catalog client. A GITHUB_TOKEN in the environment is
// used for authentication, raising the unauthenticated rate limit.
func NewGitHub() *GitHub {
	client := github.NewClient(nil)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		client = client.WithAuthToken(token)
	}
	return &GitHub{
		client:       client,
		serverRepo:   DefaultServerRepo,
		packagesRepo: DefaultPackagesRepo,
	}
}

// NewGitHubWithClient returns a catalog talking to a custom go-github
// client, used by tests to point at a local server.
func NewGitHubWithClient(client *github.Client) *GitHub {
	return &GitHub{
		client:       client,
		serverRepo:   DefaultServerRepo,
		packagesRepo: DefaultPackagesRepo,
	}
}

// WithRepos overrides the repositories releases are listed from. Empty
// arguments keep the current value.
func (g *GitHub) WithRepos(serverRepo, packagesRepo string) *GitHub {
	if serverRepo != "" {
		g.serverRepo = serverRepo
	}
	if packagesRepo != "" {
		g.packagesRepo = packagesRepo
	}
	return g
}

// ListVersions returns every version the track's repository has released.
// The listing is paginated to completion before returning so that callers
// resolving "latest" always see the full candidate set.
func (g *GitHub) ListVersions(ctx context.Context, track version.Track) ([]version.Version, error) {
	releases, err := g.listReleases(ctx, track)
	if err != nil {
		return nil, err
	}

	var out []version.Version
	for _, rel := range releases {
		v, ok := g.releaseVersion(track, rel)
		if !ok {
			continue
		}
		if !track.Accepts(v) {
			continue
		}
		out = append(out, v)
	}
	version.Sort(out)
	return out, nil
}

// ResolveAsset returns the archive and sidecar URLs for a version.
func (g *GitHub) ResolveAsset(ctx context.Context, track version.Track, v version.Version) (AssetRef, error) {
	name, err := assetName(v)
	if err != nil {
		return AssetRef{}, err
	}

	var url string
	switch track {
	case version.TrackAlpha:
		// Alpha archives live under the packages repo's own release tag,
		// which only the listing reveals.
		tag, err := g.findPackagesTag(ctx, v)
		if err != nil {
			return AssetRef{}, err
		}
		url = fmt.Sprintf("https://github.com/%s/releases/download/%s/%s", g.packagesRepo, tag, name)
	default:
		url = fmt.Sprintf("https://github.com/%s/releases/download/v%s/%s", g.serverRepo, v, name)
	}

	return AssetRef{
		URL:          url,
		Name:         name,
		ChecksumURL:  url + ".sha256",
		SignatureURL: url + ".asc",
	}, nil
}

func (g *GitHub) repoFor(track version.Track) string {
	if track == version.TrackAlpha {
		return g.packagesRepo
	}
	return g.serverRepo
}

func (g *GitHub) listReleases(ctx context.Context, track version.Track) ([]*github.RepositoryRelease, error) {
	owner, repo, err := splitRepo(g.repoFor(track))
	if err != nil {
		return nil, err
	}

	var all []*github.RepositoryRelease
	opts := &github.ListOptions{PerPage: perPage}
	for {
		releases, resp, err := g.client.Repositories.ListReleases(ctx, owner, repo, opts)
		if err != nil {
			return nil, &UnavailableError{Track: track, Err: err}
		}
		all = append(all, releases...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	log.Debugf("listed %d releases from %s/%s", len(all), owner, repo)
	return all, nil
}

func (g *GitHub) releaseVersion(track version.Track, rel *github.RepositoryRelease) (version.Version, bool) {
	if track == version.TrackAlpha {
		return ParseReleaseName(rel.GetName())
	}
	v, err := version.Parse(rel.GetTagName())
	if err != nil {
		return version.Version{}, false
	}
	return v, true
}

// findPackagesTag locates the packages-repo release tag that carries an
// alpha version, by scanning the complete listing.
func (g *GitHub) findPackagesTag(ctx context.Context, v version.Version) (string, error) {
	releases, err := g.listReleases(ctx, version.TrackAlpha)
	if err != nil {
		return "", err
	}
	for _, rel := range releases {
		if rv, ok := ParseReleaseName(rel.GetName()); ok && rv.Equal(v) {
			return rel.GetTagName(), nil
		}
	}
	return "", &NotFoundError{Track: version.TrackAlpha, Version: v}
}

// ParseReleaseName extracts a version from a packages-repo release name,
// e.g. "RabbitMQ 4.3.0-alpha.7f1c9d2 (from ...)".
func ParseReleaseName(name string) (version.Version, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(name), "RabbitMQ ")
	if !ok {
		return version.Version{}, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return version.Version{}, false
	}
	v, err := version.Parse(fields[0])
	if err != nil {
		return version.Version{}, false
	}
	return v, true
}

func assetName(v version.Version) (string, error) {
	env := interpolate.NewMapEnv(map[string]string{"VERSION": v.String()})
	name, err := interpolate.Interpolate(env, assetTemplate)
	if err != nil {
		return "", errors.Wrap(err, "failed to interpolate asset template")
	}
	return name, nil
}

func splitRepo(repo string) (string, string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return "", "", errors.Errorf("invalid repository %q, want owner/name", repo)
	}
	return owner, name, nil
}
