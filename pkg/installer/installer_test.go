package installer

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/frm-sh/frm/pkg/catalog"
	"github.com/frm-sh/frm/pkg/checksum"
	"github.com/frm-sh/frm/pkg/paths"
	"github.com/frm-sh/frm/pkg/store"
	"github.com/frm-sh/frm/pkg/version"
)

type fakeCatalog struct {
	versions []version.Version
	asset    catalog.AssetRef
}

func (c *fakeCatalog) ListVersions(_ context.Context, track version.Track) ([]version.Version, error) {
	var out []version.Version
	for _, v := range c.versions {
		if track.Accepts(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c *fakeCatalog) ResolveAsset(context.Context, version.Track, version.Version) (catalog.AssetRef, error) {
	return c.asset, nil
}

// releaseArchive builds a minimal generic-unix tar.xz for a version.
func releaseArchive(t *testing.T, ver string, payload string) []byte {
	t.Helper()
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	top := "rabbitmq_server-" + ver
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: top + "/", Typeflag: tar.TypeDir, Mode: 0o755,
	}))
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: top + "/sbin/", Typeflag: tar.TypeDir, Mode: 0o755,
	}))
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: top + "/sbin/rabbitmq-server", Typeflag: tar.TypeReg,
		Mode: 0o755, Size: int64(len(payload)),
	}))
	_, err := tw.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	var xzBuf bytes.Buffer
	xw, err := xz.NewWriter(&xzBuf)
	require.NoError(t, err)
	_, err = xw.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, xw.Close())
	return xzBuf.Bytes()
}

// testInstaller serves a release archive with a checksum sidecar over
// a local HTTP server and returns an installer wired to it.
func testInstaller(t *testing.T, ver string, payload string) (*Installer, *store.Store) {
	t.Helper()
	data := releaseArchive(t, ver, payload)
	sum := sha256.Sum256(data)
	name := fmt.Sprintf("rabbitmq-server-generic-unix-%s.tar.xz", ver)

	mux := http.NewServeMux()
	mux.HandleFunc("/"+name, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(data)
	})
	mux.HandleFunc("/"+name+".sha256", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "%s  %s\n", hex.EncodeToString(sum[:]), name)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	layout := paths.NewLayoutAt(t.TempDir())
	require.NoError(t, layout.EnsureDirs())
	st := store.New(layout)
	cat := &fakeCatalog{
		versions: []version.Version{version.MustParse(ver)},
		asset: catalog.AssetRef{
			URL:         srv.URL + "/" + name,
			Name:        name,
			ChecksumURL: srv.URL + "/" + name + ".sha256",
		},
	}
	return New(cat, st), st
}

func TestInstallLatest(t *testing.T) {
	inst, st := testInstaller(t, "4.1.0", "#!/bin/sh\n")

	iv, err := inst.Install(context.Background(), Request{
		Track: version.TrackRelease, Version: "latest", SkipSignature: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "4.1.0", iv.Version.String())

	installed, warnings, err := st.List(version.TrackRelease)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, installed, 1)

	// The extracted tree landed under the track root.
	bin := filepath.Join(iv.InstallPath, "sbin", "rabbitmq-server")
	data, err := os.ReadFile(bin)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(data))

	// The archive stays cached for reinstalls.
	entries, err := os.ReadDir(st.Layout().DownloadsDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestInstallIsIdempotent(t *testing.T) {
	inst, _ := testInstaller(t, "4.1.0", "one\n")
	req := Request{Track: version.TrackRelease, Version: "4.1.0", SkipSignature: true}

	first, err := inst.Install(context.Background(), req)
	require.NoError(t, err)
	second, err := inst.Install(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.InstalledAt, second.InstalledAt)
}

func TestInstallNoLatestOnAlphaTrack(t *testing.T) {
	inst, _ := testInstaller(t, "4.1.0", "x")

	_, err := inst.Install(context.Background(), Request{
		Track: version.TrackAlpha, Version: "latest", SkipSignature: true,
	})
	var noLatest *version.NoLatestAvailableError
	require.ErrorAs(t, err, &noLatest)
	assert.Equal(t, version.TrackAlpha, noLatest.Track)
}

func TestInstallChecksumMismatchLeavesRootUntouched(t *testing.T) {
	inst, st := testInstaller(t, "4.1.0", "x")
	// Corrupt the declared digest.
	cat := inst.Catalog.(*fakeCatalog)
	mux := http.NewServeMux()
	mux.HandleFunc("/bad.sha256", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "%064d  %s\n", 0, cat.asset.Name)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	cat.asset.ChecksumURL = srv.URL + "/bad.sha256"

	_, err := inst.Install(context.Background(), Request{
		Track: version.TrackRelease, Version: "4.1.0", SkipSignature: true,
	})
	var mismatch *checksum.MismatchError
	require.ErrorAs(t, err, &mismatch)

	installed, _, err := st.List(version.TrackRelease)
	require.NoError(t, err)
	assert.Empty(t, installed)

	// The corrupt archive must not be reused from cache.
	entries, err := os.ReadDir(st.Layout().DownloadsDir())
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Nothing staged is left behind either.
	staged, err := os.ReadDir(st.Layout().StagingDir())
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestInstallBadSignatureRemovesSidecars(t *testing.T) {
	inst, st := testInstaller(t, "4.1.0", "x")
	cat := inst.Catalog.(*fakeCatalog)

	// A real signature over different content fails verification.
	badSig, err := os.ReadFile(filepath.Join("..", "signature", "testdata", "artifact.bin.asc"))
	require.NoError(t, err)
	mux := http.NewServeMux()
	mux.HandleFunc("/bad.asc", func(w http.ResponseWriter, _ *http.Request) {
		w.Write(badSig)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	cat.asset.SignatureURL = srv.URL + "/bad.asc"

	key, err := os.ReadFile(filepath.Join("..", "signature", "testdata", "signing-key.asc"))
	require.NoError(t, err)
	keyPath := filepath.Join(st.Layout().DownloadsDir(), "rabbitmq-release-signing-key.asc")
	require.NoError(t, os.WriteFile(keyPath, key, 0o644))

	_, err = inst.Install(context.Background(), Request{
		Track: version.TrackRelease, Version: "4.1.0",
	})
	require.Error(t, err)

	// Neither the rejected archive nor its signature sidecar sticks
	// around in the cache.
	assert.NoFileExists(t, filepath.Join(st.Layout().DownloadsDir(), cat.asset.Name))
	assert.NoFileExists(t, filepath.Join(st.Layout().DownloadsDir(), cat.asset.Name+".asc"))
	assert.FileExists(t, keyPath)
}

func TestForceReinstallReplaces(t *testing.T) {
	inst, _ := testInstaller(t, "4.1.0", "old\n")
	req := Request{Track: version.TrackRelease, Version: "4.1.0", SkipSignature: true}

	iv, err := inst.Install(context.Background(), req)
	require.NoError(t, err)

	// Mutate the install, then force a reinstall from the cached archive.
	marker := filepath.Join(iv.InstallPath, "scratch.txt")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	req.Force = true
	iv, err = inst.Install(context.Background(), req)
	require.NoError(t, err)

	_, err = os.Stat(marker)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(filepath.Join(iv.InstallPath, "sbin", "rabbitmq-server"))
	require.NoError(t, err)
	assert.Equal(t, "old\n", string(data))
}

func TestInstallLocalArchive(t *testing.T) {
	inst, st := testInstaller(t, "4.1.0", "ignored")
	data := releaseArchive(t, "4.2.0-alpha.5", "local build\n")
	src := filepath.Join(t.TempDir(), "rabbitmq-server-generic-unix-4.2.0-alpha.5.tar.xz")
	require.NoError(t, os.WriteFile(src, data, 0o644))

	iv, err := inst.Install(context.Background(), Request{
		Track: version.TrackLocal, LocalSource: src,
	})
	require.NoError(t, err)
	assert.Equal(t, "4.2.0-alpha.5", iv.Version.String())
	assert.False(t, iv.Verified)
	assert.FileExists(t, filepath.Join(iv.InstallPath, "sbin", "rabbitmq-server"))
	assert.True(t, st.Installed(version.TrackLocal, version.MustParse("4.2.0-alpha.5")))
}

func TestInstallLocalVersionMismatch(t *testing.T) {
	inst, _ := testInstaller(t, "4.1.0", "ignored")
	data := releaseArchive(t, "4.2.0", "x")
	src := filepath.Join(t.TempDir(), "rabbitmq-server-generic-unix-4.2.0.tar.xz")
	require.NoError(t, os.WriteFile(src, data, 0o644))

	_, err := inst.Install(context.Background(), Request{
		Track: version.TrackLocal, LocalSource: src, Version: "4.3.0",
	})
	var mismatch *VersionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "4.3.0", mismatch.Expected.String())
	assert.Equal(t, "4.2.0", mismatch.Detected.String())
}

func TestInstallSeedsSharedConfig(t *testing.T) {
	inst, st := testInstaller(t, "4.1.0", "x")
	shared := filepath.Join(st.Layout().SharedEtcDir(), "rabbitmq.conf")
	require.NoError(t, os.WriteFile(shared, []byte("log.console = true\n"), 0o644))

	iv, err := inst.Install(context.Background(), Request{
		Track: version.TrackRelease, Version: "4.1.0", SkipSignature: true,
	})
	require.NoError(t, err)

	seeded, err := os.ReadFile(filepath.Join(iv.InstallPath, "etc", "rabbitmq", "rabbitmq.conf"))
	require.NoError(t, err)
	assert.Equal(t, "log.console = true\n", string(seeded))
}

func TestInferVersion(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "rabbitmq-server-generic-unix-4.1.0.tar.xz", want: "4.1.0"},
		{name: "rabbitmq-server-generic-unix-4.2.0-alpha.12.tar.xz", want: "4.2.0-alpha.12"},
		{name: "/tmp/builds/rabbitmq-server-generic-unix-3.13.7.tar.gz", want: "3.13.7"},
		{name: "rabbitmq-server.zip", wantErr: true},
		{name: "no-version-here.tar.xz", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := InferVersion(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}
