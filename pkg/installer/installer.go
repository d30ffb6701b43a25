// Package installer drives the install pipeline: resolve a version,
// download or adopt an archive, verify it, extract it into staging and
// promote it into the track root with a single rename.
package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/frm-sh/frm/pkg/archive"
	"github.com/frm-sh/frm/pkg/catalog"
	"github.com/frm-sh/frm/pkg/checksum"
	"github.com/frm-sh/frm/pkg/fetch"
	"github.com/frm-sh/frm/pkg/paths"
	"github.com/frm-sh/frm/pkg/signature"
	"github.com/frm-sh/frm/pkg/store"
	"github.com/frm-sh/frm/pkg/version"
)

// Request describes one install.
type Request struct {
	Track version.Track
	// Version is an exact version string, "latest", or empty which means
	// latest. Ignored for local archives unless set, in which case it is
	// cross-checked against the version inferred from the filename.
	Version string
	// Force reinstalls over an existing installation.
	Force bool
	// LocalSource is a path to a release archive on disk. When set no
	// catalog or network access happens.
	LocalSource string
	// SkipSignature disables detached signature verification.
	SkipSignature bool
}

// Installer wires the pipeline stages together.
type Installer struct {
	Catalog  catalog.Client
	Store    *store.Store
	Progress fetch.ProgressFunc
}

// New returns an installer over a catalog and a store.
func New(cat catalog.Client, st *store.Store) *Installer {
	return &Installer{Catalog: cat, Store: st}
}

func (i *Installer) layout() *paths.Layout { return i.Store.Layout() }

// Install runs the pipeline for one request. The track root is never
// touched until the staged tree has been extracted and validated; the
// promotion itself is a single rename and the completion marker is
// written last.
func (i *Installer) Install(ctx context.Context, req Request) (store.InstalledVersion, error) {
	v, err := i.resolve(ctx, req)
	if err != nil {
		return store.InstalledVersion{}, err
	}

	if i.Store.Installed(req.Track, v) && !req.Force {
		log.Infof("%s is already installed on track %s", v, req.Track)
		return i.Store.Get(req.Track, v)
	}

	release, err := i.Store.Lock(req.Track, v)
	if err != nil {
		return store.InstalledVersion{}, err
	}
	defer release()

	archivePath, verified, err := i.obtain(ctx, req, v)
	if err != nil {
		return store.InstalledVersion{}, err
	}

	staged, cleanup, err := i.stage(archivePath, req.Track, v)
	if err != nil {
		return store.InstalledVersion{}, err
	}
	defer cleanup()

	if err := i.promote(staged, req.Track, v, req.Force); err != nil {
		return store.InstalledVersion{}, err
	}
	return i.Store.RecordInstall(req.Track, v, verified)
}

// resolve turns the request into a concrete version.
func (i *Installer) resolve(ctx context.Context, req Request) (version.Version, error) {
	if req.LocalSource != "" {
		return i.resolveLocal(req)
	}

	if req.Version != "" && req.Version != "latest" {
		return version.Parse(req.Version)
	}

	candidates, err := i.Catalog.ListVersions(ctx, req.Track)
	if err != nil {
		return version.Version{}, err
	}
	v, ok := version.ResolveLatestIn(req.Track, candidates)
	if !ok {
		return version.Version{}, &version.NoLatestAvailableError{Track: req.Track}
	}
	return v, nil
}

// obtain produces a verified archive on local disk. For remote installs
// the archive cache under downloads/ is consulted first. The returned
// bool records whether both checksum and signature checks ran.
func (i *Installer) obtain(ctx context.Context, req Request, v version.Version) (string, bool, error) {
	if req.LocalSource != "" {
		if _, err := os.Stat(req.LocalSource); err != nil {
			return "", false, errors.Wrapf(err, "cannot read local archive %s", req.LocalSource)
		}
		// Local archives carry no sidecars to verify against.
		return req.LocalSource, false, nil
	}

	ref, err := i.Catalog.ResolveAsset(ctx, req.Track, v)
	if err != nil {
		return "", false, err
	}

	archivePath := filepath.Join(i.layout().DownloadsDir(), ref.Name)
	if _, err := os.Stat(archivePath); err == nil {
		log.Infof("using cached archive %s", ref.Name)
	} else {
		log.Infof("downloading %s", ref.URL)
		if err := fetch.Download(ctx, ref.URL, archivePath, i.Progress); err != nil {
			return "", false, err
		}
	}

	checksummed, err := i.verifyChecksum(ctx, archivePath, ref)
	if err != nil {
		return "", false, err
	}
	signed, err := i.verifySignature(ctx, archivePath, ref, req.SkipSignature)
	if err != nil {
		return "", false, err
	}
	return archivePath, checksummed && signed, nil
}

func (i *Installer) verifyChecksum(ctx context.Context, archivePath string, ref catalog.AssetRef) (bool, error) {
	if ref.ChecksumURL == "" {
		log.Warnf("release publishes no checksum for %s", ref.Name)
		return false, nil
	}
	sidecar, found, err := fetch.FetchBytes(ctx, ref.ChecksumURL)
	if err != nil {
		return false, errors.Wrap(err, "failed to fetch checksum")
	}
	if !found {
		log.Warnf("checksum missing for %s", ref.Name)
		return false, nil
	}
	digest, ok := checksum.ParseSidecar(sidecar, ref.Name)
	if !ok {
		return false, errors.Errorf("cannot parse checksum file for %s", ref.Name)
	}
	algorithm, err := algorithmFor(digest)
	if err != nil {
		return false, err
	}
	if err := checksum.Verify(archivePath, digest, algorithm); err != nil {
		// A corrupt archive must not be reused by a later install.
		os.Remove(archivePath)
		return false, err
	}
	log.Debugf("checksum verified for %s", ref.Name)
	return true, nil
}

func (i *Installer) verifySignature(ctx context.Context, archivePath string, ref catalog.AssetRef, skip bool) (bool, error) {
	if skip {
		log.Warnf("skipping signature verification for %s", ref.Name)
		return false, nil
	}
	if ref.SignatureURL == "" {
		log.Warnf("release publishes no signature for %s", ref.Name)
		return false, nil
	}
	sig, found, err := fetch.FetchBytes(ctx, ref.SignatureURL)
	if err != nil {
		return false, errors.Wrap(err, "failed to fetch signature")
	}
	if !found {
		log.Warnf("signature missing for %s", ref.Name)
		return false, nil
	}

	sigPath := archivePath + ".asc"
	if err := os.WriteFile(sigPath, sig, 0o644); err != nil {
		return false, errors.Wrap(err, "failed to write signature file")
	}
	defer os.Remove(sigPath)
	keyringPath, err := i.signingKey(ctx)
	if err != nil {
		return false, err
	}
	if err := signature.VerifyFile(archivePath, sigPath, keyringPath); err != nil {
		os.Remove(archivePath)
		return false, err
	}
	log.Debugf("signature verified for %s", ref.Name)
	return true, nil
}

// signingKey returns the cached release signing key, downloading it on
// first use.
func (i *Installer) signingKey(ctx context.Context) (string, error) {
	path := filepath.Join(i.layout().DownloadsDir(), "rabbitmq-release-signing-key.asc")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	log.Infof("fetching release signing key")
	if err := fetch.Download(ctx, signature.SigningKeyURL, path, nil); err != nil {
		return "", errors.Wrap(err, "failed to fetch signing key")
	}
	return path, nil
}

// stage extracts the archive into a private staging directory and
// validates the extracted tree. The cleanup func removes the staging
// directory in every outcome.
func (i *Installer) stage(archivePath string, track version.Track, v version.Version) (string, func(), error) {
	if err := os.MkdirAll(i.layout().StagingDir(), 0o755); err != nil {
		return "", nil, errors.Wrap(err, "failed to create staging directory")
	}
	stagingDir, err := os.MkdirTemp(i.layout().StagingDir(), fmt.Sprintf("%s-%s-*", track, v.DirName()))
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to create staging directory")
	}
	cleanup := func() { os.RemoveAll(stagingDir) }

	staged, err := archive.Extract(archivePath, stagingDir)
	if err != nil {
		cleanup()
		return "", nil, err
	}

	if _, err := os.Stat(filepath.Join(staged, "sbin", "rabbitmq-server")); err != nil {
		cleanup()
		return "", nil, errors.Errorf("archive has no sbin/rabbitmq-server under %s", filepath.Base(staged))
	}

	if err := i.seedConfig(staged); err != nil {
		cleanup()
		return "", nil, err
	}
	return staged, cleanup, nil
}

// seedConfig copies shared config templates into a staged tree so each
// fresh install starts from the user's base etc/rabbitmq.
func (i *Installer) seedConfig(staged string) error {
	entries, err := os.ReadDir(i.layout().SharedEtcDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "failed to read shared config directory")
	}

	destDir := filepath.Join(staged, "etc", "rabbitmq")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(i.layout().SharedEtcDir(), entry.Name())
		if err := copyFile(src, filepath.Join(destDir, entry.Name())); err != nil {
			return errors.Wrapf(err, "failed to seed config %s", entry.Name())
		}
	}
	return nil
}

// promote moves the validated staged tree into the track root. On a
// forced reinstall the previous installation is removed only now, after
// the replacement is known good.
func (i *Installer) promote(staged string, track version.Track, v version.Version, force bool) error {
	dest := i.layout().VersionDir(track, v)
	if force && i.Store.Installed(track, v) {
		if err := os.Remove(i.layout().MarkerPath(track, v)); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "failed to remove install marker")
		}
		if err := os.RemoveAll(dest); err != nil {
			return errors.Wrapf(err, "failed to remove previous %s", dest)
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrap(err, "failed to create track root")
	}
	if err := os.Rename(staged, dest); err != nil {
		return errors.Wrapf(err, "failed to promote %s", v)
	}
	return nil
}

func algorithmFor(digest string) (checksum.Algorithm, error) {
	switch len(digest) {
	case 64:
		return checksum.SHA256, nil
	case 128:
		return checksum.SHA512, nil
	}
	return "", errors.Errorf("unrecognized checksum digest length %d", len(digest))
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
