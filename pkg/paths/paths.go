// Package paths defines the on-disk layout frm manages: per-track install
// roots, the archive cache, run-state directories and lock files.
package paths

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/frm-sh/frm/pkg/version"
)

// EnvBaseDir overrides the base directory when set.
const EnvBaseDir = "FRM_DIR"

// CompleteMarker is written into an install directory as the final step of
// promotion. A version directory without it is a half-finished install or
// a half-finished removal and is never treated as a valid installation.
const CompleteMarker = ".frm-complete"

// Layout resolves every path frm reads or writes under a single base dir.
type Layout struct {
	base string
}

// NewLayout returns a layout rooted at FRM_DIR, falling back to
// ~/.local/frm.
func NewLayout() (*Layout, error) {
	if dir := os.Getenv(EnvBaseDir); dir != "" {
		return &Layout{base: dir}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "cannot determine home directory")
	}
	return &Layout{base: filepath.Join(home, ".local", "frm")}, nil
}

// NewLayoutAt returns a layout rooted at an explicit base directory.
func NewLayoutAt(base string) *Layout {
	return &Layout{base: base}
}

// BaseDir returns the base directory.
func (l *Layout) BaseDir() string { return l.base }

// TrackRoot returns the install root for a track.
func (l *Layout) TrackRoot(t version.Track) string {
	return filepath.Join(l.base, t.String())
}

// VersionDir returns the install directory for a (track, version).
func (l *Layout) VersionDir(t version.Track, v version.Version) string {
	return filepath.Join(l.TrackRoot(t), v.DirName())
}

// SbinDir returns the server tool directory of an installation.
func (l *Layout) SbinDir(t version.Track, v version.Version) string {
	return filepath.Join(l.VersionDir(t, v), "sbin")
}

// EtcDir returns the per-installation config directory.
func (l *Layout) EtcDir(t version.Track, v version.Version) string {
	return filepath.Join(l.VersionDir(t, v), "etc", "rabbitmq")
}

// LogDir returns the per-installation log directory.
func (l *Layout) LogDir(t version.Track, v version.Version) string {
	return filepath.Join(l.VersionDir(t, v), "var", "log", "rabbitmq")
}

// MarkerPath returns the completion marker path for an installation.
func (l *Layout) MarkerPath(t version.Track, v version.Version) string {
	return filepath.Join(l.VersionDir(t, v), CompleteMarker)
}

// DefaultFile returns the default-pointer file for a track.
func (l *Layout) DefaultFile(t version.Track) string {
	return filepath.Join(l.TrackRoot(t), "default")
}

// SharedEtcDir returns the base-level config directory whose contents are
// seeded into each fresh installation.
func (l *Layout) SharedEtcDir() string {
	return filepath.Join(l.base, "etc", "rabbitmq")
}

// DownloadsDir returns the archive cache directory.
func (l *Layout) DownloadsDir() string {
	return filepath.Join(l.base, "downloads")
}

// StagingDir returns the extraction staging area. It lives outside every
// track root so a crashed extraction can never masquerade as an install.
func (l *Layout) StagingDir() string {
	return filepath.Join(l.base, "staging")
}

// RunDir returns the directory holding process records for a track.
func (l *Layout) RunDir(t version.Track) string {
	return filepath.Join(l.base, "run", t.String())
}

// RecordPath returns the process record path for a (track, version).
func (l *Layout) RecordPath(t version.Track, v version.Version) string {
	return filepath.Join(l.RunDir(t), v.DirName()+".pid")
}

// LocksDir returns the directory holding install locks.
func (l *Layout) LocksDir() string {
	return filepath.Join(l.base, "locks")
}

// LockPath returns the install lock path for a (track, version).
func (l *Layout) LockPath(t version.Track, v version.Version) string {
	return filepath.Join(l.LocksDir(), fmt.Sprintf("%s-%s.lock", t, v.DirName()))
}

// ConfigFile returns frm's own configuration file path.
func (l *Layout) ConfigFile() string {
	return filepath.Join(l.base, "config.yaml")
}

// EnsureDirs creates the directory skeleton.
func (l *Layout) EnsureDirs() error {
	dirs := []string{
		l.DownloadsDir(),
		l.StagingDir(),
		l.LocksDir(),
		l.SharedEtcDir(),
	}
	for _, t := range version.Tracks() {
		dirs = append(dirs, l.TrackRoot(t), l.RunDir(t))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create %s", dir)
		}
	}
	return nil
}
