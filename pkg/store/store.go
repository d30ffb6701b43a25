// Package store owns the on-disk inventory of installed versions and the
// persisted default pointer for each track.
//
// The filesystem is the source of truth: every read scans the track root
// instead of trusting an index file, so a version that disappeared under a
// concurrent invocation is simply absent from the result.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/goccy/go-yaml"
	"github.com/google/renameio/v2"
	"github.com/pkg/errors"

	"github.com/frm-sh/frm/pkg/paths"
	"github.com/frm-sh/frm/pkg/version"
)

// InstalledVersion describes one installation found on disk.
type InstalledVersion struct {
	Track       version.Track
	Version     version.Version
	InstallPath string
	InstalledAt time.Time
	Verified    bool
}

// Warning describes a scan-time anomaly that was recovered by skipping
// the offending entry.
type Warning struct {
	Path   string
	Reason string
}

// marker is the completion marker written at promotion time.
type marker struct {
	InstalledAt time.Time `yaml:"installed_at"`
	Verified    bool      `yaml:"verified"`
}

// UninstallGuard lets the store refuse to remove an installation that has
// a running server node. Implemented by the background process manager.
type UninstallGuard interface {
	Running(track version.Track, v version.Version) (bool, error)
	Stop(ctx context.Context, track version.Track, v version.Version) error
}

// Store is the install state manager.
type Store struct {
	layout *paths.Layout
}

// New returns a store over a layout.
func New(layout *paths.Layout) *Store {
	return &Store{layout: layout}
}

// Layout exposes the underlying layout.
func (s *Store) Layout() *paths.Layout { return s.layout }

// List scans a track root and returns its installations in ascending
// version order. Entries whose directory name does not parse as a version
// and half-finished installs are skipped and reported as warnings.
func (s *Store) List(track version.Track) ([]InstalledVersion, []Warning, error) {
	root := s.layout.TrackRoot(track)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, errors.Wrapf(err, "failed to scan %s", root)
	}

	var (
		installed []InstalledVersion
		warnings  []Warning
	)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		v, err := version.Parse(name)
		if err != nil {
			warnings = append(warnings, Warning{
				Path:   filepath.Join(root, name),
				Reason: fmt.Sprintf("directory name is not a version: %q", name),
			})
			log.Warnf("skipping %s in %s: not a version directory", name, root)
			continue
		}

		iv, err := s.read(track, v)
		if err != nil {
			var orphaned *OrphanedInstallError
			if errors.As(err, &orphaned) {
				warnings = append(warnings, Warning{Path: orphaned.Path, Reason: err.Error()})
				log.Warnf("%v", err)
				continue
			}
			return nil, nil, err
		}
		installed = append(installed, iv)
	}

	sortInstalled(installed)
	return installed, warnings, nil
}

// Versions returns just the versions installed on a track, ascending.
func (s *Store) Versions(track version.Track) ([]version.Version, error) {
	installed, _, err := s.List(track)
	if err != nil {
		return nil, err
	}
	vs := make([]version.Version, len(installed))
	for i, iv := range installed {
		vs[i] = iv.Version
	}
	return vs, nil
}

// Get returns the installation of a specific version.
func (s *Store) Get(track version.Track, v version.Version) (InstalledVersion, error) {
	if !s.Installed(track, v) {
		return InstalledVersion{}, &VersionNotInstalledError{Track: track, Version: v}
	}
	return s.read(track, v)
}

// Installed reports whether a complete installation exists. A directory
// without the completion marker does not count.
func (s *Store) Installed(track version.Track, v version.Version) bool {
	_, err := os.Stat(s.layout.MarkerPath(track, v))
	return err == nil
}

// read loads one installation, requiring its completion marker.
func (s *Store) read(track version.Track, v version.Version) (InstalledVersion, error) {
	dir := s.layout.VersionDir(track, v)
	data, err := os.ReadFile(s.layout.MarkerPath(track, v))
	if err != nil {
		if os.IsNotExist(err) {
			return InstalledVersion{}, &OrphanedInstallError{Path: dir}
		}
		return InstalledVersion{}, errors.Wrapf(err, "failed to read install marker for %s", v)
	}

	var m marker
	if err := yaml.Unmarshal(data, &m); err != nil {
		return InstalledVersion{}, &OrphanedInstallError{Path: dir}
	}

	return InstalledVersion{
		Track:       track,
		Version:     v,
		InstallPath: dir,
		InstalledAt: m.InstalledAt,
		Verified:    m.Verified,
	}, nil
}

// RecordInstall writes the completion marker, promoting a directory into a
// valid installation. It is the installer's final step.
func (s *Store) RecordInstall(track version.Track, v version.Version, verified bool) (InstalledVersion, error) {
	m := marker{InstalledAt: time.Now().UTC(), Verified: verified}
	data, err := yaml.Marshal(m)
	if err != nil {
		return InstalledVersion{}, errors.Wrap(err, "failed to encode install marker")
	}
	if err := renameio.WriteFile(s.layout.MarkerPath(track, v), data, 0o644); err != nil {
		return InstalledVersion{}, errors.Wrap(err, "failed to write install marker")
	}
	return s.read(track, v)
}

// Default returns the track's persisted default version, if set.
func (s *Store) Default(track version.Track) (version.Version, bool, error) {
	data, err := os.ReadFile(s.layout.DefaultFile(track))
	if err != nil {
		if os.IsNotExist(err) {
			return version.Version{}, false, nil
		}
		return version.Version{}, false, errors.Wrap(err, "failed to read default pointer")
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return version.Version{}, false, nil
	}
	v, err := version.Parse(text)
	if err != nil {
		return version.Version{}, false, errors.Wrapf(err, "corrupt default pointer for track %s", track)
	}
	return v, true, nil
}

// GetDefault resolves the default pointer to its installation.
func (s *Store) GetDefault(track version.Track) (InstalledVersion, bool, error) {
	v, ok, err := s.Default(track)
	if err != nil || !ok {
		return InstalledVersion{}, ok, err
	}
	iv, err := s.Get(track, v)
	if err != nil {
		return InstalledVersion{}, false, err
	}
	return iv, true, nil
}

// SetDefault points the track default at an installed version. Pointing
// at a version that is not installed fails validation.
func (s *Store) SetDefault(track version.Track, v version.Version) error {
	if !s.Installed(track, v) {
		return &VersionNotInstalledError{Track: track, Version: v}
	}
	if err := os.MkdirAll(s.layout.TrackRoot(track), 0o755); err != nil {
		return errors.Wrap(err, "failed to create track root")
	}
	if err := renameio.WriteFile(s.layout.DefaultFile(track), []byte(v.String()+"\n"), 0o644); err != nil {
		return errors.Wrap(err, "failed to write default pointer")
	}
	return nil
}

// ClearDefault removes the track's default pointer.
func (s *Store) ClearDefault(track version.Track) error {
	err := os.Remove(s.layout.DefaultFile(track))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to clear default pointer")
	}
	return nil
}

// Uninstall removes an installation. A running node blocks the removal
// unless force is set, in which case the guard stops it first. If the
// removed version was the track default, the pointer is cleared rather
// than left dangling.
func (s *Store) Uninstall(ctx context.Context, track version.Track, v version.Version, force bool, guard UninstallGuard) error {
	if !s.Installed(track, v) {
		return &VersionNotInstalledError{Track: track, Version: v}
	}

	if guard != nil {
		running, err := guard.Running(track, v)
		if err != nil {
			return err
		}
		if running {
			if !force {
				return &InUseError{Track: track, Version: v}
			}
			if err := guard.Stop(ctx, track, v); err != nil {
				return errors.Wrapf(err, "failed to stop running node for %s", v)
			}
		}
	}

	release, err := s.Lock(track, v)
	if err != nil {
		return err
	}
	defer release()

	// Drop the marker first: an interrupted removal then scans as an
	// orphaned install instead of a valid one.
	if err := os.Remove(s.layout.MarkerPath(track, v)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove install marker")
	}
	if err := os.RemoveAll(s.layout.VersionDir(track, v)); err != nil {
		return errors.Wrapf(err, "failed to remove %s", s.layout.VersionDir(track, v))
	}

	if def, ok, err := s.Default(track); err == nil && ok && def.Equal(v) {
		if err := s.ClearDefault(track); err != nil {
			return err
		}
		log.Warnf("removed version %s was the %s track default; default is now unset", v, track)
	}

	return nil
}

func sortInstalled(installed []InstalledVersion) {
	sort.Slice(installed, func(i, j int) bool {
		return version.Less(installed[i].Version, installed[j].Version)
	})
}
