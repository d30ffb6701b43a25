package store

import (
	"fmt"

	"github.com/frm-sh/frm/pkg/version"
)

// VersionNotInstalledError reports an operation against a version that has
// no installation on the given track.
type VersionNotInstalledError struct {
	Track   version.Track
	Version version.Version
}

func (e *VersionNotInstalledError) Error() string {
	return fmt.Sprintf("version %s is not installed (track %s)", e.Version, e.Track)
}

// InstallInProgressError reports that another invocation holds the install
// lock for the same (track, version).
type InstallInProgressError struct {
	Track     version.Track
	Version   version.Version
	HolderPID int
}

func (e *InstallInProgressError) Error() string {
	return fmt.Sprintf("an operation on %s (track %s) is already in progress (pid %d)",
		e.Version, e.Track, e.HolderPID)
}

// InUseError reports an uninstall blocked by a running server node.
type InUseError struct {
	Track   version.Track
	Version version.Version
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("version %s (track %s) has a running node; stop it first or use --force",
		e.Version, e.Track)
}

// OrphanedInstallError describes a version directory without a completion
// marker: a crashed install or removal. Listings report it as a warning
// and skip the entry.
type OrphanedInstallError struct {
	Path string
}

func (e *OrphanedInstallError) Error() string {
	return fmt.Sprintf("orphaned install detected at %s", e.Path)
}
