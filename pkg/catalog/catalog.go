// Package catalog resolves which server versions exist remotely and where
// their release artifacts live.
package catalog

import (
	"context"
	"fmt"

	"github.com/frm-sh/frm/pkg/version"
)

// AssetRef points at a downloadable release artifact.
type AssetRef struct {
	// URL is the archive download URL.
	URL string
	// Name is the archive file name.
	Name string
	// ChecksumURL is the sidecar checksum file URL, empty when the
	// release publishes none.
	ChecksumURL string
	// SignatureURL is the detached signature URL, empty when the release
	// publishes none.
	SignatureURL string
}

// Client lists remote versions and resolves their artifacts for a track.
//
// Implementations must return the complete listing: resolving "latest" is
// the caller's job, applied to the full candidate set, never to a listing
// that was cut short.
type Client interface {
	ListVersions(ctx context.Context, track version.Track) ([]version.Version, error)
	ResolveAsset(ctx context.Context, track version.Track, v version.Version) (AssetRef, error)
}

// UnavailableError reports that the remote catalog could not be reached.
// It is surfaced as-is, never folded into an empty listing.
type UnavailableError struct {
	Track version.Track
	Err   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("release catalog unavailable for track %s: %v", e.Track, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// NotFoundError reports that a version has no release in the catalog.
type NotFoundError struct {
	Track   version.Track
	Version version.Version
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("release not found: %s (track %s)", e.Version, e.Track)
}
