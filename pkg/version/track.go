package version

import "fmt"

// Track is an independent namespace of installable versions. Each track
// owns its own install root; versions are never compared across tracks.
type Track string

const (
	// TrackRelease holds GA, beta and rc builds from the server releases.
	TrackRelease Track = "releases"
	// TrackAlpha holds alpha builds from the server-packages repository.
	TrackAlpha Track = "alphas"
	// TrackLocal holds locally supplied distributions.
	TrackLocal Track = "local"
)

// Tracks lists all tracks in display order.
func Tracks() []Track {
	return []Track{TrackRelease, TrackAlpha, TrackLocal}
}

// ParseTrack parses a track name.
func ParseTrack(s string) (Track, error) {
	switch s {
	case string(TrackRelease), "release":
		return TrackRelease, nil
	case string(TrackAlpha), "alpha":
		return TrackAlpha, nil
	case string(TrackLocal):
		return TrackLocal, nil
	default:
		return "", fmt.Errorf("unknown track: %q", s)
	}
}

func (t Track) String() string { return string(t) }

// Accepts reports whether a version belongs on this track: alphas live on
// the alpha track, everything else on the release track. The local track
// accepts anything the user hands it.
func (t Track) Accepts(v Version) bool {
	switch t {
	case TrackAlpha:
		return v.IsAlpha()
	case TrackRelease:
		return !v.IsAlpha()
	default:
		return true
	}
}
