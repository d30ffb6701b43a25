package version

import "fmt"

// NoLatestAvailableError is returned when "latest" cannot be resolved from
// a candidate set.
type NoLatestAvailableError struct {
	Track Track
}

func (e *NoLatestAvailableError) Error() string {
	return fmt.Sprintf("no latest version available for track %s", e.Track)
}

// ResolveLatest returns the maximum GA version among candidates. The
// second return is false when the set is empty or holds only prereleases;
// whether that is an error is the caller's call.
func ResolveLatest(candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, c := range candidates {
		if !c.IsGA() {
			continue
		}
		if !found || Less(best, c) {
			best = c
			found = true
		}
	}
	return best, found
}

// ResolveLatestIn resolves "latest" for a track. The release and local
// tracks resolve to the highest GA version. The alpha track resolves to
// the highest alpha by comparator order; publish dates are not consulted,
// so the answer is the same online and offline.
func ResolveLatestIn(track Track, candidates []Version) (Version, bool) {
	if track != TrackAlpha {
		return ResolveLatest(candidates)
	}
	var best Version
	found := false
	for _, c := range candidates {
		if !c.IsAlpha() {
			continue
		}
		if !found || Less(best, c) {
			best = c
			found = true
		}
	}
	return best, found
}
