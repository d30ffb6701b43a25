// Package version implements parsing and ordering of RabbitMQ server
// version strings, including the alpha/beta/rc prerelease tiers.
package version

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Version is a parsed server version. A nil Pre means a GA release.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
	Pre   *Prerelease
}

// MalformedVersionError is returned when a version string cannot be parsed.
type MalformedVersionError struct {
	Input string
}

func (e *MalformedVersionError) Error() string {
	return fmt.Sprintf("invalid version format: %q", e.Input)
}

// New returns a GA version.
func New(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// Parse parses a version string such as "4.2.0", "v4.2.0-rc.1" or
// "4.3.0-alpha.7f1c9d2". A leading "v" and surrounding whitespace are
// accepted; anything else non-canonical is rejected.
func Parse(s string) (Version, error) {
	orig := s
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "v")
	if s == "" {
		return Version{}, &MalformedVersionError{Input: orig}
	}

	core := s
	var pre *Prerelease
	if idx := strings.IndexByte(s, '-'); idx >= 0 {
		core = s[:idx]
		p, err := parsePrerelease(s[idx+1:], orig)
		if err != nil {
			return Version{}, err
		}
		pre = &p
	}

	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return Version{}, &MalformedVersionError{Input: orig}
	}

	nums := make([]uint64, 3)
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, &MalformedVersionError{Input: orig}
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Pre: pre}, nil
}

// MustParse is Parse for test fixtures and compiled-in constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the canonical form, e.g. "4.2.0" or "4.2.0-rc.1".
// Parsing the result yields an identical Version.
func (v Version) String() string {
	base := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre == nil {
		return base
	}
	return base + "-" + v.Pre.String()
}

// DirName is the directory name an installation of this version uses.
func (v Version) DirName() string { return v.String() }

// IsGA reports whether the version has no prerelease qualifier.
func (v Version) IsGA() bool { return v.Pre == nil }

// IsPrerelease reports whether the version has a prerelease qualifier.
func (v Version) IsPrerelease() bool { return v.Pre != nil }

// IsAlpha reports whether the version is an alpha build.
func (v Version) IsAlpha() bool { return v.Pre != nil && v.Pre.Kind == KindAlpha }

// IsBeta reports whether the version is a beta build.
func (v Version) IsBeta() bool { return v.Pre != nil && v.Pre.Kind == KindBeta }

// IsRC reports whether the version is a release candidate.
func (v Version) IsRC() bool { return v.Pre != nil && v.Pre.Kind == KindRc }

// Base strips any prerelease qualifier.
func (v Version) Base() Version {
	return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
}

// Equal reports canonical equality.
func (v Version) Equal(o Version) bool { return Compare(v, o) == 0 }

// Compare defines the total order: the (major, minor, patch) triple first;
// for an equal base, GA sorts above any prerelease, and prereleases order
// alpha < beta < rc with numeric-aware identifier comparison within a kind.
func Compare(a, b Version) int {
	if c := compareUint(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareUint(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareUint(a.Patch, b.Patch); c != 0 {
		return c
	}
	switch {
	case a.Pre == nil && b.Pre == nil:
		return 0
	case a.Pre != nil && b.Pre == nil:
		return -1
	case a.Pre == nil && b.Pre != nil:
		return 1
	default:
		return comparePrerelease(*a.Pre, *b.Pre)
	}
}

// Less reports whether a orders strictly before b.
func Less(a, b Version) bool { return Compare(a, b) < 0 }

// Sort orders versions ascending in place.
func Sort(versions []Version) {
	sort.Slice(versions, func(i, j int) bool {
		return Less(versions[i], versions[j])
	})
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
