package version

import (
	"fmt"
	"strconv"
	"strings"
)

// PrereleaseKind is the prerelease tier of a version.
type PrereleaseKind int

const (
	KindAlpha PrereleaseKind = iota
	KindBeta
	KindRc
)

// String returns the lowercase keyword used in version strings.
func (k PrereleaseKind) String() string {
	switch k {
	case KindAlpha:
		return "alpha"
	case KindBeta:
		return "beta"
	case KindRc:
		return "rc"
	default:
		return "unknown"
	}
}

// Prerelease is a version qualifier such as "rc.1" or "alpha.7f1c9d2".
type Prerelease struct {
	Kind       PrereleaseKind
	Identifier string
}

func (p Prerelease) String() string {
	return fmt.Sprintf("%s.%s", p.Kind, p.Identifier)
}

// parsePrerelease parses the part after the dash, e.g. "rc.1".
// full is the original input, reported on failure.
func parsePrerelease(s, full string) (Prerelease, error) {
	kindStr, id, ok := strings.Cut(s, ".")
	if !ok || id == "" {
		return Prerelease{}, &MalformedVersionError{Input: full}
	}

	var kind PrereleaseKind
	switch strings.ToLower(kindStr) {
	case "alpha":
		kind = KindAlpha
	case "beta":
		kind = KindBeta
	case "rc":
		kind = KindRc
	default:
		return Prerelease{}, &MalformedVersionError{Input: full}
	}

	return Prerelease{Kind: kind, Identifier: id}, nil
}

func comparePrerelease(a, b Prerelease) int {
	if a.Kind != b.Kind {
		return int(a.Kind) - int(b.Kind)
	}
	return compareIdentifiers(a.Identifier, b.Identifier)
}

// compareIdentifiers compares numerically when both identifiers are
// numeric, lexically otherwise. Alpha identifiers are often commit hashes,
// so the lexical fallback matters in practice.
func compareIdentifiers(a, b string) int {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	if errA == nil && errB == nil {
		return compareUint(na, nb)
	}
	return strings.Compare(a, b)
}
