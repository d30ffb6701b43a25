package installer

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"

	"github.com/frm-sh/frm/pkg/archive"
	"github.com/frm-sh/frm/pkg/version"
)

// VersionMismatchError reports a local archive whose filename names a
// different version than the one requested.
type VersionMismatchError struct {
	Expected version.Version
	Detected version.Version
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("archive is for version %s, expected %s", e.Detected, e.Expected)
}

var versionInName = regexp.MustCompile(`\d+\.\d+\.\d+(?:-[A-Za-z]+\.[0-9A-Za-z]+)?`)

// InferVersion extracts the server version from a release archive
// filename, e.g. rabbitmq-server-generic-unix-4.2.0-alpha.3.tar.xz.
func InferVersion(name string) (version.Version, error) {
	base := filepath.Base(name)
	if _, ok := archive.DetectFormat(base); !ok {
		return version.Version{}, errors.Errorf("unsupported archive %s", base)
	}
	matches := versionInName.FindAllString(base, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if v, err := version.Parse(matches[i]); err == nil {
			return v, nil
		}
	}
	return version.Version{}, errors.Errorf("cannot infer a version from %s", base)
}

// resolveLocal infers the version from the archive filename and
// cross-checks it against an explicitly requested version.
func (i *Installer) resolveLocal(req Request) (version.Version, error) {
	detected, err := InferVersion(req.LocalSource)
	if err != nil {
		return version.Version{}, err
	}
	if req.Version != "" && req.Version != "latest" {
		expected, err := version.Parse(req.Version)
		if err != nil {
			return version.Version{}, err
		}
		if !expected.Equal(detected) {
			return version.Version{}, &VersionMismatchError{Expected: expected, Detected: detected}
		}
	}
	return detected, nil
}
