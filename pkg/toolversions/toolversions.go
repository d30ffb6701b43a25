// Package toolversions reads asdf style .tool-versions pin files.
package toolversions

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileName is the pin file searched for.
const FileName = ".tool-versions"

// Lookup walks from dir to the filesystem root looking for a pin file
// naming the tool. The bool reports whether a pin was found.
func Lookup(dir, tool string) (string, bool, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false, errors.Wrap(err, "cannot resolve directory")
	}
	for {
		pinned, found, err := readPin(filepath.Join(dir, FileName), tool)
		if err != nil {
			return "", false, err
		}
		if found {
			return pinned, true, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// readPin scans one pin file for a tool entry. Lines are
// "<tool> <version>", # starts a comment.
func readPin(path, tool string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "cannot read %s", path)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == tool {
			return fields[1], true, nil
		}
	}
	return "", false, nil
}
