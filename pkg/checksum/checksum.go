// Package checksum computes and verifies artifact digests.
package checksum

import (
	"bufio"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Algorithm names a supported digest algorithm.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
)

// MismatchError reports a digest that does not match the declared value.
type MismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// File computes the hex digest of a file.
func File(path string, algorithm Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to open file")
	}
	defer f.Close()

	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(err, "failed to compute checksum")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify checks a file against an expected hex digest. Comparison is
// case-insensitive.
func Verify(path, expected string, algorithm Algorithm) error {
	actual, err := File(path, algorithm)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, expected) {
		return &MismatchError{Path: path, Expected: strings.ToLower(expected), Actual: actual}
	}
	return nil
}

// ParseSidecar extracts the digest for filename from checksum-file
// content in the usual "<hex>  <name>" form. A single bare digest with no
// filename column also matches, since some releases publish per-asset
// sidecar files.
func ParseSidecar(content []byte, filename string) (string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		switch {
		case len(fields) == 1 && isHex(fields[0]):
			return fields[0], true
		case len(fields) >= 2 && isHex(fields[0]):
			name := strings.TrimPrefix(fields[1], "*")
			if name == filename {
				return fields[0], true
			}
		}
	}
	return "", false
}

func newHash(algorithm Algorithm) (hash.Hash, error) {
	switch algorithm {
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", algorithm)
	}
}

func isHex(s string) bool {
	if len(s) != sha256.Size*2 && len(s) != sha512.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
