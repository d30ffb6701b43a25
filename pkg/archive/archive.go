// Package archive extracts server distribution tarballs.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

// Format represents the archive format.
type Format string

const (
	FormatTarXz Format = "tar.xz"
	FormatTarGz Format = "tar.gz"
)

// DetectFormat detects the archive format from the filename. ok is false
// for anything that is not a supported server distribution archive.
func DetectFormat(filename string) (Format, bool) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".tar.xz"):
		return FormatTarXz, true
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz, true
	default:
		return "", false
	}
}

// Extract unpacks an archive into destDir and returns the path of the
// archive's single top-level directory. Server distributions always ship
// as one `rabbitmq_server-<version>` directory; anything else fails.
func Extract(archivePath, destDir string) (string, error) {
	format, ok := DetectFormat(archivePath)
	if !ok {
		return "", fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
	}

	file, err := os.Open(archivePath)
	if err != nil {
		return "", errors.Wrap(err, "failed to open archive")
	}
	defer file.Close()

	var r io.Reader
	switch format {
	case FormatTarXz:
		xzReader, err := xz.NewReader(file)
		if err != nil {
			return "", errors.Wrap(err, "failed to create xz reader")
		}
		r = xzReader
	case FormatTarGz:
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return "", errors.Wrap(err, "failed to create gzip reader")
		}
		defer gzReader.Close()
		r = gzReader
	}

	if err := extractTarReader(r, destDir); err != nil {
		return "", err
	}
	return topLevelDir(destDir)
}

func extractTarReader(r io.Reader, destDir string) error {
	tarReader := tar.NewReader(r)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "failed to read tar header")
		}

		target := filepath.Join(destDir, header.Name)

		// Reject entries that would escape the destination.
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("invalid path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode)); err != nil {
				return errors.Wrap(err, "failed to create directory")
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return errors.Wrap(err, "failed to create parent directory")
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return errors.Wrap(err, "failed to create file")
			}
			if _, err := io.Copy(f, tarReader); err != nil {
				f.Close()
				return errors.Wrap(err, "failed to extract file")
			}
			f.Close()
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return errors.Wrap(err, "failed to create parent directory")
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return errors.Wrap(err, "failed to create symlink")
			}
		}
	}

	return nil
}

// topLevelDir returns destDir's single directory entry.
func topLevelDir(destDir string) (string, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return "", errors.Wrap(err, "failed to read extraction directory")
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	if len(dirs) != 1 {
		return "", fmt.Errorf("unexpected archive layout: want one top-level directory, got %d", len(dirs))
	}
	return filepath.Join(destDir, dirs[0]), nil
}
