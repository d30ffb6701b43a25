// Package fetch downloads release artifacts with progress reporting.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/pkg/errors"
)

// ProgressFunc is a callback for download progress. total is -1 when the
// server does not announce a content length.
type ProgressFunc func(downloaded, total int64)

const (
	maxRetries     = 3
	requestTimeout = 5 * time.Minute
)

// Download fetches url into destPath. The body is streamed into a
// temporary file next to destPath and renamed into place only on success,
// so destPath either holds a complete artifact or does not exist.
func Download(ctx context.Context, url, destPath string, progress ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create destination directory")
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)
	defer tmpFile.Close()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			log.Debugf("retrying download (attempt %d): %v", attempt+1, lastErr)
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := truncate(tmpFile); err != nil {
				return err
			}
		}

		done, err := fetchOnce(ctx, url, tmpFile, progress)
		if err != nil {
			if done {
				return err
			}
			lastErr = err
			continue
		}

		if err := tmpFile.Sync(); err != nil {
			return errors.Wrap(err, "failed to sync downloaded file")
		}
		if err := tmpFile.Close(); err != nil {
			return errors.Wrap(err, "failed to close downloaded file")
		}
		if err := os.Rename(tmpPath, destPath); err != nil {
			return errors.Wrap(err, "failed to move downloaded file into place")
		}
		return nil
	}

	return errors.Wrapf(lastErr, "download failed after %d attempts", maxRetries)
}

// FetchBytes retrieves a small artifact such as a checksum or signature
// sidecar into memory. A 404 returns (nil, false, nil) so callers can
// treat a missing sidecar as "not published".
func FetchBytes(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := newRequest(ctx, url)
	if err != nil {
		return nil, false, err
	}

	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, false, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to read response")
	}
	return body, true, nil
}

// fetchOnce performs one download attempt. done reports that the failure
// is not retryable.
func fetchOnce(ctx context.Context, url string, dst *os.File, progress ProgressFunc) (done bool, err error) {
	req, err := newRequest(ctx, url)
	if err != nil {
		return true, err
	}

	resp, err := httpClient().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, url)
		// Server-side errors are worth retrying, client errors are not.
		return resp.StatusCode < 500, err
	}

	total := resp.ContentLength
	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return true, errors.Wrap(werr, "failed to write downloaded data")
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if readErr == io.EOF {
			return false, nil
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return true, ctx.Err()
			}
			return false, readErr
		}
	}
}

func newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	if isGitHubURL(url) {
		if token := os.Getenv("GITHUB_TOKEN"); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

func isGitHubURL(url string) bool {
	return strings.Contains(url, "github.com") || strings.Contains(url, "githubusercontent.com")
}

func truncate(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return errors.Wrap(err, "failed to truncate partial download")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "failed to rewind partial download")
	}
	return nil
}
