package bgproc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/frm-sh/frm/pkg/version"
)

// LogFile locates the log file of a node. The path recorded at spawn
// time wins when it still exists; otherwise the installation's log
// directory is scanned for a node log, which also covers nodes started
// outside the process manager.
func (m *Manager) LogFile(track version.Track, v version.Version) (string, error) {
	rec, ok, err := m.readRecord(track, v)
	if err != nil {
		return "", err
	}
	if ok && rec.LogPath != "" {
		if _, err := os.Stat(rec.LogPath); err == nil {
			return rec.LogPath, nil
		}
	}

	dir := m.layout().LogDir(track, v)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(err, "cannot read log directory %s", dir)
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "rabbit@") && strings.HasSuffix(name, ".log") {
			return filepath.Join(dir, name), nil
		}
	}
	return "", errors.Errorf("no node log found in %s", dir)
}

// Tail writes the last n lines of the file at path to w.
func Tail(w io.Writer, path string, n int) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "cannot open log %s", path)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "cannot read log %s", path)
	}

	start := 0
	if n >= 0 && len(lines) > n {
		start = len(lines) - n
	}
	for _, line := range lines[start:] {
		fmt.Fprintln(w, line)
	}
	return nil
}
