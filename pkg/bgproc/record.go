package bgproc

import (
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/renameio/v2"
	"github.com/pkg/errors"

	"github.com/frm-sh/frm/pkg/version"
)

// Record describes one spawned node. It is persisted as YAML under
// run/<track>/<version>.pid before Start returns, so a crash between
// spawn and return can at worst leave a record that scans as stale.
type Record struct {
	Track      version.Track   `yaml:"track"`
	Version    version.Version `yaml:"-"`
	RawVersion string          `yaml:"version"`
	PID        int             `yaml:"pid"`
	LogPath    string          `yaml:"log_path"`
	StartedAt  time.Time       `yaml:"started_at"`
}

func (m *Manager) writeRecord(rec Record) error {
	rec.RawVersion = rec.Version.String()
	data, err := yaml.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to encode process record")
	}
	path := m.layout().RecordPath(rec.Track, rec.Version)
	if err := os.MkdirAll(m.layout().RunDir(rec.Track), 0o755); err != nil {
		return errors.Wrap(err, "failed to create run directory")
	}
	return errors.Wrap(renameio.WriteFile(path, data, 0o644), "failed to write process record")
}

// readRecord loads the record for a (track, version). The bool reports
// whether one exists; a record that cannot be parsed is an error, not a
// missing record.
func (m *Manager) readRecord(track version.Track, v version.Version) (Record, bool, error) {
	data, err := os.ReadFile(m.layout().RecordPath(track, v))
	if os.IsNotExist(err) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, errors.Wrap(err, "failed to read process record")
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, false, errors.Wrap(err, "failed to parse process record")
	}
	rec.Version, err = version.Parse(rec.RawVersion)
	if err != nil {
		return Record{}, false, errors.Wrap(err, "failed to parse process record")
	}
	return rec, true, nil
}

func (m *Manager) removeRecord(track version.Track, v version.Version) error {
	err := os.Remove(m.layout().RecordPath(track, v))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove process record")
	}
	return nil
}
