package store

import (
	"os"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/frm-sh/frm/internal/procutil"
	"github.com/frm-sh/frm/pkg/version"
)

// Lock takes the exclusive install lock for a (track, version). The lock
// serializes install, uninstall and reinstall across concurrent frm
// invocations. Acquisition never blocks: contention fails immediately
// with InstallInProgressError so a CLI call cannot hang on another
// terminal's download.
//
// A lock whose owner process is gone is reaped and retaken; crashes must
// not wedge the version forever.
func (s *Store) Lock(track version.Track, v version.Version) (release func(), err error) {
	if err := os.MkdirAll(s.layout.LocksDir(), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create locks directory")
	}

	path := s.layout.LockPath(track, v)
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			if _, werr := f.WriteString(strconv.Itoa(os.Getpid()) + "\n"); werr != nil {
				f.Close()
				os.Remove(path)
				return nil, errors.Wrap(werr, "failed to write lock file")
			}
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, errors.Wrap(err, "failed to create lock file")
		}

		holder := lockHolder(path)
		if holder > 0 && procutil.Alive(holder) {
			return nil, &InstallInProgressError{Track: track, Version: v, HolderPID: holder}
		}

		// The holder is dead or the file is corrupt: reap and retry once.
		log.Warnf("reaping stale install lock for %s (track %s, former pid %d)", v, track, holder)
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, errors.Wrap(rmErr, "failed to remove stale lock file")
		}
	}

	return nil, &InstallInProgressError{Track: track, Version: v}
}

func lockHolder(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
