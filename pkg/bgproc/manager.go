package bgproc

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/frm-sh/frm/internal/procutil"
	"github.com/frm-sh/frm/pkg/activation"
	"github.com/frm-sh/frm/pkg/paths"
	"github.com/frm-sh/frm/pkg/store"
	"github.com/frm-sh/frm/pkg/version"
)

// DefaultStopTimeout bounds the wait for a graceful shutdown.
const DefaultStopTimeout = 30 * time.Second

// Control abstracts process spawning and graceful shutdown so tests can
// run without real server binaries.
type Control interface {
	// SpawnDetached starts bin detached from the current session with
	// stdout and stderr appended to logPath, returning the child pid.
	SpawnDetached(bin string, args, env []string, logPath string) (int, error)
	// RequestShutdown asks a running node to stop via its ctl tool.
	RequestShutdown(ctx context.Context, ctlPath string, env []string) error
}

// Manager owns the process records of one layout.
type Manager struct {
	Resolver *activation.Resolver
	Control  Control
	// StopTimeout bounds graceful shutdown waits; zero means
	// DefaultStopTimeout.
	StopTimeout time.Duration
}

// NewManager returns a manager spawning real processes.
func NewManager(resolver *activation.Resolver) *Manager {
	return &Manager{Resolver: resolver, Control: execControl{}}
}

func (m *Manager) layout() *paths.Layout { return m.Resolver.Store.Layout() }

func (m *Manager) stopTimeout() time.Duration {
	if m.StopTimeout > 0 {
		return m.StopTimeout
	}
	return DefaultStopTimeout
}

// Status reports the lifecycle state for a (track, version). A record
// whose process is gone is reaped here and reported as stale once.
func (m *Manager) Status(track version.Track, v version.Version) (State, Record, error) {
	rec, ok, err := m.readRecord(track, v)
	if err != nil {
		return StateStopped, Record{}, err
	}
	if !ok {
		return StateStopped, Record{}, nil
	}
	if procutil.Alive(rec.PID) {
		return StateRunning, rec, nil
	}
	log.Infof("stale process record recovered for %s (track %s, pid %d gone)", v, track, rec.PID)
	if err := m.removeRecord(track, v); err != nil {
		return StateStale, rec, err
	}
	return StateStale, rec, nil
}

// Start resolves a version for the track and spawns a node for it. The
// record is persisted before Start returns.
func (m *Manager) Start(ctx context.Context, track version.Track, selector string) (Record, error) {
	binding, err := m.Resolver.Resolve(track, selector, os.Environ())
	if err != nil {
		return Record{}, err
	}

	state, prev, err := m.Status(track, binding.Version)
	if err != nil {
		return Record{}, err
	}
	if state == StateRunning {
		return Record{}, &ProcessAlreadyRunningError{Track: track, Version: binding.Version, PID: prev.PID}
	}

	if err := os.MkdirAll(binding.LogDir, 0o755); err != nil {
		return Record{}, errors.Wrap(err, "failed to create log directory")
	}
	logPath := filepath.Join(binding.LogDir, "rabbitmq-server.log")

	bin := filepath.Join(binding.SbinDir, "rabbitmq-server")
	pid, err := m.Control.SpawnDetached(bin, nil, binding.Environ(os.Environ()), logPath)
	if err != nil {
		return Record{}, errors.Wrapf(err, "failed to start %s", binding.Version)
	}

	rec := Record{
		Track:     track,
		Version:   binding.Version,
		PID:       pid,
		LogPath:   logPath,
		StartedAt: time.Now(),
	}
	if err := m.writeRecord(rec); err != nil {
		return Record{}, err
	}
	log.Infof("started %s (track %s) with pid %d, logs at %s", binding.Version, track, pid, logPath)
	return rec, nil
}

// Stop shuts a node down. The default path asks the node to stop via its
// ctl tool and waits a bounded time for the process to exit; kill sends
// SIGKILL instead. Escalation never happens on its own.
func (m *Manager) Stop(ctx context.Context, track version.Track, v version.Version, kill bool) error {
	state, rec, err := m.Status(track, v)
	if err != nil {
		return err
	}
	if state != StateRunning {
		return &ProcessNotRunningError{Track: track, Version: v}
	}

	if kill {
		if err := unix.Kill(rec.PID, unix.SIGKILL); err != nil && err != unix.ESRCH {
			return errors.Wrapf(err, "failed to kill pid %d", rec.PID)
		}
		log.Warnf("killed %s (track %s, pid %d)", v, track, rec.PID)
		return m.removeRecord(track, v)
	}

	binding, err := m.Resolver.Resolve(track, v.String(), os.Environ())
	if err != nil {
		return err
	}
	ctl := filepath.Join(binding.SbinDir, "rabbitmqctl")
	if err := m.Control.RequestShutdown(ctx, ctl, binding.Environ(os.Environ())); err != nil {
		return errors.Wrapf(err, "failed to request shutdown of %s", v)
	}

	if m.waitExit(ctx, rec.PID) {
		log.Infof("stopped %s (track %s)", v, track)
	} else {
		log.Warnf("pid %d did not exit within %s; removing its record, use --kill to force",
			rec.PID, m.stopTimeout())
	}
	return m.removeRecord(track, v)
}

// waitExit polls the pid until it exits, the timeout elapses or the
// context is done. It reports whether the process exited.
func (m *Manager) waitExit(ctx context.Context, pid int) bool {
	deadline := time.NewTimer(m.stopTimeout())
	defer deadline.Stop()
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		if !procutil.Alive(pid) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-tick.C:
		}
	}
}

// ListRunning returns the live records across all tracks, reaping dead
// ones along the way.
func (m *Manager) ListRunning() ([]Record, error) {
	var out []Record
	for _, track := range version.Tracks() {
		entries, err := os.ReadDir(m.layout().RunDir(track))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to scan run directory for track %s", track)
		}
		for _, entry := range entries {
			name := entry.Name()
			if filepath.Ext(name) != ".pid" {
				continue
			}
			v, err := version.Parse(name[:len(name)-len(".pid")])
			if err != nil {
				log.Warnf("skipping unrecognized process record %s", name)
				continue
			}
			state, rec, err := m.Status(track, v)
			if err != nil {
				return nil, err
			}
			if state == StateRunning {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

// Guard adapts the manager for uninstall checks.
func (m *Manager) Guard() store.UninstallGuard { return guard{m} }

type guard struct{ m *Manager }

func (g guard) Running(track version.Track, v version.Version) (bool, error) {
	state, _, err := g.m.Status(track, v)
	return state == StateRunning, err
}

func (g guard) Stop(ctx context.Context, track version.Track, v version.Version) error {
	err := g.m.Stop(ctx, track, v, false)
	if err != nil {
		var notRunning *ProcessNotRunningError
		if errors.As(err, &notRunning) {
			return nil
		}
	}
	return err
}
