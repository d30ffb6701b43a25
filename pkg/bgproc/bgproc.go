// Package bgproc starts and stops server nodes as detached background
// processes and tracks them through on-disk process records.
package bgproc

import (
	"fmt"

	"github.com/frm-sh/frm/pkg/version"
)

// State describes where a node is in its lifecycle.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	// StateStale marks a record whose process is gone. Stale records are
	// reaped on sight and reported once.
	StateStale State = "stale"
)

// ProcessAlreadyRunningError reports a start against a version that
// already has a live node.
type ProcessAlreadyRunningError struct {
	Track   version.Track
	Version version.Version
	PID     int
}

func (e *ProcessAlreadyRunningError) Error() string {
	return fmt.Sprintf("a node for %s (track %s) is already running with pid %d",
		e.Version, e.Track, e.PID)
}

// ProcessNotRunningError reports a stop against a version with no live
// node.
type ProcessNotRunningError struct {
	Track   version.Track
	Version version.Version
}

func (e *ProcessNotRunningError) Error() string {
	return fmt.Sprintf("no running node for %s (track %s)", e.Version, e.Track)
}
