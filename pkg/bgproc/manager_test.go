package bgproc

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frm-sh/frm/pkg/activation"
	"github.com/frm-sh/frm/pkg/paths"
	"github.com/frm-sh/frm/pkg/store"
	"github.com/frm-sh/frm/pkg/version"
)

type fakeControl struct {
	pid        int
	spawned    []string
	shutdowns  int
	onShutdown func()
}

func (c *fakeControl) SpawnDetached(bin string, _, _ []string, _ string) (int, error) {
	c.spawned = append(c.spawned, bin)
	return c.pid, nil
}

func (c *fakeControl) RequestShutdown(context.Context, string, []string) error {
	c.shutdowns++
	if c.onShutdown != nil {
		c.onShutdown()
	}
	return nil
}

func newManager(t *testing.T, control Control) (*Manager, *store.Store) {
	t.Helper()
	layout := paths.NewLayoutAt(t.TempDir())
	require.NoError(t, layout.EnsureDirs())
	st := store.New(layout)
	m := &Manager{
		Resolver:    &activation.Resolver{Store: st},
		Control:     control,
		StopTimeout: 100 * time.Millisecond,
	}
	return m, st
}

func install(t *testing.T, st *store.Store, track version.Track, ver string) version.Version {
	t.Helper()
	v := version.MustParse(ver)
	require.NoError(t, os.MkdirAll(st.Layout().SbinDir(track, v), 0o755))
	_, err := st.RecordInstall(track, v, true)
	require.NoError(t, err)
	return v
}

// sleeper spawns a real process the manager can signal.
func sleeper(t *testing.T) *exec.Cmd {
	t.Helper()
	cmd := exec.Command("sleep", "60")
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		cmd.Process.Kill()
		cmd.Wait()
	})
	return cmd
}

func TestStartPersistsRecord(t *testing.T) {
	control := &fakeControl{pid: os.Getpid()}
	m, st := newManager(t, control)
	v := install(t, st, version.TrackRelease, "4.1.0")

	rec, err := m.Start(context.Background(), version.TrackRelease, "4.1.0")
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), rec.PID)
	assert.Contains(t, control.spawned[0], "sbin/rabbitmq-server")
	assert.FileExists(t, st.Layout().RecordPath(version.TrackRelease, v))

	state, got, err := m.Status(version.TrackRelease, v)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, state)
	assert.Equal(t, rec.PID, got.PID)
	assert.Equal(t, rec.LogPath, got.LogPath)
}

func TestStartRefusesSecondNode(t *testing.T) {
	control := &fakeControl{pid: os.Getpid()}
	m, st := newManager(t, control)
	install(t, st, version.TrackRelease, "4.1.0")

	_, err := m.Start(context.Background(), version.TrackRelease, "4.1.0")
	require.NoError(t, err)

	_, err = m.Start(context.Background(), version.TrackRelease, "4.1.0")
	var already *ProcessAlreadyRunningError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, os.Getpid(), already.PID)
	assert.Len(t, control.spawned, 1)
}

func TestStartUsesDefaultWhenUnspecified(t *testing.T) {
	control := &fakeControl{pid: os.Getpid()}
	m, st := newManager(t, control)
	v := install(t, st, version.TrackRelease, "4.0.0")
	install(t, st, version.TrackRelease, "4.1.0")
	require.NoError(t, st.SetDefault(version.TrackRelease, v))

	rec, err := m.Start(context.Background(), version.TrackRelease, "")
	require.NoError(t, err)
	assert.Equal(t, "4.0.0", rec.Version.String())
}

func TestStopGraceful(t *testing.T) {
	child := sleeper(t)
	control := &fakeControl{pid: child.Process.Pid}
	// The shutdown request makes the node exit, as rabbitmqctl would.
	control.onShutdown = func() {
		child.Process.Kill()
		child.Wait()
	}
	m, st := newManager(t, control)
	v := install(t, st, version.TrackRelease, "4.1.0")

	_, err := m.Start(context.Background(), version.TrackRelease, "4.1.0")
	require.NoError(t, err)

	require.NoError(t, m.Stop(context.Background(), version.TrackRelease, v, false))
	assert.Equal(t, 1, control.shutdowns)
	assert.NoFileExists(t, st.Layout().RecordPath(version.TrackRelease, v))
}

func TestStopTimeoutRemovesRecord(t *testing.T) {
	// The node ignores the shutdown request and stays alive.
	control := &fakeControl{pid: os.Getpid()}
	m, st := newManager(t, control)
	v := install(t, st, version.TrackRelease, "4.1.0")

	_, err := m.Start(context.Background(), version.TrackRelease, "4.1.0")
	require.NoError(t, err)

	require.NoError(t, m.Stop(context.Background(), version.TrackRelease, v, false))
	assert.Equal(t, 1, control.shutdowns)
	assert.NoFileExists(t, st.Layout().RecordPath(version.TrackRelease, v))
}

func TestStopKill(t *testing.T) {
	child := sleeper(t)
	control := &fakeControl{pid: child.Process.Pid}
	m, st := newManager(t, control)
	v := install(t, st, version.TrackRelease, "4.1.0")

	_, err := m.Start(context.Background(), version.TrackRelease, "4.1.0")
	require.NoError(t, err)

	require.NoError(t, m.Stop(context.Background(), version.TrackRelease, v, true))
	// SIGKILL is sent directly, never through the ctl tool.
	assert.Equal(t, 0, control.shutdowns)
	assert.NoFileExists(t, st.Layout().RecordPath(version.TrackRelease, v))

	err = child.Wait()
	require.Error(t, err)
}

func TestStopNotRunning(t *testing.T) {
	m, st := newManager(t, &fakeControl{})
	v := install(t, st, version.TrackRelease, "4.1.0")

	err := m.Stop(context.Background(), version.TrackRelease, v, false)
	var notRunning *ProcessNotRunningError
	require.ErrorAs(t, err, &notRunning)
}

func TestStatusReapsStaleRecord(t *testing.T) {
	// A process that has already exited leaves a dead pid behind.
	cmd := exec.Command("true")
	require.NoError(t, cmd.Start())
	deadPID := cmd.Process.Pid
	require.NoError(t, cmd.Wait())

	m, st := newManager(t, &fakeControl{})
	v := install(t, st, version.TrackRelease, "4.1.0")
	require.NoError(t, m.writeRecord(Record{
		Track: version.TrackRelease, Version: v, PID: deadPID, StartedAt: time.Now(),
	}))

	state, rec, err := m.Status(version.TrackRelease, v)
	require.NoError(t, err)
	assert.Equal(t, StateStale, state)
	assert.Equal(t, deadPID, rec.PID)
	assert.NoFileExists(t, st.Layout().RecordPath(version.TrackRelease, v))

	// The reap is lazy and one-shot.
	state, _, err = m.Status(version.TrackRelease, v)
	require.NoError(t, err)
	assert.Equal(t, StateStopped, state)
}

func TestListRunning(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Start())
	deadPID := cmd.Process.Pid
	require.NoError(t, cmd.Wait())

	m, st := newManager(t, &fakeControl{pid: os.Getpid()})
	live := install(t, st, version.TrackRelease, "4.1.0")
	stale := install(t, st, version.TrackAlpha, "4.2.0-alpha.3")

	_, err := m.Start(context.Background(), version.TrackRelease, "4.1.0")
	require.NoError(t, err)
	require.NoError(t, m.writeRecord(Record{
		Track: version.TrackAlpha, Version: stale, PID: deadPID, StartedAt: time.Now(),
	}))

	records, err := m.ListRunning()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Version.Equal(live))
	assert.NoFileExists(t, st.Layout().RecordPath(version.TrackAlpha, stale))
}

func TestGuard(t *testing.T) {
	m, st := newManager(t, &fakeControl{pid: os.Getpid()})
	v := install(t, st, version.TrackRelease, "4.1.0")
	g := m.Guard()

	running, err := g.Running(version.TrackRelease, v)
	require.NoError(t, err)
	assert.False(t, running)

	// Stopping a node that is not running is not an uninstall failure.
	require.NoError(t, g.Stop(context.Background(), version.TrackRelease, v))

	_, err = m.Start(context.Background(), version.TrackRelease, "4.1.0")
	require.NoError(t, err)
	running, err = g.Running(version.TrackRelease, v)
	require.NoError(t, err)
	assert.True(t, running)
}
