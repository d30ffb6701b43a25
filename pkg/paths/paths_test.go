package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frm-sh/frm/pkg/version"
)

func TestNewLayoutHonorsEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvBaseDir, dir)

	l, err := NewLayout()
	require.NoError(t, err)
	assert.Equal(t, dir, l.BaseDir())
}

func TestNewLayoutDefaultsUnderHome(t *testing.T) {
	t.Setenv(EnvBaseDir, "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	l, err := NewLayout()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "frm"), l.BaseDir())
}

func TestLayoutPaths(t *testing.T) {
	l := NewLayoutAt("/tmp/frm-test")
	v := version.MustParse("4.2.0-rc.1")

	assert.Equal(t, "/tmp/frm-test/releases/4.2.0-rc.1", l.VersionDir(version.TrackRelease, v))
	assert.Equal(t, "/tmp/frm-test/releases/4.2.0-rc.1/sbin", l.SbinDir(version.TrackRelease, v))
	assert.Equal(t, "/tmp/frm-test/releases/default", l.DefaultFile(version.TrackRelease))
	assert.Equal(t, "/tmp/frm-test/run/alphas/4.2.0-rc.1.pid", l.RecordPath(version.TrackAlpha, v))
	assert.Equal(t, "/tmp/frm-test/locks/releases-4.2.0-rc.1.lock", l.LockPath(version.TrackRelease, v))
	assert.Equal(t, "/tmp/frm-test/releases/4.2.0-rc.1/.frm-complete", l.MarkerPath(version.TrackRelease, v))
}

func TestEnsureDirs(t *testing.T) {
	base := filepath.Join(t.TempDir(), "frm")
	l := NewLayoutAt(base)
	require.NoError(t, l.EnsureDirs())

	for _, dir := range []string{
		l.DownloadsDir(),
		l.StagingDir(),
		l.LocksDir(),
		l.TrackRoot(version.TrackRelease),
		l.TrackRoot(version.TrackAlpha),
		l.TrackRoot(version.TrackLocal),
		l.RunDir(version.TrackRelease),
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
}
