package cmd

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/frm-sh/frm/pkg/activation"
	"github.com/frm-sh/frm/pkg/bgproc"
	"github.com/frm-sh/frm/pkg/catalog"
	"github.com/frm-sh/frm/pkg/checksum"
	"github.com/frm-sh/frm/pkg/signature"
	"github.com/frm-sh/frm/pkg/store"
	"github.com/frm-sh/frm/pkg/version"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "generic", err: errors.New("boom"), want: ExitFailure},
		{name: "malformed version", err: &version.MalformedVersionError{Input: "x"}, want: ExitMalformedVersion},
		{name: "catalog down", err: &catalog.UnavailableError{Track: version.TrackRelease}, want: ExitCatalog},
		{name: "no latest", err: &version.NoLatestAvailableError{Track: version.TrackAlpha}, want: ExitNoLatest},
		{name: "locked", err: &store.InstallInProgressError{}, want: ExitInstallInProgress},
		{name: "checksum", err: &checksum.MismatchError{}, want: ExitChecksum},
		{name: "signature", err: &signature.Error{Err: errors.New("bad")}, want: ExitSignature},
		{name: "not installed", err: &store.VersionNotInstalledError{}, want: ExitNotInstalled},
		{name: "nothing selected", err: &activation.NoActiveOrDefaultError{}, want: ExitNoActiveOrDefault},
		{name: "already running", err: &bgproc.ProcessAlreadyRunningError{}, want: ExitAlreadyRunning},
		{name: "not running", err: &bgproc.ProcessNotRunningError{}, want: ExitNotRunning},
		{name: "in use", err: &store.InUseError{}, want: ExitInUse},
		{
			name: "wrapped errors unwrap",
			err:  errors.Wrap(&store.VersionNotInstalledError{}, "uninstall failed"),
			want: ExitNotInstalled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestSelectVersion(t *testing.T) {
	assert.Equal(t, "4.1.0", selectVersion([]string{"4.1.0"}))

	dir := t.TempDir()
	t.Chdir(dir)
	assert.Equal(t, "latest", selectVersion(nil))

	if err := os.WriteFile(dir+"/.tool-versions", []byte("rabbitmq 4.0.2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "4.0.2", selectVersion(nil))
}
