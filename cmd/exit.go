package cmd

import (
	"github.com/pkg/errors"

	"github.com/frm-sh/frm/pkg/activation"
	"github.com/frm-sh/frm/pkg/bgproc"
	"github.com/frm-sh/frm/pkg/catalog"
	"github.com/frm-sh/frm/pkg/checksum"
	"github.com/frm-sh/frm/pkg/installer"
	"github.com/frm-sh/frm/pkg/signature"
	"github.com/frm-sh/frm/pkg/store"
	"github.com/frm-sh/frm/pkg/version"
)

// Exit codes by error category, stable for scripting.
const (
	ExitFailure           = 1
	ExitMalformedVersion  = 2
	ExitCatalog           = 3
	ExitNoLatest          = 4
	ExitInstallInProgress = 5
	ExitChecksum          = 6
	ExitSignature         = 7
	ExitNotInstalled      = 8
	ExitNoActiveOrDefault = 9
	ExitAlreadyRunning    = 10
	ExitNotRunning        = 11
	ExitInUse             = 12
)

// ExitCode maps an error to its exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var (
		malformed    *version.MalformedVersionError
		unavailable  *catalog.UnavailableError
		notFound     *catalog.NotFoundError
		noLatest     *version.NoLatestAvailableError
		inProgress   *store.InstallInProgressError
		badChecksum  *checksum.MismatchError
		badSignature *signature.Error
		badVersion   *installer.VersionMismatchError
		notInstalled *store.VersionNotInstalledError
		noSelection  *activation.NoActiveOrDefaultError
		alreadyUp    *bgproc.ProcessAlreadyRunningError
		notRunning   *bgproc.ProcessNotRunningError
		inUse        *store.InUseError
	)
	switch {
	case errors.As(err, &malformed):
		return ExitMalformedVersion
	case errors.As(err, &unavailable), errors.As(err, &notFound):
		return ExitCatalog
	case errors.As(err, &noLatest):
		return ExitNoLatest
	case errors.As(err, &inProgress):
		return ExitInstallInProgress
	case errors.As(err, &badChecksum), errors.As(err, &badVersion):
		return ExitChecksum
	case errors.As(err, &badSignature):
		return ExitSignature
	case errors.As(err, &notInstalled):
		return ExitNotInstalled
	case errors.As(err, &noSelection):
		return ExitNoActiveOrDefault
	case errors.As(err, &alreadyUp):
		return ExitAlreadyRunning
	case errors.As(err, &notRunning):
		return ExitNotRunning
	case errors.As(err, &inUse):
		return ExitInUse
	}
	return ExitFailure
}
