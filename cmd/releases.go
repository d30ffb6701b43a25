package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frm-sh/frm/pkg/version"
)

// ReleasesCommand manages the releases track.
var ReleasesCommand = &cobra.Command{
	Use:   "releases",
	Short: "Manage GA, beta and rc releases",
}

var releasesListRemote bool

var releasesListCommand = &cobra.Command{
	Use:   "list",
	Short: "List installed release versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if releasesListRemote {
			return listRemote(cmd, version.TrackRelease)
		}
		return listInstalled(version.TrackRelease)
	},
}

var (
	releasesInstallSkipSig bool
	releasesUninstallForce bool
)

var releasesInstallCommand = &cobra.Command{
	Use:   "install [version]",
	Short: "Install a release version (latest when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return installVersion(cmd, version.TrackRelease, args, false, releasesInstallSkipSig)
	},
}

var releasesReinstallCommand = &cobra.Command{
	Use:   "reinstall [version]",
	Short: "Reinstall a release version over the existing installation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return installVersion(cmd, version.TrackRelease, args, true, releasesInstallSkipSig)
	},
}

var releasesUninstallCommand = &cobra.Command{
	Use:   "uninstall <version>",
	Short: "Remove an installed release version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return uninstallVersion(cmd, version.TrackRelease, args[0], releasesUninstallForce)
	},
}

var releasesPathCommand = &cobra.Command{
	Use:   "path [version]",
	Short: "Print the sbin directory of the effective release version",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printPath(version.TrackRelease, args)
	},
}

// listRemote prints the catalog listing for a track, newest last.
func listRemote(cmd *cobra.Command, track version.Track) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	available, err := a.catalog.ListVersions(cmd.Context(), track)
	if err != nil {
		return err
	}
	for _, v := range available {
		fmt.Println(v)
	}
	return nil
}

func init() {
	releasesListCommand.Flags().BoolVar(&releasesListRemote, "remote", false, "List versions available upstream instead")
	releasesInstallCommand.Flags().BoolVar(&releasesInstallSkipSig, "skip-signature", false, "Skip detached signature verification")
	releasesReinstallCommand.Flags().BoolVar(&releasesInstallSkipSig, "skip-signature", false, "Skip detached signature verification")
	releasesUninstallCommand.Flags().BoolVar(&releasesUninstallForce, "force", false, "Stop a running node before removing")

	ReleasesCommand.AddCommand(releasesListCommand)
	ReleasesCommand.AddCommand(releasesInstallCommand)
	ReleasesCommand.AddCommand(releasesReinstallCommand)
	ReleasesCommand.AddCommand(releasesUninstallCommand)
	ReleasesCommand.AddCommand(releasesPathCommand)
}
