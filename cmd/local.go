package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frm-sh/frm/pkg/installer"
	"github.com/frm-sh/frm/pkg/version"
)

// LocalCommand manages archives built outside the release pipeline.
var LocalCommand = &cobra.Command{
	Use:   "local",
	Short: "Manage locally built server archives",
}

var (
	localInstallVersion string
	localInstallForce   bool
	localUninstallForce bool
)

var localInstallCommand = &cobra.Command{
	Use:   "install <tarball>",
	Short: "Install a server archive from disk",
	Long: `Install a generic-unix server archive you built yourself. The version is
inferred from the archive filename; pass --version to cross-check it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		iv, err := a.installer.Install(cmd.Context(), installer.Request{
			Track:       version.TrackLocal,
			Version:     localInstallVersion,
			Force:       localInstallForce,
			LocalSource: args[0],
		})
		if err != nil {
			return err
		}
		fmt.Printf("installed %s at %s\n", iv.Version, iv.InstallPath)
		return nil
	},
}

var localListCommand = &cobra.Command{
	Use:   "list",
	Short: "List installed local builds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listInstalled(version.TrackLocal)
	},
}

var localUninstallCommand = &cobra.Command{
	Use:   "uninstall <version>",
	Short: "Remove an installed local build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return uninstallVersion(cmd, version.TrackLocal, args[0], localUninstallForce)
	},
}

func init() {
	localInstallCommand.Flags().StringVar(&localInstallVersion, "version", "", "Expected version, checked against the archive filename")
	localInstallCommand.Flags().BoolVar(&localInstallForce, "force", false, "Reinstall over an existing installation")
	localUninstallCommand.Flags().BoolVar(&localUninstallForce, "force", false, "Stop a running node before removing")

	LocalCommand.AddCommand(localInstallCommand)
	LocalCommand.AddCommand(localListCommand)
	LocalCommand.AddCommand(localUninstallCommand)
}
