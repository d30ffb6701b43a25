package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/frm-sh/frm/pkg/retention"
	"github.com/frm-sh/frm/pkg/version"
)

// AlphasCommand manages the alphas track of nightly builds.
var AlphasCommand = &cobra.Command{
	Use:   "alphas",
	Short: "Manage nightly alpha builds",
}

var alphasListRemote bool

var alphasListCommand = &cobra.Command{
	Use:   "list",
	Short: "List installed alpha versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if alphasListRemote {
			return listRemote(cmd, version.TrackAlpha)
		}
		return listInstalled(version.TrackAlpha)
	},
}

var (
	alphasInstallSkipSig bool
	alphasUninstallForce bool
	alphasCleanOlderThan time.Duration
)

var alphasInstallCommand = &cobra.Command{
	Use:   "install [version]",
	Short: "Install an alpha build (latest when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return installVersion(cmd, version.TrackAlpha, args, false, alphasInstallSkipSig)
	},
}

var alphasUninstallCommand = &cobra.Command{
	Use:   "uninstall <version>",
	Short: "Remove an installed alpha build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return uninstallVersion(cmd, version.TrackAlpha, args[0], alphasUninstallForce)
	},
}

var alphasPruneCommand = &cobra.Command{
	Use:   "prune",
	Short: "Remove alpha builds except the default and running ones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		report, err := newRetentionPolicy(a).Prune(cmd.Context(), version.TrackAlpha)
		renderRetention(report)
		return err
	},
}

var alphasCleanCommand = &cobra.Command{
	Use:   "clean",
	Short: "Remove alpha builds older than a cutoff",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		olderThan := alphasCleanOlderThan
		if olderThan == 0 {
			olderThan = a.cfg.CleanOlderThan
		}
		report, err := newRetentionPolicy(a).Clean(cmd.Context(), version.TrackAlpha, olderThan)
		renderRetention(report)
		return err
	},
}

func newRetentionPolicy(a *app) *retention.Policy {
	guard := a.manager.Guard()
	return &retention.Policy{
		Store:   a.store,
		Running: guard.Running,
		Guard:   guard,
	}
}

func renderRetention(report retention.Report) {
	for _, v := range report.Removed {
		fmt.Printf("removed %s\n", v)
	}
	for _, skip := range report.Skipped {
		fmt.Printf("kept %s (%s)\n", skip.Version, skip.Reason)
	}
}

func init() {
	alphasListCommand.Flags().BoolVar(&alphasListRemote, "remote", false, "List versions available upstream instead")
	alphasInstallCommand.Flags().BoolVar(&alphasInstallSkipSig, "skip-signature", false, "Skip detached signature verification")
	alphasUninstallCommand.Flags().BoolVar(&alphasUninstallForce, "force", false, "Stop a running node before removing")
	alphasCleanCommand.Flags().DurationVar(&alphasCleanOlderThan, "older-than", 0, "Age cutoff, e.g. 720h (default from config)")

	AlphasCommand.AddCommand(alphasListCommand)
	AlphasCommand.AddCommand(alphasInstallCommand)
	AlphasCommand.AddCommand(alphasUninstallCommand)
	AlphasCommand.AddCommand(alphasPruneCommand)
	AlphasCommand.AddCommand(alphasCleanCommand)
}
