package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frm-sh/frm/internal/shell"
	"github.com/frm-sh/frm/pkg/version"
)

var envShell string

// EnvCommand prints the activation script for the effective version
// without any hints, for use in scripts and rc files.
var EnvCommand = &cobra.Command{
	Use:   "env <track> [version]",
	Short: "Print the activation script for the effective version",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		track, err := version.ParseTrack(args[0])
		if err != nil {
			return err
		}
		explicit := ""
		if len(args) > 1 {
			explicit = args[1]
		}
		binding, err := a.resolver.Resolve(track, explicit, environ())
		if err != nil {
			return err
		}

		kind := shell.Detect(environ())
		if envShell != "" {
			if kind, err = shell.Parse(envShell); err != nil {
				return err
			}
		}
		script, err := shell.EnvScript(kind, binding)
		if err != nil {
			return err
		}
		fmt.Print(script)
		return nil
	},
}

func init() {
	EnvCommand.Flags().StringVar(&envShell, "shell", "", "Target shell (bash, zsh, nushell)")
}
