package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frm-sh/frm/internal/shell"
)

// InitCommand prints the shell hook that makes `frm use` able to mutate
// the calling session. Users source it from their rc file:
//
//	eval "$(frm init bash)"
var InitCommand = &cobra.Command{
	Use:   "init [shell]",
	Short: "Print the shell hook for frm use",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := shell.Detect(environ())
		if len(args) > 0 {
			var err error
			if kind, err = shell.Parse(args[0]); err != nil {
				return err
			}
		}
		script, err := shell.InitScript(kind)
		if err != nil {
			return err
		}
		fmt.Print(script)
		return nil
	},
}
