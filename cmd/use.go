package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frm-sh/frm/internal/shell"
	"github.com/frm-sh/frm/pkg/version"
)

var (
	usePrint    bool
	usePrintEnv bool
	useShell    string
)

// UseCommand activates a version for the current shell session. It is
// normally invoked through the wrapper `frm init` installs, which evals
// the printed script.
var UseCommand = &cobra.Command{
	Use:   "use <track> [version]",
	Short: "Activate a version in the current shell",
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

		if usePrintEnv {
			// Plain NAME=value lines with PATH merged, for wrappers
			// that cannot eval shell syntax.
			for _, kv := range binding.Environ(environ()) {
				fmt.Println(kv)
			}
			return nil
		}

		kind := shell.Detect(environ())
		if useShell != "" {
			if kind, err = shell.Parse(useShell); err != nil {
				return err
			}
		}
		script, err := shell.EnvScript(kind, binding)
		if err != nil {
			return err
		}
		fmt.Print(script)
		if !usePrint {
			fmt.Fprintf(os.Stderr, "# eval this output, or source the hook from `frm init %s`\n", kind)
		}
		return nil
	},
}

func init() {
	UseCommand.Flags().BoolVar(&usePrint, "print", false, "Print the activation script only, no hints")
	UseCommand.Flags().BoolVar(&usePrintEnv, "print-env", false, "Print plain NAME=value lines instead of a script")
	UseCommand.Flags().StringVar(&useShell, "shell", "", "Target shell (bash, zsh, nushell)")
}
