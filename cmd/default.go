package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frm-sh/frm/pkg/version"
)

// DefaultCommand manages the per-track default pointers.
var DefaultCommand = &cobra.Command{
	Use:   "default",
	Short: "Show or change a track's default version",
}

var defaultShowCommand = &cobra.Command{
	Use:   "show <track>",
	Short: "Show the default version of a track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		track, err := version.ParseTrack(args[0])
		if err != nil {
			return err
		}
		def, ok, err := a.store.Default(track)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("no default set for track %s\n", track)
			return nil
		}
		fmt.Println(def)
		return nil
	},
}

var defaultSetCommand = &cobra.Command{
	Use:   "set <track> <version>",
	Short: "Set the default version of a track",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		track, err := version.ParseTrack(args[0])
		if err != nil {
			return err
		}
		v, err := version.Parse(args[1])
		if err != nil {
			return err
		}
		if err := a.store.SetDefault(track, v); err != nil {
			return err
		}
		fmt.Printf("default for track %s is now %s\n", track, v)
		return nil
	},
}

var defaultClearCommand = &cobra.Command{
	Use:   "clear <track>",
	Short: "Unset the default version of a track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		track, err := version.ParseTrack(args[0])
		if err != nil {
			return err
		}
		return a.store.ClearDefault(track)
	},
}

func init() {
	DefaultCommand.AddCommand(defaultShowCommand)
	DefaultCommand.AddCommand(defaultSetCommand)
	DefaultCommand.AddCommand(defaultClearCommand)
}
