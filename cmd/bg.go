package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frm-sh/frm/pkg/bgproc"
	"github.com/frm-sh/frm/pkg/version"
)

// BgCommand runs server nodes as detached background processes.
var BgCommand = &cobra.Command{
	Use:   "bg",
	Short: "Run server nodes in the background",
}

var bgStopKill bool

var bgStartCommand = &cobra.Command{
	Use:   "start <track> [version]",
	Short: "Start a node for the effective version",
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
		selector := ""
		if len(args) > 1 {
			selector = args[1]
		}
		rec, err := a.manager.Start(cmd.Context(), track, selector)
		if err != nil {
			return err
		}

		info := strings.Join([]string{
			headerStyle.Render(fmt.Sprintf("rabbitmq %s", rec.Version)),
			fmt.Sprintf("track  %s", rec.Track),
			fmt.Sprintf("pid    %d", rec.PID),
			fmt.Sprintf("logs   %s", rec.LogPath),
		}, "\n")
		fmt.Println(panelStyle.Render(info))
		return nil
	},
}

var bgStopCommand = &cobra.Command{
	Use:   "stop <track> <version>",
	Short: "Stop a running node",
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
		return a.manager.Stop(cmd.Context(), track, v, bgStopKill)
	},
}

var (
	bgLogsPath  bool
	bgLogsLines int
)

var bgLogsCommand = &cobra.Command{
	Use:   "logs <track> [version]",
	Short: "Tail the log of a node",
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
		selector := ""
		if len(args) > 1 {
			selector = args[1]
		}
		binding, err := a.resolver.Resolve(track, selector, environ())
		if err != nil {
			return err
		}
		logPath, err := a.manager.LogFile(binding.Track, binding.Version)
		if err != nil {
			return err
		}
		if bgLogsPath {
			fmt.Println(logPath)
			return nil
		}
		return bgproc.Tail(os.Stdout, logPath, bgLogsLines)
	},
}

var bgStatusCommand = &cobra.Command{
	Use:   "status",
	Short: "List running nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		records, err := a.manager.ListRunning()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no nodes running")
			return nil
		}
		for _, rec := range records {
			fmt.Printf("%s %s pid %d since %s\n",
				rec.Track, rec.Version, rec.PID, rec.StartedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	bgStopCommand.Flags().BoolVar(&bgStopKill, "kill", false, "Send SIGKILL instead of a graceful shutdown")
	bgLogsCommand.Flags().BoolVar(&bgLogsPath, "path", false, "Print the log file path instead of its contents")
	bgLogsCommand.Flags().IntVarP(&bgLogsLines, "lines", "n", 50, "Number of trailing lines to print")

	BgCommand.AddCommand(bgStartCommand)
	BgCommand.AddCommand(bgStopCommand)
	BgCommand.AddCommand(bgLogsCommand)
	BgCommand.AddCommand(bgStatusCommand)
}
