package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/frm-sh/frm/pkg/fetch"
	"github.com/frm-sh/frm/pkg/store"
	"github.com/frm-sh/frm/pkg/toolversions"
	"github.com/frm-sh/frm/pkg/version"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	defaultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	panelStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

func environ() []string { return os.Environ() }

// selectVersion decides the version argument for install commands:
// the CLI argument wins, then a .tool-versions pin, then "latest".
func selectVersion(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if wd, err := os.Getwd(); err == nil {
		if pinned, found, err := toolversions.Lookup(wd, "rabbitmq"); err == nil && found {
			return pinned
		}
	}
	return "latest"
}

// downloadProgress renders an in-place percentage on a terminal and
// stays silent when stderr is redirected.
func downloadProgress() fetch.ProgressFunc {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	var lastPercent int64 = -1
	return func(downloaded, total int64) {
		if total <= 0 {
			return
		}
		percent := downloaded * 100 / total
		if percent == lastPercent {
			return
		}
		lastPercent = percent
		fmt.Fprintf(os.Stderr, "\rdownloading... %3d%%", percent)
		if percent == 100 {
			fmt.Fprintln(os.Stderr)
		}
	}
}

// renderInstalled prints one track's installations with the default
// marked and scan warnings listed after the table.
func renderInstalled(track version.Track, installed []store.InstalledVersion, def version.Version, hasDefault bool, warnings []store.Warning) {
	if len(installed) == 0 {
		fmt.Printf("no versions installed on track %s\n", track)
	} else {
		fmt.Println(headerStyle.Render(fmt.Sprintf("%s:", track)))
		for _, iv := range installed {
			line := fmt.Sprintf("    %s", iv.Version)
			if hasDefault && iv.Version.Equal(def) {
				line = defaultStyle.Render(fmt.Sprintf("  * %s (default)", iv.Version))
			}
			if !iv.Verified {
				line += warnStyle.Render("  [unverified]")
			}
			fmt.Println(line)
		}
	}
	for _, w := range warnings {
		fmt.Println(warnStyle.Render(fmt.Sprintf("  ! %s: %s", w.Path, w.Reason)))
	}
}
