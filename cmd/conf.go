package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/frm-sh/frm/pkg/activation"
	"github.com/frm-sh/frm/pkg/conf"
	"github.com/frm-sh/frm/pkg/version"
)

// ConfCommand edits the rabbitmq.conf of an installed version without
// disturbing its other lines.
var ConfCommand = &cobra.Command{
	Use:   "conf",
	Short: "Read and edit a version's rabbitmq.conf",
}

var (
	confTrack   string
	confVersion string
)

// confBinding resolves the effective installation the conf commands
// operate on.
func confBinding() (activation.Binding, error) {
	a, err := newApp()
	if err != nil {
		return activation.Binding{}, err
	}
	track, err := version.ParseTrack(confTrack)
	if err != nil {
		return activation.Binding{}, err
	}
	return a.resolver.Resolve(track, confVersion, environ())
}

// confFile resolves the rabbitmq.conf of the effective version.
func confFile() (string, error) {
	binding, err := confBinding()
	if err != nil {
		return "", err
	}
	return filepath.Join(binding.EtcDir, "rabbitmq.conf"), nil
}

// knownConfFiles are the per-installation files conf show may print.
var knownConfFiles = []string{
	"rabbitmq.conf",
	"rabbitmq-env.conf",
	"advanced.config",
	"enabled_plugins",
}

func confShowPath(etcDir, name string) (string, error) {
	for _, known := range knownConfFiles {
		if name == known {
			return filepath.Join(etcDir, name), nil
		}
	}
	return "", errors.Errorf("unknown config file %q, known files: %s",
		name, strings.Join(knownConfFiles, ", "))
}

func loadConfDocument(path string) (*conf.Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return conf.Parse("")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}
	return conf.Parse(string(data))
}

var confShowCommand = &cobra.Command{
	Use:   "show [file]",
	Short: "Print one of a version's config files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "rabbitmq.conf"
		if len(args) > 0 {
			name = args[0]
		}
		binding, err := confBinding()
		if err != nil {
			return err
		}
		path, err := confShowPath(binding.EtcDir, name)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "cannot read %s", path)
		}
		fmt.Print(string(data))
		return nil
	},
}

var confGetCommand = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := confFile()
		if err != nil {
			return err
		}
		doc, err := loadConfDocument(path)
		if err != nil {
			return err
		}
		value, ok := doc.Get(args[0])
		if !ok {
			return errors.Errorf("%s is not set in %s", args[0], path)
		}
		fmt.Println(value)
		return nil
	},
}

var confSetCommand = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting, preserving the rest of the file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := confFile()
		if err != nil {
			return err
		}
		doc, err := loadConfDocument(path)
		if err != nil {
			return err
		}
		if err := doc.Set(args[0], args[1]); err != nil {
			return err
		}
		if violations := conf.Validate(doc, conf.DefaultSchema); len(violations) > 0 {
			return errors.New(violations[0].Error())
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return errors.Wrap(err, "cannot create config directory")
		}
		return renameio.WriteFile(path, []byte(doc.Render()), 0o644)
	},
}

var confUnsetCommand = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := confFile()
		if err != nil {
			return err
		}
		doc, err := loadConfDocument(path)
		if err != nil {
			return err
		}
		doc.Unset(args[0])
		return renameio.WriteFile(path, []byte(doc.Render()), 0o644)
	},
}

func init() {
	ConfCommand.PersistentFlags().StringVar(&confTrack, "track", "releases", "Track of the installation to edit")
	ConfCommand.PersistentFlags().StringVar(&confVersion, "version", "", "Version to edit (default: effective version)")

	ConfCommand.AddCommand(confShowCommand)
	ConfCommand.AddCommand(confGetCommand)
	ConfCommand.AddCommand(confSetCommand)
	ConfCommand.AddCommand(confUnsetCommand)
}
