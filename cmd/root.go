// Package cmd wires the frm command line. Commands parse flags, build
// their collaborators and render output; all behavior lives in pkg.
package cmd

import (
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"

	"github.com/frm-sh/frm/pkg/activation"
	"github.com/frm-sh/frm/pkg/bgproc"
	"github.com/frm-sh/frm/pkg/catalog"
	"github.com/frm-sh/frm/pkg/config"
	"github.com/frm-sh/frm/pkg/installer"
	"github.com/frm-sh/frm/pkg/paths"
	"github.com/frm-sh/frm/pkg/store"
)

var (
	// Global flags
	verbose bool
	quiet   bool
)

// RootCmd is the base command.
var RootCmd = &cobra.Command{
	Use:   "frm",
	Short: "Local version manager for RabbitMQ server releases",
	Long: `frm installs, activates and runs multiple RabbitMQ server releases side
by side. Versions live on three tracks: releases (GA, beta and rc builds),
alphas (nightly builds) and local (archives you built yourself).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetHandler(cli.Default)
		if verbose {
			log.SetLevel(log.DebugLevel)
		} else if quiet {
			log.SetLevel(log.ErrorLevel)
		} else {
			log.SetLevel(log.InfoLevel)
		}
	},
}

// app bundles the collaborators every command needs.
type app struct {
	layout    *paths.Layout
	cfg       config.Config
	store     *store.Store
	catalog   catalog.Client
	installer *installer.Installer
	resolver  *activation.Resolver
	manager   *bgproc.Manager
}

func newApp() (*app, error) {
	layout, err := paths.NewLayout()
	if err != nil {
		return nil, err
	}
	if err := layout.EnsureDirs(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(layout)
	if err != nil {
		return nil, err
	}

	st := store.New(layout)
	cat := catalog.NewGitHub().WithRepos(cfg.ServerRepo, cfg.PackagesRepo)
	inst := installer.New(cat, st)
	if !quiet {
		inst.Progress = downloadProgress()
	}
	resolver := &activation.Resolver{Store: st}
	manager := bgproc.NewManager(resolver)
	manager.StopTimeout = cfg.StopTimeout

	return &app{
		layout:    layout,
		cfg:       cfg,
		store:     st,
		catalog:   cat,
		installer: inst,
		resolver:  resolver,
		manager:   manager,
	}, nil
}

func init() {
	cobra.EnableCommandSorting = false

	RootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Increase log verbosity")
	RootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress progress output")

	RootCmd.AddGroup(&cobra.Group{
		ID:    "tracks",
		Title: "Track Commands:",
	})
	RootCmd.AddGroup(&cobra.Group{
		ID:    "utility",
		Title: "Utility Commands:",
	})
	RootCmd.SetHelpCommandGroupID("utility")
	RootCmd.SetCompletionCommandGroupID("utility")

	ReleasesCommand.GroupID = "tracks"
	AlphasCommand.GroupID = "tracks"
	LocalCommand.GroupID = "tracks"
	UseCommand.GroupID = "tracks"
	DefaultCommand.GroupID = "tracks"
	BgCommand.GroupID = "tracks"
	EnvCommand.GroupID = "utility"
	ConfCommand.GroupID = "utility"
	CheckSignatureCommand.GroupID = "utility"
	InitCommand.GroupID = "utility"

	RootCmd.AddCommand(ReleasesCommand)
	RootCmd.AddCommand(AlphasCommand)
	RootCmd.AddCommand(LocalCommand)
	RootCmd.AddCommand(UseCommand)
	RootCmd.AddCommand(DefaultCommand)
	RootCmd.AddCommand(BgCommand)
	RootCmd.AddCommand(EnvCommand)
	RootCmd.AddCommand(ConfCommand)
	RootCmd.AddCommand(CheckSignatureCommand)
	RootCmd.AddCommand(InitCommand)
}
