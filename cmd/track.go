package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frm-sh/frm/pkg/installer"
	"github.com/frm-sh/frm/pkg/version"
)

// listInstalled implements `frm <track> list`.
func listInstalled(track version.Track) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	installed, warnings, err := a.store.List(track)
	if err != nil {
		return err
	}
	def, hasDefault, err := a.store.Default(track)
	if err != nil {
		return err
	}
	renderInstalled(track, installed, def, hasDefault, warnings)
	return nil
}

// installVersion implements `frm <track> install` and reinstall.
func installVersion(cmd *cobra.Command, track version.Track, args []string, force, skipSignature bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	iv, err := a.installer.Install(cmd.Context(), installer.Request{
		Track:         track,
		Version:       selectVersion(args),
		Force:         force,
		SkipSignature: skipSignature,
	})
	if err != nil {
		return err
	}
	fmt.Printf("installed %s at %s\n", iv.Version, iv.InstallPath)
	return nil
}

// uninstallVersion implements `frm <track> uninstall`.
func uninstallVersion(cmd *cobra.Command, track version.Track, versionArg string, force bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	v, err := version.Parse(versionArg)
	if err != nil {
		return err
	}
	if err := a.store.Uninstall(cmd.Context(), track, v, force, a.manager.Guard()); err != nil {
		return err
	}
	fmt.Printf("uninstalled %s from track %s\n", v, track)
	return nil
}

// printPath implements `frm <track> path`: the sbin directory of the
// effective version, for scripts.
func printPath(track version.Track, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	explicit := ""
	if len(args) > 0 {
		explicit = args[0]
	}
	binding, err := a.resolver.Resolve(track, explicit, environ())
	if err != nil {
		return err
	}
	fmt.Println(binding.SbinDir)
	return nil
}
