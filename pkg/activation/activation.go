// Package activation decides which installed version a command acts on
// and what environment a server process needs to run it.
package activation

import (
	"fmt"
	"strings"

	"github.com/frm-sh/frm/pkg/store"
	"github.com/frm-sh/frm/pkg/version"
)

// EnvPrefix is the prefix of the per-track active-version variables,
// e.g. FRM_ACTIVE_RELEASES.
const EnvPrefix = "FRM_ACTIVE_"

// NoActiveOrDefaultError reports that nothing selects a version: no
// explicit argument, no active-version variable and no default pointer.
type NoActiveOrDefaultError struct {
	Track version.Track
}

func (e *NoActiveOrDefaultError) Error() string {
	return fmt.Sprintf("no version selected for track %s: pass one, run `frm %s use`, or set a default", e.Track, e.Track)
}

// EnvVar is one environment binding.
type EnvVar struct {
	Name  string
	Value string
}

// Binding is the resolved activation for one installed version. It is a
// pure description; nothing is mutated or spawned to produce it.
type Binding struct {
	Track      version.Track
	Version    version.Version
	InstallDir string
	SbinDir    string
	EtcDir     string
	LogDir     string
	// PathEntry is the directory to prepend to PATH.
	PathEntry string
	// Env holds the server environment, PATH excluded.
	Env []EnvVar
}

// Resolver resolves activation requests against the installed set.
type Resolver struct {
	Store *store.Store
}

// ActiveEnvVar returns the active-version variable name for a track.
func ActiveEnvVar(track version.Track) string {
	return EnvPrefix + strings.ToUpper(track.String())
}

// Resolve picks a version for the track and returns its binding.
// Precedence: the explicit argument, then the active-version variable
// from the caller's environment, then the track default. "latest" at any
// level resolves against the installed set only, never the catalog.
func (r *Resolver) Resolve(track version.Track, explicit string, environ []string) (Binding, error) {
	selector := explicit
	if selector == "" {
		selector = envLookup(environ, ActiveEnvVar(track))
	}

	var v version.Version
	switch selector {
	case "":
		def, ok, err := r.Store.Default(track)
		if err != nil {
			return Binding{}, err
		}
		if !ok {
			return Binding{}, &NoActiveOrDefaultError{Track: track}
		}
		v = def
	case "latest":
		installed, err := r.Store.Versions(track)
		if err != nil {
			return Binding{}, err
		}
		latest, ok := version.ResolveLatestIn(track, installed)
		if !ok {
			return Binding{}, &version.NoLatestAvailableError{Track: track}
		}
		v = latest
	default:
		parsed, err := version.Parse(selector)
		if err != nil {
			return Binding{}, err
		}
		v = parsed
	}

	iv, err := r.Store.Get(track, v)
	if err != nil {
		return Binding{}, err
	}
	return r.binding(track, iv), nil
}

func (r *Resolver) binding(track version.Track, iv store.InstalledVersion) Binding {
	layout := r.Store.Layout()
	b := Binding{
		Track:      track,
		Version:    iv.Version,
		InstallDir: iv.InstallPath,
		SbinDir:    layout.SbinDir(track, iv.Version),
		EtcDir:     layout.EtcDir(track, iv.Version),
		LogDir:     layout.LogDir(track, iv.Version),
	}
	b.PathEntry = b.SbinDir
	b.Env = []EnvVar{
		{Name: "RABBITMQ_HOME", Value: b.InstallDir},
		{Name: "RABBITMQ_CONFIG_FILE", Value: b.EtcDir + "/rabbitmq.conf"},
		{Name: "RABBITMQ_LOG_BASE", Value: b.LogDir},
		{Name: ActiveEnvVar(track), Value: b.Version.String()},
	}
	return b
}

// Environ merges a binding into a process environment, prepending the
// sbin directory to PATH.
func (b Binding) Environ(base []string) []string {
	out := make([]string, 0, len(base)+len(b.Env)+1)
	set := map[string]string{"PATH": b.PathEntry}
	for _, ev := range b.Env {
		set[ev.Name] = ev.Value
	}
	for _, kv := range base {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			out = append(out, kv)
			continue
		}
		if repl, hit := set[name]; hit {
			if name == "PATH" {
				value = repl + ":" + value
			} else {
				value = repl
			}
			delete(set, name)
		}
		out = append(out, name+"="+value)
	}
	for name, value := range set {
		out = append(out, name+"="+value)
	}
	return out
}

func envLookup(environ []string, name string) string {
	for _, kv := range environ {
		if v, ok := strings.CutPrefix(kv, name+"="); ok {
			return v
		}
	}
	return ""
}
