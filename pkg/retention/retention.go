// Package retention removes installations that nothing protects: the
// track default and versions with a running node always survive.
package retention

import (
	"context"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/frm-sh/frm/pkg/store"
	"github.com/frm-sh/frm/pkg/version"
)

// SkipReason explains why a version survived a sweep.
type SkipReason struct {
	Version version.Version
	Reason  string
}

// Report summarizes one sweep.
type Report struct {
	Removed []version.Version
	Skipped []SkipReason
}

// MultiError aggregates per-version removal failures so one bad
// installation cannot abort the sweep.
type MultiError struct {
	Errors []error
}

func (e *MultiError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Policy sweeps a track against the installed set.
type Policy struct {
	Store *store.Store
	// Running reports versions with a live node. They are never removed.
	Running func(track version.Track, v version.Version) (bool, error)
	// Guard is passed through to uninstall.
	Guard store.UninstallGuard
}

// Prune removes every installed version on the track except the default
// and any with a running node.
func (p *Policy) Prune(ctx context.Context, track version.Track) (Report, error) {
	return p.sweep(ctx, track, nil)
}

// Clean removes versions Prune would remove that were also installed
// longer ago than olderThan.
func (p *Policy) Clean(ctx context.Context, track version.Track, olderThan time.Duration) (Report, error) {
	cutoff := time.Now().Add(-olderThan)
	return p.sweep(ctx, track, &cutoff)
}

func (p *Policy) sweep(ctx context.Context, track version.Track, cutoff *time.Time) (Report, error) {
	installed, warnings, err := p.Store.List(track)
	if err != nil {
		return Report{}, err
	}
	for _, w := range warnings {
		log.Warnf("%s: %s", w.Path, w.Reason)
	}

	def, hasDefault, err := p.Store.Default(track)
	if err != nil {
		return Report{}, err
	}

	var report Report
	var failures []error
	for _, iv := range installed {
		if hasDefault && iv.Version.Equal(def) {
			report.Skipped = append(report.Skipped, SkipReason{Version: iv.Version, Reason: "track default"})
			continue
		}
		if p.Running != nil {
			running, err := p.Running(track, iv.Version)
			if err != nil {
				failures = append(failures, err)
				continue
			}
			if running {
				report.Skipped = append(report.Skipped, SkipReason{Version: iv.Version, Reason: "node is running"})
				continue
			}
		}
		if cutoff != nil && iv.InstalledAt.After(*cutoff) {
			report.Skipped = append(report.Skipped, SkipReason{Version: iv.Version, Reason: "installed recently"})
			continue
		}

		if err := p.Store.Uninstall(ctx, track, iv.Version, false, p.Guard); err != nil {
			failures = append(failures, err)
			continue
		}
		report.Removed = append(report.Removed, iv.Version)
	}

	if len(failures) > 0 {
		return report, &MultiError{Errors: failures}
	}
	return report, nil
}
