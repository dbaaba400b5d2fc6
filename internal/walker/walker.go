// Package walker drives one sampling run: it finds the earliest date any
// milestone still needs, maps dates to revisions, moves the working copy
// only when necessary, collects once per milestone and date, and puts the
// working copy back where it started.
package walker

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/l10nmetrics/fluentwalk/internal/dates"
	"github.com/l10nmetrics/fluentwalk/internal/history"
	"github.com/l10nmetrics/fluentwalk/internal/milestone"
)

// Confirmer obtains a yes/no answer for a prompt. The walker blocks on it
// when history has not yet reached the date it wants to sample.
type Confirmer func(prompt string) (bool, error)

// AssumeYes is a Confirmer for non-interactive runs.
func AssumeYes(string) (bool, error) {
	return true, nil
}

// Config carries the run parameters. It is threaded in at construction so
// multiple configurations can coexist in one process.
type Config struct {
	// CadenceDays is the fixed interval between required sampling dates.
	CadenceDays int
	// DryRun reports collections without writing any files.
	DryRun bool
}

// Report summarizes a run.
type Report struct {
	// Updated is false when no collection cycle ran, meaning no revision
	// satisfied the next required date.
	Updated bool
}

// Walker orchestrates a run over one working copy.
type Walker struct {
	source     history.Source
	milestones []milestone.Milestone
	cfg        Config
	confirm    Confirmer
	log        *zap.Logger
	out        io.Writer
}

// New builds a walker. A nil confirm defaults to AssumeYes and a nil logger
// to a no-op logger.
func New(source history.Source, milestones []milestone.Milestone, cfg Config, confirm Confirmer, log *zap.Logger) *Walker {
	if confirm == nil {
		confirm = AssumeYes
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Walker{
		source:     source,
		milestones: milestones,
		cfg:        cfg,
		confirm:    confirm,
		log:        log,
		out:        os.Stdout,
	}
}

// SetOutput redirects console narration, used by tests.
func (w *Walker) SetOutput(out io.Writer) {
	w.out = out
}

// Run performs one sampling run. In current-revision mode every milestone is
// collected once at the checked-out revision with no switching and no
// already-collected skip. In cadence-walk mode the walker advances through
// history one cadence step at a time and restores the starting revision on
// exit, except when a collection or backend failure aborts the run.
func (w *Walker) Run(ctx context.Context, useCurrentRevision bool) (Report, error) {
	startRevision, err := w.source.CurrentRevision(ctx)
	if err != nil {
		return Report{}, err
	}
	color.New(color.FgGreen).Fprintf(w.out, "Your current revision is: %s\n", startRevision)

	if useCurrentRevision {
		if err := w.updateForRevision(ctx, startRevision, true); err != nil {
			return Report{}, err
		}
		color.New(color.FgGreen).Fprintln(w.out, "DONE!")
		return Report{Updated: true}, nil
	}

	updated, err := w.walk(ctx, startRevision)
	if err != nil {
		return Report{}, err
	}

	if updated {
		color.New(color.FgGreen).Fprintln(w.out, "DONE!")
	} else {
		color.New(color.FgYellow).Fprintln(w.out, "Could not find a revision for the next data update!")
	}
	return Report{Updated: updated}, nil
}

func (w *Walker) walk(ctx context.Context, startRevision string) (bool, error) {
	nextDate, ok, err := w.nextDate()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	fmt.Fprintf(w.out, "The first date we need to collect data for is: %s\n", nextDate)

	updated := false
	currentRevision := ""

	for {
		nextRevision, err := w.source.RevisionAtOrBefore(ctx, nextDate)
		if err != nil {
			return false, err
		}
		// The same revision resolving twice means no newer revision
		// satisfies a later date. This does not distinguish the true tip of
		// history from a sparse stretch of commits; both stop the walk.
		if nextRevision == currentRevision {
			w.log.Debug("history exhausted", zap.String("revision", nextRevision))
			break
		}

		revDate, err := w.source.RevisionDate(ctx, nextRevision, false)
		if err != nil {
			return false, err
		}

		if revDate.Before(nextDate) {
			color.New(color.FgYellow).Fprintf(w.out, "But the latest available revision is %s (%s)\n", nextRevision, revDate)
			proceed, err := w.confirm(fmt.Sprintf("Collect data for %s instead", revDate))
			if err != nil {
				return false, err
			}
			if !proceed {
				w.log.Info("walk aborted at prompt", zap.String("date", nextDate.String()))
				break
			}
		}

		fmt.Fprintf(w.out, "\nSelected revision: %s (%s)\n", nextRevision, revDate)
		if w.switchRequired(ctx, revDate) {
			fmt.Fprintln(w.out, " - Updating to revision")
			w.log.Info("switching working copy", zap.String("revision", nextRevision))
			if err := w.source.SwitchTo(ctx, nextRevision); err != nil {
				return false, err
			}
		}
		currentRevision = nextRevision

		fmt.Fprintln(w.out, " - Collecting data")
		updated = true
		if err := w.updateForRevision(ctx, currentRevision, false); err != nil {
			return false, err
		}

		nextDate = nextDate.AddDays(w.cfg.CadenceDays)
	}

	endRevision, err := w.source.CurrentRevision(ctx)
	if err != nil {
		return false, err
	}
	if endRevision != startRevision {
		fmt.Fprintf(w.out, "Switching back to start revision: %s.\n", startRevision)
		if err := w.source.SwitchTo(ctx, startRevision); err != nil {
			return false, err
		}
	}

	return updated, nil
}

// nextDate computes the earliest next-needed date across all milestones.
// ok is false when there are no milestones.
func (w *Walker) nextDate() (dates.Date, bool, error) {
	var next dates.Date
	found := false
	for _, m := range w.milestones {
		candidate, err := m.NextDate(w.cfg.CadenceDays)
		if err != nil {
			return dates.Date{}, false, err
		}
		if !found || candidate.Before(next) {
			next = candidate
			found = true
		}
	}
	return next, found, nil
}

// switchRequired reports whether any milestone lacks a log for the date and
// therefore needs the working copy at the matching revision.
func (w *Walker) switchRequired(ctx context.Context, d dates.Date) bool {
	for _, m := range w.milestones {
		if !m.HasLogForDate(ctx, w.source, d) {
			return true
		}
	}
	return false
}

// updateForRevision runs one collection cycle over every milestone.
func (w *Walker) updateForRevision(ctx context.Context, rev string, useCurrentRevision bool) error {
	revDate, err := w.source.RevisionDate(ctx, rev, useCurrentRevision)
	if err != nil {
		return err
	}

	for _, m := range w.milestones {
		if !useCurrentRevision {
			last, ok, err := m.LastDate()
			if err != nil {
				return err
			}
			if ok && !revDate.After(last) {
				fmt.Fprintf(w.out, "   - %s: Skipping (Already collected)\n", m.Name())
				continue
			}
		}

		result, err := m.Collect(ctx, w.source, revDate, rev)
		if err != nil {
			return fmt.Errorf("collect %s: %w", m.Name(), err)
		}
		if result == nil {
			fmt.Fprintf(w.out, "   - %s: Skipping (User aborted)\n", m.Name())
			continue
		}

		w.log.Info("collected",
			zap.String("milestone", m.Name()),
			zap.String("date", revDate.String()),
			zap.String("revision", rev))

		if err := m.Append(result.Entry); err != nil {
			return err
		}

		if w.cfg.DryRun {
			fmt.Fprintf(w.out, "   - %s: Not writing (dry run)\n", m.Name())
			continue
		}

		fmt.Fprintf(w.out, "   - %s: Writing\n", m.Name())
		if err := m.SaveProgress(); err != nil {
			return err
		}
		if err := m.SaveSnapshot(result.Snapshot); err != nil {
			return err
		}
	}
	return nil
}
