package milestone

import (
	"context"

	"github.com/l10nmetrics/fluentwalk/internal/dates"
	"github.com/l10nmetrics/fluentwalk/internal/history"
)

// Milestone is the capability set the revision walker consumes. Store
// provides everything except Collect; concrete milestones embed a *Store and
// add their measurement logic.
type Milestone interface {
	// Name identifies the milestone; its state lives under a directory of
	// this name inside the data directory.
	Name() string

	// NextDate returns the next calendar date the milestone needs data for:
	// the last logged date plus the cadence, or the configured start date
	// when the log is empty.
	NextDate(cadenceDays int) (dates.Date, error)

	// LastDate returns the date of the last progress entry, or ok=false for
	// an empty log.
	LastDate() (d dates.Date, ok bool, err error)

	// HasLogForDate reports whether the milestone can produce data for the
	// given date without the working copy being switched there. The default
	// is false; a milestone with an external log may override it.
	HasLogForDate(ctx context.Context, src history.Source, d dates.Date) bool

	// Collect measures the working copy for the given date and revision.
	// A nil Result with a nil error means no usable data (for example an
	// aborted interactive sub-step); the walker records it as a skip.
	Collect(ctx context.Context, src history.Source, d dates.Date, rev string) (*Result, error)

	// Append adds an entry to the in-memory progress log, replacing the last
	// entry when the dates match. Callers must pass dates in non-decreasing
	// order.
	Append(e ProgressEntry) error

	// SaveProgress flushes the progress log to progress.json.
	SaveProgress() error

	// SaveSnapshot overwrites snapshot.json with the given snapshot.
	SaveSnapshot(s Snapshot) error
}
