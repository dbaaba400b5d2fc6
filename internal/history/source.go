// Package history abstracts the version-control backend holding the
// monitored clone. The walker only needs four capabilities: read the
// current revision, resolve a revision to a calendar date, pick the
// revision active at or before a date, and move the working copy.
package history

import (
	"context"

	"github.com/l10nmetrics/fluentwalk/internal/dates"
)

// Source is the capability set consumed by the revision walker.
// Implementations share one working copy; SwitchTo mutates it.
type Source interface {
	// CurrentRevision returns the identifier of the currently checked-out
	// revision.
	CurrentRevision(ctx context.Context) (string, error)

	// RevisionDate resolves a revision to its commit date. When
	// useWorkingCopy is true the date of the currently checked-out state is
	// returned instead of the named revision's own commit date; the walker
	// uses this only in current-revision mode.
	RevisionDate(ctx context.Context, rev string, useWorkingCopy bool) (dates.Date, error)

	// RevisionAtOrBefore returns the most recent revision whose commit date
	// is on or before d. It returns an empty string when no revision
	// qualifies; the walker treats that as history exhaustion.
	RevisionAtOrBefore(ctx context.Context, d dates.Date) (string, error)

	// SwitchTo moves the working copy to the given revision.
	SwitchTo(ctx context.Context, rev string) error
}

// Compile-time interface conformance checks.
var (
	_ Source = (*GitSource)(nil)
	_ Source = (*HgSource)(nil)
)
