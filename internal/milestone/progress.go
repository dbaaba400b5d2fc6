// Package milestone holds the per-target cadence state machines: each
// milestone owns a start date, an ordered progress log persisted as
// progress.json, and a collection step that measures the working copy.
package milestone

import (
	"github.com/l10nmetrics/fluentwalk/internal/dates"
)

// ProgressEntry is one aggregate measurement tied to a sampled date and the
// revision it was measured at. Data keys are metric names; encoding/json
// keeps map keys sorted, which makes the persisted log diff-stable.
type ProgressEntry struct {
	Data     map[string]int `json:"data"`
	Date     dates.Date     `json:"date"`
	Revision string         `json:"revision"`
}

// SnapshotEntry is one detail record behind a ProgressEntry: a path in the
// monitored clone, the kind of measurement it contributed to, and its count.
type SnapshotEntry struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// Snapshot is the full detail backing the latest ProgressEntry. Only the
// most recent snapshot is kept; snapshot.json is overwritten wholesale on
// every successful collection.
type Snapshot struct {
	Date     dates.Date      `json:"date"`
	Revision string          `json:"revision"`
	Data     []SnapshotEntry `json:"data"`
}

// Result bundles the outputs of one collection: the aggregate entry for the
// progress log and the detail snapshot that backs it.
type Result struct {
	Entry    ProgressEntry
	Snapshot Snapshot
}
