package milestone

import (
	"context"

	"github.com/l10nmetrics/fluentwalk/internal/dates"
	"github.com/l10nmetrics/fluentwalk/internal/history"
)

// Mock is a test double with real Store state and a scripted collection
// step. Tests provide CollectFunc to control results; a nil CollectFunc
// collects an empty data map.
type Mock struct {
	*Store

	// CollectFunc produces the scripted result. Returning (nil, nil) is the
	// no-usable-data signal.
	CollectFunc func(ctx context.Context, src history.Source, d dates.Date, rev string) (*Result, error)

	// HasLogFunc overrides the default no-cached-log answer when set.
	HasLogFunc func(d dates.Date) bool

	// CollectedDates records every date Collect ran for, in order.
	CollectedDates []dates.Date
}

// NewMock creates a mock milestone persisting under dataDir.
func NewMock(name, dataDir string, startDate dates.Date) *Mock {
	return &Mock{Store: NewStore(name, dataDir, startDate)}
}

// Collect records the call and delegates to CollectFunc.
func (m *Mock) Collect(ctx context.Context, src history.Source, d dates.Date, rev string) (*Result, error) {
	m.CollectedDates = append(m.CollectedDates, d)
	if m.CollectFunc != nil {
		return m.CollectFunc(ctx, src, d, rev)
	}
	return &Result{
		Entry:    ProgressEntry{Date: d, Revision: rev, Data: map[string]int{}},
		Snapshot: Snapshot{Date: d, Revision: rev, Data: []SnapshotEntry{}},
	}, nil
}

// HasLogForDate consults HasLogFunc when set.
func (m *Mock) HasLogForDate(ctx context.Context, src history.Source, d dates.Date) bool {
	if m.HasLogFunc != nil {
		return m.HasLogFunc(d)
	}
	return m.Store.HasLogForDate(ctx, src, d)
}

// Compile-time interface conformance check.
var _ Milestone = (*Mock)(nil)
