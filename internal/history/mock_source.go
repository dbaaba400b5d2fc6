package history

import (
	"context"
	"fmt"

	"github.com/l10nmetrics/fluentwalk/internal/dates"
)

// MockRevision is one commit in a MockSource's scripted history.
type MockRevision struct {
	Rev  string
	Date dates.Date
}

// MockSource is a test double for Source. It serves a scripted, date-ordered
// history and records every working-copy switch so tests can assert on the
// exact switch sequence and final position.
type MockSource struct {
	// History is ordered oldest to newest.
	History []MockRevision
	// Checkout is the revision the working copy currently sits at.
	Checkout string
	// Switches records every SwitchTo argument in order.
	Switches []string
	// Err, when set, is returned by every method.
	Err error
}

// NewMockSource builds a source whose working copy starts at the newest
// scripted revision.
func NewMockSource(history ...MockRevision) *MockSource {
	m := &MockSource{History: history}
	if len(history) > 0 {
		m.Checkout = history[len(history)-1].Rev
	}
	return m
}

// CurrentRevision returns the scripted checkout position.
func (m *MockSource) CurrentRevision(ctx context.Context) (string, error) {
	return m.Checkout, m.Err
}

// RevisionDate resolves a scripted revision to its date.
func (m *MockSource) RevisionDate(ctx context.Context, rev string, useWorkingCopy bool) (dates.Date, error) {
	if m.Err != nil {
		return dates.Date{}, m.Err
	}
	if useWorkingCopy {
		rev = m.Checkout
	}
	for _, r := range m.History {
		if r.Rev == rev {
			return r.Date, nil
		}
	}
	return dates.Date{}, fmt.Errorf("unknown revision %q", rev)
}

// RevisionAtOrBefore scans the scripted history for the newest revision not
// after d.
func (m *MockSource) RevisionAtOrBefore(ctx context.Context, d dates.Date) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	var found string
	for _, r := range m.History {
		if r.Date.After(d) {
			break
		}
		found = r.Rev
	}
	return found, nil
}

// SwitchTo records the switch and moves the scripted checkout.
func (m *MockSource) SwitchTo(ctx context.Context, rev string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Switches = append(m.Switches, rev)
	m.Checkout = rev
	return nil
}

// Compile-time interface conformance check.
var _ Source = (*MockSource)(nil)
