package milestone

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/l10nmetrics/fluentwalk/internal/dates"
	"github.com/l10nmetrics/fluentwalk/internal/history"
)

const (
	// ProgressFile is the cumulative log written per milestone.
	ProgressFile = "progress.json"
	// SnapshotFile holds the latest detail snapshot only.
	SnapshotFile = "snapshot.json"
)

// Store is the persistent half of a milestone: the progress log and its
// resume arithmetic. The log is loaded lazily on first access, mutated in
// memory during a run, and flushed by SaveProgress.
type Store struct {
	name      string
	dir       string
	startDate dates.Date

	progress []ProgressEntry
	loaded   bool
}

// NewStore creates the state store for a milestone named name under dataDir.
// startDate anchors the cadence when no progress has been logged yet.
func NewStore(name, dataDir string, startDate dates.Date) *Store {
	return &Store{name: name, dir: filepath.Join(dataDir, name), startDate: startDate}
}

// Name returns the milestone name.
func (s *Store) Name() string {
	return s.name
}

// Dir returns the directory holding the milestone's files.
func (s *Store) Dir() string {
	return s.dir
}

// Progress returns the in-memory log, loading progress.json on first use.
// A missing file is an empty log, not an error.
func (s *Store) Progress() ([]ProgressEntry, error) {
	if s.loaded {
		return s.progress, nil
	}

	path := filepath.Join(s.dir, ProgressFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.progress = []ProgressEntry{}
			s.loaded = true
			return s.progress, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &s.progress); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s.loaded = true
	return s.progress, nil
}

// Append adds an entry to the log. An entry sharing the last entry's date
// replaces it in place so the latest sample can be re-collected; any other
// date is appended at the tail. Ordering beyond the equal-date case is the
// caller's responsibility.
func (s *Store) Append(e ProgressEntry) error {
	progress, err := s.Progress()
	if err != nil {
		return err
	}

	if n := len(progress); n > 0 && progress[n-1].Date == e.Date {
		progress[n-1] = e
	} else {
		progress = append(progress, e)
	}
	s.progress = progress
	return nil
}

// LastDate returns the date of the last logged entry, or ok=false when the
// log is empty.
func (s *Store) LastDate() (dates.Date, bool, error) {
	progress, err := s.Progress()
	if err != nil {
		return dates.Date{}, false, err
	}
	if len(progress) == 0 {
		return dates.Date{}, false, nil
	}
	return progress[len(progress)-1].Date, true, nil
}

// NextDate returns the next date requiring data: last logged date plus the
// cadence, or the start date for an empty log. This arithmetic is the whole
// resume contract; there is no separate checkpoint file.
func (s *Store) NextDate(cadenceDays int) (dates.Date, error) {
	last, ok, err := s.LastDate()
	if err != nil {
		return dates.Date{}, err
	}
	if !ok {
		return s.startDate, nil
	}
	return last.AddDays(cadenceDays), nil
}

// HasLogForDate reports whether data for d is available without a
// working-copy switch. The base store cannot answer without the checkout.
func (s *Store) HasLogForDate(ctx context.Context, src history.Source, d dates.Date) bool {
	return false
}

// SaveProgress writes the full log to progress.json. Entries are serialized
// with sorted keys and no indentation for deterministic diffs.
func (s *Store) SaveProgress() error {
	progress, err := s.Progress()
	if err != nil {
		return err
	}
	return s.writeJSON(ProgressFile, progress)
}

// SaveSnapshot overwrites snapshot.json.
func (s *Store) SaveSnapshot(snap Snapshot) error {
	return s.writeJSON(SnapshotFile, snap)
}

func (s *Store) writeJSON(name string, v interface{}) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(v, "", "")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
