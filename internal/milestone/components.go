package milestone

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/l10nmetrics/fluentwalk/internal/dates"
	"github.com/l10nmetrics/fluentwalk/internal/history"
)

// Migration states for a component's localization files.
const (
	StateMigrated = "migrated" // Fluent files only
	StateMixed    = "mixed"    // Fluent alongside legacy formats
	StateLegacy   = "legacy"   // legacy formats only
)

// Components classifies each directory holding localization files by how far
// its strings have migrated to Fluent. The aggregate progress entry counts
// components per state; the snapshot lists each component with its state and
// file count.
type Components struct {
	*Store
	clonePath string
}

// NewComponents creates the components milestone rooted at clonePath.
func NewComponents(dataDir, clonePath string, startDate dates.Date) *Components {
	return &Components{
		Store:     NewStore("components", dataDir, startDate),
		clonePath: clonePath,
	}
}

// Collect walks the working copy and classifies each localization directory.
func (m *Components) Collect(ctx context.Context, src history.Source, d dates.Date, rev string) (*Result, error) {
	components, err := classifyComponents(m.clonePath)
	if err != nil {
		return nil, err
	}

	totals := map[string]int{StateMigrated: 0, StateMixed: 0, StateLegacy: 0}
	for _, c := range components {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		totals[c.Kind]++
	}

	return &Result{
		Entry:    ProgressEntry{Date: d, Revision: rev, Data: totals},
		Snapshot: Snapshot{Date: d, Revision: rev, Data: components},
	}, nil
}

type componentFiles struct {
	fluent int
	legacy int
}

// classifyComponents groups localization files by directory and assigns each
// directory a migration state. Entries come back sorted by path.
func classifyComponents(root string) ([]SnapshotEntry, error) {
	fsys := os.DirFS(root)

	byDir := map[string]*componentFiles{}
	scan := func(pattern string, legacy bool) error {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, rel := range matches {
			dir := filepath.ToSlash(filepath.Dir(rel))
			c := byDir[dir]
			if c == nil {
				c = &componentFiles{}
				byDir[dir] = c
			}
			if legacy {
				c.legacy++
			} else {
				c.fluent++
			}
		}
		return nil
	}

	if err := scan("**/*.ftl", false); err != nil {
		return nil, err
	}
	for _, pattern := range []string{"**/*.dtd", "**/*.properties"} {
		if err := scan(pattern, true); err != nil {
			return nil, err
		}
	}

	entries := make([]SnapshotEntry, 0, len(byDir))
	for dir, c := range byDir {
		state := StateLegacy
		switch {
		case c.fluent > 0 && c.legacy == 0:
			state = StateMigrated
		case c.fluent > 0:
			state = StateMixed
		}
		entries = append(entries, SnapshotEntry{Path: dir, Kind: state, Count: c.fluent + c.legacy})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Compile-time interface conformance check.
var _ Milestone = (*Components)(nil)
