package milestone

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/l10nmetrics/fluentwalk/internal/dates"
	"github.com/l10nmetrics/fluentwalk/internal/history"
)

// String kinds as they appear in progress data and snapshot entries.
const (
	KindFluent     = "ftl"
	KindDTD        = "dtd"
	KindProperties = "properties"
)

// ftlMessageRe matches the start of a Fluent message or term definition.
var ftlMessageRe = regexp.MustCompile(`^-?[a-zA-Z][a-zA-Z0-9_-]*\s*=`)

// dtdEntityRe matches a DTD entity declaration.
var dtdEntityRe = regexp.MustCompile(`<!ENTITY\s`)

// StringsOptions configures which files a Strings milestone scans. Globs are
// doublestar patterns relative to the clone root.
type StringsOptions struct {
	FluentGlobs     []string
	DTDGlobs        []string
	PropertiesGlobs []string
}

// DefaultStringsOptions scans the conventional localization layouts.
func DefaultStringsOptions() StringsOptions {
	return StringsOptions{
		FluentGlobs:     []string{"**/*.ftl"},
		DTDGlobs:        []string{"**/*.dtd"},
		PropertiesGlobs: []string{"**/*.properties"},
	}
}

// Strings counts localization strings per kind across the working copy. The
// aggregate progress entry records total string counts for ftl, dtd and
// properties files; the snapshot records the per-file breakdown.
type Strings struct {
	*Store
	clonePath string
	opts      StringsOptions
}

// NewStrings creates the strings milestone rooted at clonePath.
func NewStrings(dataDir, clonePath string, startDate dates.Date, opts StringsOptions) *Strings {
	return &Strings{
		Store:     NewStore("strings", dataDir, startDate),
		clonePath: clonePath,
		opts:      opts,
	}
}

// Collect scans the working copy and counts strings per kind.
func (m *Strings) Collect(ctx context.Context, src history.Source, d dates.Date, rev string) (*Result, error) {
	files, err := scanStringFiles(m.clonePath, m.opts)
	if err != nil {
		return nil, err
	}

	totals := map[string]int{KindFluent: 0, KindDTD: 0, KindProperties: 0}
	entries := make([]SnapshotEntry, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		totals[f.Kind] += f.Count
		entries = append(entries, f)
	}

	return &Result{
		Entry:    ProgressEntry{Date: d, Revision: rev, Data: totals},
		Snapshot: Snapshot{Date: d, Revision: rev, Data: entries},
	}, nil
}

// scanStringFiles globs the clone for localization files and counts the
// string definitions in each, returning entries sorted by path.
func scanStringFiles(root string, opts StringsOptions) ([]SnapshotEntry, error) {
	kinds := []struct {
		kind  string
		globs []string
		count func(string) (int, error)
	}{
		{KindFluent, opts.FluentGlobs, countFluentMessages},
		{KindDTD, opts.DTDGlobs, countDTDEntities},
		{KindProperties, opts.PropertiesGlobs, countPropertiesKeys},
	}

	fsys := os.DirFS(root)
	var entries []SnapshotEntry
	seen := map[string]bool{}

	for _, k := range kinds {
		for _, pattern := range k.globs {
			matches, err := doublestar.Glob(fsys, pattern)
			if err != nil {
				return nil, fmt.Errorf("glob %s: %w", pattern, err)
			}
			for _, rel := range matches {
				if seen[rel] {
					continue
				}
				seen[rel] = true

				count, err := k.count(filepath.Join(root, filepath.FromSlash(rel)))
				if err != nil {
					return nil, err
				}
				entries = append(entries, SnapshotEntry{Path: rel, Kind: k.kind, Count: count})
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func countFluentMessages(path string) (int, error) {
	return countLines(path, func(line string) bool {
		return ftlMessageRe.MatchString(line)
	})
}

func countDTDEntities(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	return len(dtdEntityRe.FindAllIndex(data, -1)), nil
}

func countPropertiesKeys(path string) (int, error) {
	return countLines(path, func(line string) bool {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!") {
			return false
		}
		return strings.ContainsAny(trimmed, "=:")
	})
}

func countLines(path string, match func(string) bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if match(scanner.Text()) {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan %s: %w", path, err)
	}
	return count, nil
}

// Compile-time interface conformance check.
var _ Milestone = (*Strings)(nil)
