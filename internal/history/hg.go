package history

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/l10nmetrics/fluentwalk/internal/dates"
)

// HgSource drives a Mercurial clone through the hg CLI. There is no usable
// native Go Mercurial library, so every capability shells out.
type HgSource struct {
	path string
}

// NewHgSource wraps the clone at path. The path is not validated here; the
// first command reports a useful error if it is not a Mercurial clone.
func NewHgSource(path string) *HgSource {
	return &HgSource{path: path}
}

func (s *HgSource) run(ctx context.Context, args ...string) (string, error) {
	command := args[0]
	args = append([]string{"-R", s.path}, args...)
	out, err := exec.CommandContext(ctx, "hg", args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("hg %s failed: %w: %s", command, err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// CurrentRevision returns the full node hash of the working copy parent.
func (s *HgSource) CurrentRevision(ctx context.Context) (string, error) {
	return s.run(ctx, "log", "-r", ".", "-T", "{node}")
}

// RevisionDate resolves a revision to its commit calendar date.
func (s *HgSource) RevisionDate(ctx context.Context, rev string, useWorkingCopy bool) (dates.Date, error) {
	if useWorkingCopy {
		rev = "."
	}
	out, err := s.run(ctx, "log", "-r", rev, "-T", "{date|shortdate}")
	if err != nil {
		return dates.Date{}, err
	}
	return dates.Parse(out)
}

// atOrBeforeRevset selects the newest revision committed on or before d.
// date('<DATE') is inclusive of DATE when given a bare day. Sorting by date
// before taking the last entry picks the newest match by commit date rather
// than hg's default revision numbering, which diverges when commits land
// out of order.
func atOrBeforeRevset(d dates.Date) string {
	return fmt.Sprintf("last(sort(date('<%s'), date))", d)
}

// RevisionAtOrBefore returns the newest revision committed on or before d,
// or an empty string when none exists.
func (s *HgSource) RevisionAtOrBefore(ctx context.Context, d dates.Date) (string, error) {
	out, err := s.run(ctx, "log", "-r", atOrBeforeRevset(d), "-T", "{node}")
	if err != nil {
		return "", err
	}
	return out, nil
}

// SwitchTo updates the working copy to the given revision.
func (s *HgSource) SwitchTo(ctx context.Context, rev string) error {
	_, err := s.run(ctx, "update", "-r", rev)
	return err
}
