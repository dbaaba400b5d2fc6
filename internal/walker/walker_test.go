package walker

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/l10nmetrics/fluentwalk/internal/dates"
	"github.com/l10nmetrics/fluentwalk/internal/history"
	"github.com/l10nmetrics/fluentwalk/internal/milestone"
)

func weeklyHistory() *history.MockSource {
	return history.NewMockSource(
		history.MockRevision{Rev: "r1", Date: dates.MustParse("2024-01-01")},
		history.MockRevision{Rev: "r2", Date: dates.MustParse("2024-01-08")},
		history.MockRevision{Rev: "r3", Date: dates.MustParse("2024-01-15")},
	)
}

func newTestWalker(t *testing.T, src history.Source, milestones []milestone.Milestone, cfg Config, confirm Confirmer) (*Walker, *bytes.Buffer) {
	t.Helper()
	if cfg.CadenceDays == 0 {
		cfg.CadenceDays = 7
	}
	w := New(src, milestones, cfg, confirm, nil)
	out := &bytes.Buffer{}
	w.SetOutput(out)
	return w, out
}

func declineAll(string) (bool, error) {
	return false, nil
}

func TestNextDateMinAcrossMilestones(t *testing.T) {
	dataDir := t.TempDir()
	x := milestone.NewMock("x", dataDir, dates.MustParse("2024-01-01"))
	y := milestone.NewMock("y", dataDir, dates.MustParse("2024-01-01"))
	if err := y.Append(milestone.ProgressEntry{Date: dates.MustParse("2024-01-08"), Revision: "r2", Data: map[string]int{}}); err != nil {
		t.Fatal(err)
	}

	w, _ := newTestWalker(t, weeklyHistory(), []milestone.Milestone{x, y}, Config{}, nil)

	next, ok, err := w.nextDate()
	if err != nil {
		t.Fatalf("nextDate error = %v", err)
	}
	if !ok {
		t.Fatal("expected a next date")
	}
	// x has no log so its start date wins over y's 2024-01-08 + 7d.
	if next.String() != "2024-01-01" {
		t.Errorf("nextDate = %s, expected 2024-01-01", next)
	}
}

func TestNextDateNoMilestones(t *testing.T) {
	w, _ := newTestWalker(t, weeklyHistory(), nil, Config{}, nil)

	_, ok, err := w.nextDate()
	if err != nil {
		t.Fatalf("nextDate error = %v", err)
	}
	if ok {
		t.Error("expected no next date for an empty milestone set")
	}

	report, err := w.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if report.Updated {
		t.Error("expected a no-op run with no milestones")
	}
}

func TestCadenceWalkCollectsAndSkips(t *testing.T) {
	dataDir := t.TempDir()
	x := milestone.NewMock("x", dataDir, dates.MustParse("2024-01-01"))
	y := milestone.NewMock("y", dataDir, dates.MustParse("2024-01-01"))
	if err := y.Append(milestone.ProgressEntry{Date: dates.MustParse("2024-01-08"), Revision: "r2", Data: map[string]int{}}); err != nil {
		t.Fatal(err)
	}

	src := weeklyHistory()
	w, out := newTestWalker(t, src, []milestone.Milestone{x, y}, Config{}, nil)

	report, err := w.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if !report.Updated {
		t.Error("expected an update to happen")
	}

	// x fills every date from its start; y only the dates past its log.
	wantX := []string{"2024-01-01", "2024-01-08", "2024-01-15"}
	if len(x.CollectedDates) != len(wantX) {
		t.Fatalf("x collected %v, expected %v", x.CollectedDates, wantX)
	}
	for i, d := range x.CollectedDates {
		if d.String() != wantX[i] {
			t.Errorf("x collected[%d] = %s, expected %s", i, d, wantX[i])
		}
	}
	if len(y.CollectedDates) != 1 || y.CollectedDates[0].String() != "2024-01-15" {
		t.Errorf("y collected %v, expected only 2024-01-15", y.CollectedDates)
	}
	if !strings.Contains(out.String(), "y: Skipping (Already collected)") {
		t.Error("expected an already-collected notice for y")
	}

	// The walk ends at the tip, which is where it started.
	if got := src.Switches; len(got) != 3 || got[0] != "r1" || got[1] != "r2" || got[2] != "r3" {
		t.Errorf("switches = %v, expected [r1 r2 r3]", got)
	}
	if src.Checkout != "r3" {
		t.Errorf("final checkout = %s, expected r3", src.Checkout)
	}
}

func TestSecondRunIsIdempotent(t *testing.T) {
	dataDir := t.TempDir()
	src := weeklyHistory()

	first := milestone.NewMock("m", dataDir, dates.MustParse("2024-01-01"))
	w, _ := newTestWalker(t, src, []milestone.Milestone{first}, Config{}, nil)
	if _, err := w.Run(context.Background(), false); err != nil {
		t.Fatalf("first Run error = %v", err)
	}

	progressPath := filepath.Join(dataDir, "m", milestone.ProgressFile)
	before, err := os.ReadFile(progressPath)
	if err != nil {
		t.Fatal(err)
	}

	// Fresh store, same files: resume purely from the persisted log. The
	// only candidate date now lies past the tip, so the walker prompts and
	// a decline ends the run.
	second := milestone.NewMock("m", dataDir, dates.MustParse("2024-01-01"))
	w2, _ := newTestWalker(t, src, []milestone.Milestone{second}, Config{}, declineAll)
	report, err := w2.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("second Run error = %v", err)
	}
	if report.Updated {
		t.Error("second run should report no update")
	}
	if len(second.CollectedDates) != 0 {
		t.Errorf("second run collected %v, expected nothing", second.CollectedDates)
	}

	after, err := os.ReadFile(progressPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("second run modified progress.json")
	}
}

func TestWalkRestoresStartRevision(t *testing.T) {
	dataDir := t.TempDir()
	// Tip is far past the last cadence-reachable revision, so the walk ends
	// with the working copy parked at r2 and must switch back.
	src := history.NewMockSource(
		history.MockRevision{Rev: "r1", Date: dates.MustParse("2024-01-01")},
		history.MockRevision{Rev: "r2", Date: dates.MustParse("2024-01-08")},
		history.MockRevision{Rev: "r3", Date: dates.MustParse("2024-01-20")},
	)

	m := milestone.NewMock("m", dataDir, dates.MustParse("2024-01-01"))
	if err := m.Append(milestone.ProgressEntry{Date: dates.MustParse("2024-01-01"), Revision: "r1", Data: map[string]int{}}); err != nil {
		t.Fatal(err)
	}

	w, out := newTestWalker(t, src, []milestone.Milestone{m}, Config{}, declineAll)
	report, err := w.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if !report.Updated {
		t.Error("expected the 2024-01-08 cycle to run")
	}

	if src.Checkout != "r3" {
		t.Errorf("final checkout = %s, expected restoration to r3", src.Checkout)
	}
	if got := src.Switches; len(got) != 2 || got[0] != "r2" || got[1] != "r3" {
		t.Errorf("switches = %v, expected [r2 r3]", got)
	}
	if !strings.Contains(out.String(), "Switching back to start revision") {
		t.Error("expected a switch-back notice")
	}
}

func TestConfirmDeclineAbortsWalk(t *testing.T) {
	dataDir := t.TempDir()
	src := history.NewMockSource(
		history.MockRevision{Rev: "r1", Date: dates.MustParse("2024-01-01")},
		history.MockRevision{Rev: "r2", Date: dates.MustParse("2024-01-10")},
	)

	// The first needed date falls between commits, so the walker must ask
	// before sampling an earlier-than-intended revision.
	m := milestone.NewMock("m", dataDir, dates.MustParse("2024-01-03"))

	prompted := false
	confirm := func(string) (bool, error) {
		prompted = true
		return false, nil
	}

	w, _ := newTestWalker(t, src, []milestone.Milestone{m}, Config{}, confirm)
	report, err := w.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}

	if !prompted {
		t.Error("expected a confirmation prompt")
	}
	if report.Updated {
		t.Error("declined walk should report no update")
	}
	if len(m.CollectedDates) != 0 {
		t.Errorf("collected %v, expected nothing", m.CollectedDates)
	}
	if len(src.Switches) != 0 {
		t.Errorf("switches = %v, expected none before the prompt", src.Switches)
	}
}

func TestConfirmAcceptCollectsEarlierRevision(t *testing.T) {
	dataDir := t.TempDir()
	src := history.NewMockSource(
		history.MockRevision{Rev: "r1", Date: dates.MustParse("2024-01-01")},
		history.MockRevision{Rev: "r2", Date: dates.MustParse("2024-01-10")},
	)

	m := milestone.NewMock("m", dataDir, dates.MustParse("2024-01-03"))

	w, _ := newTestWalker(t, src, []milestone.Milestone{m}, Config{}, AssumeYes)
	report, err := w.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if !report.Updated {
		t.Error("expected an update")
	}

	// Data is recorded for the revision's own date, not the requested one.
	if len(m.CollectedDates) != 1 || m.CollectedDates[0].String() != "2024-01-01" {
		t.Errorf("collected %v, expected [2024-01-01]", m.CollectedDates)
	}
	if src.Checkout != "r2" {
		t.Errorf("final checkout = %s, expected restoration to r2", src.Checkout)
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	dataDir := t.TempDir()
	src := weeklyHistory()
	m := milestone.NewMock("m", dataDir, dates.MustParse("2024-01-01"))

	w, out := newTestWalker(t, src, []milestone.Milestone{m}, Config{DryRun: true}, nil)
	report, err := w.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if !report.Updated {
		t.Error("dry run should still report collections")
	}
	if len(m.CollectedDates) == 0 {
		t.Error("dry run should still collect")
	}
	if !strings.Contains(out.String(), "Not writing (dry run)") {
		t.Error("expected a dry-run notice")
	}

	if _, err := os.Stat(filepath.Join(dataDir, "m", milestone.ProgressFile)); !os.IsNotExist(err) {
		t.Error("dry run must not write progress.json")
	}
	if _, err := os.Stat(filepath.Join(dataDir, "m", milestone.SnapshotFile)); !os.IsNotExist(err) {
		t.Error("dry run must not write snapshot.json")
	}
}

func TestCurrentRevisionModeCollectsUnconditionally(t *testing.T) {
	dataDir := t.TempDir()
	src := weeklyHistory()

	// y already has an entry for the tip's date; current-revision mode
	// collects anyway.
	x := milestone.NewMock("x", dataDir, dates.MustParse("2024-01-01"))
	y := milestone.NewMock("y", dataDir, dates.MustParse("2024-01-01"))
	if err := y.Append(milestone.ProgressEntry{Date: dates.MustParse("2024-01-15"), Revision: "r3", Data: map[string]int{}}); err != nil {
		t.Fatal(err)
	}

	w, _ := newTestWalker(t, src, []milestone.Milestone{x, y}, Config{}, nil)
	report, err := w.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if !report.Updated {
		t.Error("expected an update")
	}

	for _, m := range []*milestone.Mock{x, y} {
		if len(m.CollectedDates) != 1 || m.CollectedDates[0].String() != "2024-01-15" {
			t.Errorf("%s collected %v, expected [2024-01-15]", m.Name(), m.CollectedDates)
		}
	}
	if len(src.Switches) != 0 {
		t.Errorf("switches = %v, current-revision mode must not switch", src.Switches)
	}
}

func TestCurrentRevisionModeReplacesLatestEntry(t *testing.T) {
	dataDir := t.TempDir()
	src := weeklyHistory()

	m := milestone.NewMock("m", dataDir, dates.MustParse("2024-01-01"))
	if err := m.Append(milestone.ProgressEntry{Date: dates.MustParse("2024-01-15"), Revision: "r3", Data: map[string]int{}}); err != nil {
		t.Fatal(err)
	}
	m.CollectFunc = func(ctx context.Context, src history.Source, d dates.Date, rev string) (*milestone.Result, error) {
		return &milestone.Result{
			Entry:    milestone.ProgressEntry{Date: d, Revision: rev, Data: map[string]int{"foo": 1}},
			Snapshot: milestone.Snapshot{Date: d, Revision: rev},
		}, nil
	}

	w, _ := newTestWalker(t, src, []milestone.Milestone{m}, Config{}, nil)
	if _, err := w.Run(context.Background(), true); err != nil {
		t.Fatalf("Run error = %v", err)
	}

	progress, err := m.Progress()
	if err != nil {
		t.Fatal(err)
	}
	if len(progress) != 1 {
		t.Fatalf("log length = %d, expected the same-date entry to be replaced", len(progress))
	}
	if progress[0].Data["foo"] != 1 {
		t.Errorf("entry = %+v, expected refreshed data", progress[0])
	}
}

func TestNoDataSignalSkipsMilestoneOnly(t *testing.T) {
	dataDir := t.TempDir()
	src := history.NewMockSource(
		history.MockRevision{Rev: "r1", Date: dates.MustParse("2024-01-01")},
	)

	aborting := milestone.NewMock("aborting", dataDir, dates.MustParse("2024-01-01"))
	aborting.CollectFunc = func(context.Context, history.Source, dates.Date, string) (*milestone.Result, error) {
		return nil, nil
	}
	healthy := milestone.NewMock("healthy", dataDir, dates.MustParse("2024-01-01"))

	w, out := newTestWalker(t, src, []milestone.Milestone{aborting, healthy}, Config{}, nil)
	report, err := w.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if !report.Updated {
		t.Error("expected an update from the healthy milestone")
	}

	if !strings.Contains(out.String(), "aborting: Skipping (User aborted)") {
		t.Error("expected a user-aborted notice")
	}
	if _, err := os.Stat(filepath.Join(dataDir, "aborting", milestone.ProgressFile)); !os.IsNotExist(err) {
		t.Error("aborting milestone must not persist anything")
	}
	if len(healthy.CollectedDates) != 1 {
		t.Errorf("healthy collected %v, expected one cycle", healthy.CollectedDates)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "healthy", milestone.ProgressFile)); err != nil {
		t.Errorf("healthy milestone should persist: %v", err)
	}
}

func TestCachedLogAvoidsSwitch(t *testing.T) {
	dataDir := t.TempDir()
	src := history.NewMockSource(
		history.MockRevision{Rev: "r1", Date: dates.MustParse("2024-01-01")},
	)

	m := milestone.NewMock("m", dataDir, dates.MustParse("2024-01-01"))
	m.HasLogFunc = func(dates.Date) bool { return true }

	w, _ := newTestWalker(t, src, []milestone.Milestone{m}, Config{}, nil)
	report, err := w.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if !report.Updated {
		t.Error("expected an update")
	}

	if len(src.Switches) != 0 {
		t.Errorf("switches = %v, expected none when every milestone has a cached log", src.Switches)
	}
	if len(m.CollectedDates) != 1 {
		t.Errorf("collected %v, expected one cycle", m.CollectedDates)
	}
}

func TestCollectionErrorLeavesWorkingCopy(t *testing.T) {
	dataDir := t.TempDir()
	src := weeklyHistory()

	m := milestone.NewMock("m", dataDir, dates.MustParse("2024-01-01"))
	m.CollectFunc = func(context.Context, history.Source, dates.Date, string) (*milestone.Result, error) {
		return nil, errors.New("measurement exploded")
	}

	w, _ := newTestWalker(t, src, []milestone.Milestone{m}, Config{}, nil)
	_, err := w.Run(context.Background(), false)
	if err == nil {
		t.Fatal("expected the collection error to surface")
	}
	if !strings.Contains(err.Error(), "measurement exploded") {
		t.Errorf("error = %v", err)
	}

	// A fatal error is the one path that does not restore the checkout.
	if src.Checkout != "r1" {
		t.Errorf("checkout = %s, expected the walk to stop at r1", src.Checkout)
	}
}

func TestGapsFillForward(t *testing.T) {
	// A milestone far behind fills one cadence step per cycle without ever
	// re-collecting logged dates, even when revisions repeat.
	dataDir := t.TempDir()
	src := history.NewMockSource(
		history.MockRevision{Rev: "r1", Date: dates.MustParse("2024-01-01")},
		history.MockRevision{Rev: "r2", Date: dates.MustParse("2024-01-21")},
	)

	m := milestone.NewMock("m", dataDir, dates.MustParse("2024-01-01"))

	w, _ := newTestWalker(t, src, []milestone.Milestone{m}, Config{}, AssumeYes)
	if _, err := w.Run(context.Background(), false); err != nil {
		t.Fatalf("Run error = %v", err)
	}

	// 01-01 collects r1. 01-08 and 01-15 resolve r1 again and stop the
	// loop... except 01-08 equals the previous revision, so the walk ends
	// after the first cycle and the next run resumes from the log.
	want := []string{"2024-01-01"}
	if len(m.CollectedDates) != len(want) {
		t.Fatalf("collected %v, expected %v", m.CollectedDates, want)
	}

	// Resume: now 01-08 is needed; r1 repeats, loop stops immediately with
	// no duplicate entry.
	resumed := milestone.NewMock("m", dataDir, dates.MustParse("2024-01-01"))
	w2, _ := newTestWalker(t, src, []milestone.Milestone{resumed}, Config{}, declineAll)
	if _, err := w2.Run(context.Background(), false); err != nil {
		t.Fatalf("resumed Run error = %v", err)
	}
	progress, err := resumed.Progress()
	if err != nil {
		t.Fatal(err)
	}
	if len(progress) != 1 {
		t.Errorf("log length = %d, expected no duplicates", len(progress))
	}
}
