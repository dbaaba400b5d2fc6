package history

import (
	"context"
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/l10nmetrics/fluentwalk/internal/dates"
)

const revisionDateCacheSize = 1024

// GitSource reads and drives a Git clone through go-git.
type GitSource struct {
	repo *git.Repository
	// tip is the branch head at open time. RevisionAtOrBefore walks from
	// here rather than from HEAD, because the working copy is usually
	// detached at an older revision mid-walk.
	tip plumbing.Hash
	// dateCache memoizes revision -> commit date lookups; the walker asks
	// for the same revisions repeatedly across loop iterations.
	dateCache *lru.Cache[string, dates.Date]
}

// NewGitSource opens the clone at path. The default branch head is recorded
// as the history tip for at-or-before lookups.
func NewGitSource(path string) (*GitSource, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open git clone %s: %w", path, err)
	}

	tip, err := resolveTip(repo)
	if err != nil {
		return nil, fmt.Errorf("resolve tip of %s: %w", path, err)
	}

	cache, err := lru.New[string, dates.Date](revisionDateCacheSize)
	if err != nil {
		return nil, err
	}

	return &GitSource{repo: repo, tip: tip, dateCache: cache}, nil
}

// resolveTip finds the walk origin for at-or-before lookups. A detached HEAD
// left behind by an interrupted run points at an old revision and would
// truncate the log, so prefer a default branch head over it.
func resolveTip(repo *git.Repository) (plumbing.Hash, error) {
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if head.Type() == plumbing.SymbolicReference {
		ref, err := repo.Head()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return ref.Hash(), nil
	}
	for _, name := range []string{"main", "master", "default"} {
		ref, err := repo.Reference(plumbing.NewBranchReferenceName(name), true)
		if err == nil {
			return ref.Hash(), nil
		}
	}
	return head.Hash(), nil
}

// CurrentRevision returns the full hash of the checked-out commit.
func (s *GitSource) CurrentRevision(ctx context.Context) (string, error) {
	ref, err := s.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// RevisionDate resolves a revision to its committer calendar date.
func (s *GitSource) RevisionDate(ctx context.Context, rev string, useWorkingCopy bool) (dates.Date, error) {
	if useWorkingCopy {
		current, err := s.CurrentRevision(ctx)
		if err != nil {
			return dates.Date{}, err
		}
		rev = current
	}

	if d, ok := s.dateCache.Get(rev); ok {
		return d, nil
	}

	commit, err := s.repo.CommitObject(plumbing.NewHash(rev))
	if err != nil {
		return dates.Date{}, fmt.Errorf("resolve commit %s: %w", rev, err)
	}

	d := dates.FromTime(commit.Committer.When)
	s.dateCache.Add(rev, d)
	return d, nil
}

// RevisionAtOrBefore walks the log from the recorded tip in committer-time
// order and returns the first commit dated on or before d.
func (s *GitSource) RevisionAtOrBefore(ctx context.Context, d dates.Date) (string, error) {
	iter, err := s.repo.Log(&git.LogOptions{From: s.tip, Order: git.LogOrderCommitterTime})
	if err != nil {
		return "", fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	var found string
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !dates.FromTime(c.Committer.When).After(d) {
			found = c.Hash.String()
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk log: %w", err)
	}

	return found, nil
}

// SwitchTo checks out the given revision, detaching the working copy.
func (s *GitSource) SwitchTo(ctx context.Context, rev string) error {
	wt, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(rev)}); err != nil {
		return fmt.Errorf("checkout %s: %w", rev, err)
	}
	return nil
}
