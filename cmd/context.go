package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/l10nmetrics/fluentwalk/config"
	"github.com/l10nmetrics/fluentwalk/internal/dates"
	"github.com/l10nmetrics/fluentwalk/internal/history"
	"github.com/l10nmetrics/fluentwalk/internal/logging"
	"github.com/l10nmetrics/fluentwalk/internal/milestone"
	"github.com/urfave/cli/v2"
)

// RunContext holds the fully wired collaborators for one run.
// It encapsulates configuration loading, path validation and construction of
// the history source and milestones.
type RunContext struct {
	Config     config.Config
	Source     history.Source
	Milestones []milestone.Milestone
	Logger     *zap.Logger
}

// NewRunContext builds a context from CLI flags. Configuration errors —
// unreadable clone, unwritable data files, bad values — are detected here,
// before the core runs.
func NewRunContext(c *cli.Context) (*RunContext, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagOverrides(c, &cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}

	milestones, err := buildMilestones(cfg)
	if err != nil {
		return nil, err
	}

	if err := verifyClonePath(cfg.Clone); err != nil {
		return nil, err
	}
	for _, m := range milestones {
		if err := verifyMilestonePaths(cfg.Data, m.Name()); err != nil {
			return nil, err
		}
	}

	source, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}

	return &RunContext{
		Config:     cfg,
		Source:     source,
		Milestones: milestones,
		Logger:     logger,
	}, nil
}

// applyFlagOverrides layers explicitly set CLI flags over the loaded config.
func applyFlagOverrides(c *cli.Context, cfg *config.Config) {
	if milestones := c.StringSlice("milestone"); len(milestones) > 0 {
		cfg.Milestones = milestones
	}
	if c.IsSet("dry-run") {
		cfg.DryRun = c.Bool("dry-run")
	}
	if c.IsSet("yes") {
		cfg.AssumeYes = c.Bool("yes")
	}
	if clone := c.String("clone"); clone != "" {
		cfg.Clone = clone
	}
	if backend := c.String("backend"); backend != "" {
		cfg.Backend = backend
	}
	if data := c.String("data"); data != "" {
		cfg.Data = data
	}
	if c.IsSet("frequency") {
		cfg.FrequencyDays = c.Int("frequency")
	}
}

func buildMilestones(cfg config.Config) ([]milestone.Milestone, error) {
	stringsStart, err := dates.Parse(cfg.Strings.StartDate)
	if err != nil {
		return nil, err
	}
	componentsStart, err := dates.Parse(cfg.Components.StartDate)
	if err != nil {
		return nil, err
	}

	return milestone.Build(cfg.Milestones, milestone.Settings{
		DataDir:      cfg.Data,
		ClonePath:    cfg.Clone,
		StringsStart: stringsStart,
		StringsOptions: milestone.StringsOptions{
			FluentGlobs:     cfg.Strings.FluentGlobs,
			DTDGlobs:        cfg.Strings.DTDGlobs,
			PropertiesGlobs: cfg.Strings.PropertiesGlobs,
		},
		ComponentsStart: componentsStart,
	})
}

func buildSource(cfg config.Config) (history.Source, error) {
	switch cfg.Backend {
	case "git":
		return history.NewGitSource(cfg.Clone)
	case "hg":
		return history.NewHgSource(cfg.Clone), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// verifyClonePath checks the clone directory is readable.
func verifyClonePath(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s path is not readable: %w", path, err)
	}
	return f.Close()
}

// verifyMilestonePaths checks the milestone's progress and snapshot files
// are writable before any work happens.
func verifyMilestonePaths(dataDir, name string) error {
	dir := filepath.Join(dataDir, name)
	for _, file := range []string{milestone.ProgressFile, milestone.SnapshotFile} {
		if err := verifyFileWritable(dir, file); err != nil {
			return err
		}
	}
	return nil
}

// verifyFileWritable checks an existing file can be opened for writing, or
// that its nearest existing ancestor directory accepts new files.
func verifyFileWritable(dir, name string) error {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("%s path is not writable: %w", path, err)
		}
		return f.Close()
	}

	probe := dir
	for {
		if info, err := os.Stat(probe); err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", probe)
			}
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}

	f, err := os.CreateTemp(probe, ".fluentwalk-probe-*")
	if err != nil {
		return fmt.Errorf("%s path is not writable: %w", path, err)
	}
	f.Close()
	return os.Remove(f.Name())
}
