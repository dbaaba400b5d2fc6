package cmd

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/urfave/cli/v2"

	"github.com/l10nmetrics/fluentwalk/internal/walker"
)

func runAction(c *cli.Context) error {
	rc, err := NewRunContext(c)
	if err != nil {
		return err
	}
	defer rc.Logger.Sync() //nolint:errcheck // best-effort flush

	confirm := walker.Confirmer(promptConfirm)
	if c.Bool("yes") || rc.Config.AssumeYes {
		confirm = walker.AssumeYes
	}

	w := walker.New(rc.Source, rc.Milestones, walker.Config{
		CadenceDays: rc.Config.FrequencyDays,
		DryRun:      rc.Config.DryRun,
	}, confirm, rc.Logger)

	_, err = w.Run(c.Context, c.Bool("use-current-revision"))
	return err
}

// promptConfirm asks a yes/no question on the terminal. A decline is a
// false answer, not an error.
func promptConfirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return true, nil
}
