package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "fluentwalk",
		Usage:   "Sample a clone's history and record localization migration progress",
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
			&cli.StringSliceFlag{
				Name:    "milestone",
				Aliases: []string{"m"},
				Usage:   "Milestone to accumulate (repeatable; 'all' selects every milestone)",
			},
			&cli.BoolFlag{
				Name:  "use-current-revision",
				Usage: "Collect data at the currently checked-out revision, ignoring cadence state",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report collections without writing any files",
			},
			&cli.StringFlag{
				Name:  "clone",
				Usage: "Path to the monitored clone",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Version-control backend of the clone (git, hg)",
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "Path to the output data directory",
			},
			&cli.IntFlag{
				Name:  "frequency",
				Usage: "Days between sampled dates",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Answer yes to every confirmation prompt",
			},
		},
		Action: runAction,
	}
}

// Run executes the CLI application.
func Run() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
