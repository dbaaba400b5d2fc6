package milestone

import (
	"fmt"
	"strings"

	"github.com/l10nmetrics/fluentwalk/internal/dates"
)

// All is the selector that expands to every known milestone.
const All = "all"

// Settings carries everything needed to construct the known milestones.
type Settings struct {
	DataDir   string
	ClonePath string

	StringsStart    dates.Date
	StringsOptions  StringsOptions
	ComponentsStart dates.Date
}

// Known lists the selectable milestone names.
func Known() []string {
	return []string{"strings", "components"}
}

// Build constructs the milestones selected by names, expanding "all" and
// dropping duplicates. Unknown names are an error.
func Build(names []string, set Settings) ([]Milestone, error) {
	selected := map[string]bool{}
	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == All {
			for _, known := range Known() {
				selected[known] = true
			}
			continue
		}
		selected[name] = true
	}

	var result []Milestone
	for _, known := range Known() {
		if !selected[known] {
			continue
		}
		delete(selected, known)
		switch known {
		case "strings":
			result = append(result, NewStrings(set.DataDir, set.ClonePath, set.StringsStart, set.StringsOptions))
		case "components":
			result = append(result, NewComponents(set.DataDir, set.ClonePath, set.ComponentsStart))
		}
	}

	for name := range selected {
		return nil, fmt.Errorf("unknown milestone %q (known: %s)", name, strings.Join(Known(), ", "))
	}
	return result, nil
}
