// Package config loads and validates fluentwalk configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/l10nmetrics/fluentwalk/internal/dates"
)

// Config is the root configuration structure. Values come from defaults, an
// optional config file and FLUENTWALK_* environment variables, in that
// order; CLI flags override on top.
type Config struct {
	// FrequencyDays is the cadence between sampled dates, shared by all
	// milestones.
	FrequencyDays int `mapstructure:"frequency_days"`
	// DryRun reports collections without writing progress or snapshot files.
	DryRun bool `mapstructure:"dry_run"`
	// AssumeYes answers every interactive confirmation with yes.
	AssumeYes bool `mapstructure:"assume_yes"`
	// Backend selects the version-control backend: "git" or "hg".
	Backend string `mapstructure:"backend"`
	// Clone is the path to the monitored clone.
	Clone string `mapstructure:"clone"`
	// Data is the output data directory; each milestone owns a subdirectory.
	Data string `mapstructure:"data"`
	// Milestones selects which milestones run; "all" expands to every one.
	Milestones []string `mapstructure:"milestones"`

	Logging    LoggingConfig    `mapstructure:"logging"`
	Strings    StringsConfig    `mapstructure:"strings"`
	Components ComponentsConfig `mapstructure:"components"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// StringsConfig configures the strings milestone.
type StringsConfig struct {
	StartDate       string   `mapstructure:"start_date"`
	FluentGlobs     []string `mapstructure:"fluent_globs"`
	DTDGlobs        []string `mapstructure:"dtd_globs"`
	PropertiesGlobs []string `mapstructure:"properties_globs"`
}

// ComponentsConfig configures the components milestone.
type ComponentsConfig struct {
	StartDate string `mapstructure:"start_date"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("frequency_days", 7)
	v.SetDefault("dry_run", false)
	v.SetDefault("assume_yes", false)
	v.SetDefault("backend", "git")
	// Empty defaults so AutomaticEnv picks these up during Unmarshal;
	// viper only materializes keys it already knows about.
	v.SetDefault("clone", "")
	v.SetDefault("data", "")
	v.SetDefault("milestones", []string{"all"})
	v.SetDefault("logging.development", false)
	v.SetDefault("strings.start_date", "2019-01-01")
	v.SetDefault("strings.fluent_globs", []string{"**/*.ftl"})
	v.SetDefault("strings.dtd_globs", []string{"**/*.dtd"})
	v.SetDefault("strings.properties_globs", []string{"**/*.properties"})
	v.SetDefault("components.start_date", "2019-01-01")
}

// Load builds a Config from defaults, an optional file and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FLUENTWALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	if c.FrequencyDays < 1 {
		return fmt.Errorf("frequency_days must be at least 1, got %d", c.FrequencyDays)
	}
	if c.Backend != "git" && c.Backend != "hg" {
		return fmt.Errorf("backend must be git or hg, got %q", c.Backend)
	}
	if c.Clone == "" {
		return fmt.Errorf("clone path is required")
	}
	if c.Data == "" {
		return fmt.Errorf("data directory is required")
	}
	if len(c.Milestones) == 0 {
		return fmt.Errorf("at least one milestone is required")
	}
	if _, err := dates.Parse(c.Strings.StartDate); err != nil {
		return fmt.Errorf("strings.start_date: %w", err)
	}
	if _, err := dates.Parse(c.Components.StartDate); err != nil {
		return fmt.Errorf("components.start_date: %w", err)
	}
	return nil
}
