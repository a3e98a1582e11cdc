// Package app wires the adapters into the two run modes: one-shot batch
// analysis and continuous watch.
package app

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ConfigError reports an invalid or inconsistent setting. It is the only
// error class that should abort startup before any input is read.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Config is the resolved runtime configuration, after flags, environment
// and config file have been merged.
type Config struct {
	// LogPath is a file path or glob in batch mode, a single file in watch
	// mode.
	LogPath string

	// Threshold is the brute-force failed-auth threshold.
	Threshold int
	// TimeWindow is the sliding window for windowed rules.
	TimeWindow time.Duration

	IgnoreInternal bool
	WhitelistPath  string
	NoWhitelist    bool

	// OutputBase is the report path without extension; .csv and .html are
	// appended.
	OutputBase string

	// MinInterval caps watch-mode scan frequency.
	MinInterval time.Duration

	// MetricsAddr enables the Prometheus endpoint when non-empty.
	MetricsAddr string

	LogLevel string
}

// FromViper materializes the configuration from the merged viper state.
func FromViper(v *viper.Viper) Config {
	return Config{
		LogPath:        v.GetString("log.path"),
		Threshold:      v.GetInt("detection.threshold"),
		TimeWindow:     time.Duration(v.GetFloat64("detection.window_hours") * float64(time.Hour)),
		IgnoreInternal: v.GetBool("filter.ignore_internal"),
		WhitelistPath:  v.GetString("filter.whitelist"),
		NoWhitelist:    v.GetBool("filter.no_whitelist"),
		OutputBase:     v.GetString("output.base"),
		MinInterval:    v.GetDuration("watch.min_interval"),
		MetricsAddr:    v.GetString("metrics.addr"),
		LogLevel:       v.GetString("log.level"),
	}
}

// Validate checks the configuration before any file is touched.
func (c *Config) Validate() error {
	if c.LogPath == "" {
		return &ConfigError{Field: "log.path", Value: c.LogPath, Reason: "no log file given"}
	}
	if c.Threshold <= 0 {
		return &ConfigError{Field: "detection.threshold", Value: c.Threshold, Reason: "must be positive"}
	}
	if c.TimeWindow <= 0 {
		return &ConfigError{Field: "detection.window_hours", Value: c.TimeWindow, Reason: "must be positive"}
	}
	if c.MinInterval < 0 {
		return &ConfigError{Field: "watch.min_interval", Value: c.MinInterval, Reason: "must not be negative"}
	}
	if c.OutputBase == "" {
		return &ConfigError{Field: "output.base", Value: c.OutputBase, Reason: "no output path given"}
	}
	return nil
}
