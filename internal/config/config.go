// Package config loads the ingestion core's tunable parameters from a
// YAML file, falling back to the built-in defaults for anything absent.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/pnutterm-ingest/internal/constants"
)

// PacerPeriods accepts either the 3-element fast/medium/slow list every
// config omits (defaulting to constants.PacerPeriodsMs) or a caller
// override of arbitrary length, so a future pacer with more than three
// steps does not need a config schema change.
type PacerPeriods []time.Duration

func (p *PacerPeriods) UnmarshalYAML(value *yaml.Node) error {
	var ms []int64
	if err := value.Decode(&ms); err != nil {
		return err
	}
	out := make(PacerPeriods, len(ms))
	for i, v := range ms {
		out[i] = time.Duration(v) * time.Millisecond
	}
	*p = out
	return nil
}

// Config is the enumerated configuration block.
type Config struct {
	RingCapacity       int          `yaml:"ring_capacity"`
	PoolSize           int          `yaml:"pool_size"`
	ZeroSkipCap        int          `yaml:"zero_skip_cap"`
	ResponseDebounceMs int64        `yaml:"response_debounce_ms"`
	ResponseWindowMs   int64        `yaml:"response_window_ms"`
	ResetCoalesceMs    int64        `yaml:"reset_coalesce_ms"`
	DrainTimeoutMs     int64        `yaml:"drain_timeout_ms"`
	PacerPeriodsMs     PacerPeriods `yaml:"pacer_periods_ms"`
	MaxCogs            int          `yaml:"max_cogs"`
}

// DefaultConfig mirrors the built-in tuning constants.
func DefaultConfig() *Config {
	return &Config{
		RingCapacity:       constants.DefaultRingCapacity,
		PoolSize:           constants.DefaultPoolSize,
		ZeroSkipCap:        constants.DefaultZeroSkipCap,
		ResponseDebounceMs: constants.DefaultResponseDebounce.Milliseconds(),
		ResponseWindowMs:   constants.DefaultResponseWindow.Milliseconds(),
		ResetCoalesceMs:    constants.DefaultResetCoalesce.Milliseconds(),
		DrainTimeoutMs:     constants.DefaultDrainTimeout.Milliseconds(),
		PacerPeriodsMs: PacerPeriods{
			constants.PacerPeriodsMs[0],
			constants.PacerPeriodsMs[1],
			constants.PacerPeriodsMs[2],
		},
		MaxCogs: constants.DefaultMaxCogs,
	}
}

// Load reads and parses a YAML config file, filling any zero-valued
// field with the built-in default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML config bytes directly, for embedding or tests.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyZeroDefaults()
	return cfg, nil
}

// applyZeroDefaults fills any field the YAML document left at its zero
// value with the corresponding default, so a partial config file is valid.
func (c *Config) applyZeroDefaults() {
	d := DefaultConfig()
	if c.RingCapacity == 0 {
		c.RingCapacity = d.RingCapacity
	}
	if c.PoolSize == 0 {
		c.PoolSize = d.PoolSize
	}
	if c.ZeroSkipCap == 0 {
		c.ZeroSkipCap = d.ZeroSkipCap
	}
	if c.ResponseDebounceMs == 0 {
		c.ResponseDebounceMs = d.ResponseDebounceMs
	}
	if c.ResponseWindowMs == 0 {
		c.ResponseWindowMs = d.ResponseWindowMs
	}
	if c.ResetCoalesceMs == 0 {
		c.ResetCoalesceMs = d.ResetCoalesceMs
	}
	if c.DrainTimeoutMs == 0 {
		c.DrainTimeoutMs = d.DrainTimeoutMs
	}
	if len(c.PacerPeriodsMs) == 0 {
		c.PacerPeriodsMs = d.PacerPeriodsMs
	}
	if c.MaxCogs == 0 {
		c.MaxCogs = d.MaxCogs
	}
}

// ResponseDebounce returns the configured debounce as a time.Duration.
func (c *Config) ResponseDebounce() time.Duration {
	return time.Duration(c.ResponseDebounceMs) * time.Millisecond
}

// ResponseWindow returns the configured response window as a time.Duration.
func (c *Config) ResponseWindow() time.Duration {
	return time.Duration(c.ResponseWindowMs) * time.Millisecond
}

// ResetCoalesce returns the configured reset coalesce window.
func (c *Config) ResetCoalesce() time.Duration {
	return time.Duration(c.ResetCoalesceMs) * time.Millisecond
}

// DrainTimeout returns the configured drain timeout.
func (c *Config) DrainTimeout() time.Duration {
	return time.Duration(c.DrainTimeoutMs) * time.Millisecond
}

// PacerPeriodsArray returns the first three pacer periods as the fixed
// array the router's Pacer expects, padding with the slowest configured
// period if fewer than three were given.
func (c *Config) PacerPeriodsArray() [3]time.Duration {
	var out [3]time.Duration
	for i := range out {
		if i < len(c.PacerPeriodsMs) {
			out[i] = c.PacerPeriodsMs[i]
		} else if len(c.PacerPeriodsMs) > 0 {
			out[i] = c.PacerPeriodsMs[len(c.PacerPeriodsMs)-1]
		}
	}
	return out
}
