// Package config loads and validates the declarative run configuration: a
// YAML file describing the listing to harvest, the field-specification
// table, and run-level parameters. Configuration errors are fatal and
// surface before any fetch happens.
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pevans/dirharvest/collect"
	"github.com/pevans/dirharvest/extract"
	"github.com/pevans/dirharvest/fetch"
)

// Politeness configures the transport. Durations are Go duration strings
// ("20s", "700ms").
type Politeness struct {
	UserAgent      string  `yaml:"user_agent,omitempty"`
	Timeout        string  `yaml:"timeout,omitempty"`
	MaxRetries     int     `yaml:"max_retries,omitempty"`
	BackoffBase    float64 `yaml:"backoff_base,omitempty"`
	InitialBackoff string  `yaml:"initial_backoff,omitempty"`
	DelayMin       string  `yaml:"delay_min,omitempty"`
	DelayMax       string  `yaml:"delay_max,omitempty"`
}

// Config is the full run configuration.
type Config struct {
	// StartURL is the first listing page.
	StartURL string `yaml:"start_url"`
	// PageTemplate optionally maps a page index to a URL; it must
	// contain the {page} placeholder. When empty, pagination detection
	// decides how many pages exist but only the start URL shape is
	// swept.
	PageTemplate string `yaml:"page_template,omitempty"`
	// ProfilePattern classifies candidate URLs as profile URLs. Matched
	// against the absolute normalized URL and against its path.
	ProfilePattern string `yaml:"profile_pattern"`

	MaxPasses       int `yaml:"max_passes,omitempty"`
	StagnationLimit int `yaml:"stagnation_limit,omitempty"`
	// ProbeCap bounds the page-2-onwards probe used when detection
	// comes back with its low-confidence default.
	ProbeCap int `yaml:"probe_cap,omitempty"`

	// StripParams overrides the tracking parameters removed during URL
	// normalization. Nil keeps the default utm_* set.
	StripParams []string `yaml:"strip_params,omitempty"`

	LinksDB   string `yaml:"links_db,omitempty"`
	OutputCSV string `yaml:"output_csv,omitempty"`

	Politeness Politeness `yaml:"politeness,omitempty"`

	Fields []extract.FieldSpec `yaml:"fields,omitempty"`
	Lists  []extract.ListSpec  `yaml:"lists,omitempty"`
}

// Load reads, defaults, and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset run parameters with the historical defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxPasses <= 0 {
		c.MaxPasses = 4
	}
	if c.StagnationLimit <= 0 {
		c.StagnationLimit = 1
	}
	if c.ProbeCap <= 0 {
		c.ProbeCap = 50
	}
	if c.LinksDB == "" {
		c.LinksDB = "links.db"
	}
	if c.OutputCSV == "" {
		c.OutputCSV = "profiles.csv"
	}
}

// Validate checks everything that should stop a run before the first
// fetch.
func (c *Config) Validate() error {
	if c.StartURL == "" {
		return fmt.Errorf("start_url is required")
	}
	u, err := url.Parse(c.StartURL)
	if err != nil {
		return fmt.Errorf("invalid start_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("start_url must use http or https scheme")
	}

	if c.ProfilePattern == "" {
		return fmt.Errorf("profile_pattern is required")
	}
	if _, err := regexp.Compile(c.ProfilePattern); err != nil {
		return fmt.Errorf("invalid profile_pattern: %w", err)
	}

	if c.PageTemplate != "" && !strings.Contains(c.PageTemplate, collect.PagePlaceholder) {
		return fmt.Errorf("page_template must contain the %s placeholder", collect.PagePlaceholder)
	}

	for _, field := range []struct{ name, value string }{
		{"politeness.timeout", c.Politeness.Timeout},
		{"politeness.initial_backoff", c.Politeness.InitialBackoff},
		{"politeness.delay_min", c.Politeness.DelayMin},
		{"politeness.delay_max", c.Politeness.DelayMax},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid %s: %w", field.name, err)
		}
	}

	// Field-spec patterns are validated by pipeline construction.
	if _, err := c.Pipeline(); err != nil {
		return err
	}

	return nil
}

// Matcher compiles the profile URL pattern.
func (c *Config) Matcher() (*regexp.Regexp, error) {
	return regexp.Compile(c.ProfilePattern)
}

// Pipeline builds the extraction pipeline from the field table.
func (c *Config) Pipeline() (*extract.Pipeline, error) {
	return extract.NewPipeline(c.Fields, c.Lists)
}

// CollectOptions returns the collector's run bounds.
func (c *Config) CollectOptions() collect.Options {
	return collect.Options{
		MaxPasses:       c.MaxPasses,
		StagnationLimit: c.StagnationLimit,
	}
}

// FetchOptions translates the politeness block into client options.
// Validate has already vetted the duration strings.
func (c *Config) FetchOptions() fetch.Options {
	opts := fetch.Options{
		UserAgent:   c.Politeness.UserAgent,
		MaxRetries:  c.Politeness.MaxRetries,
		BackoffBase: c.Politeness.BackoffBase,
	}
	opts.Timeout = parseDuration(c.Politeness.Timeout)
	opts.InitialBackoff = parseDuration(c.Politeness.InitialBackoff)
	opts.DelayMin = parseDuration(c.Politeness.DelayMin)
	opts.DelayMax = parseDuration(c.Politeness.DelayMax)
	if opts.DelayMin == 0 && opts.DelayMax == 0 {
		// Historical delay range between consecutive fetches.
		opts.DelayMin = 700 * time.Millisecond
		opts.DelayMax = 1300 * time.Millisecond
	}
	return opts
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
