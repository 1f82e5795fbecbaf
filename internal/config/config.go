package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// expandTilde expands ~ or ~/ at the start of a path to the user's home directory
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// Config holds the run configuration that sits alongside the properties file
type Config struct {
	Types     []IndexType    `yaml:"types"`
	Reindex   ReindexConfig  `yaml:"reindex"`
	Templates TemplateConfig `yaml:"templates"`
	Transfer  TransferConfig `yaml:"transfer"`
	History   HistoryConfig  `yaml:"history"`
	Slack     SlackConfig    `yaml:"slack"`
}

// IndexType is one family of date-suffixed indices. The index for a date is
// prefix + yyyy.mm.dd.
type IndexType struct {
	Name         string `yaml:"name"`
	SourcePrefix string `yaml:"source_prefix"`
	DestPrefix   string `yaml:"dest_prefix"`
}

// SourceIndex returns the source index name for a date.
func (t IndexType) SourceIndex(date string) string {
	return t.SourcePrefix + date
}

// DestIndex returns the destination index name for a date.
func (t IndexType) DestIndex(date string) string {
	return t.DestPrefix + date
}

// ReindexConfig holds per-run behavior settings
type ReindexConfig struct {
	SettleDelay  int  `yaml:"settle_delay"`  // Seconds between transfer and destination count (default 10)
	Snapshot     bool `yaml:"snapshot"`      // Snapshot the destination after a verified transfer
	StrictStatus bool `yaml:"strict_status"` // Read HTTP status lines instead of substring matching
}

// TemplateConfig names the templates used for each stage
type TemplateConfig struct {
	CheckIndex string `yaml:"check_index"`
	CountIndex string `yaml:"count_index"`
	Transfer   string `yaml:"transfer"`
	Snapshot   string `yaml:"snapshot"`
}

// TransferConfig locates the transfer tool
type TransferConfig struct {
	Executable   string `yaml:"executable"`    // Binary name (default "logstash")
	HomeProperty string `yaml:"home_property"` // Property holding the tool's bin directory (default "logstash_home")
}

// HistoryConfig controls the run history store
type HistoryConfig struct {
	Disabled  bool   `yaml:"disabled"`
	DataDir   string `yaml:"data_dir"`   // SQLite history location (default ~/.reindexer)
	StateFile string `yaml:"state_file"` // Use a YAML file instead of SQLite
}

// SlackConfig holds Slack notification settings
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
	Username   string `yaml:"username"`
	Enabled    bool   `yaml:"enabled"`
}

// DefaultSettleDelay is the settle delay, in seconds, used when the YAML
// leaves settle_delay unset.
const DefaultSettleDelay = 10

func newConfig() Config {
	return Config{Reindex: ReindexConfig{SettleDelay: DefaultSettleDelay}}
}

// LoadOptions controls configuration loading behavior.
type LoadOptions struct {
	SuppressWarnings bool
}

// Default returns the configuration used when no YAML file is present.
func Default() *Config {
	cfg := newConfig()
	cfg.applyDefaults()
	return &cfg
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	return LoadWithOptions(path, LoadOptions{})
}

// LoadWithOptions reads configuration from a YAML file with options.
func LoadWithOptions(path string, opts LoadOptions) (*Config, error) {
	if warning := checkFilePermissions(path, "config file"); warning != "" && !opts.SuppressWarnings {
		fmt.Fprint(os.Stderr, warning)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return LoadBytes(data)
}

// LoadBytes reads configuration from YAML bytes.
func LoadBytes(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	// fields absent from the YAML keep their preset values, so an explicit
	// settle_delay: 0 survives
	cfg := newConfig()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// DefaultDataDir returns the default data directory for run history.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".reindexer")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

func (c *Config) applyDefaults() {
	if len(c.Types) == 0 {
		c.Types = []IndexType{{Name: "logs", SourcePrefix: "logstash-", DestPrefix: "logstash-"}}
	}
	for i := range c.Types {
		// A type with only a source prefix keeps the same name on the destination
		if c.Types[i].DestPrefix == "" {
			c.Types[i].DestPrefix = c.Types[i].SourcePrefix
		}
	}

	if c.Templates.CheckIndex == "" {
		c.Templates.CheckIndex = "check_index"
	}
	if c.Templates.CountIndex == "" {
		c.Templates.CountIndex = "count_index"
	}
	if c.Templates.Transfer == "" {
		c.Templates.Transfer = "reindex.conf"
	}
	if c.Templates.Snapshot == "" {
		c.Templates.Snapshot = "create_snapshot"
	}

	if c.Transfer.Executable == "" {
		c.Transfer.Executable = "logstash"
	}
	if c.Transfer.HomeProperty == "" {
		c.Transfer.HomeProperty = "logstash_home"
	}

	if c.History.DataDir == "" {
		home, _ := os.UserHomeDir()
		c.History.DataDir = filepath.Join(home, ".reindexer")
	} else {
		c.History.DataDir = expandTilde(c.History.DataDir)
	}
	c.History.StateFile = expandTilde(c.History.StateFile)
}

func (c *Config) validate() error {
	seen := make(map[string]bool)
	for i, t := range c.Types {
		if t.Name == "" {
			return fmt.Errorf("types[%d].name is required", i)
		}
		if t.SourcePrefix == "" {
			return fmt.Errorf("types[%d].source_prefix is required", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate type %q", t.Name)
		}
		seen[t.Name] = true
	}
	if c.Reindex.SettleDelay < 0 {
		return fmt.Errorf("reindex.settle_delay must not be negative, got %d", c.Reindex.SettleDelay)
	}
	if c.Slack.Enabled && c.Slack.WebhookURL == "" {
		return fmt.Errorf("slack.webhook_url is required when slack is enabled")
	}
	return nil
}

// Sanitized returns a copy of the config with sensitive fields redacted
func (c *Config) Sanitized() *Config {
	sanitized := *c // shallow copy

	if sanitized.Slack.WebhookURL != "" {
		sanitized.Slack.WebhookURL = "[REDACTED]"
	}

	return &sanitized
}
