// Package config loads the supervisor configuration from a YAML file
// and fills in defaults for anything left unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	// DataDir holds the sqlite database, secrets, and logs. Defaults
	// to ~/.finwatch.
	DataDir string `yaml:"data_dir"`
	LogFile string `yaml:"log_file"`

	Agent  AgentConfig  `yaml:"agent"`
	Timing TimingConfig `yaml:"timing"`
	Watch  WatchConfig  `yaml:"watch"`
}

// AgentConfig describes how to launch the trading agent worker.
type AgentConfig struct {
	Runtime string            `yaml:"runtime"`
	Entry   string            `yaml:"entry"`
	Args    []string          `yaml:"args"`
	Dir     string            `yaml:"dir"`
	Env     map[string]string `yaml:"env"`

	// Symbols and Feed seed the agent's market data subscription.
	Symbols []string `yaml:"symbols"`
	Feed    string   `yaml:"feed"`
}

// TimingConfig tunes the supervision loops. Zero values fall back to
// the defaults exposed by the accessor methods.
type TimingConfig struct {
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
	SweepIntervalSeconds  int `yaml:"sweep_interval_seconds"`
	WatchdogPollSeconds   int `yaml:"watchdog_poll_seconds"`
	ProbeIntervalSeconds  int `yaml:"probe_interval_seconds"`
	SilenceWindowSeconds  int `yaml:"silence_window_seconds"`
	MaxRestarts           int `yaml:"max_restarts"`
}

// WatchConfig lists directories watched for CSV source files.
type WatchConfig struct {
	Dirs []string `yaml:"dirs"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Runtime: "tsx",
			Entry:   "agent/main.ts",
			Symbols: []string{"AAPL"},
			Feed:    "iex",
		},
	}
}

// Load reads the configuration at path. A missing file yields the
// defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath returns ~/.finwatch/config.yaml, or a relative fallback
// when the home directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".finwatch", "config.yaml")
}

// ResolvedDataDir returns the configured data directory or the
// ~/.finwatch default.
func (c *Config) ResolvedDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".finwatch"
	}
	return filepath.Join(home, ".finwatch")
}

// DatabasePath returns the sqlite file location under the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.ResolvedDataDir(), "state", "finwatch.sqlite")
}

// SecretsDir returns where encrypted credentials live.
func (c *Config) SecretsDir() string {
	return filepath.Join(c.ResolvedDataDir(), "secrets")
}

func seconds(n, def int) time.Duration {
	if n <= 0 {
		return time.Duration(def) * time.Second
	}
	return time.Duration(n) * time.Second
}

// RequestTimeout is the default deadline for agent requests.
func (t TimingConfig) RequestTimeout() time.Duration { return seconds(t.RequestTimeoutSeconds, 31) }

// SweepInterval is how often timed-out requests are failed.
func (t TimingConfig) SweepInterval() time.Duration { return seconds(t.SweepIntervalSeconds, 5) }

// WatchdogPoll is how often the watchdog checks for worker exit.
func (t TimingConfig) WatchdogPoll() time.Duration { return seconds(t.WatchdogPollSeconds, 10) }

// ProbeInterval is how often the worker is pinged.
func (t TimingConfig) ProbeInterval() time.Duration { return seconds(t.ProbeIntervalSeconds, 30) }

// SilenceWindow is how long the worker may ignore probes before it is
// reported unhealthy.
func (t TimingConfig) SilenceWindow() time.Duration { return seconds(t.SilenceWindowSeconds, 90) }

// RestartBudget is the consecutive crash limit before the watchdog
// gives up.
func (t TimingConfig) RestartBudget() int {
	if t.MaxRestarts <= 0 {
		return 3
	}
	return t.MaxRestarts
}
