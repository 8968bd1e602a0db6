// Package config loads the CLI configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	timingattack "github.com/senadmustafi/Timing-attack"
)

// Config holds all timing-attack CLI configuration.
type Config struct {
	// Target to attack
	Target TargetConfig `yaml:"target"`

	// Measurement and search parameters
	Attack AttackConfig `yaml:"attack"`

	// Credentials served by the demo target
	Store StoreConfig `yaml:"store"`

	// HTTP target
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// TargetConfig names the account under attack and where to reach it.
type TargetConfig struct {
	Account   string  `yaml:"account"`
	URL       string  `yaml:"url"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second, 0 = unpaced
	Burst     int     `yaml:"burst"`
}

// AttackConfig configures the sampler and the search.
type AttackConfig struct {
	Profile        string `yaml:"profile"` // in-process, local-network, remote-network
	Repeats        int    `yaml:"repeats"`
	InnerCount     int    `yaml:"inner_count"`
	Warmup         int    `yaml:"warmup"`
	Alphabet       string `yaml:"alphabet"`
	MaxLength      int    `yaml:"max_length"`
	Seed           uint64 `yaml:"seed"`
	MaxIterations  int    `yaml:"max_iterations"`
	TimeBudget     string `yaml:"time_budget"`
	CachedBaseline bool   `yaml:"cached_baseline"`
	TopN           int    `yaml:"top_n"`
	Pause          bool   `yaml:"pause"` // wait for Enter between phases on a terminal
}

// StoreConfig configures the demo credential store.
type StoreConfig struct {
	Path      string            `yaml:"path"` // SQLite file; empty uses Accounts
	Accounts  map[string]string `yaml:"accounts"`
	CharDelay string            `yaml:"char_delay"`
}

// ServerConfig configures the HTTP login target.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			Account: "admin",
			URL:     "http://127.0.0.1:8080/login",
			Burst:   1,
		},
		Attack: AttackConfig{
			Profile:   timingattack.InProcess.String(),
			Alphabet:  timingattack.DefaultAlphabet,
			MaxLength: timingattack.DefaultMaxLength,
			TopN:      5,
			Pause:     true,
		},
		Store: StoreConfig{
			Accounts: map[string]string{"admin": "MyStr0ngPassW0rD"},
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TIMING_ATTACK_ACCOUNT"); v != "" {
		c.Target.Account = v
	}
	if v := os.Getenv("TIMING_ATTACK_URL"); v != "" {
		c.Target.URL = v
	}
	if v := os.Getenv("TIMING_ATTACK_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("TIMING_ATTACK_DB"); v != "" {
		c.Store.Path = v
	}
}

// Validate checks the values the library does not check itself.
func (c *Config) Validate() error {
	if _, ok := timingattack.ParseProfile(c.Attack.Profile); !ok {
		return fmt.Errorf("invalid profile: %s (valid: in-process, local-network, remote-network)", c.Attack.Profile)
	}
	if c.Attack.TimeBudget != "" {
		if _, err := time.ParseDuration(c.Attack.TimeBudget); err != nil {
			return fmt.Errorf("invalid time_budget: %w", err)
		}
	}
	if c.Store.CharDelay != "" {
		if _, err := time.ParseDuration(c.Store.CharDelay); err != nil {
			return fmt.Errorf("invalid char_delay: %w", err)
		}
	}
	for name, v := range map[string]int{
		"max_length":     c.Attack.MaxLength,
		"repeats":        c.Attack.Repeats,
		"inner_count":    c.Attack.InnerCount,
		"warmup":         c.Attack.Warmup,
		"max_iterations": c.Attack.MaxIterations,
		"top_n":          c.Attack.TopN,
		"burst":          c.Target.Burst,
	} {
		if v < 0 {
			return fmt.Errorf("invalid %s: %d must not be negative", name, v)
		}
	}
	if c.Target.RateLimit < 0 {
		return fmt.Errorf("invalid rate_limit: %v must not be negative", c.Target.RateLimit)
	}
	return nil
}

// GetTimeBudget returns the search time budget, 0 when unbounded.
func (c *Config) GetTimeBudget() time.Duration {
	d, err := time.ParseDuration(c.Attack.TimeBudget)
	if err != nil {
		return 0
	}
	return d
}

// GetCharDelay returns the per-character delay of the demo target.
func (c *Config) GetCharDelay() time.Duration {
	d, err := time.ParseDuration(c.Store.CharDelay)
	if err != nil {
		return 0
	}
	return d
}

// Options converts the attack section into library options. Zero values
// leave the library defaults in place.
func (c *Config) Options() []timingattack.Option {
	a := c.Attack
	profile, _ := timingattack.ParseProfile(a.Profile)
	opts := []timingattack.Option{timingattack.WithProfile(profile)}

	if a.Repeats > 0 {
		opts = append(opts, timingattack.WithRepeats(a.Repeats))
	}
	if a.InnerCount > 0 {
		opts = append(opts, timingattack.WithInnerCount(a.InnerCount))
	}
	if a.Warmup > 0 {
		opts = append(opts, timingattack.WithWarmup(a.Warmup))
	}
	if a.Alphabet != "" {
		opts = append(opts, timingattack.WithAlphabet(a.Alphabet))
	}
	if a.Seed != 0 {
		opts = append(opts, timingattack.WithSeed(a.Seed))
	}
	if a.MaxIterations > 0 {
		opts = append(opts, timingattack.WithMaxIterations(a.MaxIterations))
	}
	if d := c.GetTimeBudget(); d > 0 {
		opts = append(opts, timingattack.WithTimeBudget(d))
	}
	if a.CachedBaseline {
		opts = append(opts, timingattack.WithCachedBaseline())
	}
	if a.TopN > 0 {
		opts = append(opts, timingattack.WithTopN(a.TopN))
	}
	return opts
}
