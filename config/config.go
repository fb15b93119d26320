// Package config loads the paylens YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spektr-org/paylens/engine"
	"github.com/spektr-org/paylens/translator"
)

// EnvConfigPath overrides the default config location.
const EnvConfigPath = "PAYLENS_CONFIG"

// MaxTimeout is the longest capability timeout Validate accepts.
const MaxTimeout = 2 * time.Minute

// MaxSampleRows bounds how many example rows a prompt may carry.
const MaxSampleRows = 20

// Config is the top-level configuration.
type Config struct {
	Mode       engine.Mode `yaml:"mode"`
	Unit       string      `yaml:"unit"`
	Capability Capability  `yaml:"capability"`
	History    History     `yaml:"history"`
}

// Capability configures the AI interpreter.
type Capability struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	Endpoint    string        `yaml:"endpoint"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Timeout     time.Duration `yaml:"timeout"`
	SampleRows  *int          `yaml:"sample_rows"`
	RedactNames *bool         `yaml:"redact_names"`
}

// History configures the local question log.
type History struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// DefaultPath returns $PAYLENS_CONFIG, or ~/.config/paylens/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "paylens", "config.yaml")
}

// Load reads path. A missing file is not an error when optional is true:
// the defaults are returned instead. Unknown keys are rejected.
func Load(path string, optional bool) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = engine.ModeCapability
	} else if m, err := engine.ParseMode(string(c.Mode)); err == nil {
		c.Mode = m
	}
	if c.Unit == "" {
		c.Unit = "kr"
	}

	cc := &c.Capability
	cc.Provider = strings.ToLower(strings.TrimSpace(cc.Provider))
	if cc.Provider == "" {
		cc.Provider = translator.ProviderAnthropic
	}
	if cc.APIKeyEnv == "" {
		switch cc.Provider {
		case translator.ProviderGemini:
			cc.APIKeyEnv = "GEMINI_API_KEY"
		default:
			cc.APIKeyEnv = "ANTHROPIC_API_KEY"
		}
	}
	if cc.Timeout == 0 {
		cc.Timeout = translator.DefaultTimeout
	}
	if cc.SampleRows == nil {
		n := 3
		cc.SampleRows = &n
	}
	if cc.RedactNames == nil {
		redact := true
		cc.RedactNames = &redact
	}

	if c.History.Path == "" {
		c.History.Path = filepath.Join("~", ".paylens", "history.db")
	}
}

// Validate rejects settings the rest of the program cannot honor.
func (c *Config) Validate() error {
	if _, err := engine.ParseMode(string(c.Mode)); err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	switch c.Capability.Provider {
	case translator.ProviderAnthropic, translator.ProviderGemini:
	default:
		return fmt.Errorf("capability.provider: unknown provider %q", c.Capability.Provider)
	}
	if c.Capability.Timeout <= 0 || c.Capability.Timeout > MaxTimeout {
		return fmt.Errorf("capability.timeout: %s out of range (0, %s]", c.Capability.Timeout, MaxTimeout)
	}
	if n := c.SampleRows(); n < 0 || n > MaxSampleRows {
		return fmt.Errorf("capability.sample_rows: %d out of range 0..%d", n, MaxSampleRows)
	}
	return nil
}

// SampleRows returns the configured sample row count.
func (c *Config) SampleRows() int {
	if c.Capability.SampleRows == nil {
		return 3
	}
	return *c.Capability.SampleRows
}

// RedactNames reports whether prompt sample rows hide employee names.
func (c *Config) RedactNames() bool {
	return c.Capability.RedactNames == nil || *c.Capability.RedactNames
}

// APIKey reads the credential from the environment. Empty means capability
// mode is unavailable.
func (c *Config) APIKey() string {
	return strings.TrimSpace(os.Getenv(c.Capability.APIKeyEnv))
}

// ProviderConfig builds the translator configuration, starting from the
// provider's defaults.
func (c *Config) ProviderConfig() translator.Config {
	var pc translator.Config
	switch c.Capability.Provider {
	case translator.ProviderGemini:
		pc = translator.DefaultGeminiConfig(c.APIKey())
	default:
		pc = translator.DefaultAnthropicConfig(c.APIKey())
	}
	if c.Capability.Model != "" {
		pc.Model = c.Capability.Model
	}
	if c.Capability.Endpoint != "" {
		pc.Endpoint = c.Capability.Endpoint
	}
	pc.Timeout = c.Capability.Timeout
	return pc
}

// HistoryPath returns History.Path with a leading ~ expanded.
func (c *Config) HistoryPath() string {
	return expandHome(c.History.Path)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
