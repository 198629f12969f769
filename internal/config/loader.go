package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/remediate/internal/pipeline"
)

// Defaults applied to any field the config file leaves empty.
const (
	DefaultBaseURL = "http://127.0.0.1:8000"
	DefaultTimeout = "5m"
)

// Default returns a configuration with every default applied. It is used when
// no config file is found.
func Default() *Config {
	cfg := &Config{History: History{Enabled: true}}
	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg
}

// Load reads and parses a configuration from the given YAML file path.
// After parsing, defaults are merged in and environment overrides applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Config{History: History{Enabled: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the first
// one found. Search order: ./remediate.yaml, ~/.remediate/config.yaml. When
// neither exists the built-in defaults are returned.
func LoadDefault() (*Config, error) {
	for _, path := range candidatePaths() {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

func candidatePaths() []string {
	candidates := []string{"remediate.yaml"}
	if dir, err := HomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "config.yaml"))
	}
	return candidates
}

// HomeDir returns ~/.remediate without creating it.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".remediate"), nil
}

func applyDefaults(cfg *Config) {
	s := &cfg.Service
	if s.BaseURL == "" {
		s.BaseURL = DefaultBaseURL
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	if s.Timeout == "" {
		s.Timeout = DefaultTimeout
	}

	e := &s.Endpoints
	if e.Upload == "" {
		e.Upload = "/upload/"
	}
	if e.Analyze == "" {
		e.Analyze = "/analyze/"
	}
	if e.Strategy == "" {
		e.Strategy = "/strategy/"
	}
	if e.Refactor == "" {
		e.Refactor = "/refactor/"
	}

	m := &cfg.Messages
	if m.Upload == "" {
		m.Upload = "File upload failed, please try again."
	}
	if m.Analyze == "" {
		m.Analyze = "Failed to load analysis"
	}
	if m.Strategy == "" {
		m.Strategy = "Maybe you forgot to do the analysis before trying to get the strategy?"
	}
	if m.Refactor == "" {
		m.Refactor = "Maybe you forgot to do the analysis and strategy before trying to get the refactored code?"
	}

	if cfg.History.DBPath == "" {
		if dir, err := HomeDir(); err == nil {
			cfg.History.DBPath = filepath.Join(dir, "history.db")
		}
	}
}

// TimeoutDuration parses Service.Timeout. Zero means the transport's own
// behaviour applies.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Service.Timeout == "" || c.Service.Timeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Service.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parse service.timeout %q: %w", c.Service.Timeout, err)
	}
	return d, nil
}

// Endpoint returns the configured path for a stage.
func (c *Config) Endpoint(s pipeline.Stage) string {
	switch s {
	case pipeline.StageUpload:
		return c.Service.Endpoints.Upload
	case pipeline.StageAnalyze:
		return c.Service.Endpoints.Analyze
	case pipeline.StageStrategy:
		return c.Service.Endpoints.Strategy
	case pipeline.StageRefactor:
		return c.Service.Endpoints.Refactor
	}
	return ""
}

// FallbackMessage returns the generic server-error text for a stage.
func (c *Config) FallbackMessage(s pipeline.Stage) string {
	switch s {
	case pipeline.StageUpload:
		return c.Messages.Upload
	case pipeline.StageAnalyze:
		return c.Messages.Analyze
	case pipeline.StageStrategy:
		return c.Messages.Strategy
	case pipeline.StageRefactor:
		return c.Messages.Refactor
	}
	return "Request failed"
}
