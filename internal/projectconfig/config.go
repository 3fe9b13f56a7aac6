// Package projectconfig provides the ProjectConfig struct and loader for
// .levelapp.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up by walking parent directories.
const ConfigFileName = ".levelapp.yaml"

// Default values for project configuration. These are the single source of
// truth — New() references them and no other code should duplicate them.
const (
	DefaultBatchesDir = "batches/"
	DefaultResultsDir = "results/"

	DefaultModel    = "gpt-4o-mini"
	DefaultAttempts = 1
	DefaultWorkers  = 4
	DefaultTimeout  = 60

	DefaultAgentTimeout = 60

	DefaultServerPort = 8000
)

// PathsConfig holds directory paths for batch definitions and results.
type PathsConfig struct {
	Batches string `yaml:"batches,omitempty"`
	Results string `yaml:"results,omitempty"`
}

// DefaultsConfig holds default run parameters.
type DefaultsConfig struct {
	Model        string `yaml:"model,omitempty"`
	Attempts     int    `yaml:"attempts,omitempty"`
	Workers      int    `yaml:"workers,omitempty"`
	Timeout      int    `yaml:"timeout,omitempty"`
	CarryContext *bool  `yaml:"carry_context,omitempty"`
}

// AgentConfig holds settings for the conversational agent under test.
type AgentConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Timeout  int    `yaml:"timeout,omitempty"`
	// RateLimit caps outgoing agent calls per second. Zero means unlimited.
	RateLimit float64 `yaml:"rate_limit,omitempty"`
}

// JudgeConfig declares one judge to score replies with.
type JudgeConfig struct {
	Kind       string         `yaml:"kind"`
	Name       string         `yaml:"name,omitempty"`
	Parameters map[string]any `yaml:"parameters,omitempty"`
}

// ServerConfig holds evaluation API server settings.
type ServerConfig struct {
	Port int `yaml:"port,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .levelapp.yaml.
type ProjectConfig struct {
	Paths    PathsConfig    `yaml:"paths,omitempty"`
	Defaults DefaultsConfig `yaml:"defaults,omitempty"`
	Agent    AgentConfig    `yaml:"agent,omitempty"`
	Judges   []JudgeConfig  `yaml:"judges,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Paths: PathsConfig{
			Batches: DefaultBatchesDir,
			Results: DefaultResultsDir,
		},
		Defaults: DefaultsConfig{
			Model:        DefaultModel,
			Attempts:     DefaultAttempts,
			Workers:      DefaultWorkers,
			Timeout:      DefaultTimeout,
			CarryContext: boolPtr(false),
		},
		Agent: AgentConfig{
			Timeout: DefaultAgentTimeout,
		},
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
	}
}

// Load finds .levelapp.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading %s: %w", ConfigFileName, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}

	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for the config file (max 10
// levels). Returns os.ErrNotExist if no config file is found. Propagates
// real I/O errors (e.g. permission denied) instead of silently swallowing
// them.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ConfigFileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if src.Paths.Batches != "" {
		dst.Paths.Batches = src.Paths.Batches
	}
	if src.Paths.Results != "" {
		dst.Paths.Results = src.Paths.Results
	}

	if src.Defaults.Model != "" {
		dst.Defaults.Model = src.Defaults.Model
	}
	if src.Defaults.Attempts != 0 {
		dst.Defaults.Attempts = src.Defaults.Attempts
	}
	if src.Defaults.Workers != 0 {
		dst.Defaults.Workers = src.Defaults.Workers
	}
	if src.Defaults.Timeout != 0 {
		dst.Defaults.Timeout = src.Defaults.Timeout
	}
	if src.Defaults.CarryContext != nil {
		dst.Defaults.CarryContext = src.Defaults.CarryContext
	}

	if src.Agent.Endpoint != "" {
		dst.Agent.Endpoint = src.Agent.Endpoint
	}
	if src.Agent.Timeout != 0 {
		dst.Agent.Timeout = src.Agent.Timeout
	}
	if src.Agent.RateLimit != 0 {
		dst.Agent.RateLimit = src.Agent.RateLimit
	}

	if len(src.Judges) > 0 {
		dst.Judges = src.Judges
	}

	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
}

func boolPtr(b bool) *bool {
	return &b
}
