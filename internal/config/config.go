// Package config holds the daemon configuration for Arbiter.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arbiter-dev/arbiter/internal/lockmgr"
	"github.com/arbiter-dev/arbiter/internal/router"
	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	// Listen is the HTTP API listen address.
	Listen string `yaml:"listen"`
	// DBPath is the SQLite database path for the shared store.
	DBPath string `yaml:"db_path"`
	// Workspace is the shared resource write steps lock before running.
	Workspace string `yaml:"workspace"`
	// DefaultLockTTLSec is the lock TTL when callers do not pass one.
	DefaultLockTTLSec int `yaml:"default_lock_ttl_sec"`
	// KnowledgeURL is the knowledge/task service base URL. Empty disables
	// the collaborator.
	KnowledgeURL string `yaml:"knowledge_url"`
	// CodegenURL is the code-generation service base URL. Empty disables
	// the collaborator.
	CodegenURL string `yaml:"codegen_url"`
	// AgentBackendURL is the opaque agent-execution backend. Empty falls
	// back to the echo executor.
	AgentBackendURL string `yaml:"agent_backend_url"`
	// Protection overrides the built-in protected path classification.
	Protection []lockmgr.ProtectionRule `yaml:"protection,omitempty"`
	// Router overrides the built-in routing table.
	Router *router.Config `yaml:"router,omitempty"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Listen:            "127.0.0.1:7521",
		DBPath:            filepath.Join(home, ".arbiter", "arbiter.db"),
		Workspace:         "workspace",
		DefaultLockTTLSec: 300,
	}
}

// Load reads configuration from a YAML file, falling back to the defaults
// when the file does not exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromHome loads configuration from ~/.arbiter/config.yaml.
func LoadFromHome() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}
	return Load(filepath.Join(home, ".arbiter", "config.yaml"))
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.DefaultLockTTLSec <= 0 {
		return fmt.Errorf("default_lock_ttl_sec must be positive")
	}
	if c.Router != nil {
		if err := c.Router.Validate(); err != nil {
			return err
		}
	}
	return nil
}
