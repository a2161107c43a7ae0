package router

import (
	"fmt"
	"os"

	"github.com/arbiter-dev/arbiter/internal/models"
	"gopkg.in/yaml.v3"
)

// Pattern is a weighted keyword or phrase contributing to a target's
// score.
type Pattern struct {
	Phrase string  `yaml:"phrase"`
	Weight float64 `yaml:"weight"`
	// Action overrides the target's default action when this pattern is
	// the strongest match.
	Action string `yaml:"action,omitempty"`
}

// TargetRules is the ordered pattern list for one target subsystem.
type TargetRules struct {
	Target   models.Target `yaml:"target"`
	Action   string        `yaml:"action"`
	Patterns []Pattern     `yaml:"patterns"`
}

// Config holds router configuration.
type Config struct {
	// Threshold is the minimum confidence to dispatch; below it the
	// router answers meta/clarify.
	Threshold float64 `yaml:"threshold"`
	// ContextBonus is added when the session's current target leads.
	ContextBonus float64 `yaml:"context_bonus"`
	// Targets are scored in declaration order; order breaks ties.
	Targets []TargetRules `yaml:"targets"`
}

// DefaultConfig returns the built-in routing table.
func DefaultConfig() *Config {
	return &Config{
		Threshold:    0.5,
		ContextBonus: 0.15,
		Targets: []TargetRules{
			{
				Target: models.TargetPlanner,
				Action: "plan",
				Patterns: []Pattern{
					{Phrase: "workflow", Weight: 0.9, Action: "plan"},
					{Phrase: "architecture", Weight: 0.8, Action: "design"},
					{Phrase: "plan", Weight: 0.7},
					{Phrase: "roadmap", Weight: 0.7},
					{Phrase: "design", Weight: 0.6},
					{Phrase: "sprint", Weight: 0.6},
				},
			},
			{
				Target: models.TargetKnowledge,
				Action: "search",
				Patterns: []Pattern{
					{Phrase: "knowledge base", Weight: 0.9, Action: "search"},
					{Phrase: "search", Weight: 0.8},
					{Phrase: "task status", Weight: 0.8, Action: "task_status"},
					{Phrase: "ingest", Weight: 0.7, Action: "ingest"},
					{Phrase: "document", Weight: 0.6},
					{Phrase: "remember", Weight: 0.6},
					{Phrase: "task", Weight: 0.5},
				},
			},
			{
				Target: models.TargetCoder,
				Action: "generate",
				Patterns: []Pattern{
					{Phrase: "generate", Weight: 0.9, Action: "generate"},
					{Phrase: "deploy", Weight: 0.8, Action: "deploy"},
					{Phrase: "implement", Weight: 0.7},
					{Phrase: "refactor", Weight: 0.7},
					{Phrase: "code", Weight: 0.6},
					{Phrase: "build", Weight: 0.6},
					{Phrase: "fix", Weight: 0.6},
				},
			},
		},
	}
}

// LoadConfig loads router configuration from a YAML file, falling back to
// the defaults when the file does not exist.
func LoadConfig(path string) (*Config, error) {
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

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in (0, 1]")
	}
	if c.ContextBonus < 0 || c.ContextBonus > 1 {
		return fmt.Errorf("context_bonus must be in [0, 1]")
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("at least one target is required")
	}
	for _, t := range c.Targets {
		if t.Target == "" || t.Target == models.TargetMeta {
			return fmt.Errorf("invalid routing target %q", t.Target)
		}
		for _, p := range t.Patterns {
			if p.Phrase == "" {
				return fmt.Errorf("target %s has a pattern with no phrase", t.Target)
			}
			if p.Weight <= 0 {
				return fmt.Errorf("pattern %q must have positive weight", p.Phrase)
			}
		}
	}
	return nil
}

func (c *Config) defaultAction(target models.Target) string {
	for _, t := range c.Targets {
		if t.Target == target {
			return t.Action
		}
	}
	return ""
}
