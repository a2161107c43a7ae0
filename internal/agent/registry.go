// Package agent provides the agent registry and the runner that executes
// prompts through an opaque execution backend.
package agent

import (
	"fmt"
	"sort"
	"sync"
)

// Agent is a named entity with loaded instructions and the task types it
// accepts.
type Agent struct {
	Name         string   `yaml:"name" json:"name"`
	Instructions string   `yaml:"instructions" json:"instructions"`
	Capabilities []string `yaml:"capabilities" json:"capabilities"`
}

// HasCapability reports whether the agent accepts a task type.
func (a *Agent) HasCapability(cap string) bool {
	for _, c := range a.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// Registry holds named agents. It is constructed once at process start and
// passed by reference, so tests can substitute isolated registries.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*Agent)}
}

// Register adds or replaces an agent.
func (r *Registry) Register(a Agent) error {
	if a.Name == "" {
		return fmt.Errorf("agent name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.Name] = &a
	return nil
}

// Get retrieves an agent by name.
func (r *Registry) Get(name string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[name]
	if !ok {
		return nil, false
	}
	copy := *a
	copy.Capabilities = append([]string(nil), a.Capabilities...)
	return &copy, true
}

// Names returns all registered agent names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// RegisterBuiltins registers the built-in agent roles used by the workflow
// recipes.
func (r *Registry) RegisterBuiltins() {
	builtins := []Agent{
		{
			Name:         "analyst",
			Instructions: "You analyze requirements. Identify stakeholders, constraints, and acceptance criteria for the task below. Be concrete and brief.",
			Capabilities: []string{"analyze", "read"},
		},
		{
			Name:         "planner",
			Instructions: "You plan implementation work. Break the task below into ordered steps with clear outcomes and dependencies.",
			Capabilities: []string{"plan", "read"},
		},
		{
			Name:         "architect",
			Instructions: "You design system structure. Propose components, interfaces, and data flow for the task below, naming trade-offs.",
			Capabilities: []string{"design", "read"},
		},
		{
			Name:         "security",
			Instructions: "You review for security. List threats, required mitigations, and anything that must not ship for the task below.",
			Capabilities: []string{"review", "validate", "read"},
		},
		{
			Name:         "coder",
			Instructions: "You write code. Implement the task below, stating every file you create or modify.",
			Capabilities: []string{"write", "create", "modify", "read"},
		},
		{
			Name:         "reviewer",
			Instructions: "You review completed work. Check the task below for correctness, regressions, and missing tests.",
			Capabilities: []string{"review", "validate", "read"},
		},
		{
			Name:         "ux",
			Instructions: "You review user-facing behavior. Evaluate flows, copy, and error states for the task below.",
			Capabilities: []string{"review", "read"},
		},
		{
			Name:         "docs",
			Instructions: "You write documentation. Produce usage and change notes for the task below.",
			Capabilities: []string{"document", "read"},
		},
	}

	for _, a := range builtins {
		r.Register(a)
	}
}
