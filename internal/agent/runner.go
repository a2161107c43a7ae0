package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arbiter-dev/arbiter/internal/models"
)

// ErrNotFound indicates an unknown agent name was requested.
var ErrNotFound = errors.New("agent not found")

// Executor is the opaque agent-execution capability. The runner never
// inspects its internals.
type Executor interface {
	Execute(ctx context.Context, prompt string) (string, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, prompt string) (string, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Runner resolves agents from a registry and executes prompts through an
// Executor.
type Runner struct {
	registry *Registry
	executor Executor
}

// NewRunner creates a runner over the given registry and executor.
func NewRunner(reg *Registry, exec Executor) *Runner {
	return &Runner{registry: reg, executor: exec}
}

// Run executes the named agent against a task. An unknown agent yields an
// error result rather than an error return, so workflow callers always get
// a result to record.
func (r *Runner) Run(ctx context.Context, agentName, task string, contextData map[string]string) models.AgentResult {
	a, ok := r.registry.Get(agentName)
	if !ok {
		return models.AgentResult{
			Agent:  agentName,
			Status: models.AgentError,
			Output: fmt.Sprintf("%v: %q", ErrNotFound, agentName),
		}
	}

	prompt := BuildPrompt(a, task, contextData)

	start := time.Now()
	output, err := r.executor.Execute(ctx, prompt)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return models.AgentResult{
			Agent:      agentName,
			Status:     models.AgentError,
			Output:     err.Error(),
			DurationMs: elapsed,
		}
	}

	return models.AgentResult{
		Agent:      agentName,
		Status:     models.AgentSuccess,
		Output:     output,
		DurationMs: elapsed,
		Metadata:   contextData,
	}
}

// BuildPrompt concatenates the agent's instructions, the task text, and
// the serialized context map into one execution prompt.
func BuildPrompt(a *Agent, task string, contextData map[string]string) string {
	var b strings.Builder
	b.WriteString(a.Instructions)
	b.WriteString("\n\nTask:\n")
	b.WriteString(task)

	if len(contextData) > 0 {
		keys := make([]string, 0, len(contextData))
		for k := range contextData {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("\n\nContext:\n")
		for _, k := range keys {
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(contextData[k])
			b.WriteString("\n")
		}
	}
	return b.String()
}
