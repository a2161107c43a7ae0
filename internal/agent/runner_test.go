package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/arbiter-dev/arbiter/internal/models"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.RegisterBuiltins()
	return r
}

func TestRegistryRegisterGet(t *testing.T) {
	r := NewRegistry()

	err := r.Register(Agent{
		Name:         "tester",
		Instructions: "Run tests.",
		Capabilities: []string{"validate"},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	a, ok := r.Get("tester")
	if !ok {
		t.Fatal("Expected to find registered agent")
	}
	if a.Instructions != "Run tests." {
		t.Errorf("Unexpected instructions: %s", a.Instructions)
	}

	// Get returns a copy; mutating it must not affect the registry
	a.Capabilities[0] = "mutated"
	fresh, _ := r.Get("tester")
	if fresh.Capabilities[0] != "validate" {
		t.Error("Registry entry was mutated through a Get copy")
	}
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Agent{Name: ""}); err == nil {
		t.Error("Expected error for empty agent name")
	}
}

func TestRegistryBuiltins(t *testing.T) {
	r := newTestRegistry(t)

	if r.Count() != 8 {
		t.Errorf("Expected 8 builtin agents, got %d", r.Count())
	}

	coder, ok := r.Get("coder")
	if !ok {
		t.Fatal("Expected coder to be registered")
	}
	if !coder.HasCapability("write") {
		t.Error("Coder must have write capability")
	}

	for _, name := range []string{"analyst", "planner", "architect", "security", "reviewer", "ux", "docs"} {
		a, ok := r.Get(name)
		if !ok {
			t.Errorf("Expected builtin %s to be registered", name)
			continue
		}
		if a.HasCapability("write") {
			t.Errorf("Only coder may hold the write capability, %s has it too", name)
		}
	}
}

func TestRunnerRun(t *testing.T) {
	r := newTestRegistry(t)
	var gotPrompt string
	runner := NewRunner(r, ExecutorFunc(func(ctx context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return "done", nil
	}))

	result := runner.Run(context.Background(), "coder", "add a flag", map[string]string{"execution_id": "e1"})
	if result.Status != models.AgentSuccess {
		t.Fatalf("Expected success, got %s: %s", result.Status, result.Output)
	}
	if result.Output != "done" {
		t.Errorf("Expected output done, got %s", result.Output)
	}
	if !strings.Contains(gotPrompt, "add a flag") {
		t.Error("Prompt should contain the task text")
	}
	if !strings.Contains(gotPrompt, "execution_id: e1") {
		t.Error("Prompt should contain the context data")
	}
}

func TestRunnerUnknownAgent(t *testing.T) {
	r := newTestRegistry(t)
	runner := NewRunner(r, ExecutorFunc(func(ctx context.Context, prompt string) (string, error) {
		t.Fatal("Executor must not run for an unknown agent")
		return "", nil
	}))

	result := runner.Run(context.Background(), "ghost", "task", nil)
	if result.Status != models.AgentError {
		t.Errorf("Expected error result, got %s", result.Status)
	}
	if !strings.Contains(result.Output, "ghost") {
		t.Errorf("Error output should name the agent, got %s", result.Output)
	}
}

func TestRunnerExecutorError(t *testing.T) {
	r := newTestRegistry(t)
	runner := NewRunner(r, ExecutorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("backend unreachable")
	}))

	result := runner.Run(context.Background(), "coder", "task", nil)
	if result.Status != models.AgentError {
		t.Errorf("Expected error result, got %s", result.Status)
	}
	if result.Output != "backend unreachable" {
		t.Errorf("Expected executor error as output, got %s", result.Output)
	}
}

func TestBuildPrompt(t *testing.T) {
	a := &Agent{Name: "coder", Instructions: "You write code."}

	prompt := BuildPrompt(a, "add logging", map[string]string{"b": "2", "a": "1"})

	if !strings.HasPrefix(prompt, "You write code.") {
		t.Error("Prompt should start with the instructions")
	}
	// Context keys are serialized in sorted order
	if strings.Index(prompt, "a: 1") > strings.Index(prompt, "b: 2") {
		t.Error("Context keys should be sorted")
	}

	bare := BuildPrompt(a, "add logging", nil)
	if strings.Contains(bare, "Context:") {
		t.Error("Empty context must not emit a Context section")
	}
}
