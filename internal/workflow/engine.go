package workflow

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/arbiter-dev/arbiter/internal/agent"
	"github.com/arbiter-dev/arbiter/internal/conflict"
	"github.com/arbiter-dev/arbiter/internal/lockmgr"
	"github.com/arbiter-dev/arbiter/internal/models"
	"github.com/google/uuid"
)

// Hook observes step execution without affecting control flow.
type Hook func(executionID string, stepIndex int, agentName string)

// HookBeforeStep and HookAfterStep are the recognized hook points.
const (
	HookBeforeStep = "before_step"
	HookAfterStep  = "after_step"
)

// Engine runs workflow recipes step by step and owns the in-memory
// execution table. Steps within one execution are strictly sequential;
// independent executions may run concurrently.
type Engine struct {
	runner   *agent.Runner
	registry *agent.Registry
	resolver *conflict.Resolver
	locks    *lockmgr.Manager

	// workspace is the shared resource write steps lock before running.
	workspace string
	lockTTL   time.Duration

	mu         sync.Mutex
	executions map[string]*execState
	hooks      map[string][]Hook
}

// execState pairs an execution record with its pause coordination.
type execState struct {
	exec   *models.WorkflowExecution
	resume chan struct{}
}

// NewEngine creates a workflow engine. resolver and locks may be nil, in
// which case write steps run unguarded (useful for isolated tests).
func NewEngine(runner *agent.Runner, registry *agent.Registry, resolver *conflict.Resolver, locks *lockmgr.Manager, workspace string) *Engine {
	return &Engine{
		runner:     runner,
		registry:   registry,
		resolver:   resolver,
		locks:      locks,
		workspace:  workspace,
		lockTTL:    10 * time.Minute,
		executions: make(map[string]*execState),
		hooks:      make(map[string][]Hook),
	}
}

// RegisterHook attaches an observer to a hook point. Hook errors and
// panics are the observer's problem; the engine does not guard against
// them.
func (e *Engine) RegisterHook(point string, h Hook) error {
	if point != HookBeforeStep && point != HookAfterStep {
		return fmt.Errorf("unknown hook point %q", point)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks[point] = append(e.hooks[point], h)
	return nil
}

// Start creates a pending execution for the workflow and runs it in a new
// goroutine, returning the execution id immediately.
func (e *Engine) Start(ctx context.Context, w models.Workflow, input string) (string, error) {
	id, err := e.create(w, input)
	if err != nil {
		return "", err
	}
	go e.run(ctx, id)
	return id, nil
}

// Execute creates an execution for the workflow and runs it to
// completion, returning the final snapshot.
func (e *Engine) Execute(ctx context.Context, w models.Workflow, input string) (*models.WorkflowExecution, error) {
	id, err := e.create(w, input)
	if err != nil {
		return nil, err
	}
	e.run(ctx, id)
	exec, _ := e.Get(id)
	return exec, nil
}

func (e *Engine) create(w models.Workflow, input string) (string, error) {
	agents := Recipe(w)
	if len(agents) == 0 {
		return "", fmt.Errorf("unknown workflow %q", w)
	}

	now := time.Now().UTC()
	exec := &models.WorkflowExecution{
		ID:        uuid.New().String(),
		Workflow:  w,
		Input:     input,
		Status:    models.ExecutionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, name := range agents {
		exec.Steps = append(exec.Steps, models.WorkflowStep{Agent: name, Status: models.StepPending})
	}

	e.mu.Lock()
	e.executions[exec.ID] = &execState{exec: exec}
	e.mu.Unlock()
	return exec.ID, nil
}

// run drives one execution to a terminal state. Pause and cancel are
// observed only at step boundaries; an in-progress step always runs to
// completion first.
func (e *Engine) run(ctx context.Context, id string) {
	e.setStatus(id, models.ExecutionRunning)

	steps := e.snapshotSteps(id)
	for i := range steps {
		if !e.waitRunnable(id) {
			return
		}

		e.invokeHooks(HookBeforeStep, id, i, steps[i].Agent)
		e.setStepStatus(id, i, models.StepRunning, "")

		result := e.runStep(ctx, id, steps[i].Agent)

		if result.Status == models.AgentError {
			e.setStepStatus(id, i, models.StepFailed, result.Output)
			e.skipRemaining(id, i+1)
			e.fail(id, fmt.Sprintf("step %d (%s): %s", i+1, steps[i].Agent, result.Output))
			e.invokeHooks(HookAfterStep, id, i, steps[i].Agent)
			return
		}

		e.setStepStatus(id, i, models.StepCompleted, result.Output)
		e.invokeHooks(HookAfterStep, id, i, steps[i].Agent)
	}

	e.complete(id)
}

// runStep executes one agent step, guarding write-capable agents with the
// write-permission policy and a workspace lock.
func (e *Engine) runStep(ctx context.Context, id, agentName string) models.AgentResult {
	input := e.input(id)

	if e.isWriteStep(agentName) && e.resolver != nil && e.locks != nil {
		perm := e.resolver.WritePermission(models.IdentityCoder, e.workspace)
		if !perm.Allowed {
			return models.AgentResult{
				Agent:  agentName,
				Status: models.AgentError,
				Output: conflict.ErrPermissionDenied.Error(),
			}
		}

		holder := "workflow:" + id
		if _, err := e.locks.Acquire(e.workspace, holder, e.lockTTL, false); err != nil {
			return models.AgentResult{
				Agent:  agentName,
				Status: models.AgentError,
				Output: err.Error(),
			}
		}
		defer func() {
			if _, err := e.locks.Release(e.workspace, holder); err != nil {
				log.Printf("release workspace lock: %v", err)
			}
		}()
	}

	return e.runner.Run(ctx, agentName, input, map[string]string{"execution_id": id})
}

func (e *Engine) isWriteStep(agentName string) bool {
	if e.registry == nil {
		return false
	}
	a, ok := e.registry.Get(agentName)
	if !ok {
		return false
	}
	return a.HasCapability("write")
}

// waitRunnable blocks at a step boundary while the execution is paused and
// reports whether the next step may run. False means the execution was
// cancelled.
func (e *Engine) waitRunnable(id string) bool {
	for {
		e.mu.Lock()
		st, ok := e.executions[id]
		if !ok {
			e.mu.Unlock()
			return false
		}
		switch st.exec.Status {
		case models.ExecutionRunning:
			e.mu.Unlock()
			return true
		case models.ExecutionPaused:
			if st.resume == nil {
				st.resume = make(chan struct{})
			}
			ch := st.resume
			e.mu.Unlock()
			<-ch
		case models.ExecutionCancelled:
			e.mu.Unlock()
			return false
		default:
			e.mu.Unlock()
			return false
		}
	}
}

// Pause marks a running execution paused. The transition is observed
// before the next step starts; the current step is never interrupted.
// Returns false for an unknown id or an execution that is not in flight.
func (e *Engine) Pause(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.executions[id]
	if !ok {
		return false
	}
	if st.exec.Status != models.ExecutionRunning && st.exec.Status != models.ExecutionPending {
		return false
	}
	st.exec.Status = models.ExecutionPaused
	st.exec.UpdatedAt = time.Now().UTC()
	return true
}

// Resume moves a paused execution back to running and unblocks its loop.
func (e *Engine) Resume(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.executions[id]
	if !ok || st.exec.Status != models.ExecutionPaused {
		return false
	}
	st.exec.Status = models.ExecutionRunning
	st.exec.UpdatedAt = time.Now().UTC()
	e.signal(st)
	return true
}

// Cancel marks an execution cancelled. Like Pause, the transition takes
// effect at the next step boundary. Returns false for unknown ids and
// already-terminal executions.
func (e *Engine) Cancel(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.executions[id]
	if !ok {
		return false
	}
	switch st.exec.Status {
	case models.ExecutionCompleted, models.ExecutionFailed, models.ExecutionCancelled:
		return false
	}
	st.exec.Status = models.ExecutionCancelled
	st.exec.UpdatedAt = time.Now().UTC()
	e.signal(st)
	return true
}

// signal wakes a loop blocked in waitRunnable. Caller holds e.mu.
func (e *Engine) signal(st *execState) {
	if st.resume != nil {
		close(st.resume)
		st.resume = nil
	}
}

// Get returns a snapshot of an execution.
func (e *Engine) Get(id string) (*models.WorkflowExecution, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.executions[id]
	if !ok {
		return nil, false
	}
	return snapshot(st.exec), true
}

// List returns snapshots of all executions, newest first.
func (e *Engine) List() []models.WorkflowExecution {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.WorkflowExecution, 0, len(e.executions))
	for _, st := range e.executions {
		out = append(out, *snapshot(st.exec))
	}
	// Newest first
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func (e *Engine) setStatus(id string, status models.ExecutionStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.executions[id]; ok {
		// Pending is the only state Running may overwrite here; pause or
		// cancel requested before the first step must win.
		if status == models.ExecutionRunning && st.exec.Status != models.ExecutionPending {
			return
		}
		st.exec.Status = status
		st.exec.UpdatedAt = time.Now().UTC()
	}
}

func (e *Engine) setStepStatus(id string, i int, status models.StepStatus, output string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.executions[id]; ok && i < len(st.exec.Steps) {
		st.exec.Steps[i].Status = status
		if output != "" {
			st.exec.Steps[i].Output = output
		}
		st.exec.UpdatedAt = time.Now().UTC()
	}
}

func (e *Engine) skipRemaining(id string, from int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.executions[id]; ok {
		for i := from; i < len(st.exec.Steps); i++ {
			st.exec.Steps[i].Status = models.StepSkipped
		}
		st.exec.UpdatedAt = time.Now().UTC()
	}
}

func (e *Engine) fail(id, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.executions[id]; ok {
		st.exec.Status = models.ExecutionFailed
		st.exec.Error = msg
		st.exec.UpdatedAt = time.Now().UTC()
	}
}

func (e *Engine) complete(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.executions[id]; ok {
		if st.exec.Status == models.ExecutionRunning {
			st.exec.Status = models.ExecutionCompleted
			st.exec.UpdatedAt = time.Now().UTC()
		}
	}
}

func (e *Engine) input(id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.executions[id]; ok {
		return st.exec.Input
	}
	return ""
}

func (e *Engine) snapshotSteps(id string) []models.WorkflowStep {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.executions[id]; ok {
		return append([]models.WorkflowStep(nil), st.exec.Steps...)
	}
	return nil
}

func (e *Engine) invokeHooks(point, id string, i int, agentName string) {
	e.mu.Lock()
	hooks := append([]Hook(nil), e.hooks[point]...)
	e.mu.Unlock()

	for _, h := range hooks {
		h(id, i, agentName)
	}
}

func snapshot(exec *models.WorkflowExecution) *models.WorkflowExecution {
	copy := *exec
	copy.Steps = append([]models.WorkflowStep(nil), exec.Steps...)
	return &copy
}
