// Package controlplane provides the HTTP API and service layer for
// Arbiter.
package controlplane

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arbiter-dev/arbiter/internal/audit"
	"github.com/arbiter-dev/arbiter/internal/clients"
	"github.com/arbiter-dev/arbiter/internal/conflict"
	"github.com/arbiter-dev/arbiter/internal/lockmgr"
	"github.com/arbiter-dev/arbiter/internal/models"
	"github.com/arbiter-dev/arbiter/internal/router"
	"github.com/arbiter-dev/arbiter/internal/store"
	"github.com/arbiter-dev/arbiter/internal/workflow"
)

// Service provides the control plane business logic over the coordination
// components.
type Service struct {
	store     *store.Store
	audit     *audit.Writer
	locks     *lockmgr.Manager
	resolver  *conflict.Resolver
	router    *router.Router
	engine    *workflow.Engine
	knowledge *clients.Knowledge
	codegen   *clients.Codegen
}

// NewService creates a control plane service. knowledge and codegen may be
// nil when those collaborators are not configured.
func NewService(s *store.Store, aud *audit.Writer, locks *lockmgr.Manager, res *conflict.Resolver, rt *router.Router, eng *workflow.Engine, kb *clients.Knowledge, cg *clients.Codegen) *Service {
	return &Service{
		store:     s,
		audit:     aud,
		locks:     locks,
		resolver:  res,
		router:    rt,
		engine:    eng,
		knowledge: kb,
		codegen:   cg,
	}
}

// --- Routing ---

// Route classifies free text, optionally using the session's current
// target for the continuity bonus.
func (s *Service) Route(text string, currentTarget models.Target) models.RouteResult {
	var ctx *router.Context
	if currentTarget != "" {
		ctx = &router.Context{CurrentTarget: currentTarget}
	}
	return s.router.Route(text, ctx)
}

// --- Locks ---

// AcquireLock takes or refreshes a lock. Conflicts surface as
// *lockmgr.ConflictError; callers retry, back off, or force. Force
// overrides bypass arbitration but always leave an audit record.
func (s *Service) AcquireLock(resource, holder string, ttl time.Duration, force bool) (*models.Lock, error) {
	lock, err := s.locks.Acquire(resource, holder, ttl, force)

	outcome := "success"
	if err != nil {
		outcome = "conflict"
	} else if force {
		outcome = "forced"
	}
	s.audit.Record("lock.acquire", holder, resource, map[string]interface{}{"ttl": ttl.String(), "force": force}, outcome)

	return lock, err
}

// ReleaseLock releases a lock held by holder. Returns false when holder
// does not own the live lock.
func (s *Service) ReleaseLock(resource, holder string) (bool, error) {
	released, err := s.locks.Release(resource, holder)
	if err != nil {
		return false, err
	}

	outcome := "denied"
	if released {
		outcome = "success"
	}
	s.audit.Record("lock.release", holder, resource, nil, outcome)
	return released, nil
}

// IsLocked reports the live lock state of a resource.
func (s *Service) IsLocked(resource string) (bool, string, error) {
	return s.locks.IsLocked(resource)
}

// ExtendLock extends the holder's lease. Nil when not the holder.
func (s *Service) ExtendLock(resource, holder string, additional time.Duration) (*models.Lock, error) {
	return s.locks.Extend(resource, holder, additional)
}

// ListLocks lists live locks, optionally prefix-filtered.
func (s *Service) ListLocks(prefix string) ([]models.Lock, error) {
	return s.locks.ListLocks(prefix)
}

// --- Conflicts and permissions ---

// ResolveConflict arbitrates a conflict and records the verdict.
func (s *Service) ResolveConflict(ct models.ConflictType, contenders []models.Identity) models.ConflictResolution {
	res := s.resolver.Resolve(ct, contenders)
	s.audit.Record("conflict.resolve", string(res.Winner), string(ct), contenders, "resolved")
	return res
}

// CheckPermission answers whether identity may perform operation on path.
// Read-only operations are open to every identity; mutating operations go
// through the single-writer policy and protected-path validation.
func (s *Service) CheckPermission(identity models.Identity, path, operation string) models.WritePermission {
	switch operation {
	case "read", "query":
		return models.WritePermission{Allowed: true}
	}

	perm := s.resolver.WritePermission(identity, path)
	if !perm.Allowed {
		s.audit.Record("permission.check", string(identity), path, map[string]string{"operation": operation}, "denied")
	}
	return perm
}

// --- Workflows ---

// RecommendWorkflow selects a tier from scope and complexity.
func (s *Service) RecommendWorkflow(scope models.Scope, complexity models.Complexity) models.Workflow {
	return workflow.Recommend(scope, complexity)
}

// StartWorkflow begins executing a workflow and returns the execution id.
func (s *Service) StartWorkflow(ctx context.Context, w models.Workflow, input string) (string, error) {
	if len(workflow.Recipe(w)) == 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownWorkflow, w)
	}

	id, err := s.engine.Start(ctx, w, input)
	if err != nil {
		return "", err
	}
	s.audit.Record("workflow.start", "controlplane", id, map[string]string{"workflow": string(w)}, "started")
	return id, nil
}

// GetExecution returns a snapshot of an execution.
func (s *Service) GetExecution(id string) (*models.WorkflowExecution, error) {
	exec, ok := s.engine.Get(id)
	if !ok {
		return nil, ErrExecutionNotFound
	}
	return exec, nil
}

// ListExecutions returns snapshots of all executions.
func (s *Service) ListExecutions() []models.WorkflowExecution {
	return s.engine.List()
}

// PauseExecution pauses an in-flight execution at the next step boundary.
func (s *Service) PauseExecution(id string) error {
	return s.transition(id, "pause", s.engine.Pause)
}

// ResumeExecution resumes a paused execution.
func (s *Service) ResumeExecution(id string) error {
	return s.transition(id, "resume", s.engine.Resume)
}

// CancelExecution cancels an execution at the next step boundary.
func (s *Service) CancelExecution(id string) error {
	return s.transition(id, "cancel", s.engine.Cancel)
}

func (s *Service) transition(id, name string, fn func(string) bool) error {
	if _, ok := s.engine.Get(id); !ok {
		return ErrExecutionNotFound
	}
	if !fn(id) {
		return ErrBadTransition
	}
	s.audit.Record("workflow."+name, "controlplane", id, nil, "ok")
	return nil
}

// --- Sync and tasks ---

// Sync bulk-ingests markdown artifacts under dir into the knowledge base.
// Returns the number of documents ingested.
func (s *Service) Sync(dir string) (int, error) {
	if s.knowledge == nil {
		return 0, errors.New("knowledge service not configured")
	}

	count := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".md") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		rel, _ := filepath.Rel(dir, path)
		if _, err := s.knowledge.Ingest(string(data), "artifact", map[string]string{"path": rel}); err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}

	s.audit.Record("sync", "controlplane", dir, map[string]int{"count": count}, "success")
	return count, nil
}

// TaskStatus proxies a task lookup to the knowledge/task service.
func (s *Service) TaskStatus(taskID string) (*clients.Task, error) {
	if s.knowledge == nil {
		return nil, errors.New("knowledge service not configured")
	}
	task, err := s.knowledge.GetTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTaskNotFound, err)
	}
	return task, nil
}

// RecentDecisions returns the newest audit records.
func (s *Service) RecentDecisions(limit int) ([]models.DecisionRecord, error) {
	return s.audit.Recent(limit)
}

// --- Health ---

// Health probes each component and grades it online, offline, degraded,
// or unknown.
func (s *Service) Health(ctx context.Context) map[string]models.ComponentStatus {
	status := map[string]models.ComponentStatus{
		"router":   models.StatusOnline,
		"resolver": models.StatusOnline,
		"workflow": models.StatusOnline,
	}

	if err := s.store.Ping(ctx); err != nil {
		status["lock"] = models.StatusOffline
	} else {
		status["lock"] = models.StatusOnline
	}

	if s.knowledge == nil {
		status["knowledge"] = models.StatusUnknown
	} else {
		status["knowledge"] = probe(ctx, s.knowledge)
	}
	if s.codegen == nil {
		status["codegen"] = models.StatusUnknown
	} else {
		status["codegen"] = probe(ctx, s.codegen)
	}
	return status
}

// prober is satisfied by the collaborator clients.
type prober interface {
	Health(ctx context.Context) error
}

func probe(ctx context.Context, p prober) models.ComponentStatus {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := p.Health(probeCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.StatusDegraded
		}
		return models.StatusOffline
	}
	return models.StatusOnline
}
