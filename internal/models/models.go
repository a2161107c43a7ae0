// Package models defines the core domain types for Arbiter.
package models

import "time"

// Identity names a subsystem or privileged role participating in
// coordination decisions.
type Identity string

const (
	IdentityPlanner   Identity = "planner"
	IdentityKnowledge Identity = "knowledge"
	IdentityCoder     Identity = "coder"
	IdentityValidator Identity = "validator"
	IdentitySecurity  Identity = "security"
)

// Target is the subsystem a routed request should be dispatched to.
type Target string

const (
	TargetPlanner   Target = "planner"
	TargetKnowledge Target = "knowledge"
	TargetCoder     Target = "coder"
	TargetMeta      Target = "meta"
)

// ConflictType categorizes a contested operation.
type ConflictType string

const (
	ConflictFileCreation     ConflictType = "file-creation"
	ConflictFileModification ConflictType = "file-modification"
	ConflictDocumentation    ConflictType = "documentation"
	ConflictKnowledgeUpdate  ConflictType = "knowledge-base-update"
	ConflictTaskStatusChange ConflictType = "task-status-change"
	ConflictCodeValidation   ConflictType = "code-validation"
)

// ProtectionLevel classifies how sensitive a resource path is.
type ProtectionLevel string

const (
	ProtectionCritical  ProtectionLevel = "critical"
	ProtectionImportant ProtectionLevel = "important"
)

// Lock is a lease on a named resource held by a single identity.
type Lock struct {
	Resource   string    `json:"resource"`
	Holder     string    `json:"holder"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Remaining returns the time left on the lease, floored at zero.
func (l *Lock) Remaining(now time.Time) time.Duration {
	if now.After(l.ExpiresAt) {
		return 0
	}
	return l.ExpiresAt.Sub(now)
}

// Expired reports whether the lease has lapsed.
func (l *Lock) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// ConflictResolution is the verdict of an arbitration call. It is a value
// object produced fresh per call and never mutated.
type ConflictResolution struct {
	ConflictType ConflictType `json:"conflict_type"`
	Contenders   []Identity   `json:"contenders"`
	Winner       Identity     `json:"winner"`
	Losers       []Identity   `json:"losers"`
	VetoPossible bool         `json:"veto_possible"`
	VetoBy       []Identity   `json:"veto_by,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

// WritePermission is the derived answer to "may this identity write here".
type WritePermission struct {
	Allowed            bool       `json:"allowed"`
	RequiresValidation bool       `json:"requires_validation"`
	Validators         []Identity `json:"validators,omitempty"`
}

// RouteResult is the outcome of classifying a free-text request.
type RouteResult struct {
	Target     Target  `json:"target"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// AgentStatus is the outcome of a single agent execution.
type AgentStatus string

const (
	AgentSuccess AgentStatus = "success"
	AgentError   AgentStatus = "error"
)

// AgentResult is produced once per agent execution and is immutable.
type AgentResult struct {
	Agent      string            `json:"agent"`
	Status     AgentStatus       `json:"status"`
	Output     string            `json:"output"`
	DurationMs int64             `json:"duration_ms"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Workflow names a fixed recipe of agent steps.
type Workflow string

const (
	WorkflowQuick      Workflow = "quick"
	WorkflowFeature    Workflow = "feature"
	WorkflowMethod     Workflow = "method"
	WorkflowEnterprise Workflow = "enterprise"
)

// Scope describes the kind of change a caller intends.
type Scope string

const (
	ScopeBugfix     Scope = "bugfix"
	ScopeHotfix     Scope = "hotfix"
	ScopeFeature    Scope = "feature"
	ScopeGreenfield Scope = "greenfield"
)

// Complexity grades how involved the intended change is.
type Complexity string

const (
	ComplexitySimple     Complexity = "simple"
	ComplexityModerate   Complexity = "moderate"
	ComplexityComplex    Complexity = "complex"
	ComplexityEnterprise Complexity = "enterprise"
)

// ExecutionStatus is the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionPaused    ExecutionStatus = "paused"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// StepStatus is the lifecycle state of a single workflow step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// WorkflowStep is one agent invocation inside an execution.
type WorkflowStep struct {
	Agent  string     `json:"agent"`
	Status StepStatus `json:"status"`
	Output string     `json:"output,omitempty"`
}

// WorkflowExecution tracks one run of a workflow recipe. Owned exclusively
// by the workflow engine's in-memory execution table.
type WorkflowExecution struct {
	ID        string          `json:"id"`
	Workflow  Workflow        `json:"workflow"`
	Input     string          `json:"input"`
	Steps     []WorkflowStep  `json:"steps"`
	Status    ExecutionStatus `json:"status"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ComponentStatus is a coarse reachability grade for health reporting.
type ComponentStatus string

const (
	StatusOnline   ComponentStatus = "online"
	StatusOffline  ComponentStatus = "offline"
	StatusDegraded ComponentStatus = "degraded"
	StatusUnknown  ComponentStatus = "unknown"
)

// DecisionRecord is an audit entry for a coordination decision.
type DecisionRecord struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Actor     string    `json:"actor"`
	Resource  string    `json:"resource,omitempty"`
	Outcome   string    `json:"outcome"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
