package controlplane

import "errors"

// Sentinel errors for control plane operations.
var (
	ErrExecutionNotFound = errors.New("execution not found")
	ErrTaskNotFound      = errors.New("task not found")
	ErrBadTransition     = errors.New("execution not in a state that allows this transition")
	ErrUnknownWorkflow   = errors.New("unknown workflow")
)
