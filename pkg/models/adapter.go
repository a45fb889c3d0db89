package models

import "context"

// ExecutionAdapter executes one job application end to end on a specific
// platform: an opaque, potentially slow, fallible collaborator. A nil error
// with Success=false is a normal automation failure; an error is an
// execution fault. Implementations must honor ctx cancellation.
type ExecutionAdapter interface {
	Name() string
	Execute(ctx context.Context, req *AutomationRequest) (*ExecutionResult, error)
}
