package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jobswipe/engine/pkg/models"
)

// QuotaService charges one unit of server-side execution allowance. The
// check and the consume are one atomic operation on the collaborator side.
type QuotaService interface {
	CheckAndConsume(ctx context.Context, userID uuid.UUID) (bool, error)
}

// ExecutionRouter decides where a claimed request executes. Within quota the
// request runs in this process; over quota it is handed off to the user's
// desktop executor.
type ExecutionRouter struct {
	quota QuotaService
}

// NewExecutionRouter creates a router backed by the given quota service.
func NewExecutionRouter(quota QuotaService) *ExecutionRouter {
	return &ExecutionRouter{quota: quota}
}

// ResolveMode performs the quota check for one request. A request that
// already carries the desktop tag must not be routed again; that is a
// scheduling invariant violation.
func (r *ExecutionRouter) ResolveMode(ctx context.Context, req *models.AutomationRequest) (models.ExecutionMode, error) {
	if req.DesktopHandoff {
		return "", fmt.Errorf("%w: request %s re-entered the router after desktop handoff", ErrInvalidTransition, req.ID)
	}

	allowed, err := r.quota.CheckAndConsume(ctx, req.UserID)
	if err != nil {
		return "", fmt.Errorf("quota check: %w", err)
	}
	if allowed {
		return models.ModeServer, nil
	}
	return models.ModeDesktop, nil
}
