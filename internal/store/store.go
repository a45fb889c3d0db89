package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jobswipe/engine/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// Store is the durable archive of terminal requests. The engine's in-memory
// request store remains the source of truth for live state; this history
// backs reporting and survives restarts.
type Store interface {
	Ping(ctx context.Context) error
	ArchiveRequest(ctx context.Context, req *models.AutomationRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (*models.AutomationRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]*models.AutomationRequest, int, error)
}

// RequestFilter narrows and pages an archive listing.
type RequestFilter struct {
	UserID uuid.UUID
	Status models.RequestStatus
	Page   int
	Limit  int
}
