package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jobswipe/engine/pkg/models"
)

// RequestStore is the single source of truth for request lifecycle state:
// an arena of requests split into a live set (queued, processing) and a
// historical set (terminal). All mutation happens under one mutex; the
// worker pool and the cancellation path are the only writers.
type RequestStore struct {
	mu      sync.Mutex
	live    map[uuid.UUID]*models.AutomationRequest
	history map[uuid.UUID]*models.AutomationRequest

	completed int
	failed    int
	cancelled int

	totalSubmitted int64
	totalCompleted int64
	totalFailed    int64
}

// NewRequestStore creates an empty store.
func NewRequestStore() *RequestStore {
	return &RequestStore{
		live:    make(map[uuid.UUID]*models.AutomationRequest),
		history: make(map[uuid.UUID]*models.AutomationRequest),
	}
}

// Enqueue admits a new request into the live set with status queued.
func (s *RequestStore) Enqueue(req *models.AutomationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live[req.ID]; ok {
		return ErrDuplicateID
	}
	if _, ok := s.history[req.ID]; ok {
		return ErrDuplicateID
	}

	c := req.Clone()
	c.Status = models.StatusQueued
	if c.QueuedAt.IsZero() {
		c.QueuedAt = time.Now().UTC()
	}
	s.live[c.ID] = c
	s.totalSubmitted++
	return nil
}

// Get returns a copy of the request from the live or historical set.
func (s *RequestStore) Get(id uuid.UUID) (*models.AutomationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.live[id]; ok {
		return r.Clone(), nil
	}
	if r, ok := s.history[id]; ok {
		return r.Clone(), nil
	}
	return nil, ErrNotFound
}

// Claim atomically moves a queued request to processing and stamps
// startedAt. Returns false when the request is not claimable (unknown,
// already claimed by a concurrent tick, or terminal) so callers can skip it.
func (s *RequestStore) Claim(id uuid.UUID) (*models.AutomationRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.live[id]
	if !ok || r.Status != models.StatusQueued {
		return nil, false
	}
	now := time.Now().UTC()
	r.Status = models.StatusProcessing
	r.StartedAt = &now
	return r.Clone(), true
}

// Unclaim rolls back a claim before any execution work began, for example
// when the quota collaborator is unreachable. This is claim rollback, not a
// lifecycle event: it does not consume the one-time desktop handoff.
func (s *RequestStore) Unclaim(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.live[id]
	if !ok || r.Status != models.StatusProcessing {
		return
	}
	r.Status = models.StatusQueued
	r.StartedAt = nil
}

// ReturnForDesktop performs the one-time desktop handoff: the processing
// request goes back to queued, tagged so it is never routed again.
func (s *RequestStore) ReturnForDesktop(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.live[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != models.StatusProcessing {
		return fmt.Errorf("%w: %s -> queued (desktop)", ErrInvalidTransition, r.Status)
	}
	if r.DesktopHandoff {
		return ErrHandoffRepeated
	}
	r.Status = models.StatusQueued
	r.StartedAt = nil
	r.DesktopHandoff = true
	r.ExecutionMode = models.ModeDesktop
	return nil
}

// Transition moves a processing request to a terminal status and relocates
// it to the historical set. The result is mandatory for completed/failed.
// Releasing the processing slot is this transition itself: the processing
// count is derived from live statuses.
func (s *RequestStore) Transition(id uuid.UUID, status models.RequestStatus, result *models.ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.live[id]
	if !ok {
		if _, done := s.history[id]; done {
			return fmt.Errorf("%w: request already terminal", ErrInvalidTransition)
		}
		return ErrNotFound
	}

	switch status {
	case models.StatusCompleted, models.StatusFailed:
		if r.Status != models.StatusProcessing {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, status)
		}
		if result == nil {
			return ErrResultRequired
		}
	case models.StatusCancelled:
		if r.Status != models.StatusQueued {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, status)
		}
		if result != nil {
			return ErrResultForbidden
		}
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, status)
	}

	now := time.Now().UTC()
	r.Status = status
	r.CompletedAt = &now
	r.Result = result

	delete(s.live, id)
	s.history[id] = r

	switch status {
	case models.StatusCompleted:
		s.completed++
		s.totalCompleted++
	case models.StatusFailed:
		s.failed++
		s.totalFailed++
	case models.StatusCancelled:
		s.cancelled++
	}
	return nil
}

// Cancel cancels a queued request owned by the given user. Returns true when
// the request was cancelled; false (with no error) when it is already
// processing or terminal — processing requests cannot be preempted.
func (s *RequestStore) Cancel(id, userID uuid.UUID) (bool, error) {
	s.mu.Lock()

	r, ok := s.live[id]
	if !ok {
		h, done := s.history[id]
		s.mu.Unlock()
		if !done {
			return false, ErrNotFound
		}
		if h.UserID != userID {
			return false, ErrAccessDenied
		}
		return false, nil
	}
	if r.UserID != userID {
		s.mu.Unlock()
		return false, ErrAccessDenied
	}
	if r.Status != models.StatusQueued {
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()

	if err := s.Transition(id, models.StatusCancelled, nil); err != nil {
		// Lost the race against a concurrent claim; surface as not cancellable.
		return false, nil
	}
	return true, nil
}

// ListQueued returns copies of the schedulable queued requests. Requests
// already handed off to the desktop executor stay queued here until that
// executor reports back, but they are not candidates for local dispatch.
func (s *RequestStore) ListQueued() []*models.AutomationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.AutomationRequest
	for _, r := range s.live {
		if r.Status == models.StatusQueued && !r.DesktopHandoff {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Counts reports the lifecycle tallies used by scheduling and metrics.
func (s *RequestStore) Counts() models.RequestCounts {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := models.RequestCounts{
		Completed:      s.completed,
		Failed:         s.failed,
		Cancelled:      s.cancelled,
		TotalSubmitted: s.totalSubmitted,
		TotalCompleted: s.totalCompleted,
		TotalFailed:    s.totalFailed,
	}
	for _, r := range s.live {
		switch r.Status {
		case models.StatusQueued:
			c.Queued++
		case models.StatusProcessing:
			c.Processing++
		}
	}
	return c
}
