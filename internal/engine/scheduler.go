package engine

import (
	"sort"

	"github.com/jobswipe/engine/pkg/models"
)

// Scheduler orders queued requests for dispatch: priority descending, then
// FIFO by queue time within a tier. Selection is non-destructive; the worker
// pool claims candidates atomically, so a concurrent tick seeing the same
// candidate simply loses the claim.
type Scheduler struct {
	store *RequestStore
}

// NewScheduler creates a scheduler over the given store.
func NewScheduler(store *RequestStore) *Scheduler {
	return &Scheduler{store: store}
}

// SelectNext returns up to n dispatch candidates in rank order. Priority is
// fixed at intake; there is no aging, so a low-priority request can wait
// behind a steady stream of higher tiers.
func (s *Scheduler) SelectNext(n int) []*models.AutomationRequest {
	if n <= 0 {
		return nil
	}

	queued := s.store.ListQueued()
	sort.SliceStable(queued, func(i, j int) bool {
		if queued[i].Priority != queued[j].Priority {
			return queued[i].Priority > queued[j].Priority
		}
		return queued[i].QueuedAt.Before(queued[j].QueuedAt)
	})

	if len(queued) > n {
		queued = queued[:n]
	}
	return queued
}
