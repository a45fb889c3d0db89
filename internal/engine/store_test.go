package engine

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobswipe/engine/pkg/models"
)

func newQueuedRequest(userID uuid.UUID) *models.AutomationRequest {
	return &models.AutomationRequest{
		ID:     uuid.New(),
		UserID: userID,
		Job: models.JobReference{
			Title:   "Backend Engineer",
			Company: "Acme",
			URL:     "https://boards.greenhouse.io/acme/jobs/1",
		},
		Profile: models.ProfileSnapshot{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
		},
		Priority:      10,
		Status:        models.StatusQueued,
		ExecutionMode: models.ModeServer,
	}
}

func TestEnqueue_RejectsDuplicateID(t *testing.T) {
	s := NewRequestStore()
	req := newQueuedRequest(uuid.New())

	require.NoError(t, s.Enqueue(req))
	assert.ErrorIs(t, s.Enqueue(req), ErrDuplicateID)
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := NewRequestStore()
	req := newQueuedRequest(uuid.New())
	require.NoError(t, s.Enqueue(req))

	got, err := s.Get(req.ID)
	require.NoError(t, err)

	// Mutating the returned value must not touch store state.
	got.Status = models.StatusFailed
	again, err := s.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQueued, again.Status)
}

func TestGet_UnknownID(t *testing.T) {
	s := NewRequestStore()
	_, err := s.Get(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClaim_MovesQueuedToProcessing(t *testing.T) {
	s := NewRequestStore()
	req := newQueuedRequest(uuid.New())
	require.NoError(t, s.Enqueue(req))

	claimed, ok := s.Claim(req.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusProcessing, claimed.Status)
	require.NotNil(t, claimed.StartedAt)

	// A second claim of the same request must lose.
	_, ok = s.Claim(req.ID)
	assert.False(t, ok)
}

func TestClaim_ConcurrentClaimersGetOneWinner(t *testing.T) {
	s := NewRequestStore()
	req := newQueuedRequest(uuid.New())
	require.NoError(t, s.Enqueue(req))

	const claimers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.Claim(req.ID); ok {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	var count int
	for range wins {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestUnclaim_ReturnsClaimToQueue(t *testing.T) {
	s := NewRequestStore()
	req := newQueuedRequest(uuid.New())
	require.NoError(t, s.Enqueue(req))

	_, ok := s.Claim(req.ID)
	require.True(t, ok)

	s.Unclaim(req.ID)

	got, err := s.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQueued, got.Status)
	assert.Nil(t, got.StartedAt)
	assert.False(t, got.DesktopHandoff)

	// Claimable again.
	_, ok = s.Claim(req.ID)
	assert.True(t, ok)
}

func TestTransition_LegalGraph(t *testing.T) {
	result := &models.ExecutionResult{Success: true, DurationMs: 1200}

	t.Run("processing to completed", func(t *testing.T) {
		s := NewRequestStore()
		req := newQueuedRequest(uuid.New())
		require.NoError(t, s.Enqueue(req))
		_, ok := s.Claim(req.ID)
		require.True(t, ok)

		require.NoError(t, s.Transition(req.ID, models.StatusCompleted, result))
		got, err := s.Get(req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
		require.NotNil(t, got.CompletedAt)
		require.NotNil(t, got.Result)
	})

	t.Run("processing to failed", func(t *testing.T) {
		s := NewRequestStore()
		req := newQueuedRequest(uuid.New())
		require.NoError(t, s.Enqueue(req))
		_, ok := s.Claim(req.ID)
		require.True(t, ok)

		require.NoError(t, s.Transition(req.ID, models.StatusFailed,
			&models.ExecutionResult{Success: false, Error: "form changed"}))
	})

	t.Run("queued to completed is illegal", func(t *testing.T) {
		s := NewRequestStore()
		req := newQueuedRequest(uuid.New())
		require.NoError(t, s.Enqueue(req))

		err := s.Transition(req.ID, models.StatusCompleted, result)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("terminal requests never move again", func(t *testing.T) {
		s := NewRequestStore()
		req := newQueuedRequest(uuid.New())
		require.NoError(t, s.Enqueue(req))
		_, ok := s.Claim(req.ID)
		require.True(t, ok)
		require.NoError(t, s.Transition(req.ID, models.StatusCompleted, result))

		err := s.Transition(req.ID, models.StatusFailed,
			&models.ExecutionResult{Success: false})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestTransition_ResultPresenceMatchesStatus(t *testing.T) {
	t.Run("completed without result rejected", func(t *testing.T) {
		s := NewRequestStore()
		req := newQueuedRequest(uuid.New())
		require.NoError(t, s.Enqueue(req))
		_, ok := s.Claim(req.ID)
		require.True(t, ok)

		assert.ErrorIs(t, s.Transition(req.ID, models.StatusCompleted, nil), ErrResultRequired)
	})

	t.Run("cancelled with result rejected", func(t *testing.T) {
		s := NewRequestStore()
		req := newQueuedRequest(uuid.New())
		require.NoError(t, s.Enqueue(req))

		err := s.Transition(req.ID, models.StatusCancelled,
			&models.ExecutionResult{Success: false})
		assert.ErrorIs(t, err, ErrResultForbidden)
	})
}

func TestReturnForDesktop_HappensAtMostOnce(t *testing.T) {
	s := NewRequestStore()
	req := newQueuedRequest(uuid.New())
	require.NoError(t, s.Enqueue(req))
	_, ok := s.Claim(req.ID)
	require.True(t, ok)

	require.NoError(t, s.ReturnForDesktop(req.ID))

	got, err := s.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQueued, got.Status)
	assert.True(t, got.DesktopHandoff)
	assert.Equal(t, models.ModeDesktop, got.ExecutionMode)

	// The handed-off request must never be locally schedulable again.
	assert.Empty(t, s.ListQueued())

	// A second handoff is an invariant violation.
	_, ok = s.Claim(req.ID)
	require.True(t, ok)
	assert.ErrorIs(t, s.ReturnForDesktop(req.ID), ErrHandoffRepeated)
}

func TestCancel_Semantics(t *testing.T) {
	owner := uuid.New()

	t.Run("queued request cancels", func(t *testing.T) {
		s := NewRequestStore()
		req := newQueuedRequest(owner)
		require.NoError(t, s.Enqueue(req))

		cancelled, err := s.Cancel(req.ID, owner)
		require.NoError(t, err)
		assert.True(t, cancelled)

		got, err := s.Get(req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)
		assert.Nil(t, got.Result)
	})

	t.Run("processing request is not preempted", func(t *testing.T) {
		s := NewRequestStore()
		req := newQueuedRequest(owner)
		require.NoError(t, s.Enqueue(req))
		_, ok := s.Claim(req.ID)
		require.True(t, ok)

		cancelled, err := s.Cancel(req.ID, owner)
		require.NoError(t, err)
		assert.False(t, cancelled)

		got, err := s.Get(req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusProcessing, got.Status)
	})

	t.Run("terminal request reports false without error", func(t *testing.T) {
		s := NewRequestStore()
		req := newQueuedRequest(owner)
		require.NoError(t, s.Enqueue(req))
		cancelled, err := s.Cancel(req.ID, owner)
		require.NoError(t, err)
		require.True(t, cancelled)

		// Second cancel of the now-cancelled request.
		cancelled, err = s.Cancel(req.ID, owner)
		require.NoError(t, err)
		assert.False(t, cancelled)
	})

	t.Run("wrong owner is denied", func(t *testing.T) {
		s := NewRequestStore()
		req := newQueuedRequest(owner)
		require.NoError(t, s.Enqueue(req))

		_, err := s.Cancel(req.ID, uuid.New())
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("unknown request", func(t *testing.T) {
		s := NewRequestStore()
		_, err := s.Cancel(uuid.New(), owner)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCounts_TracksLifecycle(t *testing.T) {
	s := NewRequestStore()
	owner := uuid.New()

	a := newQueuedRequest(owner)
	b := newQueuedRequest(owner)
	c := newQueuedRequest(owner)
	require.NoError(t, s.Enqueue(a))
	require.NoError(t, s.Enqueue(b))
	require.NoError(t, s.Enqueue(c))

	_, ok := s.Claim(a.ID)
	require.True(t, ok)
	require.NoError(t, s.Transition(a.ID, models.StatusCompleted,
		&models.ExecutionResult{Success: true}))

	_, ok = s.Claim(b.ID)
	require.True(t, ok)

	counts := s.Counts()
	assert.Equal(t, 1, counts.Queued)
	assert.Equal(t, 1, counts.Processing)
	assert.Equal(t, 1, counts.Completed)
	assert.Equal(t, int64(3), counts.TotalSubmitted)
	assert.Equal(t, int64(1), counts.TotalCompleted)
	assert.Equal(t, int64(0), counts.TotalFailed)
}
