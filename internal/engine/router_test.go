package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobswipe/engine/pkg/models"
)

type quotaFunc func(ctx context.Context, userID uuid.UUID) (bool, error)

func (f quotaFunc) CheckAndConsume(ctx context.Context, userID uuid.UUID) (bool, error) {
	return f(ctx, userID)
}

func TestResolveMode_WithinQuota(t *testing.T) {
	r := NewExecutionRouter(quotaFunc(func(context.Context, uuid.UUID) (bool, error) {
		return true, nil
	}))

	mode, err := r.ResolveMode(context.Background(), newQueuedRequest(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, models.ModeServer, mode)
}

func TestResolveMode_OverQuota(t *testing.T) {
	r := NewExecutionRouter(quotaFunc(func(context.Context, uuid.UUID) (bool, error) {
		return false, nil
	}))

	mode, err := r.ResolveMode(context.Background(), newQueuedRequest(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, models.ModeDesktop, mode)
}

func TestResolveMode_QuotaUnreachable(t *testing.T) {
	boom := errors.New("redis down")
	r := NewExecutionRouter(quotaFunc(func(context.Context, uuid.UUID) (bool, error) {
		return false, boom
	}))

	_, err := r.ResolveMode(context.Background(), newQueuedRequest(uuid.New()))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidTransition)
}

func TestResolveMode_RejectsHandedOffRequest(t *testing.T) {
	var called bool
	r := NewExecutionRouter(quotaFunc(func(context.Context, uuid.UUID) (bool, error) {
		called = true
		return true, nil
	}))

	req := newQueuedRequest(uuid.New())
	req.DesktopHandoff = true

	_, err := r.ResolveMode(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.False(t, called, "quota must not be charged for a handed-off request")
}
