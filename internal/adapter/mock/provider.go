// Package mock provides ExecutionAdapter doubles for tests.
package mock

import (
	"context"
	"time"

	"github.com/jobswipe/engine/pkg/models"
)

// MockAdapter satisfies models.ExecutionAdapter for testing.
type MockAdapter struct {
	Name_       string
	ExecuteFunc func(ctx context.Context, req *models.AutomationRequest) (*models.ExecutionResult, error)
}

func (m *MockAdapter) Name() string { return m.Name_ }

func (m *MockAdapter) Execute(ctx context.Context, req *models.AutomationRequest) (*models.ExecutionResult, error) {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, req)
	}
	return &models.ExecutionResult{Success: true}, nil
}

// NewMockAdapter returns an adapter that succeeds with a confirmation.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		Name_: "mock",
		ExecuteFunc: func(_ context.Context, req *models.AutomationRequest) (*models.ExecutionResult, error) {
			return &models.ExecutionResult{
				Success:      true,
				Message:      "application submitted",
				Confirmation: "MOCK-" + req.ID.String()[:8],
				DurationMs:   1200,
				Platform:     "mock",
			}, nil
		},
	}
}

// NewFailingAdapter returns an adapter that always returns the given error.
func NewFailingAdapter(err error) *MockAdapter {
	return &MockAdapter{
		Name_: "mock-failing",
		ExecuteFunc: func(_ context.Context, _ *models.AutomationRequest) (*models.ExecutionResult, error) {
			return nil, err
		},
	}
}

// NewRejectedAdapter returns an adapter that completes without error but
// reports an unsuccessful application.
func NewRejectedAdapter(reason string) *MockAdapter {
	return &MockAdapter{
		Name_: "mock-rejected",
		ExecuteFunc: func(_ context.Context, _ *models.AutomationRequest) (*models.ExecutionResult, error) {
			return &models.ExecutionResult{Success: false, Error: reason}, nil
		},
	}
}

// NewBlockingAdapter returns an adapter that blocks until ctx is cancelled.
func NewBlockingAdapter() *MockAdapter {
	return &MockAdapter{
		Name_: "mock-blocking",
		ExecuteFunc: func(ctx context.Context, _ *models.AutomationRequest) (*models.ExecutionResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
}

// NewSlowAdapter returns an adapter that succeeds after d.
func NewSlowAdapter(d time.Duration) *MockAdapter {
	return &MockAdapter{
		Name_: "mock-slow",
		ExecuteFunc: func(ctx context.Context, _ *models.AutomationRequest) (*models.ExecutionResult, error) {
			select {
			case <-time.After(d):
				return &models.ExecutionResult{Success: true, DurationMs: d.Milliseconds()}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
}

// Compile-time check that MockAdapter implements ExecutionAdapter.
var _ models.ExecutionAdapter = (*MockAdapter)(nil)
