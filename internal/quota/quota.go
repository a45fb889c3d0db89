// Package quota accounts server-side execution allowance per user.
package quota

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobswipe/engine/internal/cache"
)

// Redis charges allowance against per-user counters bucketed by period
// start, so every user's allowance resets on the same boundary. The check
// and the consume are one pipelined operation.
type Redis struct {
	cache  cache.Cache
	limit  int64
	period time.Duration
}

// NewRedis creates a Redis-backed quota service.
func NewRedis(c cache.Cache, limit int, period time.Duration) *Redis {
	if period <= 0 {
		period = 24 * time.Hour
	}
	return &Redis{cache: c, limit: int64(limit), period: period}
}

func (q *Redis) CheckAndConsume(ctx context.Context, userID uuid.UUID) (bool, error) {
	periodStart := time.Now().UTC().Truncate(q.period).Format("2006-01-02T15")
	key := cache.QuotaKey(userID, periodStart)
	return q.cache.ConsumeQuota(ctx, key, q.limit, q.period)
}

// Memory is an in-process quota service for tests and single-node setups.
type Memory struct {
	mu     sync.Mutex
	limit  int64
	counts map[uuid.UUID]int64
}

// NewMemory creates a memory-backed quota service with the given limit.
// It never resets; tests construct a fresh one per scenario.
func NewMemory(limit int) *Memory {
	return &Memory{limit: int64(limit), counts: make(map[uuid.UUID]int64)}
}

func (q *Memory) CheckAndConsume(_ context.Context, userID uuid.UUID) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.counts[userID] >= q.limit {
		return false, nil
	}
	q.counts[userID]++
	return true, nil
}
