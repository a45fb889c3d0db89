package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func RateLimitKey(userID string) string {
	return fmt.Sprintf("ratelimit:%s", userID)
}

// QuotaKey buckets server-side execution allowance per user per period start.
func QuotaKey(userID uuid.UUID, periodStart string) string {
	return fmt.Sprintf("quota:server:%s:%s", userID, periodStart)
}

func DesktopQueueKey() string {
	return "automation:desktop:queue"
}

func EventsChannel() string {
	return "automation:events"
}
