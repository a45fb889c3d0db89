package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/jobswipe/engine/internal/api/response"
)

type contextKey string

const userIDKey contextKey = "user_id"

// SetUserID stores the caller identity on the context (exported for tests).
func SetUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// GetUserID returns the caller identity set by the Identity middleware.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(userIDKey).(uuid.UUID)
	return id, ok
}

// Identity extracts the caller from the X-User-ID header set by the gateway
// in front of this service. Requests without a valid identity are rejected.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			response.Error(w, http.StatusUnauthorized, "MISSING_IDENTITY",
				"X-User-ID header is required", nil)
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "INVALID_IDENTITY",
				"X-User-ID must be a valid UUID", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(SetUserID(r.Context(), id)))
	})
}
