package handler

import (
	"net/http"

	"github.com/jobswipe/engine/internal/adapter"
	"github.com/jobswipe/engine/internal/api/response"
)

// NewPlatformsHandler returns an http.HandlerFunc for GET /api/v1/platforms,
// which lists the job platforms with a dedicated automation adapter.
func NewPlatformsHandler(registry *adapter.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, map[string]any{
			"platforms": registry.Supported(),
		})
	}
}
