// Package adapter resolves and executes per-platform job application
// automations. The engine treats adapters as opaque collaborators; the real
// browser work happens in an external automation-runner service.
package adapter

import (
	"strings"

	"github.com/jobswipe/engine/pkg/models"
)

// Platform identifiers, detected from the job posting URL.
const (
	PlatformLinkedIn   = "linkedin"
	PlatformGreenhouse = "greenhouse"
	PlatformLever      = "lever"
	PlatformWorkday    = "workday"
	PlatformIndeed     = "indeed"
	PlatformBambooHR   = "bamboohr"
	PlatformGeneric    = "generic"
)

// DetectPlatform maps a job/apply URL to the ATS platform serving it.
// Unknown hosts fall back to the generic automation.
func DetectPlatform(jobURL string) string {
	u := strings.ToLower(jobURL)
	switch {
	case strings.Contains(u, "linkedin.com"):
		return PlatformLinkedIn
	case strings.Contains(u, "greenhouse.io"):
		return PlatformGreenhouse
	case strings.Contains(u, "lever.co"):
		return PlatformLever
	case strings.Contains(u, "myworkdayjobs.com"), strings.Contains(u, "workday.com"):
		return PlatformWorkday
	case strings.Contains(u, "indeed.com"):
		return PlatformIndeed
	case strings.Contains(u, "bamboohr.com"):
		return PlatformBambooHR
	default:
		return PlatformGeneric
	}
}

// Registry maps platforms to their execution adapters.
type Registry struct {
	adapters map[string]models.ExecutionAdapter
	fallback models.ExecutionAdapter
}

// NewRegistry creates a registry with the given generic fallback.
func NewRegistry(fallback models.ExecutionAdapter) *Registry {
	return &Registry{
		adapters: make(map[string]models.ExecutionAdapter),
		fallback: fallback,
	}
}

// Register binds an adapter to a platform identifier.
func (r *Registry) Register(platform string, a models.ExecutionAdapter) {
	r.adapters[platform] = a
}

// Resolve returns the adapter for the job URL's platform, or the generic
// fallback when no specific automation exists.
func (r *Registry) Resolve(jobURL string) models.ExecutionAdapter {
	if a, ok := r.adapters[DetectPlatform(jobURL)]; ok {
		return a
	}
	return r.fallback
}

// Supported lists the platforms with a specific automation registered.
func (r *Registry) Supported() []string {
	out := make([]string, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	return out
}

// IsSupported reports whether a job URL has a platform-specific automation.
func (r *Registry) IsSupported(jobURL string) bool {
	_, ok := r.adapters[DetectPlatform(jobURL)]
	return ok
}
