package adapter

import (
	"github.com/jobswipe/engine/internal/adapter/runner"
	"github.com/jobswipe/engine/internal/config"
)

// NewRunnerRegistry builds the production registry: every supported platform
// plus the generic fallback delegates to the automation-runner service.
// Called once at server startup.
func NewRunnerRegistry(cfg config.RunnerConfig) *Registry {
	reg := NewRegistry(runner.NewProvider(PlatformGeneric, cfg))
	for _, platform := range []string{
		PlatformLinkedIn,
		PlatformGreenhouse,
		PlatformLever,
		PlatformWorkday,
		PlatformIndeed,
		PlatformBambooHR,
	} {
		reg.Register(platform, runner.NewProvider(platform, cfg))
	}
	return reg
}
