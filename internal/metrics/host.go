package metrics

import (
	"context"
	"log/slog"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/jobswipe/engine/pkg/models"
)

// sampleHost reads current memory and CPU utilization. Failures degrade to
// zero readings rather than blocking a metrics tick.
func sampleHost(ctx context.Context) models.HostStats {
	var stats models.HostStats

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemoryPercent = vm.UsedPercent
	} else {
		slog.Debug("sample host memory", "error", err)
	}

	// Instantaneous sample since the previous call.
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		stats.CPUPercent = pct[0]
	} else if err != nil {
		slog.Debug("sample host cpu", "error", err)
	}

	return stats
}
