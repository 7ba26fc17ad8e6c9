package api

import (
	"context"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/tphakala/ppewatch/internal/logger"
)

// SystemInfo is the host and process snapshot included in health responses
type SystemInfo struct {
	Goroutines        int     `json:"goroutines"`
	MemoryUsedPercent float64 `json:"memory_used_percent,omitempty"`
	ProcessRSSBytes   uint64  `json:"process_rss_bytes,omitempty"`
}

// collectSystemInfo gathers what it can; unavailable figures stay zero.
func (c *Controller) collectSystemInfo(ctx context.Context) *SystemInfo {
	info := &SystemInfo{Goroutines: runtime.NumGoroutine()}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryUsedPercent = vm.UsedPercent
	} else {
		c.log.Debug("virtual memory stats unavailable", logger.Error(err))
	}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())) //nolint:gosec // pid fits in int32
	if err != nil {
		c.log.Debug("process handle unavailable", logger.Error(err))
		return info
	}
	if mi, err := proc.MemoryInfoWithContext(ctx); err == nil {
		info.ProcessRSSBytes = mi.RSS
	}
	return info
}
