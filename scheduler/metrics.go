package scheduler

import (
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemMetrics is a point-in-time snapshot of host memory pressure,
// attached to pass logs so overloaded hosts are visible in the timeline
type SystemMetrics struct {
	MemoryUsedGB  float64
	MemoryTotalGB float64
	MemoryPercent float64
}

// CollectSystemMetrics samples current memory usage. Collection failures
// yield a zero snapshot; metrics never block a pass.
func CollectSystemMetrics() SystemMetrics {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return SystemMetrics{}
	}
	const gb = 1024 * 1024 * 1024
	return SystemMetrics{
		MemoryUsedGB:  float64(vm.Used) / gb,
		MemoryTotalGB: float64(vm.Total) / gb,
		MemoryPercent: vm.UsedPercent,
	}
}
