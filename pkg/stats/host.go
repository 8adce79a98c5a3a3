package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostSpecs describes the machine a benchmark ran on.
type HostSpecs struct {
	Architecture string `yaml:"architecture"`
	Platform     string `yaml:"platform"`
	CPUCores     int    `yaml:"cpu_cores"`
	RAMGB        int    `yaml:"ram_gb"`
	RAMBytes     uint64 `yaml:"ram_bytes,omitempty"`
}

// CollectHostSpecs probes the current host. Probes that fail fall back to
// the Go runtime's view; their errors are returned joined alongside the
// usable specs.
func CollectHostSpecs(ctx context.Context) (HostSpecs, error) {
	specs := HostSpecs{
		Architecture: runtime.GOARCH,
		Platform:     runtime.GOOS,
		CPUCores:     runtime.NumCPU(),
	}

	var errs []error

	if info, err := host.InfoWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("host info: %w", err))
	} else {
		if info.KernelArch != "" {
			specs.Architecture = info.KernelArch
		}
		if info.OS != "" {
			specs.Platform = info.OS
		}
	}

	if cores, err := cpu.CountsWithContext(ctx, true); err != nil {
		errs = append(errs, fmt.Errorf("cpu count: %w", err))
	} else if cores > 0 {
		specs.CPUCores = cores
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("virtual memory: %w", err))
	} else {
		specs.RAMBytes = vm.Total
		specs.RAMGB = RoundGB(vm.Total)
	}

	return specs, errors.Join(errs...)
}

// RoundGB converts a byte count to whole gibibytes, rounding to nearest.
func RoundGB(bytes uint64) int {
	return int(math.Round(float64(bytes) / (1 << 30)))
}
