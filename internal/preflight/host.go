package preflight

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// minFreeBytes is the free space below which the work directory check fails.
// Segments of a split encode need about the target size twice over.
const minFreeBytes = 1 << 30

// CheckHost reports CPU and memory. Both results are optional.
func CheckHost(ctx context.Context) []Result {
	return []Result{checkCPU(ctx), checkMemory(ctx)}
}

func checkCPU(ctx context.Context) Result {
	result := Result{Name: "CPU", Optional: true}
	logical, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		result.Detail = fmt.Sprintf("unavailable (%v)", err)
		return result
	}
	model := ""
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		model = strings.TrimSpace(infos[0].ModelName)
	}
	result.Passed = true
	if model != "" {
		result.Detail = fmt.Sprintf("%s, %d logical cores", model, logical)
	} else {
		result.Detail = fmt.Sprintf("%d logical cores", logical)
	}
	return result
}

func checkMemory(ctx context.Context) Result {
	result := Result{Name: "Memory", Optional: true}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		result.Detail = fmt.Sprintf("unavailable (%v)", err)
		return result
	}
	result.Passed = true
	result.Detail = fmt.Sprintf("%s available of %s", humanize.IBytes(vm.Available), humanize.IBytes(vm.Total))
	return result
}

// CheckDiskSpace fails when the filesystem holding path has less than
// minFree bytes free.
func CheckDiskSpace(ctx context.Context, name, path string, minFree uint64) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	detail := fmt.Sprintf("%s free of %s", humanize.IBytes(usage.Free), humanize.IBytes(usage.Total))
	if usage.Free < minFree {
		return Result{Name: name, Detail: fmt.Sprintf("%s (need at least %s)", detail, humanize.IBytes(minFree))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
