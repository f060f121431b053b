// Package collector samples the local host with gopsutil and produces wire
// frames for the reference producer.
package collector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/rileyhilliard/stylesync/internal/logger"
	"github.com/rileyhilliard/stylesync/internal/snapshot"
)

// Sampler produces metric frames and process listings.
type Sampler interface {
	Sample(ctx context.Context) (snapshot.Frame, error)
	Processes(ctx context.Context) ([]Process, error)
}

// Process is one entry of the /services listing.
type Process struct {
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float32 `json:"memory_percent"`
}

// HostSampler reads metrics for the machine it runs on.
type HostSampler struct {
	// DiskPath is the filesystem reported in the disk section.
	DiskPath string
	// CPUInterval is passed to cpu.Percent. Zero compares against the
	// previous call, which is what a periodic sampler wants.
	CPUInterval time.Duration
	// MaxProcesses limits Processes output; zero means no limit.
	MaxProcesses int

	now func() time.Time
	log logger.Logger
}

// NewHostSampler creates a sampler for diskPath (default "/") and primes the
// CPU counters so the first Sample reports a meaningful value.
func NewHostSampler(diskPath string, log logger.Logger) *HostSampler {
	if diskPath == "" {
		diskPath = "/"
	}
	if log == nil {
		log = logger.Noop()
	}
	if _, err := cpu.Percent(0, false); err != nil {
		log.Debug("priming cpu counters: %v", err)
	}
	return &HostSampler{
		DiskPath: diskPath,
		now:      time.Now,
		log:      log,
	}
}

// Sample collects CPU, memory, disk and network counters into one frame.
func (h *HostSampler) Sample(ctx context.Context) (snapshot.Frame, error) {
	percents, err := cpu.PercentWithContext(ctx, h.CPUInterval, false)
	if err != nil {
		return snapshot.Frame{}, fmt.Errorf("cpu usage: %w", err)
	}
	if len(percents) == 0 {
		return snapshot.Frame{}, fmt.Errorf("cpu usage: no data")
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return snapshot.Frame{}, fmt.Errorf("memory usage: %w", err)
	}

	du, err := disk.UsageWithContext(ctx, h.DiskPath)
	if err != nil {
		return snapshot.Frame{}, fmt.Errorf("disk usage for %s: %w", h.DiskPath, err)
	}

	frame := snapshot.Frame{
		CPUPercent: &percents[0],
		Memory: &snapshot.MemoryFrame{
			Total:     u64(vm.Total),
			Available: u64(vm.Available),
			Percent:   &vm.UsedPercent,
			Used:      u64(vm.Used),
			Free:      u64(vm.Free),
		},
		Disk: &snapshot.DiskFrame{
			Total:   u64(du.Total),
			Used:    u64(du.Used),
			Free:    u64(du.Free),
			Percent: &du.UsedPercent,
		},
	}

	// network counters are optional in the wire format
	if counters, err := net.IOCountersWithContext(ctx, false); err != nil {
		h.log.Debug("network counters: %v", err)
	} else if len(counters) > 0 {
		frame.Network = &snapshot.NetworkFrame{
			BytesSent:   counters[0].BytesSent,
			BytesRecv:   counters[0].BytesRecv,
			PacketsSent: counters[0].PacketsSent,
			PacketsRecv: counters[0].PacketsRecv,
		}
	}

	ts := h.now().Format(snapshot.TimestampLayout)
	frame.Timestamp = &ts
	return frame, nil
}

// Processes lists running processes ordered by CPU usage, highest first.
// Processes that vanish or deny access mid-scan are skipped.
func (h *HostSampler) Processes(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		entry := Process{PID: p.Pid, Name: name}

		if status, err := p.StatusWithContext(ctx); err == nil {
			entry.Status = strings.Join(status, ",")
		}
		if cpuPct, err := p.CPUPercentWithContext(ctx); err == nil {
			entry.CPUPercent = cpuPct
		}
		if memPct, err := p.MemoryPercentWithContext(ctx); err == nil {
			entry.MemoryPercent = memPct
		}
		out = append(out, entry)
	}

	SortProcesses(out)
	if h.MaxProcesses > 0 && len(out) > h.MaxProcesses {
		out = out[:h.MaxProcesses]
	}
	return out, nil
}

// SortProcesses orders by CPU descending, then memory descending, then PID.
func SortProcesses(procs []Process) {
	sort.SliceStable(procs, func(i, j int) bool {
		a, b := procs[i], procs[j]
		if a.CPUPercent != b.CPUPercent {
			return a.CPUPercent > b.CPUPercent
		}
		if a.MemoryPercent != b.MemoryPercent {
			return a.MemoryPercent > b.MemoryPercent
		}
		return a.PID < b.PID
	})
}

func u64(v uint64) *float64 {
	f := float64(v)
	return &f
}
