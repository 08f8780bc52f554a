package facts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	godisk "github.com/shirou/gopsutil/v4/disk"
	gohost "github.com/shirou/gopsutil/v4/host"
	goload "github.com/shirou/gopsutil/v4/load"
	gomem "github.com/shirou/gopsutil/v4/mem"
	goprocess "github.com/shirou/gopsutil/v4/process"
)

// System call wrappers for testing
var (
	hostInfo       = gohost.InfoWithContext
	loadAvg        = goload.AvgWithContext
	virtualMemory  = gomem.VirtualMemoryWithContext
	swapMemory     = gomem.SwapMemoryWithContext
	diskPartitions = godisk.PartitionsWithContext
	diskUsage      = godisk.UsageWithContext
	listProcesses  = listHostProcesses
)

// System reads host-level facts.
type System interface {
	Vitals(ctx context.Context) (*Vitals, error)
	Disks(ctx context.Context) ([]Disk, error)
	TopProcesses(ctx context.Context, n int) ([]Process, error)
}

// HostSystem reads facts from the running kernel.
type HostSystem struct{}

// NewHostSystem returns a System backed by gopsutil.
func NewHostSystem() *HostSystem {
	return &HostSystem{}
}

// Vitals implements System. Load and swap are best effort; host and memory
// data are required.
func (s *HostSystem) Vitals(ctx context.Context) (*Vitals, error) {
	info, err := hostInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("host info: %w", err)
	}

	v := &Vitals{
		Hostname: info.Hostname,
		OS:       strings.TrimSpace(info.Platform + " " + info.PlatformVersion),
		Kernel:   info.KernelVersion,
		Uptime:   time.Duration(info.Uptime) * time.Second,
	}
	if v.OS == "" {
		v.OS = info.OS
	}

	if avg, err := loadAvg(ctx); err == nil && avg != nil {
		v.Load = [3]float64{avg.Load1, avg.Load5, avg.Load15}
	}

	memStats, err := virtualMemory(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory stats: %w", err)
	}
	v.Memory = Usage{Total: memStats.Total, Used: memStats.Used, Percent: memStats.UsedPercent}

	if swap, err := swapMemory(ctx); err == nil && swap != nil {
		v.Swap = Usage{Total: swap.Total, Used: swap.Used, Percent: swap.UsedPercent}
	}

	return v, nil
}

// Disks implements System. Virtual and pseudo filesystems are skipped, as
// are repeated mountpoints and mounts that report no size.
func (s *HostSystem) Disks(ctx context.Context) ([]Disk, error) {
	partitions, err := diskPartitions(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("disk partitions: %w", err)
	}

	disks := make([]Disk, 0, len(partitions))
	seen := make(map[string]struct{}, len(partitions))
	for _, part := range partitions {
		if part.Mountpoint == "" || IsVirtualFilesystem(part.Fstype, part.Mountpoint) {
			continue
		}
		if _, ok := seen[part.Mountpoint]; ok {
			continue
		}
		seen[part.Mountpoint] = struct{}{}

		usage, err := diskUsage(ctx, part.Mountpoint)
		if err != nil || usage.Total == 0 {
			continue
		}
		disks = append(disks, Disk{
			Source:  part.Device,
			Mount:   part.Mountpoint,
			Used:    usage.Used,
			Size:    usage.Total,
			Percent: usage.UsedPercent,
		})
	}

	sort.Slice(disks, func(i, j int) bool { return disks[i].Mount < disks[j].Mount })
	return disks, nil
}

// TopProcesses implements System. CPU is averaged over each process's
// lifetime, as ps reports it.
func (s *HostSystem) TopProcesses(ctx context.Context, n int) ([]Process, error) {
	procs, err := listProcesses(ctx)
	if err != nil {
		return nil, fmt.Errorf("process list: %w", err)
	}
	return topByCPU(procs, n), nil
}

func topByCPU(procs []Process, n int) []Process {
	sort.SliceStable(procs, func(i, j int) bool {
		if procs[i].CPU != procs[j].CPU {
			return procs[i].CPU > procs[j].CPU
		}
		return procs[i].PID < procs[j].PID
	})
	if n > 0 && len(procs) > n {
		procs = procs[:n]
	}
	return procs
}

func listHostProcesses(ctx context.Context) ([]Process, error) {
	handles, err := goprocess.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Process, 0, len(handles))
	for _, p := range handles {
		// Processes exit while we walk the list; skip what we can't read.
		cpu, err := p.CPUPercentWithContext(ctx)
		if err != nil {
			continue
		}
		mem, _ := p.MemoryPercentWithContext(ctx)
		ppid, _ := p.PpidWithContext(ctx)

		cmd, _ := p.CmdlineWithContext(ctx)
		if cmd == "" {
			cmd, _ = p.NameWithContext(ctx)
		}

		out = append(out, Process{
			PID:  p.Pid,
			PPID: ppid,
			Cmd:  cmd,
			Mem:  float64(mem),
			CPU:  cpu,
		})
	}
	return out, nil
}
