// Package testing provides in-memory facts sources for report tests.
package testing

import (
	"context"
	"fmt"
	"sort"

	"github.com/Bram-diederik/ai-linux-system-info/internal/facts"
)

// FakeSystem returns fixed host facts. Set an Err field to make that
// collector fail.
type FakeSystem struct {
	VitalsValue facts.Vitals
	DisksValue  []facts.Disk
	Procs       []facts.Process

	VitalsErr error
	DisksErr  error
	ProcsErr  error
}

// NewFakeSystem returns a small, healthy host.
func NewFakeSystem() *FakeSystem {
	return &FakeSystem{
		VitalsValue: facts.Vitals{
			Hostname: "testhost",
			OS:       "debian 12",
			Kernel:   "6.1.0",
			Load:     [3]float64{0.1, 0.2, 0.3},
			Memory:   facts.Usage{Total: 4 << 30, Used: 1 << 30, Percent: 25},
			Swap:     facts.Usage{Total: 1 << 30},
		},
		DisksValue: []facts.Disk{
			{Source: "/dev/sda1", Mount: "/", Used: 10 << 30, Size: 40 << 30, Percent: 25},
		},
		Procs: []facts.Process{
			{PID: 1, PPID: 0, Cmd: "/sbin/init", Mem: 0.1, CPU: 0.5},
		},
	}
}

// Vitals implements facts.System.
func (f *FakeSystem) Vitals(context.Context) (*facts.Vitals, error) {
	if f.VitalsErr != nil {
		return nil, f.VitalsErr
	}
	v := f.VitalsValue
	return &v, nil
}

// Disks implements facts.System.
func (f *FakeSystem) Disks(context.Context) ([]facts.Disk, error) {
	if f.DisksErr != nil {
		return nil, f.DisksErr
	}
	return f.DisksValue, nil
}

// TopProcesses implements facts.System.
func (f *FakeSystem) TopProcesses(_ context.Context, n int) ([]facts.Process, error) {
	if f.ProcsErr != nil {
		return nil, f.ProcsErr
	}
	if n > 0 && len(f.Procs) > n {
		return f.Procs[:n], nil
	}
	return f.Procs, nil
}

// FakeRuntime is an in-memory container runtime.
type FakeRuntime struct {
	Version         string
	ContainersValue []facts.Container
	ImageRefs       []string
	LogLines        map[string][]string // by container ID

	SummaryErr error
	Closed     bool
}

// NewFakeRuntime returns an empty runtime.
func NewFakeRuntime() *FakeRuntime {
	return &FakeRuntime{Version: "27.0.0", LogLines: make(map[string][]string)}
}

// AddContainer registers a container with optional log lines.
func (f *FakeRuntime) AddContainer(c facts.Container, logs ...string) *FakeRuntime {
	f.ContainersValue = append(f.ContainersValue, c)
	if len(logs) > 0 {
		f.LogLines[c.ID] = logs
	}
	return f
}

// Summary implements facts.Runtime.
func (f *FakeRuntime) Summary(context.Context) (*facts.RuntimeSummary, error) {
	if f.SummaryErr != nil {
		return nil, f.SummaryErr
	}
	s := &facts.RuntimeSummary{Version: f.Version, Total: len(f.ContainersValue), Images: len(f.ImageRefs)}
	for _, c := range f.ContainersValue {
		if c.State == "running" {
			s.Running++
		}
	}
	return s, nil
}

// Images implements facts.Runtime.
func (f *FakeRuntime) Images(context.Context) ([]string, error) {
	refs := append([]string(nil), f.ImageRefs...)
	sort.Strings(refs)
	return refs, nil
}

// Containers implements facts.Runtime.
func (f *FakeRuntime) Containers(_ context.Context, image string) ([]facts.Container, error) {
	var out []facts.Container
	for _, c := range f.ContainersValue {
		if image == "" || (c.Image == image && c.State == "running") {
			out = append(out, c)
		}
	}
	return out, nil
}

// Logs implements facts.Runtime.
func (f *FakeRuntime) Logs(_ context.Context, id string, n int) ([]string, error) {
	lines, ok := f.LogLines[id]
	if !ok {
		return nil, fmt.Errorf("no such container: %s", id)
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// Close implements facts.Runtime.
func (f *FakeRuntime) Close() error {
	f.Closed = true
	return nil
}
