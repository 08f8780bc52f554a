// Package facts collects the host data that goes into a report: vitals,
// disks, temperatures, battery, processes, systemd units and containers.
//
// Each collector returns its own error so a report can carry on with the
// sections that did work.
package facts

import "time"

// Vitals is the host summary at the top of every report.
type Vitals struct {
	Hostname string
	OS       string
	Kernel   string
	Uptime   time.Duration
	Load     [3]float64
	Memory   Usage
	Swap     Usage
}

// Usage is a used/total pair in bytes.
type Usage struct {
	Total   uint64
	Used    uint64
	Percent float64
}

// Disk is one mounted, real filesystem.
type Disk struct {
	Source  string
	Mount   string
	Used    uint64
	Size    uint64
	Percent float64
}

// Temperature is one sensor reading in degrees Celsius.
type Temperature struct {
	Label string
	Temp  float64
}

// Battery is the first battery found in sysfs.
type Battery struct {
	Status   string
	Capacity int
}

// Process is one entry of the top-N CPU list. CPU and Mem are percentages.
type Process struct {
	PID  int32
	PPID int32
	Cmd  string
	Mem  float64
	CPU  float64
}

// Service is the state of one systemd unit.
type Service struct {
	Name        string
	Description string
	Status      string
	Logs        []string
}

// Container is one container known to the runtime.
type Container struct {
	ID     string
	Name   string
	Image  string
	State  string
	Status string
	Logs   []string
}

// RuntimeSummary is the container runtime overview.
type RuntimeSummary struct {
	Version string
	Running int
	Total   int
	Images  int
}
