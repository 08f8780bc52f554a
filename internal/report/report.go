// Package report assembles host facts into a Report and renders it as text,
// JSON or YAML. All three forms come from the same Report value.
package report

import (
	"fmt"
	"time"

	"github.com/Bram-diederik/ai-linux-system-info/internal/facts"
)

// Report is one point-in-time snapshot of a host. It is never stored.
type Report struct {
	GeneratedAt   time.Time     `json:"generated_at" yaml:"generated_at"`
	Hostname      string        `json:"hostname" yaml:"hostname"`
	OS            string        `json:"os,omitempty" yaml:"os,omitempty"`
	Kernel        string        `json:"kernel" yaml:"kernel"`
	Uptime        string        `json:"uptime" yaml:"uptime"`
	UptimeSeconds int64         `json:"uptime_seconds" yaml:"uptime_seconds"`
	LoadAverage   []float64     `json:"load_average,omitempty" yaml:"load_average,omitempty"`
	Memory        *Usage        `json:"memory,omitempty" yaml:"memory,omitempty"`
	Swap          *Usage        `json:"swap,omitempty" yaml:"swap,omitempty"`
	Disk          []Disk        `json:"disk,omitempty" yaml:"disk,omitempty"`
	Temperatures  []Temperature `json:"temperatures,omitempty" yaml:"temperatures,omitempty"`
	Battery       *Battery      `json:"battery,omitempty" yaml:"battery,omitempty"`
	Containers    *Containers   `json:"containers,omitempty" yaml:"containers,omitempty"`
	TopProcesses  []Process     `json:"top_processes,omitempty" yaml:"top_processes,omitempty"`
	// FailedServices and JournalErrors are present in a full report, empty
	// when the host is healthy. Nil leaves the key out.
	FailedServices FailedUnits `json:"failed_services,omitzero" yaml:"failed_services,omitempty"`
	JournalErrors  LogLines    `json:"journal_errors,omitzero" yaml:"journal_errors,omitempty"`
	Services       []Item       `json:"services" yaml:"services"`
	// Available lists what exists when an info request names an unknown container.
	Available *Inventory `json:"available,omitempty" yaml:"available,omitempty"`
	Notices   []string   `json:"notices,omitempty" yaml:"notices,omitempty"`

	detail bool
}

// FailedUnits is the failed_services section. Only a nil list counts as
// zero, so a healthy host still shows an empty list.
type FailedUnits []FailedUnit

// IsZero reports whether the section is absent from the report.
func (f FailedUnits) IsZero() bool { return f == nil }

// LogLines is a list of journal lines with the same nil rule as FailedUnits.
type LogLines []string

// IsZero reports whether the section is absent from the report.
func (l LogLines) IsZero() bool { return l == nil }

// Usage is memory or swap in bytes.
type Usage struct {
	Total   uint64  `json:"total" yaml:"total"`
	Used    uint64  `json:"used" yaml:"used"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// Disk is one filesystem row.
type Disk struct {
	Source  string  `json:"source" yaml:"source"`
	Mount   string  `json:"mount" yaml:"mount"`
	Used    uint64  `json:"used" yaml:"used"`
	Size    uint64  `json:"size" yaml:"size"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// Temperature is one sensor reading in °C.
type Temperature struct {
	Label string  `json:"label" yaml:"label"`
	Temp  float64 `json:"temp" yaml:"temp"`
}

// Battery is the battery block.
type Battery struct {
	Status             string `json:"status" yaml:"status"`
	CapacityPercentage int    `json:"capacity_percentage" yaml:"capacity_percentage"`
}

// Containers is the container runtime summary.
type Containers struct {
	Version string `json:"version" yaml:"version"`
	Running int    `json:"running" yaml:"running"`
	Total   int    `json:"total" yaml:"total"`
	Images  int    `json:"images" yaml:"images"`
}

// Process is one top-process row.
type Process struct {
	PID  int32   `json:"pid" yaml:"pid"`
	PPID int32   `json:"ppid" yaml:"ppid"`
	Cmd  string  `json:"cmd" yaml:"cmd"`
	Mem  float64 `json:"mem" yaml:"mem"`
	CPU  float64 `json:"cpu" yaml:"cpu"`
}

// FailedUnit is a failed systemd unit with its log tail.
type FailedUnit struct {
	Unit string   `json:"unit" yaml:"unit"`
	Logs []string `json:"logs,omitempty" yaml:"logs,omitempty"`
}

// Item is one monitored service or container image.
type Item struct {
	Kind        string      `json:"kind" yaml:"kind"`
	Service     string      `json:"service" yaml:"service"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Status      string      `json:"status" yaml:"status"`
	Logs        []string    `json:"logs,omitempty" yaml:"logs,omitempty"`
	Instances   []Container `json:"instances,omitempty" yaml:"instances,omitempty"`
}

// Container is one running instance of a monitored image.
type Container struct {
	ID     string   `json:"id" yaml:"id"`
	Name   string   `json:"name" yaml:"name"`
	Image  string   `json:"image" yaml:"image"`
	Status string   `json:"status" yaml:"status"`
	Logs   []string `json:"logs,omitempty" yaml:"logs,omitempty"`
}

// Inventory is every container and image on the host.
type Inventory struct {
	Containers []Container `json:"containers" yaml:"containers"`
	Images     []string    `json:"images" yaml:"images"`
}

// Section names, in render order.
const (
	SectionVitals         = "vitals"
	SectionDisk           = "disk"
	SectionTemperatures   = "temperatures"
	SectionBattery        = "battery"
	SectionContainers     = "containers"
	SectionTopProcesses   = "top_processes"
	SectionFailedServices = "failed_services"
	SectionJournalErrors  = "journal_errors"
	SectionServices       = "services"
)

// Sections lists the sections the report carries, in render order.
func (r *Report) Sections() []string {
	var s []string
	if r.Hostname != "" {
		s = append(s, SectionVitals)
	}
	if r.Disk != nil {
		s = append(s, SectionDisk)
	}
	if r.Temperatures != nil {
		s = append(s, SectionTemperatures)
	}
	if r.Battery != nil {
		s = append(s, SectionBattery)
	}
	if r.Containers != nil {
		s = append(s, SectionContainers)
	}
	if r.TopProcesses != nil {
		s = append(s, SectionTopProcesses)
	}
	if r.FailedServices != nil {
		s = append(s, SectionFailedServices)
	}
	if r.JournalErrors != nil {
		s = append(s, SectionJournalErrors)
	}
	if r.Services != nil {
		s = append(s, SectionServices)
	}
	return s
}

// IsDetail reports whether r is a single-item view.
func (r *Report) IsDetail() bool {
	return r.detail
}

// Notice records a section that couldn't be collected.
func (r *Report) Notice(section string, err error) {
	r.Notices = append(r.Notices, fmt.Sprintf("%s: %v", section, err))
}

// FormatUptime renders d as "3d 4h 12m", dropping leading zero units.
func FormatUptime(d time.Duration) string {
	d = d.Truncate(time.Minute)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

func fromUsage(u facts.Usage) *Usage {
	return &Usage{Total: u.Total, Used: u.Used, Percent: u.Percent}
}

func fromContainer(c facts.Container) Container {
	return Container{ID: c.ID, Name: c.Name, Image: c.Image, Status: c.Status, Logs: c.Logs}
}
