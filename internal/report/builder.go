package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Bram-diederik/ai-linux-system-info/internal/exec"
	"github.com/Bram-diederik/ai-linux-system-info/internal/facts"
	"github.com/Bram-diederik/ai-linux-system-info/internal/logger"
	"github.com/Bram-diederik/ai-linux-system-info/internal/monitoring"
	"github.com/Bram-diederik/ai-linux-system-info/internal/request"
)

// NoticeConfigMissing is added when there is no monitoring config yet.
const NoticeConfigMissing = "monitoring: no monitoring config yet, run: sys_info setup"

// Sources are where a Builder reads facts from. Optional sources are
// disabled by leaving them empty.
type Sources struct {
	System facts.System
	Runner exec.Runner
	// Runtime is nil when no container runtime is reachable.
	Runtime facts.Runtime
	// Sensors is true when `sensors` is installed.
	Sensors bool
	// BatteryDir is the power_supply directory; empty disables the battery.
	BatteryDir string
}

// Options bound how much a report collects.
type Options struct {
	TopProcesses   int
	LogLines       int
	JournalLines   int
	DetailLogLines int
	Now            func() time.Time
}

// DefaultOptions returns the limits used when settings don't override them.
func DefaultOptions() Options {
	return Options{
		TopProcesses:   10,
		LogLines:       10,
		JournalLines:   20,
		DetailLogLines: 50,
		Now:            time.Now,
	}
}

// Builder assembles reports. Every source error becomes a notice on the
// report; a Builder never fails outright.
type Builder struct {
	src  Sources
	opts Options
	log  logger.Logger
}

// NewBuilder returns a Builder. A nil log discards messages.
func NewBuilder(src Sources, opts Options, log logger.Logger) *Builder {
	if log == nil {
		log = logger.Noop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Builder{src: src, opts: opts, log: log}
}

// Full builds the report for the run mode. cfg is nil when there is no
// monitoring config; the report still renders with a notice.
func (b *Builder) Full(ctx context.Context, cfg *monitoring.Config) *Report {
	r := &Report{GeneratedAt: b.opts.Now().UTC()}

	b.addVitals(ctx, r, true)
	b.addDisks(ctx, r)
	b.addTemperatures(ctx, r)
	if cfg == nil || cfg.IncludeBattery {
		b.addBattery(r)
	}
	b.addContainerSummary(ctx, r)
	b.addTopProcesses(ctx, r)
	b.addFailedUnits(ctx, r)
	b.addJournalErrors(ctx, r)

	r.Services = []Item{}
	if cfg == nil {
		r.Notices = append(r.Notices, NoticeConfigMissing)
		return r
	}
	for _, it := range cfg.Items {
		switch it.Kind {
		case request.Service:
			r.Services = append(r.Services, b.serviceItem(ctx, r, it.Name, b.opts.LogLines))
		case request.Docker:
			r.Services = append(r.Services, b.imageItem(ctx, r, it.Name))
		}
	}
	return r
}

// Detail builds the info view: the vital subset plus one item.
func (b *Builder) Detail(ctx context.Context, kind request.ItemKind, name string) *Report {
	r := &Report{GeneratedAt: b.opts.Now().UTC(), detail: true}

	b.addVitals(ctx, r, false)
	b.addDisks(ctx, r)

	switch kind {
	case request.Service:
		r.Services = []Item{b.serviceItem(ctx, r, name, b.opts.DetailLogLines)}
	case request.Docker:
		r.Services = []Item{b.dockerDetail(ctx, r, name)}
	}
	return r
}

func (b *Builder) addVitals(ctx context.Context, r *Report, full bool) {
	v, err := b.src.System.Vitals(ctx)
	if err != nil {
		r.Notice(SectionVitals, err)
		r.Hostname = facts.StatusUnknown
		r.Kernel = facts.StatusUnknown
		r.Uptime = facts.StatusUnknown
		return
	}

	r.Hostname = v.Hostname
	r.Kernel = v.Kernel
	r.Uptime = FormatUptime(v.Uptime)
	r.UptimeSeconds = int64(v.Uptime.Seconds())
	r.Memory = fromUsage(v.Memory)
	if full {
		r.OS = v.OS
		r.LoadAverage = v.Load[:]
		r.Swap = fromUsage(v.Swap)
	}
}

func (b *Builder) addDisks(ctx context.Context, r *Report) {
	disks, err := b.src.System.Disks(ctx)
	if err != nil {
		r.Notice(SectionDisk, err)
		return
	}
	r.Disk = make([]Disk, 0, len(disks))
	for _, d := range disks {
		r.Disk = append(r.Disk, Disk{Source: d.Source, Mount: d.Mount, Used: d.Used, Size: d.Size, Percent: d.Percent})
	}
}

func (b *Builder) addTemperatures(ctx context.Context, r *Report) {
	if !b.src.Sensors {
		return
	}
	temps, err := facts.Temperatures(ctx, b.src.Runner)
	if err != nil {
		r.Notice(SectionTemperatures, err)
		return
	}
	r.Temperatures = make([]Temperature, 0, len(temps))
	for _, t := range temps {
		r.Temperatures = append(r.Temperatures, Temperature{Label: t.Label, Temp: t.Temp})
	}
}

func (b *Builder) addBattery(r *Report) {
	if b.src.BatteryDir == "" {
		return
	}
	bat, err := facts.ReadBattery(b.src.BatteryDir)
	if err != nil {
		r.Notice(SectionBattery, err)
		return
	}
	if bat != nil {
		r.Battery = &Battery{Status: bat.Status, CapacityPercentage: bat.Capacity}
	}
}

func (b *Builder) addContainerSummary(ctx context.Context, r *Report) {
	if b.src.Runtime == nil {
		return
	}
	s, err := b.src.Runtime.Summary(ctx)
	if err != nil {
		r.Notice(SectionContainers, err)
		return
	}
	r.Containers = &Containers{Version: s.Version, Running: s.Running, Total: s.Total, Images: s.Images}
}

func (b *Builder) addTopProcesses(ctx context.Context, r *Report) {
	procs, err := b.src.System.TopProcesses(ctx, b.opts.TopProcesses)
	if err != nil {
		r.Notice(SectionTopProcesses, err)
		return
	}
	r.TopProcesses = make([]Process, 0, len(procs))
	for _, p := range procs {
		r.TopProcesses = append(r.TopProcesses, Process{PID: p.PID, PPID: p.PPID, Cmd: p.Cmd, Mem: p.Mem, CPU: p.CPU})
	}
}

func (b *Builder) addFailedUnits(ctx context.Context, r *Report) {
	units, err := facts.FailedUnits(ctx, b.src.Runner)
	if err != nil {
		r.Notice(SectionFailedServices, err)
		return
	}
	r.FailedServices = make(FailedUnits, 0, len(units))
	for _, unit := range units {
		logs, err := facts.UnitLogs(ctx, b.src.Runner, unit, b.opts.LogLines)
		if err != nil {
			r.Notice(SectionFailedServices, fmt.Errorf("logs for %s: %w", unit, err))
		}
		r.FailedServices = append(r.FailedServices, FailedUnit{Unit: unit, Logs: logs})
	}
}

func (b *Builder) addJournalErrors(ctx context.Context, r *Report) {
	lines, err := facts.JournalErrors(ctx, b.src.Runner, b.opts.JournalLines)
	if err != nil {
		r.Notice(SectionJournalErrors, err)
		return
	}
	if lines == nil {
		lines = []string{}
	}
	r.JournalErrors = lines
}

func (b *Builder) serviceItem(ctx context.Context, r *Report, name string, logLines int) Item {
	item := Item{Kind: string(request.Service), Service: name, Status: facts.StatusUnknown}

	svc, err := facts.ServiceStatus(ctx, b.src.Runner, name, logLines)
	if err != nil {
		r.Notice("service "+name, err)
	}
	if svc != nil {
		item.Description = svc.Description
		item.Status = svc.Status
		item.Logs = svc.Logs
	}
	return item
}

func (b *Builder) imageItem(ctx context.Context, r *Report, image string) Item {
	item := Item{Kind: string(request.Docker), Service: image, Status: facts.StatusUnknown}
	if b.src.Runtime == nil {
		r.Notice("docker "+image, fmt.Errorf("no container runtime available"))
		return item
	}

	containers, err := b.src.Runtime.Containers(ctx, image)
	if err != nil {
		r.Notice("docker "+image, err)
		return item
	}

	item.Status = runningStatus(len(containers))
	for _, c := range containers {
		item.Instances = append(item.Instances, b.withLogs(ctx, r, c))
	}
	return item
}

// dockerDetail looks name up as a container first, then as an image. When it
// is neither, the report lists what is available instead.
func (b *Builder) dockerDetail(ctx context.Context, r *Report, name string) Item {
	item := Item{Kind: string(request.Docker), Service: name, Status: facts.StatusUnknown}
	if b.src.Runtime == nil {
		r.Notice("docker "+name, fmt.Errorf("no container runtime available"))
		return item
	}

	all, err := b.src.Runtime.Containers(ctx, "")
	if err != nil {
		r.Notice("docker "+name, err)
		return item
	}
	for _, c := range all {
		if c.Name == name || (len(name) >= 4 && strings.HasPrefix(c.ID, name)) {
			item.Status = c.State
			if c.Status != "" {
				item.Status = c.Status
			}
			item.Instances = []Container{b.withLogs(ctx, r, c)}
			return item
		}
	}

	images, err := b.src.Runtime.Images(ctx)
	if err != nil {
		r.Notice("docker "+name, err)
		return item
	}
	for _, img := range images {
		if img == name || img == name+":latest" {
			return b.imageItem(ctx, r, img)
		}
	}

	item.Status = "not found"
	inv := &Inventory{Containers: make([]Container, 0, len(all)), Images: images}
	if inv.Images == nil {
		inv.Images = []string{}
	}
	for _, c := range all {
		inv.Containers = append(inv.Containers, fromContainer(c))
	}
	r.Available = inv
	return item
}

func (b *Builder) withLogs(ctx context.Context, r *Report, c facts.Container) Container {
	logs, err := b.src.Runtime.Logs(ctx, c.ID, b.opts.LogLines)
	if err != nil {
		r.Notice("container "+c.Name, err)
	}
	c.Logs = logs
	return fromContainer(c)
}

func runningStatus(n int) string {
	if n == 0 {
		return "not running"
	}
	return fmt.Sprintf("%d running", n)
}
