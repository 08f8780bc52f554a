package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Bram-diederik/ai-linux-system-info/internal/request"
	"github.com/Bram-diederik/ai-linux-system-info/internal/ui"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"
)

// Render writes r to w in the given format. Plain disables colour in the
// text form; the agent sets it when stdout isn't a terminal.
func Render(w io.Writer, r *Report, format request.Format, plain bool) error {
	switch format {
	case request.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case request.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "", request.FormatText:
		re := lipgloss.NewRenderer(w)
		if plain {
			re.SetColorProfile(termenv.Ascii)
		}
		_, err := io.WriteString(w, newTextWriter(re).render(r))
		return err
	}
	return fmt.Errorf("unknown format %q", format)
}

type textWriter struct {
	b       strings.Builder
	title   lipgloss.Style
	heading lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	bad     lipgloss.Style
}

func newTextWriter(re *lipgloss.Renderer) *textWriter {
	return &textWriter{
		title:   re.NewStyle().Bold(true).Foreground(ui.ColorInfo),
		heading: re.NewStyle().Bold(true).Foreground(ui.ColorSecondary),
		label:   re.NewStyle().Foreground(ui.ColorMuted),
		muted:   re.NewStyle().Foreground(ui.ColorMuted),
		ok:      re.NewStyle().Foreground(ui.ColorSuccess),
		warn:    re.NewStyle().Foreground(ui.ColorWarning),
		bad:     re.NewStyle().Foreground(ui.ColorError),
	}
}

func (t *textWriter) render(r *Report) string {
	t.line(t.title.Render(r.Hostname))
	t.field("Generated", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if r.OS != "" {
		t.field("OS", r.OS)
	}
	t.field("Kernel", r.Kernel)
	t.field("Uptime", r.Uptime)
	if len(r.LoadAverage) == 3 {
		t.field("Load", fmt.Sprintf("%.2f %.2f %.2f", r.LoadAverage[0], r.LoadAverage[1], r.LoadAverage[2]))
	}
	if r.Memory != nil {
		t.field("Memory", usage(r.Memory.Used, r.Memory.Total, r.Memory.Percent))
	}
	if r.Swap != nil {
		t.field("Swap", usage(r.Swap.Used, r.Swap.Total, r.Swap.Percent))
	}

	if r.Disk != nil {
		t.section("Disks")
		for _, d := range r.Disk {
			t.line(fmt.Sprintf("  %-20s %-16s %s", d.Mount, d.Source, usage(d.Used, d.Size, d.Percent)))
		}
	}

	if r.Temperatures != nil {
		t.section("Temperatures")
		for _, temp := range r.Temperatures {
			t.line(fmt.Sprintf("  %-40s %.1f°C", temp.Label, temp.Temp))
		}
	}

	if r.Battery != nil {
		t.section("Battery")
		t.line(fmt.Sprintf("  %s, %d%%", r.Battery.Status, r.Battery.CapacityPercentage))
	}

	if r.Containers != nil {
		t.section("Containers")
		t.line(fmt.Sprintf("  version %s, %d of %d running, %d images",
			r.Containers.Version, r.Containers.Running, r.Containers.Total, r.Containers.Images))
	}

	if r.TopProcesses != nil {
		t.section("Top processes")
		t.line(t.muted.Render(fmt.Sprintf("  %7s %7s %6s %6s  %s", "PID", "PPID", "CPU%", "MEM%", "COMMAND")))
		for _, p := range r.TopProcesses {
			t.line(fmt.Sprintf("  %7d %7d %6.1f %6.1f  %s", p.PID, p.PPID, p.CPU, p.Mem, p.Cmd))
		}
	}

	if r.FailedServices != nil {
		t.section("Failed units")
		if len(r.FailedServices) == 0 {
			t.line("  " + t.ok.Render(ui.SymbolSuccess+" none"))
		}
		for _, u := range r.FailedServices {
			t.line("  " + t.bad.Render(ui.SymbolFail+" "+u.Unit))
			t.logs(u.Logs, "      ")
		}
	}

	if r.JournalErrors != nil {
		t.section("Journal errors")
		if len(r.JournalErrors) == 0 {
			t.line("  " + t.ok.Render(ui.SymbolSuccess+" none"))
		}
		t.logs(r.JournalErrors, "  ")
	}

	if r.Services != nil {
		if r.IsDetail() {
			t.section("Detail")
		} else {
			t.section("Monitored")
		}
		if len(r.Services) == 0 {
			t.line(t.muted.Render("  nothing monitored"))
		}
		for _, it := range r.Services {
			t.item(it)
		}
	}

	if r.Available != nil {
		t.section("Available containers")
		if len(r.Available.Containers) == 0 {
			t.line(t.muted.Render("  none"))
		}
		for _, c := range r.Available.Containers {
			t.line(fmt.Sprintf("  %-24s %-12s %-32s %s", c.Name, c.ID, c.Image, c.Status))
		}
		t.section("Available images")
		if len(r.Available.Images) == 0 {
			t.line(t.muted.Render("  none"))
		}
		for _, img := range r.Available.Images {
			t.line("  " + img)
		}
	}

	if len(r.Notices) > 0 {
		t.section("Notices")
		for _, n := range r.Notices {
			t.line("  " + t.warn.Render("! "+n))
		}
	}

	return t.b.String()
}

func (t *textWriter) item(it Item) {
	head := fmt.Sprintf("%s %s  %s", it.Kind, it.Service, t.status(it.Status))
	t.line("  " + head)
	if it.Description != "" {
		t.line("    " + t.muted.Render(it.Description))
	}
	t.logs(it.Logs, "      ")
	for _, c := range it.Instances {
		t.line(fmt.Sprintf("    %s %s (%s)  %s", ui.SymbolComplete, c.Name, c.ID, c.Status))
		t.logs(c.Logs, "        ")
	}
}

func (t *textWriter) status(s string) string {
	switch {
	case strings.HasPrefix(s, "active"), strings.HasSuffix(s, " running"), strings.HasPrefix(s, "Up "):
		return t.ok.Render(ui.SymbolSuccess + " " + s)
	case strings.HasPrefix(s, "failed"):
		return t.bad.Render(ui.SymbolFail + " " + s)
	default:
		return t.warn.Render(ui.SymbolPending + " " + s)
	}
}

func (t *textWriter) section(name string) {
	t.line("")
	t.line(t.heading.Render(name))
}

func (t *textWriter) field(name, value string) {
	t.line(t.label.Render(fmt.Sprintf("%-10s", name)) + " " + value)
}

func (t *textWriter) logs(lines []string, indent string) {
	for _, l := range lines {
		t.line(indent + t.muted.Render(l))
	}
}

func (t *textWriter) line(s string) {
	t.b.WriteString(s)
	t.b.WriteByte('\n')
}

func usage(used, total uint64, percent float64) string {
	return fmt.Sprintf("%s / %s (%.1f%%)", humanize.IBytes(used), humanize.IBytes(total), percent)
}
