package agent

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/facts"
	"github.com/Bram-diederik/ai-linux-system-info/internal/monitoring"
	"github.com/Bram-diederik/ai-linux-system-info/internal/request"
	"github.com/Bram-diederik/ai-linux-system-info/internal/require"
	"github.com/Bram-diederik/ai-linux-system-info/internal/ui"
	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// Prompter asks the setup questions.
type Prompter interface {
	Confirm(title, description string, value bool) (bool, error)
	// SelectItems returns the chosen subset of options in option order.
	SelectItems(options, selected []monitoring.Item) ([]monitoring.Item, error)
}

// HuhPrompter asks through huh forms. Without a terminal on the input the
// forms run in accessible mode: numbered prompts over plain lines, which
// works through a forwarded SSH stdin.
type HuhPrompter struct {
	In         io.Reader
	Out        io.Writer
	Accessible bool
}

// NewHuhPrompter picks accessible mode unless in is a terminal.
func NewHuhPrompter(in io.Reader, out io.Writer) *HuhPrompter {
	accessible := true
	if f, ok := in.(interface{ Fd() uintptr }); ok && term.IsTerminal(int(f.Fd())) {
		accessible = false
	}
	return &HuhPrompter{In: in, Out: out, Accessible: accessible}
}

func (p *HuhPrompter) run(fields ...huh.Field) error {
	return huh.NewForm(huh.NewGroup(fields...)).
		WithAccessible(p.Accessible).
		WithInput(p.In).
		WithOutput(p.Out).
		Run()
}

// Confirm implements Prompter.
func (p *HuhPrompter) Confirm(title, description string, value bool) (bool, error) {
	err := p.run(huh.NewConfirm().
		Title(title).
		Description(description).
		Value(&value))
	return value, err
}

// SelectItems implements Prompter.
func (p *HuhPrompter) SelectItems(options, selected []monitoring.Item) ([]monitoring.Item, error) {
	isSelected := make(map[string]bool, len(selected))
	for _, it := range selected {
		isSelected[it.String()] = true
	}

	opts := make([]huh.Option[string], 0, len(options))
	var chosen []string
	for _, it := range options {
		key := it.String()
		opts = append(opts, huh.NewOption(key, key).Selected(isSelected[key]))
		if isSelected[key] {
			chosen = append(chosen, key)
		}
	}

	err := p.run(huh.NewMultiSelect[string]().
		Title("What should this host report on?").
		Description("Services report status and recent logs; docker images report their running containers.").
		Options(opts...).
		Filterable(true).
		Value(&chosen).
		Validate(func(s []string) error {
			if len(s) == 0 {
				return fmt.Errorf("pick at least one item")
			}
			return nil
		}))
	if err != nil {
		return nil, err
	}

	picked := make(map[string]bool, len(chosen))
	for _, key := range chosen {
		picked[key] = true
	}
	var out []monitoring.Item
	for _, it := range options {
		if picked[it.String()] {
			out = append(out, it)
		}
	}
	return out, nil
}

// Setup asks what to monitor and replaces the monitoring config.
func (a *Agent) Setup(ctx context.Context) error {
	tools, err := a.CheckRequirements()
	if err != nil {
		return err
	}

	// Previous answers only seed the defaults.
	previous, _, err := monitoring.Load(a.Config.MonitoringPath)
	if err != nil {
		previous = &monitoring.Config{IncludeBattery: true}
	}

	services, err := facts.ListServices(ctx, a.Runner)
	if err != nil {
		return err
	}

	useSudo := false
	if require.Has(tools, "docker") {
		useSudo, err = a.Prompter.Confirm(
			"Use sudo -n for the container runtime?",
			"Only needed when this user can't reach the docker socket directly.",
			previous.UseSudo)
		if err != nil {
			return promptFailed(err)
		}
	}

	images := a.listImages(ctx, useSudo, tools)

	options := setupOptions(services, images, previous.Items)
	items, err := a.Prompter.SelectItems(options, previous.Items)
	if err != nil {
		return promptFailed(err)
	}
	if len(items) == 0 {
		return errors.New(errors.ErrConfig,
			"Nothing selected to monitor",
			"Pick at least one service or container image")
	}

	battery := false
	if facts.HasBattery(a.BatteryDir) {
		battery, err = a.Prompter.Confirm("Include battery status in reports?", "", previous.IncludeBattery)
		if err != nil {
			return promptFailed(err)
		}
	}

	cfg := &monitoring.Config{
		Items:          items,
		IncludeBattery: battery,
		UseSudo:        useSudo,
		LastUpdated:    a.Now(),
	}
	if err := monitoring.Save(a.Config.MonitoringPath, cfg); err != nil {
		return err
	}
	a.Log.Info("setup: saved %d item(s) to %s", len(items), a.Config.MonitoringPath)

	ok := a.renderer().NewStyle().Foreground(ui.ColorSuccess)
	fmt.Fprintf(a.Stdout, "%s Monitoring %d item(s), saved to %s\n",
		ok.Render(ui.SymbolSuccess), len(items), a.Config.MonitoringPath)
	return nil
}

// listImages returns image references from the runtime, including images of
// containers whose image is no longer tagged. A runtime error leaves only
// services to pick from.
func (a *Agent) listImages(ctx context.Context, useSudo bool, tools []require.CheckResult) []string {
	rt := a.OpenRuntime(useSudo, tools)
	if rt == nil {
		return nil
	}
	defer rt.Close()

	seen := make(map[string]bool)
	var out []string
	add := func(ref string) {
		if ref != "" && !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}

	images, err := rt.Images(ctx)
	if err != nil {
		a.Log.Warn("setup: listing images: %v", err)
		fmt.Fprintf(a.Stderr, "! Can't list container images, only services are offered\n")
		return nil
	}
	for _, ref := range images {
		add(ref)
	}

	containers, err := rt.Containers(ctx, "")
	if err != nil {
		a.Log.Warn("setup: listing containers: %v", err)
	}
	for _, c := range containers {
		add(c.Image)
	}

	sort.Strings(out)
	return out
}

// setupOptions lists services then images, then previously monitored items
// that no longer show up so they can still be kept.
func setupOptions(services, images []string, previous []monitoring.Item) []monitoring.Item {
	var options []monitoring.Item
	seen := make(map[string]bool)
	add := func(it monitoring.Item) {
		if !seen[it.String()] {
			seen[it.String()] = true
			options = append(options, it)
		}
	}
	for _, s := range services {
		add(monitoring.Item{Kind: request.Service, Name: s})
	}
	for _, img := range images {
		add(monitoring.Item{Kind: request.Docker, Name: img})
	}
	for _, it := range previous {
		add(it)
	}
	return options
}

func promptFailed(err error) error {
	return errors.WrapWithCode(err, errors.ErrConfig,
		"Setup was interrupted",
		"Run sys_info setup again; the previous monitoring config is unchanged")
}
