package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	sierrors "github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/facts"
	factstesting "github.com/Bram-diederik/ai-linux-system-info/internal/facts/testing"
	"github.com/Bram-diederik/ai-linux-system-info/internal/monitoring"
	"github.com/Bram-diederik/ai-linux-system-info/internal/request"
	"github.com/Bram-diederik/ai-linux-system-info/internal/require"
	"github.com/stretchr/testify/assert"
	testrequire "github.com/stretchr/testify/require"
)

// fakePrompter answers confirms from a map keyed by title and selects by
// item string.
type fakePrompter struct {
	confirms map[string]bool
	pick     []string
	err      error

	asked    []string
	offered  []monitoring.Item
	selected []monitoring.Item
}

func (p *fakePrompter) Confirm(title, _ string, value bool) (bool, error) {
	p.asked = append(p.asked, title)
	if p.err != nil {
		return false, p.err
	}
	if v, ok := p.confirms[title]; ok {
		return v, nil
	}
	return value, nil
}

func (p *fakePrompter) SelectItems(options, selected []monitoring.Item) ([]monitoring.Item, error) {
	p.offered = options
	p.selected = selected
	if p.err != nil {
		return nil, p.err
	}
	want := make(map[string]bool)
	for _, s := range p.pick {
		want[s] = true
	}
	var out []monitoring.Item
	for _, it := range options {
		if want[it.String()] {
			out = append(out, it)
		}
	}
	return out, nil
}

const (
	sudoQuestion    = "Use sudo -n for the container runtime?"
	batteryQuestion = "Include battery status in reports?"
)

func withBattery(t *testing.T, dir string) {
	t.Helper()
	node := filepath.Join(dir, "BAT0")
	testrequire.NoError(t, os.MkdirAll(node, 0755))
	testrequire.NoError(t, os.WriteFile(filepath.Join(node, "status"), []byte("Full\n"), 0644))
	testrequire.NoError(t, os.WriteFile(filepath.Join(node, "capacity"), []byte("100\n"), 0644))
}

func TestSetup_ServicesOnly(t *testing.T) {
	ta := newTestAgent(t, hostRunner())
	p := &fakePrompter{pick: []string{"service:ssh"}}
	ta.Prompter = p

	testrequire.NoError(t, ta.Setup(context.Background()))

	assert.Equal(t, []monitoring.Item{
		{Kind: request.Service, Name: "nginx"},
		{Kind: request.Service, Name: "ssh"},
	}, p.offered)
	// No docker CLI, no battery: nothing else asked.
	assert.Empty(t, p.asked)

	cfg, _, err := monitoring.Load(ta.Config.MonitoringPath)
	testrequire.NoError(t, err)
	assert.Equal(t, []monitoring.Item{{Kind: request.Service, Name: "ssh"}}, cfg.Items)
	assert.False(t, cfg.IncludeBattery)
	assert.False(t, cfg.UseSudo)
	assert.True(t, cfg.LastUpdated.Equal(fixedNow()))
	assert.Contains(t, ta.out.String(), "Monitoring 1 item(s)")
}

func TestSetup_DockerAndBattery(t *testing.T) {
	runner := hostRunner().Install("docker")
	ta := newTestAgent(t, runner)
	withBattery(t, ta.BatteryDir)
	ta.rt = factstesting.NewFakeRuntime()
	ta.rt.ImageRefs = []string{"redis:7"}
	ta.rt.AddContainer(facts.Container{ID: "abc", Name: "old", Image: "postgres:15", State: "exited"})

	var openedWithSudo bool
	ta.OpenRuntime = func(useSudo bool, _ []require.CheckResult) facts.Runtime {
		openedWithSudo = useSudo
		return ta.rt
	}

	p := &fakePrompter{
		confirms: map[string]bool{sudoQuestion: true, batteryQuestion: true},
		pick:     []string{"service:nginx", "docker:postgres:15"},
	}
	ta.Prompter = p

	testrequire.NoError(t, ta.Setup(context.Background()))

	assert.True(t, openedWithSudo)
	assert.Equal(t, []string{sudoQuestion, batteryQuestion}, p.asked)
	assert.Contains(t, p.offered, monitoring.Item{Kind: request.Docker, Name: "redis:7"})
	assert.Contains(t, p.offered, monitoring.Item{Kind: request.Docker, Name: "postgres:15"})
	assert.True(t, ta.rt.Closed)

	cfg, _, err := monitoring.Load(ta.Config.MonitoringPath)
	testrequire.NoError(t, err)
	assert.Equal(t, []monitoring.Item{
		{Kind: request.Service, Name: "nginx"},
		{Kind: request.Docker, Name: "postgres:15"},
	}, cfg.Items)
	assert.True(t, cfg.IncludeBattery)
	assert.True(t, cfg.UseSudo)
}

func TestSetup_KeepsPreviousSelectionAsDefault(t *testing.T) {
	ta := newTestAgent(t, hostRunner())
	ta.monitor(t, "service:nginx\ndocker:gone:1\n")
	p := &fakePrompter{pick: []string{"docker:gone:1"}}
	ta.Prompter = p

	testrequire.NoError(t, ta.Setup(context.Background()))

	assert.Equal(t, []monitoring.Item{
		{Kind: request.Service, Name: "nginx"},
		{Kind: request.Docker, Name: "gone:1"},
	}, p.selected)
	assert.Contains(t, p.offered, monitoring.Item{Kind: request.Docker, Name: "gone:1"})

	cfg, _, err := monitoring.Load(ta.Config.MonitoringPath)
	testrequire.NoError(t, err)
	assert.Equal(t, []monitoring.Item{{Kind: request.Docker, Name: "gone:1"}}, cfg.Items)
}

func TestSetup_EmptySelectionKeepsFile(t *testing.T) {
	ta := newTestAgent(t, hostRunner())
	ta.monitor(t, "service:nginx\n")
	ta.Prompter = &fakePrompter{}

	err := ta.Setup(context.Background())
	testrequire.Error(t, err)
	assert.True(t, sierrors.IsCode(err, sierrors.ErrConfig))
	assert.Contains(t, err.Error(), "Nothing selected")

	data, _ := os.ReadFile(ta.Config.MonitoringPath)
	assert.Equal(t, "service:nginx\n", string(data))
}

func TestSetup_Interrupted(t *testing.T) {
	ta := newTestAgent(t, hostRunner())
	ta.Prompter = &fakePrompter{err: errors.New("user aborted")}

	err := ta.Setup(context.Background())
	testrequire.Error(t, err)
	assert.Contains(t, err.Error(), "Setup was interrupted")

	_, statErr := os.Stat(ta.Config.MonitoringPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSetupOptions(t *testing.T) {
	got := setupOptions(
		[]string{"nginx", "ssh"},
		[]string{"redis:7"},
		[]monitoring.Item{{Kind: request.Service, Name: "ssh"}, {Kind: request.Docker, Name: "old:1"}},
	)
	assert.Equal(t, []monitoring.Item{
		{Kind: request.Service, Name: "nginx"},
		{Kind: request.Service, Name: "ssh"},
		{Kind: request.Docker, Name: "redis:7"},
		{Kind: request.Docker, Name: "old:1"},
	}, got)
}
