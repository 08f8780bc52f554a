package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	exectesting "github.com/Bram-diederik/ai-linux-system-info/internal/exec/testing"
	"github.com/Bram-diederik/ai-linux-system-info/internal/facts"
	factstesting "github.com/Bram-diederik/ai-linux-system-info/internal/facts/testing"
	"github.com/Bram-diederik/ai-linux-system-info/internal/monitoring"
	"github.com/Bram-diederik/ai-linux-system-info/internal/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 18, 9, 12, 44, 0, time.UTC)

const (
	failedUnitsCmd = "systemctl list-units --state=failed --no-legend --plain --no-pager"
	journalErrCmd  = "journalctl -p err -b -n 20 --no-pager --quiet"
)

func healthyRunner() *exectesting.FakeRunner {
	return exectesting.NewFakeRunner().
		On("sensors -j", exectesting.Response{Stdout: `{"coretemp-isa-0000":{"Package id 0":{"temp1_input":45.0}}}`}).
		On(failedUnitsCmd, exectesting.Response{Stdout: "backup.service loaded failed failed Backup\n"}).
		On("journalctl -u backup.service -n 10 --no-pager --quiet", exectesting.Response{Stdout: "backup: disk full\n"}).
		On(journalErrCmd, exectesting.Response{Stdout: "kernel: ata1: hard resetting link\n"}).
		OnPrefix("systemctl show nginx", exectesting.Response{
			Stdout: "Description=nginx web server\nLoadState=loaded\nActiveState=active\nSubState=running\n",
		}).
		On("journalctl -u nginx -n 10 --no-pager --quiet", exectesting.Response{Stdout: "nginx started\n"}).
		On("journalctl -u nginx -n 50 --no-pager --quiet", exectesting.Response{Stdout: "nginx started\nnginx reloaded\n"})
}

func batteryDir(t *testing.T, withBattery bool) string {
	t.Helper()
	dir := t.TempDir()
	if withBattery {
		node := filepath.Join(dir, "BAT0")
		require.NoError(t, os.MkdirAll(node, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(node, "status"), []byte("Discharging\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(node, "capacity"), []byte("87\n"), 0644))
	}
	return dir
}

func redisRuntime() *factstesting.FakeRuntime {
	rt := factstesting.NewFakeRuntime()
	rt.ImageRefs = []string{"redis:7", "nginx:latest"}
	rt.AddContainer(facts.Container{ID: "0123456789ab", Name: "redis-cache", Image: "redis:7", State: "running", Status: "Up 2 hours"},
		"Ready to accept connections")
	rt.AddContainer(facts.Container{ID: "ba9876543210", Name: "redis-old", Image: "redis:7", State: "exited", Status: "Exited (0) 3 days ago"})
	return rt
}

func fullSources(t *testing.T) Sources {
	return Sources{
		System:     factstesting.NewFakeSystem(),
		Runner:     healthyRunner(),
		Runtime:    redisRuntime(),
		Sensors:    true,
		BatteryDir: batteryDir(t, true),
	}
}

func newTestBuilder(src Sources) *Builder {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return fixedNow }
	return NewBuilder(src, opts, nil)
}

func monitored(battery bool, items ...monitoring.Item) *monitoring.Config {
	return &monitoring.Config{Items: items, IncludeBattery: battery}
}

var allSections = []string{
	SectionVitals, SectionDisk, SectionTemperatures, SectionBattery, SectionContainers,
	SectionTopProcesses, SectionFailedServices, SectionJournalErrors, SectionServices,
}

func TestFull_AllSources(t *testing.T) {
	cfg := monitored(true,
		monitoring.Item{Kind: request.Service, Name: "nginx"},
		monitoring.Item{Kind: request.Docker, Name: "redis:7"},
	)

	r := newTestBuilder(fullSources(t)).Full(context.Background(), cfg)

	assert.Equal(t, allSections, r.Sections())
	assert.Empty(t, r.Notices)
	assert.Equal(t, fixedNow, r.GeneratedAt)
	assert.Equal(t, "testhost", r.Hostname)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, r.LoadAverage)
	assert.Equal(t, &Battery{Status: "Discharging", CapacityPercentage: 87}, r.Battery)
	assert.Equal(t, []Temperature{{Label: "coretemp-isa-0000 Package id 0", Temp: 45}}, r.Temperatures)
	assert.Equal(t, 1, r.Containers.Running)
	assert.Equal(t, FailedUnits{{Unit: "backup.service", Logs: []string{"backup: disk full"}}}, r.FailedServices)

	require.Len(t, r.Services, 2)
	assert.Equal(t, Item{
		Kind:        "service",
		Service:     "nginx",
		Description: "nginx web server",
		Status:      "active (running)",
		Logs:        []string{"nginx started"},
	}, r.Services[0])

	redis := r.Services[1]
	assert.Equal(t, "docker", redis.Kind)
	assert.Equal(t, "1 running", redis.Status)
	require.Len(t, redis.Instances, 1)
	assert.Equal(t, "redis-cache", redis.Instances[0].Name)
	assert.Equal(t, []string{"Ready to accept connections"}, redis.Instances[0].Logs)
}

func TestFull_NoOptionalTools(t *testing.T) {
	src := fullSources(t)
	src.Sensors = false
	src.Runtime = nil
	src.BatteryDir = batteryDir(t, false)
	cfg := monitored(true, monitoring.Item{Kind: request.Service, Name: "nginx"})

	r := newTestBuilder(src).Full(context.Background(), cfg)

	var omitted []string
	present := r.Sections()
	for _, s := range allSections {
		if !contains(present, s) {
			omitted = append(omitted, s)
		}
	}
	assert.Equal(t, []string{SectionTemperatures, SectionBattery, SectionContainers}, omitted)
	assert.Empty(t, r.Notices)
	assert.NotEmpty(t, r.Disk)
	assert.NotEmpty(t, r.TopProcesses)
	assert.Len(t, r.Services, 1)
}

func TestFull_ConfigMissing(t *testing.T) {
	r := newTestBuilder(fullSources(t)).Full(context.Background(), nil)

	assert.Equal(t, []string{NoticeConfigMissing}, r.Notices)
	assert.NotNil(t, r.Services)
	assert.Empty(t, r.Services)
	assert.NotNil(t, r.Battery, "battery defaults to shown without a config")
}

func TestFull_BatteryNotSelected(t *testing.T) {
	cfg := monitored(false, monitoring.Item{Kind: request.Service, Name: "nginx"})

	r := newTestBuilder(fullSources(t)).Full(context.Background(), cfg)

	assert.Nil(t, r.Battery)
}

func TestFull_PartialFailure(t *testing.T) {
	src := fullSources(t)
	sys := factstesting.NewFakeSystem()
	sys.DisksErr = errors.New("statfs: permission denied")
	src.System = sys
	src.Runner = healthyRunner().On(journalErrCmd, exectesting.Response{Stderr: "No journal files were opened", ExitCode: 1})
	src.Runtime.(*factstesting.FakeRuntime).SummaryErr = errors.New("Cannot connect to the Docker daemon")
	cfg := monitored(true,
		monitoring.Item{Kind: request.Service, Name: "nginx"},
		monitoring.Item{Kind: request.Service, Name: "ghost"},
	)

	r := newTestBuilder(src).Full(context.Background(), cfg)

	assert.Nil(t, r.Disk)
	assert.Nil(t, r.JournalErrors)
	assert.Nil(t, r.Containers)
	assert.NotNil(t, r.TopProcesses)
	assert.NotNil(t, r.Temperatures)
	require.Len(t, r.Services, 2)
	assert.Equal(t, facts.StatusUnknown, r.Services[1].Status)

	require.Len(t, r.Notices, 4)
	assert.Contains(t, r.Notices[0], "disk: ")
	assert.Contains(t, r.Notices[1], "containers: ")
	assert.Contains(t, r.Notices[2], "journal_errors: ")
	assert.Contains(t, r.Notices[3], "service ghost: ")
}

func TestFull_VitalsFailure(t *testing.T) {
	src := fullSources(t)
	sys := factstesting.NewFakeSystem()
	sys.VitalsErr = errors.New("no /proc")
	src.System = sys

	r := newTestBuilder(src).Full(context.Background(), nil)

	assert.Equal(t, facts.StatusUnknown, r.Hostname)
	assert.Nil(t, r.Memory)
	assert.Contains(t, r.Notices[0], "vitals: no /proc")
}

func TestFull_DockerItemWithoutRuntime(t *testing.T) {
	src := fullSources(t)
	src.Runtime = nil
	cfg := monitored(false, monitoring.Item{Kind: request.Docker, Name: "redis:7"})

	r := newTestBuilder(src).Full(context.Background(), cfg)

	require.Len(t, r.Services, 1)
	assert.Equal(t, facts.StatusUnknown, r.Services[0].Status)
	assert.Len(t, r.Notices, 1)
}

func TestDetail_Service(t *testing.T) {
	r := newTestBuilder(fullSources(t)).Detail(context.Background(), request.Service, "nginx")

	assert.True(t, r.IsDetail())
	assert.Equal(t, []string{SectionVitals, SectionDisk, SectionServices}, r.Sections())
	assert.Nil(t, r.LoadAverage)
	assert.Nil(t, r.Swap)
	assert.NotNil(t, r.Memory)
	require.Len(t, r.Services, 1)
	assert.Equal(t, []string{"nginx started", "nginx reloaded"}, r.Services[0].Logs)
}

func TestDetail_Docker(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		wantStatus    string
		wantInstances int
		wantAvailable bool
	}{
		{"container name", "redis-cache", "Up 2 hours", 1, false},
		{"container id prefix", "ba98", "Exited (0) 3 days ago", 1, false},
		{"image", "redis:7", "1 running", 1, false},
		{"image without tag", "nginx", "not running", 0, false},
		{"unknown", "postgres", "not found", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestBuilder(fullSources(t)).Detail(context.Background(), request.Docker, tt.query)

			require.Len(t, r.Services, 1)
			assert.Equal(t, tt.wantStatus, r.Services[0].Status)
			assert.Len(t, r.Services[0].Instances, tt.wantInstances)
			if !tt.wantAvailable {
				assert.Nil(t, r.Available)
				return
			}
			require.NotNil(t, r.Available)
			assert.Len(t, r.Available.Containers, 2)
			assert.Equal(t, []string{"nginx:latest", "redis:7"}, r.Available.Images)
		})
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0m"},
		{59 * time.Second, "0m"},
		{5 * time.Minute, "5m"},
		{3*time.Hour + 4*time.Minute, "3h 4m"},
		{50*time.Hour + 30*time.Second, "2d 2h 0m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUptime(tt.in))
		})
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
