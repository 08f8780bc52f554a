package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Bram-diederik/ai-linux-system-info/internal/config"
	"github.com/Bram-diederik/ai-linux-system-info/internal/credential"
	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	exectesting "github.com/Bram-diederik/ai-linux-system-info/internal/exec/testing"
	"github.com/Bram-diederik/ai-linux-system-info/internal/facts"
	factstesting "github.com/Bram-diederik/ai-linux-system-info/internal/facts/testing"
	"github.com/Bram-diederik/ai-linux-system-info/internal/logger"
	"github.com/Bram-diederik/ai-linux-system-info/internal/report"
	"github.com/Bram-diederik/ai-linux-system-info/internal/request"
	"github.com/Bram-diederik/ai-linux-system-info/internal/require"
	"github.com/Bram-diederik/ai-linux-system-info/internal/update"
	"github.com/stretchr/testify/assert"
	testrequire "github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2026, 10, 18, 9, 12, 44, 0, time.UTC) }

func hostRunner() *exectesting.FakeRunner {
	return exectesting.NewFakeRunner().
		Install("systemctl", "journalctl").
		On("systemctl list-units --state=failed --no-legend --plain --no-pager", exectesting.Response{}).
		On("journalctl -p err -b -n 20 --no-pager --quiet", exectesting.Response{Stdout: "kernel: oops\n"}).
		OnPrefix("systemctl show nginx", exectesting.Response{
			Stdout: "Description=nginx web server\nLoadState=loaded\nActiveState=active\nSubState=running\n",
		}).
		On("journalctl -u nginx -n 10 --no-pager --quiet", exectesting.Response{Stdout: "nginx started\n"}).
		On("journalctl -u nginx -n 50 --no-pager --quiet", exectesting.Response{Stdout: "nginx started\nnginx reloaded\n"}).
		On("systemctl list-unit-files --type=service --no-legend --no-pager", exectesting.Response{
			Stdout: "nginx.service enabled enabled\nssh.service enabled enabled\ngetty@.service enabled enabled\n",
		})
}

type testAgent struct {
	*Agent
	out    *bytes.Buffer
	errOut *bytes.Buffer
	log    *logger.BufferLogger
	rt     *factstesting.FakeRuntime
}

func newTestAgent(t *testing.T, runner *exectesting.FakeRunner) *testAgent {
	t.Helper()
	dir := t.TempDir()
	exe := filepath.Join(dir, "bin", "sys_info")
	testrequire.NoError(t, os.MkdirAll(filepath.Dir(exe), 0755))
	testrequire.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755))

	cfg := &config.AgentConfig{
		Version:            1,
		MonitoringPath:     filepath.Join(dir, "monitoring.conf"),
		AuthorizedKeysPath: filepath.Join(dir, "authorized_keys"),
		Tag:                credential.DefaultTag,
		UpdateBaseURL:      config.DefaultUpdateBaseURL,
		LogLines:           10,
		DetailLogLines:     50,
		JournalErrorLines:  20,
		TopProcesses:       10,
	}

	log := logger.NewBufferLogger()
	ta := &testAgent{
		Agent:  New(cfg, log),
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
		log:    log,
	}
	ta.Runner = runner
	ta.System = factstesting.NewFakeSystem()
	ta.Stdin = strings.NewReader("")
	ta.Stdout = ta.out
	ta.Stderr = ta.errOut
	ta.Plain = true
	ta.BatteryDir = filepath.Join(dir, "power_supply")
	ta.Executable = exe
	ta.Now = fixedNow
	ta.OpenRuntime = func(bool, []require.CheckResult) facts.Runtime {
		if ta.rt == nil {
			return nil
		}
		return ta.rt
	}
	ta.Prompter = &fakePrompter{}
	ta.Update = func(context.Context, update.Options) (*update.Result, error) {
		t.Fatal("unexpected update")
		return nil, nil
	}
	return ta
}

func (ta *testAgent) monitor(t *testing.T, content string) {
	t.Helper()
	testrequire.NoError(t, os.WriteFile(ta.Config.MonitoringPath, []byte(content), 0644))
}

func decode(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	testrequire.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestRun_JSON(t *testing.T) {
	ta := newTestAgent(t, hostRunner())
	ta.monitor(t, "# include_battery=false\nservice:nginx\n")

	testrequire.NoError(t, ta.Run(context.Background(), request.FormatJSON))

	got := decode(t, ta.out.Bytes())
	assert.Equal(t, "testhost", got["hostname"])
	assert.Equal(t, []interface{}{"kernel: oops"}, got["journal_errors"])
	assert.NotContains(t, got, "notices")

	services := got["services"].([]interface{})
	testrequire.Len(t, services, 1)
	svc := services[0].(map[string]interface{})
	assert.Equal(t, "nginx", svc["service"])
	assert.Equal(t, "active (running)", svc["status"])
}

func TestRun_ConfigMissingStillReports(t *testing.T) {
	ta := newTestAgent(t, hostRunner())

	testrequire.NoError(t, ta.Run(context.Background(), request.FormatJSON))

	got := decode(t, ta.out.Bytes())
	assert.Equal(t, "testhost", got["hostname"])
	assert.Equal(t, []interface{}{report.NoticeConfigMissing}, got["notices"])
	assert.Equal(t, []interface{}{}, got["services"])
}

func TestRun_MonitoringWarningsBecomeNotices(t *testing.T) {
	ta := newTestAgent(t, hostRunner())
	ta.monitor(t, "service:nginx\ntwo words\n")

	testrequire.NoError(t, ta.Run(context.Background(), request.FormatJSON))

	got := decode(t, ta.out.Bytes())
	notices := got["notices"].([]interface{})
	testrequire.Len(t, notices, 1)
	assert.Contains(t, notices[0], "monitoring: ")
	assert.Contains(t, notices[0], "two words")
	assert.True(t, ta.log.HasLevel("warn"))
}

func TestRun_RequiredToolMissing(t *testing.T) {
	runner := exectesting.NewFakeRunner().Install("journalctl", "apt-get")
	ta := newTestAgent(t, runner)

	err := ta.Run(context.Background(), request.FormatText)
	testrequire.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrToolMissing))
	assert.Contains(t, err.Error(), "systemctl")
	assert.Contains(t, err.Error(), "apt-get install -y systemd")
	assert.Empty(t, ta.out.String())
}

func TestRun_PrunesBackups(t *testing.T) {
	ta := newTestAgent(t, hostRunner())
	old := ta.Executable + ".bak-20261001T000000Z"
	newest := ta.Executable + ".bak-20261010T000000Z"
	for _, p := range []string{old, newest} {
		testrequire.NoError(t, os.WriteFile(p, []byte("x"), 0755))
	}

	testrequire.NoError(t, ta.Run(context.Background(), request.FormatText))

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(newest)
	assert.NoError(t, err)
}

func TestRun_ContainersFromRuntime(t *testing.T) {
	ta := newTestAgent(t, hostRunner())
	ta.rt = factstesting.NewFakeRuntime()
	ta.rt.AddContainer(facts.Container{ID: "0123456789ab", Name: "redis-cache", Image: "redis:7", State: "running", Status: "Up 2 hours"},
		"Ready to accept connections")
	ta.monitor(t, "docker:redis:7\n")

	testrequire.NoError(t, ta.Run(context.Background(), request.FormatJSON))

	got := decode(t, ta.out.Bytes())
	containers := got["containers"].(map[string]interface{})
	assert.Equal(t, float64(1), containers["running"])
	assert.True(t, ta.rt.Closed)

	svc := got["services"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "redis:7", svc["service"])
	assert.Equal(t, "1 running", svc["status"])
}

func TestInfo(t *testing.T) {
	ta := newTestAgent(t, hostRunner())

	testrequire.NoError(t, ta.Info(context.Background(), request.Service, "nginx", request.FormatYAML))

	out := ta.out.String()
	assert.Contains(t, out, "hostname: testhost")
	assert.Contains(t, out, "nginx reloaded")
	assert.NotContains(t, out, "top_processes")
}

func TestHandle(t *testing.T) {
	ta := newTestAgent(t, hostRunner())

	testrequire.NoError(t, ta.Handle(context.Background(), request.NewRun(request.FormatText)))
	assert.Contains(t, ta.out.String(), "testhost")

	err := ta.Handle(context.Background(), request.Request{Kind: "shell"})
	testrequire.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrRequest))
}

func TestUpdateScript(t *testing.T) {
	tests := []struct {
		name    string
		result  *update.Result
		err     error
		wantOut []string
		wantErr string
	}{
		{
			name:    "verified",
			result:  &update.Result{Version: "2.0.0", Backup: "/usr/local/bin/sys_info.bak-x", PostVerify: credential.StatusOK},
			wantOut: []string{"Updated to 2.0.0", "sys_info.bak-x", "Restriction verified"},
		},
		{
			name: "post verify failed",
			result: &update.Result{
				Version:       "2.0.0",
				PostVerify:    credential.StatusMissing,
				PostVerifyErr: credential.StatusMissing.Err("authorized_keys"),
			},
			wantOut: []string{"Updated to 2.0.0", "Restriction check after update: MISSING"},
		},
		{
			name: "ambiguous after update",
			result: &update.Result{
				Version:       "2.0.0",
				PostVerifyErr: errors.New(errors.ErrCredentialAmbiguous, "Found 2 lines tagged 'ai-linux-system-info' in authorized_keys", ""),
			},
			wantOut: []string{"Restriction check after update: Found 2 lines tagged"},
		},
		{
			name:    "failed update still reports the restriction",
			result:  &update.Result{Version: "2.0.0", PostVerify: credential.StatusOK},
			err:     errors.New(errors.ErrUpdateFailed, "The installed binary failed its self-test; the previous binary was restored", ""),
			wantOut: []string{"Restriction verified"},
			wantErr: errors.ErrUpdateFailed,
		},
		{
			name:    "refused",
			err:     credential.StatusUnrestricted.Err("authorized_keys"),
			wantErr: errors.ErrRestrictionWeak,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestAgent(t, hostRunner())
			var got update.Options
			ta.Update = func(_ context.Context, opts update.Options) (*update.Result, error) {
				got = opts
				return tt.result, tt.err
			}

			err := ta.UpdateScript(context.Background())
			assert.Equal(t, config.DefaultUpdateBaseURL, got.BaseURL)
			assert.Equal(t, ta.Executable, got.Executable)
			assert.Equal(t, credential.DefaultTag, got.Tag)
			if tt.wantErr != "" {
				testrequire.Error(t, err)
				assert.True(t, errors.IsCode(err, tt.wantErr))
				assert.NotContains(t, ta.out.String(), "Updated to")
			} else {
				testrequire.NoError(t, err)
			}
			for _, want := range tt.wantOut {
				assert.Contains(t, ta.out.String(), want)
			}
		})
	}
}

func TestLoadMonitoring_Unreadable(t *testing.T) {
	ta := newTestAgent(t, hostRunner())
	// A directory where the file should be can't be read as a file.
	testrequire.NoError(t, os.MkdirAll(ta.Config.MonitoringPath, 0755))

	mon, notices := ta.loadMonitoring()
	assert.Nil(t, mon)
	testrequire.Len(t, notices, 1)
	assert.Contains(t, notices[0], "can't read")
}

