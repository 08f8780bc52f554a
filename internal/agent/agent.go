// Package agent implements the sys_info modes run on a managed host: the
// full report, a single-item detail, interactive setup and self-update, plus
// the gate that admits requests arriving over the restricted key.
package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Bram-diederik/ai-linux-system-info/internal/config"
	"github.com/Bram-diederik/ai-linux-system-info/internal/credential"
	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/exec"
	"github.com/Bram-diederik/ai-linux-system-info/internal/facts"
	"github.com/Bram-diederik/ai-linux-system-info/internal/logger"
	"github.com/Bram-diederik/ai-linux-system-info/internal/monitoring"
	"github.com/Bram-diederik/ai-linux-system-info/internal/report"
	"github.com/Bram-diederik/ai-linux-system-info/internal/request"
	"github.com/Bram-diederik/ai-linux-system-info/internal/require"
	"github.com/Bram-diederik/ai-linux-system-info/internal/update"
)

// keptBackups is how many previous binaries survive a successful run.
const keptBackups = 1

// RuntimeOpener returns the container runtime to report on, or nil when
// none is reachable.
type RuntimeOpener func(useSudo bool, tools []require.CheckResult) facts.Runtime

// Agent runs one mode per process. Fields left zero by New can be replaced
// before use.
type Agent struct {
	Config *config.AgentConfig
	Runner exec.Runner
	System facts.System
	Log    logger.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Plain disables colour in text output.
	Plain bool

	Tools       []require.Tool
	BatteryDir  string
	Executable  string
	OpenRuntime RuntimeOpener
	Prompter    Prompter
	Update      func(ctx context.Context, opts update.Options) (*update.Result, error)
	Now         func() time.Time
}

// New returns an agent wired to this host.
func New(cfg *config.AgentConfig, log logger.Logger) *Agent {
	if log == nil {
		log = logger.Noop()
	}
	a := &Agent{
		Config:     cfg,
		Runner:     exec.NewLocalRunner(),
		System:     facts.NewHostSystem(),
		Log:        log,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Tools:      require.DefaultTools,
		BatteryDir: facts.PowerSupplyDir,
		Update:     update.Run,
		Now:        time.Now,
	}
	a.OpenRuntime = a.openRuntime
	a.Prompter = NewHuhPrompter(a.Stdin, a.Stdout)
	return a
}

// Handle dispatches a parsed request to its mode.
func (a *Agent) Handle(ctx context.Context, req request.Request) error {
	switch req.Kind {
	case request.Run:
		return a.Run(ctx, req.Format)
	case request.Info:
		return a.Info(ctx, req.ItemKind, req.Name, req.Format)
	case request.Setup:
		return a.Setup(ctx)
	case request.UpdateScript:
		return a.UpdateScript(ctx)
	}
	return errors.New(errors.ErrRequest,
		fmt.Sprintf("Unknown mode '%s'", req.Kind),
		"Valid modes: run, setup, update-script, info <service|docker> <name>")
}

// CheckRequirements looks up every tool and fails when a required one is missing.
func (a *Agent) CheckRequirements() ([]require.CheckResult, error) {
	results := require.CheckAll(a.Runner, a.Tools)
	for _, r := range results {
		if !r.Satisfied {
			a.Log.Debug("tool %s not found", r.Name())
		}
	}
	if err := require.Verify(results); err != nil {
		return results, err
	}
	return results, nil
}

// Run prints the full report.
func (a *Agent) Run(ctx context.Context, format request.Format) error {
	tools, err := a.CheckRequirements()
	if err != nil {
		return err
	}

	mon, notices := a.loadMonitoring()
	rt := a.OpenRuntime(mon != nil && mon.UseSudo, tools)
	if rt != nil {
		defer rt.Close()
	}

	r := report.NewBuilder(a.sources(tools, rt), a.options(), a.Log).Full(ctx, mon)
	r.Notices = append(r.Notices, notices...)
	a.Log.Debug("report sections: %v, %d notice(s)", r.Sections(), len(r.Notices))

	if err := report.Render(a.Stdout, r, format, a.Plain); err != nil {
		return err
	}

	a.pruneBackups()
	return nil
}

// Info prints the vitals subset and one item.
func (a *Agent) Info(ctx context.Context, kind request.ItemKind, name string, format request.Format) error {
	tools, err := a.CheckRequirements()
	if err != nil {
		return err
	}

	mon, _ := a.loadMonitoring()
	rt := a.OpenRuntime(mon != nil && mon.UseSudo, tools)
	if rt != nil {
		defer rt.Close()
	}

	r := report.NewBuilder(a.sources(tools, rt), a.options(), a.Log).Detail(ctx, kind, name)
	return report.Render(a.Stdout, r, format, a.Plain)
}

// loadMonitoring returns nil when there is no usable monitoring config,
// with notices describing anything that went wrong.
func (a *Agent) loadMonitoring() (*monitoring.Config, []string) {
	mon, warnings, err := monitoring.Load(a.Config.MonitoringPath)
	if err != nil {
		if errors.IsCode(err, errors.ErrConfigMissing) {
			return nil, nil
		}
		a.Log.Warn("monitoring config: %v", err)
		return nil, []string{fmt.Sprintf("monitoring: can't read %s", a.Config.MonitoringPath)}
	}

	notices := make([]string, 0, len(warnings))
	for _, w := range warnings {
		a.Log.Warn("monitoring config: %s", w)
		notices = append(notices, "monitoring: "+w)
	}
	return mon, notices
}

func (a *Agent) sources(tools []require.CheckResult, rt facts.Runtime) report.Sources {
	return report.Sources{
		System:     a.System,
		Runner:     a.Runner,
		Runtime:    rt,
		Sensors:    require.Has(tools, "sensors"),
		BatteryDir: a.BatteryDir,
	}
}

func (a *Agent) options() report.Options {
	opts := report.DefaultOptions()
	opts.TopProcesses = a.Config.TopProcesses
	opts.LogLines = a.Config.LogLines
	opts.JournalLines = a.Config.JournalErrorLines
	opts.DetailLogLines = a.Config.DetailLogLines
	if a.Now != nil {
		opts.Now = a.Now
	}
	return opts
}

// openRuntime picks the container runtime: the docker CLI behind sudo -n
// when configured, the API socket when reachable, else none.
func (a *Agent) openRuntime(useSudo bool, tools []require.CheckResult) facts.Runtime {
	if useSudo {
		if !require.Has(tools, "docker") {
			a.Log.Warn("use_sudo_for_container_runtime is set but docker isn't installed")
			return nil
		}
		return facts.NewCLIRuntime(exec.NewLocalRunner().WithPrefix("sudo", "-n"))
	}
	if !facts.DockerAvailable() {
		return nil
	}
	rt, err := facts.NewDockerRuntime()
	if err != nil {
		a.Log.Warn("docker client: %v", err)
		return nil
	}
	return rt
}

func (a *Agent) executable() string {
	if a.Executable != "" {
		return a.Executable
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return exe
}

func (a *Agent) pruneBackups() {
	exe := a.executable()
	if exe == "" {
		return
	}
	removed, err := update.PruneBackups(exe, keptBackups)
	if err != nil {
		a.Log.Warn("pruning update backups: %v", err)
		return
	}
	for _, p := range removed {
		a.Log.Info("removed old binary %s", p)
	}
}

func (a *Agent) store() credential.Store {
	return credential.NewFileStore(a.Config.AuthorizedKeysPath)
}
