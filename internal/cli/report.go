package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Bram-diederik/ai-linux-system-info/internal/alias"
	"github.com/Bram-diederik/ai-linux-system-info/internal/config"
	"github.com/Bram-diederik/ai-linux-system-info/internal/dispatch"
	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/request"
	"github.com/Bram-diederik/ai-linux-system-info/internal/ui"
)

// Replaced in tests.
var (
	dialRestricted dispatch.DialFunc = dispatch.DialRestricted
	pickHost                         = ui.PickHost
	stdinIsTerminal                  = func() bool { return ui.IsTerminal(os.Stdin) }
)

// ReportOptions holds what one dispatch needs.
type ReportOptions struct {
	Args   []string // <alias> [setup | info <kind> <name>]
	Format string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// parseReportArgs turns the words after the program name into an alias and a request.
func parseReportArgs(args []string, format string) (string, request.Request, error) {
	f, err := request.ParseFormat(format)
	if err != nil {
		return "", request.Request{}, err
	}

	usage := errors.New(errors.ErrRequest,
		"Expected: <alias> [setup | info <service|docker> <name>]",
		"Run remote_sys_info --help for examples")

	switch {
	case len(args) == 1:
		return args[0], request.NewRun(f), nil
	case len(args) == 2 && args[1] == string(request.Setup):
		if f != request.FormatText {
			return "", request.Request{}, errors.New(errors.ErrRequest,
				"setup doesn't take --format", "")
		}
		return args[0], request.Request{Kind: request.Setup}, nil
	case len(args) == 4 && args[1] == string(request.Info):
		req := request.NewInfo(request.ItemKind(args[2]), args[3], f)
		if err := req.Validate(); err != nil {
			return "", request.Request{}, err
		}
		return args[0], req, nil
	}
	return "", request.Request{}, usage
}

// Report resolves the alias and streams the agent's answer.
func Report(ctx context.Context, cfg *config.OperatorConfig, opts ReportOptions) error {
	args := opts.Args

	registry, err := alias.Load(cfg.RegistryPath, log)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		if !stdinIsTerminal() {
			fmt.Fprint(opts.Stderr, dispatch.AliasTable(registry.List()))
			return errors.New(errors.ErrRequest, "No host given",
				"Usage: remote_sys_info <alias>")
		}
		picked, err := pickHost(hostInfos(registry.List()))
		if err != nil {
			return err
		}
		if picked == nil {
			return nil
		}
		args = []string{picked.Name}
	}

	name, req, err := parseReportArgs(args, opts.Format)
	if err != nil {
		return err
	}
	return dispatchRequest(ctx, cfg, registry, name, req, opts)
}

// dispatchRequest sends req to the host behind name and maps a non-zero
// agent exit to an ExitError carrying the same code.
func dispatchRequest(ctx context.Context, cfg *config.OperatorConfig, registry *alias.Registry, name string, req request.Request, opts ReportOptions) error {
	d := &dispatch.Dispatcher{
		Registry: registry,
		KeyPath:  cfg.KeyPath,
		Dial:     dialRestricted,
		Timeout:  dispatch.DefaultConnectTimeout,
		Stdin:    opts.Stdin,
		Stdout:   opts.Stdout,
		Stderr:   opts.Stderr,
		Log:      log,
	}
	code, err := d.Dispatch(ctx, name, req)
	if err != nil {
		return err
	}
	if code != 0 {
		return errors.NewExitError(code)
	}
	return nil
}

func hostInfos(entries []alias.Entry) []ui.HostInfo {
	hosts := make([]ui.HostInfo, len(entries))
	for i, e := range entries {
		hosts[i] = ui.HostInfo{Name: e.Name, Target: e.Target}
	}
	return hosts
}

func reportCommand(ctx context.Context, args []string, format string) error {
	return Report(ctx, settings, ReportOptions{
		Args:   args,
		Format: format,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
}
