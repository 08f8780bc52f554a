package agentcli

import (
	"context"

	"github.com/Bram-diederik/ai-linux-system-info/internal/request"
	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	rootFormatFlag string
	runFormatFlag  string
	infoFormatFlag string
)

// runCmd prints the full report
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Print the full report",
	Long: `Print vitals, disks, sensors, battery, containers, top processes, failed
units, recent journal errors and every monitored item.

Without a monitoring config (see setup) the report says so and still exits 0.

Examples:
  sys_info run
  sys_info run --format yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd.Context(), runFormatFlag)
	},
}

// infoCmd prints one item in detail
var infoCmd = &cobra.Command{
	Use:   "info <service|docker> <name>",
	Short: "Show one service or image in detail",
	Long: `Print the vitals and a deep dive on one systemd service or container image,
with a longer log tail than the full report.

An unknown image lists every container and image instead.

Examples:
  sys_info info service nginx
  sys_info info docker redis:latest --format json`,
	ValidArgs: []string{string(request.Service), string(request.Docker)},
	Args:      cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return infoCommand(cmd.Context(), args[0], args[1], infoFormatFlag)
	},
}

// setupCmd chooses what to monitor
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Choose the services and images to monitor",
	Long: `List the installed services and, when a container runtime answers, its
images and containers, and save the selection as the monitoring config.

The file is rewritten on every run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return handle(cmd.Context(), request.Request{Kind: request.Setup})
	},
}

// updateScriptCmd replaces this binary with the configured release
var updateScriptCmd = &cobra.Command{
	Use:   "update-script",
	Short: "Install the configured release of sys_info",
	Long: `Download the configured release next to this binary, test it, back up the
current binary and swap the new one in.

Refuses to start unless the restricted key line in authorized_keys is intact.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return handle(cmd.Context(), request.Request{Kind: request.UpdateScript})
	},
}

// gateCmd is the forced command of the restricted key
var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Serve one request from stdin (forced command)",
	Long: `Read one request line from stdin and run it. This is the command sshd
forces for the restricted key; SSH_ORIGINAL_COMMAND is logged and ignored.

Sessions with a terminal are refused. Audit lines go to gate_log_path.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return gateCommand(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVarP(&runFormatFlag, "format", "f", "text", "report format: text, json or yaml")
	infoCmd.Flags().StringVarP(&infoFormatFlag, "format", "f", "text", "report format: text, json or yaml")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(updateScriptCmd)
	rootCmd.AddCommand(gateCmd)
}

func runCommand(ctx context.Context, format string) error {
	f, err := request.ParseFormat(format)
	if err != nil {
		return err
	}
	return handle(ctx, request.NewRun(f))
}

func infoCommand(ctx context.Context, kind, name, format string) error {
	f, err := request.ParseFormat(format)
	if err != nil {
		return err
	}
	req := request.NewInfo(request.ItemKind(kind), name, f)
	if err := req.Validate(); err != nil {
		return err
	}
	return handle(ctx, req)
}

func handle(ctx context.Context, req request.Request) error {
	return buildAgent(log).Handle(ctx, req)
}

func gateCommand(ctx context.Context) error {
	audit, closer := openGateLog(settings.GateLogPath)
	if closer != nil {
		defer closer.Close()
	}
	return buildAgent(audit).Gate(ctx, gateEnv())
}
