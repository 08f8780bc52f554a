// Package agentcli implements sys_info, the agent installed on managed
// hosts. Run locally it prints reports, walks through setup and updates
// itself; reached through the restricted key it only ever runs gate.
package agentcli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Bram-diederik/ai-linux-system-info/internal/agent"
	"github.com/Bram-diederik/ai-linux-system-info/internal/config"
	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/logger"
	"github.com/Bram-diederik/ai-linux-system-info/internal/ui"
	"github.com/spf13/cobra"
)

// Version information, set at build time.
var version = "dev"

// Global flags
var (
	cfgFile   string
	plainFlag bool
)

var (
	settings *config.AgentConfig
	log      logger.Logger = logger.Noop()
)

// Replaced in tests.
var (
	newAgent         = agent.New
	gateEnv          = agent.EnvFromOS
	stdoutIsTerminal = func() bool { return ui.IsTerminal(os.Stdout) }
)

var rootCmd = &cobra.Command{
	Use:   "sys_info",
	Short: "Report on this host's health for remote_sys_info",
	Long: `sys_info collects vitals, disks, sensors, containers, failed units and
recent errors, plus every service and image chosen during setup.

Run with no command it prints the full report. The restricted key installed
by remote_sys_info deploy can only start "sys_info gate", which reads one
request from stdin.

Examples:
  sys_info
  sys_info run --format json
  sys_info info service nginx
  sys_info setup`,
	Version:           version,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd.Context(), rootFormatFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default /etc/sys_info/config.yaml or ~/.config/sys_info/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&plainFlag, "plain", false, "no colors in text output")
	rootCmd.Flags().StringVarP(&rootFormatFlag, "format", "f", "text", "report format: text, json or yaml")

	// The update self-test parses this line.
	rootCmd.SetVersionTemplate("sys_info {{.Version}}\n")
}

func loadSettings(cmd *cobra.Command, args []string) error {
	if plainFlag || os.Getenv("NO_COLOR") != "" || !stdoutIsTerminal() {
		ui.DisableColors()
	}

	cfg, err := config.LoadAgent(cfgFile)
	if err != nil {
		return err
	}
	settings = cfg
	log = logger.NewEnvLogger("sys_info")
	logger.SetDefault(log)
	return nil
}

// buildAgent returns an agent for this process writing through l.
func buildAgent(l logger.Logger) *agent.Agent {
	a := newAgent(settings, l)
	a.Plain = plainFlag || !stdoutIsTerminal()
	return a
}

// openGateLog returns a logger appending to the gate audit file. When the
// file can't be opened the audit lines go to stderr instead.
func openGateLog(path string) (logger.Logger, io.Closer) {
	if path == "" {
		return log, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		log.Warn("can't create gate log directory: %v", err)
		return log, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		log.Warn("can't open gate log: %v", err)
		return log, nil
	}
	return logger.NewEnvLoggerTo(f, "gate"), f
}

// SetVersionInfo sets the version reported by --version.
func SetVersionInfo(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the root command and exits with the outcome.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errors.ExitCode(err))
	}
}
