package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Bram-diederik/ai-linux-system-info/internal/config"
	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/logger"
	"github.com/Bram-diederik/ai-linux-system-info/internal/ui"
	"github.com/Bram-diederik/ai-linux-system-info/pkg/sshutil"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile     string
	formatFlag  string
	noColorFlag bool
)

// Loaded once by PersistentPreRunE and shared by every command.
var (
	settings *config.OperatorConfig
	log      logger.Logger = logger.Noop()
)

var rootCmd = &cobra.Command{
	Use:   "remote_sys_info <alias> [setup | info <service|docker> <name>]",
	Short: "System reports from your Linux hosts over a restricted SSH key",
	Long: `Ask a managed host for a system report.

Each host is reached through a dedicated SSH key that can only start the
sys_info agent. Hosts are added with deploy and called by a short alias;
small typos in the alias are forgiven.

Examples:
  remote_sys_info pi-kitchen
  remote_sys_info pikitchen --format json
  remote_sys_info nas info service nginx
  remote_sys_info nas info docker redis:latest
  remote_sys_info nas setup`,
	Args:              cobra.ArbitraryArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportCommand(cmd.Context(), args, formatFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default ~/.config/ai-linux-system-info/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
	rootCmd.Flags().StringVarP(&formatFlag, "format", "f", "text", "report format: text, json or yaml")
}

// loadSettings reads the operator settings and applies the transport ones.
func loadSettings(cmd *cobra.Command, args []string) error {
	if noColorFlag || os.Getenv("NO_COLOR") != "" {
		ui.DisableColors()
	}

	// completion scripts must work without a settings file
	if cmd.Name() == "completion" || cmd.Name() == "version" {
		return nil
	}

	cfg, err := config.LoadOperator(cfgFile)
	if err != nil {
		return err
	}
	settings = cfg
	log = logger.NewEnvLogger("remote_sys_info")
	logger.SetDefault(log)
	applyTransport(cfg)
	return nil
}

func applyTransport(cfg *config.OperatorConfig) {
	sshutil.StrictHostKeyChecking = cfg.StrictHostKeyChecking
}

// Execute runs the root command and exits with the outcome.
// A remote agent's exit code is passed through unchanged.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	sshutil.CloseAgent()

	if err != nil {
		if _, ok := errors.GetExitCode(err); !ok {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(errors.ExitCode(err))
	}
}
