package cli

import (
	"os"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	deployFlags      ProbeFlags
	deployAgentFlag  string
	verifyFlags      ProbeFlags
	revokeFlags      ProbeFlags
	revokeForgetFlag bool
	listFlags        ProbeFlags
	listCheckFlag    bool
)

// deployCmd installs the restricted key and registers an alias
var deployCmd = &cobra.Command{
	Use:   "deploy <name> [user@host|ssh-alias]",
	Short: "Install the restricted key on a host and name it",
	Long: `Give a host a short name and install the restricted key on it.

Your own SSH access is used once to add a line to the host's authorized_keys
that only lets the restricted key start "sys_info gate". If the host refuses
your keys, deploy offers to run ssh-copy-id first. When sys_info is missing on
the host it is uploaded from --agent-binary (or agent_binary in the settings).

Without a target, deploy lets you pick a Host from ~/.ssh/config.

Examples:
  remote_sys_info deploy pi-kitchen pi@192.168.1.20
  remote_sys_info deploy nas nas-lan --agent-binary ./sys_info
  remote_sys_info deploy media`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := deployFlags.Apply(settings); err != nil {
			return err
		}
		target := ""
		if len(args) == 2 {
			target = args[1]
		}
		return deployCommand(args[0], target, deployAgentFlag)
	},
}

// verifyCmd checks the restricted line on a host
var verifyCmd = &cobra.Command{
	Use:   "verify <alias>",
	Short: "Check that a host's restricted key line is intact",
	Long: `Read back the restricted line from the host's authorized_keys and try a
handshake with the restricted key.

Exits non-zero when the line is missing, has lost its restrictions, appears
more than once, or the host no longer accepts the key.

Examples:
  remote_sys_info verify nas`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := verifyFlags.Apply(settings); err != nil {
			return err
		}
		return verifyCommand(args[0])
	},
}

// revokeCmd removes the restricted line from a host
var revokeCmd = &cobra.Command{
	Use:   "revoke <alias>",
	Short: "Remove the restricted key from a host",
	Long: `Remove the restricted line from the host's authorized_keys.

The local key pair is kept. With --forget the alias is removed too.

Examples:
  remote_sys_info revoke nas
  remote_sys_info revoke old-pi --forget`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := revokeFlags.Apply(settings); err != nil {
			return err
		}
		return revokeCommand(args[0], revokeForgetFlag)
	},
}

// listCmd prints the registry
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List deployed hosts",
	Long: `List every alias and its target.

With --check each host is tried with the restricted key.

Examples:
  remote_sys_info list
  remote_sys_info list --check`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := listFlags.Apply(settings); err != nil {
			return err
		}
		return listCommand(listCheckFlag)
	},
}

// updateCmd makes a host's agent update itself
var updateCmd = &cobra.Command{
	Use:   "update <alias>",
	Short: "Update sys_info on a host",
	Long: `Ask the agent on a host to download and install the configured release.

The agent checks its restricted line before and after replacing itself and
keeps a backup of the previous binary.

Examples:
  remote_sys_info update nas`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateCommand(cmd.Context(), args[0])
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for remote_sys_info.

Examples:
  # Bash
  remote_sys_info completion bash > /etc/bash_completion.d/remote_sys_info

  # Zsh
  remote_sys_info completion zsh > "${fpath[1]}/_remote_sys_info"

  # Fish
  remote_sys_info completion fish > ~/.config/fish/completions/remote_sys_info.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(os.Stdout)
		default:
			return errors.New(errors.ErrRequest,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

func init() {
	// deploy command flags
	AddProbeFlags(deployCmd, &deployFlags)
	deployCmd.Flags().StringVar(&deployAgentFlag, "agent-binary", "", "local sys_info to upload when the host has none")

	// verify command flags
	AddProbeFlags(verifyCmd, &verifyFlags)

	// revoke command flags
	AddProbeFlags(revokeCmd, &revokeFlags)
	revokeCmd.Flags().BoolVar(&revokeForgetFlag, "forget", false, "also remove the alias")

	// list command flags
	AddProbeFlags(listCmd, &listFlags)
	listCmd.Flags().BoolVar(&listCheckFlag, "check", false, "try every host with the restricted key")

	// Register all commands
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(revokeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(completionCmd)
}
