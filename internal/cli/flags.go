package cli

import (
	"fmt"
	"time"

	"github.com/Bram-diederik/ai-linux-system-info/internal/config"
	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/spf13/cobra"
)

// ProbeFlags holds the connection flags shared by deploy, verify, revoke and list.
type ProbeFlags struct {
	ProbeTimeout string
	Insecure     bool
}

// AddProbeFlags registers --probe-timeout and --accept-new-host-key on a command.
func AddProbeFlags(cmd *cobra.Command, flags *ProbeFlags) {
	cmd.Flags().StringVar(&flags.ProbeTimeout, "probe-timeout", "", "SSH connect timeout (e.g., 5s, 2m)")
	cmd.Flags().BoolVar(&flags.Insecure, "accept-new-host-key", false, "connect to hosts missing from known_hosts")
}

// Apply overrides the loaded settings with the flags that were set.
func (f ProbeFlags) Apply(cfg *config.OperatorConfig) error {
	timeout, err := ParseProbeTimeout(f.ProbeTimeout)
	if err != nil {
		return err
	}
	if timeout > 0 {
		cfg.ProbeTimeout = timeout
	}
	if f.Insecure {
		cfg.StrictHostKeyChecking = false
		applyTransport(cfg)
	}
	return nil
}

// ParseProbeTimeout parses a probe timeout string into a duration.
// Returns zero duration if the flag is empty.
func ParseProbeTimeout(flag string) (time.Duration, error) {
	if flag == "" {
		return 0, nil
	}

	duration, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid timeout", flag),
			"Try something like 5s, 2m, or 500ms.")
	}
	if duration <= 0 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' isn't a positive timeout", flag),
			"Try something like 5s, 2m, or 500ms.")
	}
	return duration, nil
}
