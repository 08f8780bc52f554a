package cli

import (
	"context"
	"os"

	"github.com/Bram-diederik/ai-linux-system-info/internal/alias"
	"github.com/Bram-diederik/ai-linux-system-info/internal/config"
	"github.com/Bram-diederik/ai-linux-system-info/internal/request"
)

// Update asks the agent on a host to replace itself with the configured
// release. The agent refuses unless its restricted line is intact. The alias
// must be typed exactly.
func Update(ctx context.Context, cfg *config.OperatorConfig, name string, opts ReportOptions) error {
	registry, err := alias.Load(cfg.RegistryPath, log)
	if err != nil {
		return err
	}
	entry, err := registry.Lookup(name)
	if err != nil {
		return err
	}
	return dispatchRequest(ctx, cfg, registry, entry.Name, request.Request{Kind: request.UpdateScript}, opts)
}

func updateCommand(ctx context.Context, name string) error {
	return Update(ctx, settings, name, ReportOptions{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
}
