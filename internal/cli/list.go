package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/Bram-diederik/ai-linux-system-info/internal/alias"
	"github.com/Bram-diederik/ai-linux-system-info/internal/config"
	"github.com/Bram-diederik/ai-linux-system-info/internal/dispatch"
	"github.com/Bram-diederik/ai-linux-system-info/internal/host"
	"github.com/Bram-diederik/ai-linux-system-info/internal/ui"
)

// probeAll is replaced in tests.
var probeAll = host.ProbeAll

// List prints the registry. With check every host is tried with the
// restricted key, one after the other.
func List(cfg *config.OperatorConfig, check bool, out io.Writer) error {
	registry, err := alias.Load(cfg.RegistryPath, log)
	if err != nil {
		return err
	}
	entries := registry.List()

	if !check || len(entries) == 0 {
		fmt.Fprint(out, dispatch.AliasTable(entries))
		return nil
	}

	spinner := newSpinner(out, fmt.Sprintf("Checking %d host(s)", len(entries)))
	spinner.Start()
	results := probeAll(entries, cfg.KeyPath, cfg.ProbeTimeout)
	spinner.Success()

	rows := make([]ui.StatusTableRow, len(results))
	for i, r := range results {
		rows[i] = ui.StatusTableRow{
			OK:     r.Success,
			Name:   r.Name,
			Target: r.Target,
		}
		if r.Success {
			rows[i].Latency = fmt.Sprintf("%dms", r.Latency.Milliseconds())
		} else {
			rows[i].Latency = host.ReasonOf(r.Error).String()
		}
	}
	fmt.Fprint(out, ui.RenderStatusTable(rows))
	return nil
}

func listCommand(check bool) error {
	return List(settings, check, os.Stdout)
}
