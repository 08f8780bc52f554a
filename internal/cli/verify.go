package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/Bram-diederik/ai-linux-system-info/internal/alias"
	"github.com/Bram-diederik/ai-linux-system-info/internal/config"
	"github.com/Bram-diederik/ai-linux-system-info/internal/credential"
	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/ui"
)

// VerifyResult is what verify found for one host.
type VerifyResult struct {
	Entry    alias.Entry
	Status   credential.Status
	Accepted bool // the host completed a handshake with the restricted key
	State    credential.State
}

// Verify reads back the restricted line over an admin connection and tries a
// handshake with the restricted key. A line that is missing or weakened is
// an error.
func Verify(cfg *config.OperatorConfig, name string, out io.Writer) (*VerifyResult, error) {
	entry, err := resolveAlias(cfg, name, out)
	if err != nil {
		return nil, err
	}

	client, err := dialAdmin(entry.Target, cfg.ProbeTimeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't open an admin connection to %s", entry.Target),
			"verify reads authorized_keys with your own SSH access")
	}
	defer client.Close()

	status, err := credential.Verify(credential.NewRemoteStore(client, ""), cfg.Tag)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Entry: entry, Status: status}
	latency, probeErr := probeRestricted(entry.Target, cfg.KeyPath, cfg.ProbeTimeout)
	result.Accepted = probeErr == nil

	_, keyErr := os.Stat(cfg.KeyPath)
	result.State = credential.StateOf(keyErr == nil, status)
	if status == credential.StatusOK && !result.Accepted {
		result.State = credential.InstalledUnverified
	}

	mark := ui.SymbolSuccess
	if status != credential.StatusOK {
		mark = ui.SymbolFail
	}
	fmt.Fprintf(out, "%s Restricted line on %s: %s\n", mark, entry.Target, status)
	if result.Accepted {
		fmt.Fprintf(out, "%s Restricted key accepted in %dms\n", ui.SymbolSuccess, latency.Milliseconds())
	} else {
		fmt.Fprintf(out, "%s Restricted key refused: %v\n", ui.SymbolFail, probeErr)
	}
	fmt.Fprintf(out, "  credential: %s\n", result.State)

	if status != credential.StatusOK {
		return result, status.Err("authorized_keys on " + entry.Target)
	}
	if !result.Accepted {
		return result, errors.WrapWithCode(probeErr, errors.ErrSSH,
			fmt.Sprintf("%s doesn't accept the restricted key", entry.Target),
			"Re-run: remote_sys_info deploy "+entry.Name+" "+entry.Target)
	}
	return result, nil
}

// resolveAlias looks the name up in the registry, saying so when a typo was forgiven.
func resolveAlias(cfg *config.OperatorConfig, name string, out io.Writer) (alias.Entry, error) {
	registry, err := alias.Load(cfg.RegistryPath, log)
	if err != nil {
		return alias.Entry{}, err
	}
	entry, err := registry.Resolve(name)
	if err != nil {
		return alias.Entry{}, err
	}
	if alias.Normalize(entry.Name) != alias.Normalize(name) {
		fmt.Fprintf(out, "Using '%s' (%s)\n", entry.Name, entry.Target)
	}
	return entry, nil
}

// lookupAlias is resolveAlias without typo forgiveness, for commands that
// change a host.
func lookupAlias(cfg *config.OperatorConfig, name string) (alias.Entry, error) {
	registry, err := alias.Load(cfg.RegistryPath, log)
	if err != nil {
		return alias.Entry{}, err
	}
	return registry.Lookup(name)
}

func verifyCommand(name string) error {
	_, err := Verify(settings, name, os.Stdout)
	return err
}
