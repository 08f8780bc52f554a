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

// Revoke removes the restricted line from a host. With forget the alias is
// also dropped from the registry. The local key pair is kept: other hosts
// may still use it. The alias must be typed exactly.
func Revoke(cfg *config.OperatorConfig, name string, forget bool, out io.Writer) error {
	entry, err := lookupAlias(cfg, name)
	if err != nil {
		return err
	}

	client, err := dialAdmin(entry.Target, cfg.ProbeTimeout)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't open an admin connection to %s", entry.Target),
			"revoke edits authorized_keys with your own SSH access")
	}
	defer client.Close()

	if err := credential.Revoke(credential.NewRemoteStore(client, ""), cfg.Tag); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Removed the restricted line from %s\n", ui.SymbolSuccess, entry.Target)

	if !forget {
		return nil
	}

	// Reload: the registry read by lookupAlias may be stale by now.
	registry, err := alias.Load(cfg.RegistryPath, log)
	if err != nil {
		return err
	}
	if registry.Remove(entry.Name) {
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s Forgot '%s'\n", ui.SymbolSuccess, entry.Name)
	}
	return nil
}

func revokeCommand(name string, forget bool) error {
	return Revoke(settings, name, forget, os.Stdout)
}
