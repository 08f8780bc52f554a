package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Bram-diederik/ai-linux-system-info/internal/alias"
	"github.com/Bram-diederik/ai-linux-system-info/internal/config"
	"github.com/Bram-diederik/ai-linux-system-info/internal/credential"
	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/host"
	"github.com/Bram-diederik/ai-linux-system-info/internal/ui"
	"github.com/Bram-diederik/ai-linux-system-info/pkg/sshutil"
	"github.com/charmbracelet/huh"
)

// Replaced in tests.
var (
	probeAdmin      = host.Probe
	probeRestricted = host.ProbeRestricted
	copyKey         = credential.CopyKey
	dialAdmin       = func(target string, timeout time.Duration) (sshutil.SSHClient, error) {
		c, err := sshutil.Dial(target, timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	resolveTarget = sshutil.ResolveTarget
	sshHosts      = sshutil.ParseSSHConfig
	pickSSHHost   = ui.PickSSHHost
	confirm       = func(title, description string) (bool, error) {
		var ok bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(title).
					Description(description).
					Value(&ok),
			),
		)
		if err := form.Run(); err != nil {
			return false, errors.WrapWithCode(err, errors.ErrSSH,
				"Failed to get user input",
				"")
		}
		return ok, nil
	}
	askTarget = func() (string, error) {
		var target string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("SSH target").
					Description("user@host, or an alias from ~/.ssh/config").
					Value(&target),
			),
		)
		if err := form.Run(); err != nil {
			return "", errors.WrapWithCode(err, errors.ErrSSH,
				"Failed to get user input",
				"")
		}
		return strings.TrimSpace(target), nil
	}
)

// DeployOptions holds options for the deploy command.
type DeployOptions struct {
	Name        string // alias to register
	Target      string // user@host or ssh-config alias; picked interactively when empty
	AgentBinary string // local sys_info uploaded when the host lacks one
	Out         io.Writer
}

// Deploy installs the restricted key on a host and registers it under a name.
// The operator's own SSH access is used once, for the installation.
func Deploy(cfg *config.OperatorConfig, opts DeployOptions) error {
	out := opts.Out

	target, err := deployTarget(opts.Target, out)
	if err != nil || target == "" {
		return err
	}
	if !alias.ValidTarget(target) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' isn't a user@host target", target),
			"Use the form user@hostname, or a Host from ~/.ssh/config")
	}

	fmt.Fprintf(out, "Deploying '%s' to %s\n\n", opts.Name, target)

	// Step 1: restricted key pair
	created, err := credential.Generate(cfg.KeyPath, cfg.Tag)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(out, "%s Generated restricted key at %s\n", ui.SymbolSuccess, cfg.KeyPath)
	} else {
		fmt.Fprintf(out, "%s Using restricted key %s\n", ui.SymbolSuccess, cfg.KeyPath)
	}
	publicKey, err := credential.ReadPublicKey(cfg.KeyPath + ".pub")
	if err != nil {
		return err
	}

	// Step 2: admin connection with the operator's own keys
	if err := ensureAdminAccess(target, cfg.ProbeTimeout, out); err != nil {
		return err
	}

	client, err := dialAdmin(target, cfg.ProbeTimeout)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't connect to %s", target),
			"Check that the host is reachable and SSH is running")
	}
	defer client.Close()

	// Step 3: agent and restricted line
	agentBinary := opts.AgentBinary
	if agentBinary == "" {
		agentBinary = cfg.AgentBinary
	}
	owner, _, _ := strings.Cut(target, "@")

	store := credential.NewRemoteStore(client, "")
	spinner := newSpinner(out, "Installing restricted key")
	spinner.Start()
	result, err := credential.Install(client, store, credential.InstallOptions{
		PublicKey:   publicKey,
		Tag:         cfg.Tag,
		AgentPath:   cfg.AgentPath,
		AgentBinary: agentBinary,
		Owner:       owner,
		Log:         log,
	})
	if err != nil {
		spinner.Fail()
		return err
	}
	spinner.Success()
	if result.Uploaded {
		fmt.Fprintf(out, "%s Uploaded agent to %s\n", ui.SymbolSuccess, cfg.AgentPath)
	}
	if result.Replaced {
		fmt.Fprintf(out, "%s Replaced the previous restricted line\n", ui.SymbolSuccess)
	}

	// Step 4: read back and try the key
	status, err := credential.Verify(store, cfg.Tag)
	if err != nil {
		return err
	}
	if status != credential.StatusOK {
		return status.Err("authorized_keys on " + target)
	}
	if _, err := probeRestricted(target, cfg.KeyPath, cfg.ProbeTimeout); err != nil {
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("%s doesn't accept the restricted key", target),
			"Check that sshd allows public key logins for this user")
	}
	fmt.Fprintf(out, "%s Restricted key verified\n", ui.SymbolSuccess)

	// Step 5: registry
	registry, err := alias.Load(cfg.RegistryPath, log)
	if err != nil {
		return err
	}
	if err := registry.Upsert(opts.Name, target); err != nil {
		return err
	}
	if err := registry.Save(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s Deployed '%s'\n\n", ui.SymbolSuccess, opts.Name)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  remote_sys_info %s setup   - choose what to monitor\n", opts.Name)
	fmt.Fprintf(out, "  remote_sys_info %s         - get a report\n", opts.Name)
	return nil
}

// deployTarget returns a user@host target. An ssh-config alias is expanded;
// no target at all opens the ~/.ssh/config picker on a terminal.
// An empty result with a nil error means the user cancelled.
func deployTarget(target string, out io.Writer) (string, error) {
	if target == "" {
		if !stdinIsTerminal() {
			return "", errors.New(errors.ErrConfig, "No target given",
				"Usage: remote_sys_info deploy <name> <user@host>")
		}

		entries, err := sshHosts()
		if err != nil {
			log.Warn("can't read ~/.ssh/config: %v", err)
		}
		picked, cancelled, err := pickSSHHost(sshHostInfos(entries))
		if err != nil {
			return "", err
		}
		switch {
		case cancelled:
			fmt.Fprintln(out, "Cancelled.")
			return "", nil
		case picked != nil:
			return picked.Target, nil
		}

		if target, err = askTarget(); err != nil || target == "" {
			return "", err
		}
	}

	if !strings.Contains(target, "@") {
		return resolveTarget(target), nil
	}
	return target, nil
}

// ensureAdminAccess checks the operator can log in. When the host refuses
// every key it offers to install the operator's default key with ssh-copy-id.
func ensureAdminAccess(target string, timeout time.Duration, out io.Writer) error {
	spinner := newSpinner(out, "Connecting to "+target)
	spinner.Start()

	latency, err := probeAdmin(target, timeout)
	if err == nil {
		spinner.Success()
		fmt.Fprintf(out, "%s Connected in %dms\n", ui.SymbolSuccess, latency.Milliseconds())
		return nil
	}
	spinner.Fail()

	if !host.IsAuthFailure(err) {
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't connect to %s", target),
			"Check that the host is reachable and SSH is running")
	}

	fmt.Fprintf(out, "\n%s %s answered but refused your SSH keys\n\n", ui.SymbolPending, target)

	manual := func() error {
		hint := "Generate one first: ssh-keygen -t ed25519"
		if key := credential.GetPreferredKey(); key != nil {
			hint = "Copy your key manually, then run deploy again:\n" + credential.CopyKeyManual(target, key.PublicPath)
		}
		return errors.New(errors.ErrSSH,
			fmt.Sprintf("No admin access to %s", target), hint)
	}

	if !stdinIsTerminal() {
		return manual()
	}
	ok, err := confirm("Copy your SSH key to "+target+"?",
		"ssh-copy-id may ask for the account password once")
	if err != nil {
		return err
	}
	if !ok {
		return manual()
	}

	if err := copyKey(target, ""); err != nil {
		return err
	}

	spinner = newSpinner(out, "Reconnecting")
	spinner.Start()
	if _, err := probeAdmin(target, timeout); err != nil {
		spinner.Fail()
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Key copied but %s still refuses it", target),
			"This may be a server configuration issue (e.g., PubkeyAuthentication disabled)")
	}
	spinner.Success()
	return nil
}

func sshHostInfos(entries []sshutil.SSHHostEntry) []ui.SSHHostInfo {
	hosts := make([]ui.SSHHostInfo, len(entries))
	for i, e := range entries {
		hosts[i] = ui.SSHHostInfo{
			Alias:       e.Alias,
			Hostname:    e.Hostname,
			User:        e.User,
			Port:        e.Port,
			Description: e.Description(),
			Target:      e.Target(),
		}
	}
	return hosts
}

// newSpinner writes to out, animating only when out is a terminal.
func newSpinner(out io.Writer, label string) *ui.Spinner {
	s := ui.NewSpinner(label)
	s.SetOutput(func(str string) { fmt.Fprint(out, str) })
	f, ok := out.(*os.File)
	s.SetStatic(!ok || !ui.IsTerminal(f))
	return s
}

func deployCommand(name, target, agentBinary string) error {
	return Deploy(settings, DeployOptions{
		Name:        name,
		Target:      target,
		AgentBinary: agentBinary,
		Out:         os.Stdout,
	})
}
