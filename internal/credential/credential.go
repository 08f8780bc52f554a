// Package credential manages the restricted SSH key that can only run the
// report agent on a managed host.
//
// The key is an ordinary ed25519 pair kept on the operator machine. On the
// host it is authorized by exactly one authorized_keys line that forces the
// agent's gate command and denies forwarding and terminals. The line is found
// by its tag (the key comment, ai-linux-system-info by default). Two lines with
// the same tag are treated as corruption: install, verify and revoke all stop
// instead of guessing which one to keep.
package credential

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/logger"
	"github.com/Bram-diederik/ai-linux-system-info/internal/util"
	"github.com/Bram-diederik/ai-linux-system-info/pkg/sshutil"
)

// DefaultTag identifies the restricted line in authorized_keys.
const DefaultTag = "ai-linux-system-info"

// DefaultAgentPath is where the agent binary is installed on managed hosts.
const DefaultAgentPath = "/usr/local/bin/sys_info"

// State is where a credential is in its lifecycle.
type State int

const (
	Absent State = iota
	Generated
	InstalledUnverified
	InstalledVerified
	Revoked
	Compromised
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Generated:
		return "generated"
	case InstalledUnverified:
		return "installed (unverified)"
	case InstalledVerified:
		return "installed"
	case Revoked:
		return "revoked"
	case Compromised:
		return "compromised"
	default:
		return "unknown"
	}
}

// Status is the result of reading back the restricted line.
type Status string

const (
	StatusOK           Status = "OK"
	StatusMissing      Status = "MISSING"
	StatusUnrestricted Status = "UNRESTRICTED"
)

// Err converts a non-OK status into the error that blocks an update.
func (s Status) Err(where string) error {
	switch s {
	case StatusOK:
		return nil
	case StatusMissing:
		return errors.New(errors.ErrRestrictionMissing,
			fmt.Sprintf("No restricted key line found in %s", where),
			"Re-run from the operator machine: remote_sys_info deploy <name> <user@host>")
	default:
		return errors.New(errors.ErrRestrictionWeak,
			fmt.Sprintf("The key line in %s isn't restricted to the agent", where),
			"Re-run deploy so the line gets its command= and no-* options back")
	}
}

// StateOf maps a verify outcome onto the lifecycle.
func StateOf(keyExists bool, status Status) State {
	switch status {
	case StatusOK:
		return InstalledVerified
	case StatusUnrestricted:
		return Compromised
	}
	if keyExists {
		return Generated
	}
	return Absent
}

// Verify reads back the tagged line from store. It returns MISSING when
// there is none, UNRESTRICTED when the line lacks the forced command or one
// of the deny flags, and OK otherwise. More than one tagged line is an error.
func Verify(store Store, tag string) (Status, error) {
	content, err := store.Read()
	if err != nil {
		return "", err
	}

	lines := splitLines(content)
	idx := taggedLines(lines, tag)
	switch len(idx) {
	case 0:
		return StatusMissing, nil
	case 1:
		if isRestricted(lines[idx[0]]) {
			return StatusOK, nil
		}
		return StatusUnrestricted, nil
	default:
		return "", ambiguous(len(idx), tag, "authorized_keys")
	}
}

// Revoke removes the tagged line from store. It refuses when there is no
// such line or more than one.
func Revoke(store Store, tag string) error {
	content, err := store.Read()
	if err != nil {
		return err
	}

	lines := splitLines(content)
	idx := taggedLines(lines, tag)
	if len(idx) != 1 {
		return ambiguous(len(idx), tag, "authorized_keys")
	}

	kept := append(lines[:idx[0]:idx[0]], lines[idx[0]+1:]...)
	return store.Write(joinLines(kept))
}

// InstallOptions configures Install.
type InstallOptions struct {
	PublicKey   string // restricted public key in authorized_keys form
	Tag         string
	AgentPath   string // agent location on the host
	AgentBinary string // local agent uploaded when AgentPath is missing
	Owner       string // login user that should own the agent
	Log         logger.Logger
}

// InstallResult reports what Install changed.
type InstallResult struct {
	Line     string
	Replaced bool
	Uploaded bool
}

// Install makes sure the agent is present on the host, then rewrites the
// tagged line in store to the restricted form. When the tag already appears
// more than once nothing is written.
func Install(client sshutil.SSHClient, store Store, opts InstallOptions) (*InstallResult, error) {
	log := opts.Log
	if log == nil {
		log = logger.Noop()
	}
	if opts.Tag == "" {
		opts.Tag = DefaultTag
	}
	if opts.AgentPath == "" {
		opts.AgentPath = DefaultAgentPath
	}

	line, err := RestrictedLine(opts.AgentPath, opts.PublicKey, opts.Tag)
	if err != nil {
		return nil, err
	}

	content, err := store.Read()
	if err != nil {
		return nil, err
	}
	lines := splitLines(content)
	idx := taggedLines(lines, opts.Tag)
	if len(idx) > 1 {
		return nil, ambiguous(len(idx), opts.Tag, "authorized_keys on "+client.GetHost())
	}

	uploaded, err := ensureAgent(client, opts, log)
	if err != nil {
		return nil, err
	}

	result := &InstallResult{Line: line, Uploaded: uploaded}
	if len(idx) == 1 {
		lines = append(lines[:idx[0]:idx[0]], lines[idx[0]+1:]...)
		result.Replaced = true
	}
	lines = append(lines, line)

	if err := store.Write(joinLines(lines)); err != nil {
		return nil, err
	}
	log.Info("installed restricted key on %s (replaced=%t)", client.GetHost(), result.Replaced)
	return result, nil
}

// ensureAgent uploads the agent when it isn't executable at AgentPath and
// fixes its mode and owner.
func ensureAgent(client sshutil.SSHClient, opts InstallOptions, log logger.Logger) (bool, error) {
	agent := util.ShellQuote(opts.AgentPath)

	_, _, code, err := client.Exec("test -x " + agent)
	if err != nil {
		return false, err
	}

	uploaded := false
	if code != 0 {
		if opts.AgentBinary == "" {
			return false, errors.New(errors.ErrConfig,
				fmt.Sprintf("sys_info isn't installed at %s on %s", opts.AgentPath, client.GetHost()),
				"Pass the agent binary to upload: remote_sys_info deploy <name> <user@host> --agent-binary ./sys_info")
		}
		if err := uploadAgent(client, opts); err != nil {
			return false, err
		}
		uploaded = true
	}

	if _, stderr, code, err := client.Exec("chmod 755 " + agent); err != nil {
		return uploaded, err
	} else if code != 0 {
		return uploaded, errors.New(errors.ErrSSH,
			fmt.Sprintf("Can't make %s executable: %s", opts.AgentPath, strings.TrimSpace(string(stderr))),
			"Install the agent as root, or set agent_path to a directory the login user owns")
	}

	if opts.Owner != "" {
		// Self-update rewrites the binary, so the login user has to own it.
		_, stderr, code, err := client.Exec("chown " + util.ShellQuote(opts.Owner) + " " + agent)
		if err != nil {
			return uploaded, err
		}
		if code != 0 {
			log.Warn("couldn't chown %s to %s: %s", opts.AgentPath, opts.Owner, strings.TrimSpace(string(stderr)))
		}
	}
	return uploaded, nil
}

func uploadAgent(client sshutil.SSHClient, opts InstallOptions) error {
	f, err := os.Open(opts.AgentBinary)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't open agent binary %s", opts.AgentBinary),
			"Build it first: go build -o sys_info ./cmd/sys_info")
	}
	defer f.Close()

	dir := util.ShellQuote(path.Dir(opts.AgentPath))
	tmp := util.ShellQuote(opts.AgentPath + ".upload")

	if _, stderr, code, err := client.Exec("mkdir -p " + dir); err != nil {
		return err
	} else if code != 0 {
		return uploadFailed(client, opts, stderr)
	}
	if _, stderr, code, err := client.ExecInput("cat > "+tmp, f); err != nil {
		return err
	} else if code != 0 {
		return uploadFailed(client, opts, stderr)
	}
	if _, stderr, code, err := client.Exec("mv -f " + tmp + " " + util.ShellQuote(opts.AgentPath)); err != nil {
		return err
	} else if code != 0 {
		client.Exec("rm -rf " + tmp)
		return uploadFailed(client, opts, stderr)
	}
	return nil
}

func uploadFailed(client sshutil.SSHClient, opts InstallOptions, stderr []byte) error {
	return errors.New(errors.ErrSSH,
		fmt.Sprintf("Couldn't upload the agent to %s:%s: %s", client.GetHost(), opts.AgentPath, strings.TrimSpace(string(stderr))),
		"Install the agent as root, or set agent_path to a directory the login user owns")
}
