package ui

import (
	"io"
	"os"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
)

// SSHHostInfo is a Host entry from ~/.ssh/config offered as a deploy target.
type SSHHostInfo struct {
	Alias       string
	Hostname    string
	User        string
	Port        string
	Description string
	Target      string // user@host[:port] the alias expands to
}

func sshHostChoices(hosts []SSHHostInfo) []choice {
	choices := make([]choice, len(hosts))
	for i, h := range hosts {
		choices[i] = choice{
			title: h.Alias,
			desc:  h.Description,
			terms: []string{h.Hostname, h.User, h.Target},
			index: i,
		}
	}
	return choices
}

// PickSSHHost shows the ~/.ssh/config picker. It returns the picked host,
// (nil, false) when the user wants to type a target, or (nil, true) on cancel.
func PickSSHHost(hosts []SSHHostInfo) (*SSHHostInfo, bool, error) {
	return PickSSHHostWithOutput(hosts, os.Stdout, os.Stdin)
}

// PickSSHHostWithOutput is PickSSHHost on custom I/O. With no hosts there
// is nothing to pick and the caller asks for a target.
func PickSSHHostWithOutput(hosts []SSHHostInfo, output io.Writer, input io.Reader) (*SSHHostInfo, bool, error) {
	if len(hosts) == 0 {
		return nil, false, nil
	}

	m, err := newPicker("Deploy to which host from ~/.ssh/config?", sshHostChoices(hosts), true).run(output, input)
	if err != nil {
		return nil, false, errors.WrapWithCode(err, errors.ErrConfig, "SSH host picker failed",
			"Pass the target directly: remote_sys_info deploy <name> <user@host>")
	}
	switch m.result {
	case pickChosen:
		return &hosts[m.chosen], false, nil
	case pickTyped:
		return nil, false, nil
	}
	return nil, true, nil
}
