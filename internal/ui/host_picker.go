package ui

import (
	"io"
	"os"
	"strings"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
)

// HostInfo is one deployed alias shown in the picker.
type HostInfo struct {
	Name   string // alias, e.g. "pi-kitchen"
	Target string // user@host
}

// hostChoices lets the filter match the bare host as well as the alias
// and the target.
func hostChoices(hosts []HostInfo) []choice {
	choices := make([]choice, len(hosts))
	for i, h := range hosts {
		c := choice{title: h.Name, desc: h.Target, index: i, terms: []string{h.Target}}
		if _, bare, ok := strings.Cut(h.Target, "@"); ok {
			c.terms = append(c.terms, bare)
		}
		choices[i] = c
	}
	return choices
}

// PickHost asks which deployed host to report on. Returns nil if the user
// cancels.
func PickHost(hosts []HostInfo) (*HostInfo, error) {
	return PickHostWithOutput(hosts, os.Stdout, os.Stdin)
}

// PickHostWithOutput is PickHost on custom I/O. A single host is returned
// without asking.
func PickHostWithOutput(hosts []HostInfo, output io.Writer, input io.Reader) (*HostInfo, error) {
	switch len(hosts) {
	case 0:
		return nil, errors.New(errors.ErrConfig, "No hosts deployed yet",
			"Run: remote_sys_info deploy <name> <user@host>")
	case 1:
		return &hosts[0], nil
	}

	m, err := newPicker("Report on which host?", hostChoices(hosts), false).run(output, input)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig, "Host picker failed",
			"Pass the alias directly: remote_sys_info <alias>")
	}
	if m.result != pickChosen {
		return nil, nil
	}
	return &hosts[m.chosen], nil
}

// IsTerminal reports whether f is a character device.
func IsTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
