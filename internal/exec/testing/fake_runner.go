// Package testing provides a scripted Runner for tests that would otherwise
// shell out to systemctl, journalctl or sensors.
package testing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
)

// Response is what the fake returns for one command line.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// FakeRunner answers commands from a table keyed by the full command line,
// e.g. "systemctl is-active nginx". Unknown commands fail to start.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string]Response
	prefixes  map[string]Response
	paths     map[string]string
	calls     []string
}

// NewFakeRunner returns an empty fake.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		responses: make(map[string]Response),
		prefixes:  make(map[string]Response),
		paths:     make(map[string]string),
	}
}

// On sets the response for an exact command line.
func (f *FakeRunner) On(cmdline string, resp Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmdline] = resp
	return f
}

// OnPrefix sets the response for any command line starting with prefix.
// Exact matches win over prefixes.
func (f *FakeRunner) OnPrefix(prefix string, resp Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes[prefix] = resp
	return f
}

// Install makes LookPath find name.
func (f *FakeRunner) Install(names ...string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range names {
		f.paths[n] = "/usr/bin/" + n
	}
	return f
}

// Calls returns every command line run so far.
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Run implements exec.Runner.
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	cmdline := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmdline)

	resp, ok := f.responses[cmdline]
	if !ok {
		best := ""
		for p, r := range f.prefixes {
			if strings.HasPrefix(cmdline, p) && len(p) > len(best) {
				best, resp, ok = p, r, true
			}
		}
	}
	if !ok {
		return nil, nil, -1, errors.New(errors.ErrExec, fmt.Sprintf("Couldn't run %s", cmdline), "")
	}
	if resp.Err != nil {
		return nil, nil, -1, resp.Err
	}
	return []byte(resp.Stdout), []byte(resp.Stderr), resp.ExitCode, nil
}

// LookPath implements exec.Runner.
func (f *FakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}
