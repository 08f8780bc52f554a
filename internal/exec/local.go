// Package exec runs local commands on behalf of the report agent.
//
// Commands are started directly, never through a shell, so names coming from
// the monitoring config or a request can't smuggle in shell syntax.
package exec

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
)

// Runner runs a local program and captures what it prints.
// A non-zero exit is reported through exitCode with a nil error; err is only
// set when the program couldn't be started at all.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, exitCode int, err error)
	LookPath(name string) (string, error)
}

// LocalRunner runs programs on this machine.
type LocalRunner struct {
	// Prefix is prepended to every command, e.g. []string{"sudo", "-n"}.
	Prefix []string
}

// NewLocalRunner returns a runner with no prefix.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{}
}

// WithPrefix returns a copy of r that runs every command behind prefix.
func (r *LocalRunner) WithPrefix(prefix ...string) *LocalRunner {
	return &LocalRunner{Prefix: append(append([]string{}, r.Prefix...), prefix...)}
}

// Run implements Runner.
func (r *LocalRunner) Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, exitCode int, err error) {
	argv := append(append(append([]string{}, r.Prefix...), name), args...)

	command := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var outBuf, errBuf bytes.Buffer
	command.Stdout = &outBuf
	command.Stderr = &errBuf

	runErr := command.Run()
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return outBuf.Bytes(), errBuf.Bytes(), exitErr.ExitCode(), nil
		}
		return nil, nil, -1, errors.WrapWithCode(runErr, errors.ErrExec,
			"Couldn't run "+strings.Join(argv, " "),
			"Make sure the command exists and is executable.")
	}

	return outBuf.Bytes(), errBuf.Bytes(), 0, nil
}

// LookPath implements Runner.
func (r *LocalRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Output runs a program through r and returns trimmed stdout when it exits 0.
func Output(ctx context.Context, r Runner, name string, args ...string) (string, error) {
	stdout, stderr, code, err := r.Run(ctx, name, args...)
	if err != nil {
		return "", err
	}
	if code != 0 {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = "exit status " + strconv.Itoa(code)
		}
		return "", errors.New(errors.ErrExec,
			name+" failed: "+msg, "")
	}
	return strings.TrimSpace(string(stdout)), nil
}
