package agent

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/request"
	"golang.org/x/term"
)

// AllowedKinds are the only requests the gate honours.
var AllowedKinds = map[request.Kind]bool{
	request.Run:          true,
	request.Info:         true,
	request.Setup:        true,
	request.UpdateScript: true,
}

// Env is what sshd tells the forced command about the session.
type Env struct {
	// TTY is SSH_TTY; sshd sets it when a terminal was allocated.
	TTY string
	// OriginalCommand is SSH_ORIGINAL_COMMAND. It is logged, never run.
	OriginalCommand string
	// Client is SSH_CLIENT: "<ip> <port> <local port>".
	Client string
	// StdinTerminal is true when stdin is a terminal.
	StdinTerminal bool
}

// EnvFromOS reads the session environment of this process.
func EnvFromOS() Env {
	return Env{
		TTY:             os.Getenv("SSH_TTY"),
		OriginalCommand: os.Getenv("SSH_ORIGINAL_COMMAND"),
		Client:          os.Getenv("SSH_CLIENT"),
		StdinTerminal:   term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// Gate is the forced-command entry point. It reads exactly one request line
// from stdin, refuses anything outside AllowedKinds or any session with a
// terminal attached, and runs the requested mode. Setup reads its answers
// from the rest of stdin.
func (a *Agent) Gate(ctx context.Context, env Env) error {
	from := env.Client
	if from == "" {
		from = "local"
	}

	if env.TTY != "" || env.StdinTerminal {
		a.Log.Warn("gate: rejected interactive session from %s (original command %q)", from, env.OriginalCommand)
		return errors.New(errors.ErrRequest,
			"Interactive sessions aren't allowed with this key",
			"Use remote_sys_info on the operator machine")
	}

	line, err := ReadRequestLine(a.Stdin)
	if err != nil {
		a.Log.Warn("gate: rejected request from %s: %v", from, err)
		return err
	}

	req, err := request.Parse(line)
	if err != nil {
		a.Log.Warn("gate: rejected %q from %s (original command %q)", line, from, env.OriginalCommand)
		return err
	}
	if !AllowedKinds[req.Kind] {
		a.Log.Warn("gate: refused %q from %s", req.Kind, from)
		return errors.New(errors.ErrRequest,
			fmt.Sprintf("'%s' isn't allowed", req.Kind), "")
	}

	a.Log.Info("gate: accepted %q from %s (original command %q)", req.String(), from, env.OriginalCommand)
	return a.Handle(ctx, req)
}

// ReadRequestLine reads up to and excluding the first newline, one byte at a
// time so nothing after the line is consumed. Lines longer than
// request.MaxLineLength are refused.
func ReadRequestLine(r io.Reader) (string, error) {
	buf := make([]byte, 0, 64)
	one := make([]byte, 1)
	for {
		n, err := r.Read(one)
		if n == 1 {
			if one[0] == '\n' {
				break
			}
			if len(buf) >= request.MaxLineLength {
				return "", errors.New(errors.ErrRequest,
					fmt.Sprintf("Request line longer than %d bytes", request.MaxLineLength), "")
			}
			buf = append(buf, one[0])
		}
		if err == io.EOF {
			if len(buf) == 0 {
				return "", errors.New(errors.ErrRequest,
					"No request received",
					"Use remote_sys_info on the operator machine")
			}
			break
		}
		if err != nil {
			return "", errors.WrapWithCode(err, errors.ErrRequest, "Can't read the request", "")
		}
	}

	line := string(buf)
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, nil
}
