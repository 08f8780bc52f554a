// Package dispatch sends one request to a managed host over its restricted
// key and streams the agent's answer back.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Bram-diederik/ai-linux-system-info/internal/alias"
	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/logger"
	"github.com/Bram-diederik/ai-linux-system-info/internal/request"
	"github.com/Bram-diederik/ai-linux-system-info/internal/ui"
	"github.com/Bram-diederik/ai-linux-system-info/pkg/sshutil"
)

// NominalCommand is sent as the session command. The forced command on the
// host replaces it, so it only shows up in the agent's audit log.
const NominalCommand = "sys_info"

// DefaultConnectTimeout bounds the TCP connect and handshake.
const DefaultConnectTimeout = 10 * time.Second

// Conn is a connection that can run one interactive session.
type Conn interface {
	ExecInteractive(cmd string, stdin io.Reader, stdout, stderr io.Writer) (int, error)
	Close() error
}

// DialFunc connects to target offering only the key at keyPath.
type DialFunc func(target, keyPath string, timeout time.Duration) (Conn, error)

// DialRestricted is the production DialFunc.
func DialRestricted(target, keyPath string, timeout time.Duration) (Conn, error) {
	c, err := sshutil.DialWithKey(target, keyPath, timeout)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Dispatcher resolves aliases and runs requests.
type Dispatcher struct {
	Registry *alias.Registry
	KeyPath  string
	Dial     DialFunc
	Timeout  time.Duration

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Log    logger.Logger
}

// Dispatch resolves name, sends req and returns the agent's exit code.
// An unknown alias prints the known ones to Stderr and returns 1.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, req request.Request) (int, error) {
	log := d.Log
	if log == nil {
		log = logger.Noop()
	}

	entry, err := d.Registry.Resolve(name)
	if err != nil {
		if errors.IsCode(err, errors.ErrAliasNotFound) {
			fmt.Fprint(d.Stderr, AliasTable(d.Registry.List()))
		}
		return 1, err
	}
	if alias.Normalize(entry.Name) != alias.Normalize(name) {
		log.Info("'%s' matched host '%s'", name, entry.Name)
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	dial := d.Dial
	if dial == nil {
		dial = DialRestricted
	}

	conn, err := dial(entry.Target, d.KeyPath, timeout)
	if err != nil {
		return 1, err
	}
	defer conn.Close()

	// Closing the connection unblocks the session when ctx ends first.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	var stdin io.Reader = strings.NewReader(req.String() + "\n")
	if req.Kind == request.Setup && d.Stdin != nil {
		stdin = io.MultiReader(stdin, d.Stdin)
	}

	log.Debug("sending %q to %s (%s)", req.String(), entry.Name, entry.Target)
	code, err := conn.ExecInteractive(NominalCommand, stdin, d.Stdout, d.Stderr)
	if err != nil {
		if ctx.Err() != nil {
			return 1, ctx.Err()
		}
		return 1, err
	}
	return code, nil
}

// AliasTable renders entries as a two-column table, or a hint when empty.
func AliasTable(entries []alias.Entry) string {
	if len(entries) == 0 {
		return "No hosts yet. Add one with: remote_sys_info deploy <name> <user@host>\n"
	}

	nameWidth, targetWidth := len("NAME"), len("TARGET")
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.Name, e.Target}
		nameWidth = max(nameWidth, len(e.Name))
		targetWidth = max(targetWidth, len(e.Target))
	}

	return ui.RenderSimpleTable([]ui.TableColumn{
		{Title: "NAME", Width: nameWidth + 2},
		{Title: "TARGET", Width: targetWidth + 2},
	}, rows) + "\n"
}
