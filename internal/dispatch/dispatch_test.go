package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Bram-diederik/ai-linux-system-info/internal/alias"
	sierrors "github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records what the agent would have received.
type fakeConn struct {
	cmd    string
	stdin  string
	code   int
	err    error
	output string
	block  chan struct{}

	mu     sync.Mutex
	closed bool
}

func (c *fakeConn) ExecInteractive(cmd string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	c.cmd = cmd
	if c.block != nil {
		<-c.block
		return -1, fmt.Errorf("connection closed")
	}
	data, _ := io.ReadAll(stdin)
	c.stdin = string(data)
	io.WriteString(stdout, c.output)
	return c.code, c.err
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed && c.block != nil {
		close(c.block)
	}
	c.closed = true
	return nil
}

type dialCall struct {
	target, key string
}

func newDispatcher(t *testing.T, conn *fakeConn, dialErr error) (*Dispatcher, *[]dialCall, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	reg := alias.New(filepath.Join(t.TempDir(), "aliases"))
	require.NoError(t, reg.Upsert("pi-kitchen", "pi@192.168.1.20"))
	require.NoError(t, reg.Upsert("nas", "admin@nas.lan"))

	var calls []dialCall
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	d := &Dispatcher{
		Registry: reg,
		KeyPath:  "/home/op/.ssh/ai_linux_system_info_ed25519",
		Dial: func(target, keyPath string, _ time.Duration) (Conn, error) {
			calls = append(calls, dialCall{target, keyPath})
			if dialErr != nil {
				return nil, dialErr
			}
			return conn, nil
		},
		Stdin:  strings.NewReader("1,2\ny\n"),
		Stdout: stdout,
		Stderr: stderr,
	}
	return d, &calls, stdout, stderr
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		req        request.Request
		code       int
		wantTarget string
		wantStdin  string
	}{
		{"exact", "nas", request.NewRun(""), 0, "admin@nas.lan", "run\n"},
		{"fuzzy", "pi kitchn", request.NewRun(request.FormatJSON), 0, "pi@192.168.1.20", "run --format=json\n"},
		{"info", "NAS", request.NewInfo(request.Docker, "redis:7", ""), 0, "admin@nas.lan", "info docker redis:7\n"},
		{"exit code", "nas", request.NewRun(""), 3, "admin@nas.lan", "run\n"},
		{"setup forwards stdin", "nas", request.Request{Kind: request.Setup}, 0, "admin@nas.lan", "setup\n1,2\ny\n"},
		{"update sends no stdin", "nas", request.Request{Kind: request.UpdateScript}, 0, "admin@nas.lan", "update-script\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{code: tt.code, output: "report\n"}
			d, calls, stdout, _ := newDispatcher(t, conn, nil)

			code, err := d.Dispatch(context.Background(), tt.query, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.code, code)

			require.Len(t, *calls, 1)
			assert.Equal(t, tt.wantTarget, (*calls)[0].target)
			assert.Equal(t, d.KeyPath, (*calls)[0].key)
			assert.Equal(t, NominalCommand, conn.cmd)
			assert.Equal(t, tt.wantStdin, conn.stdin)
			assert.Equal(t, "report\n", stdout.String())
			assert.True(t, conn.closed)
		})
	}
}

func TestDispatch_AliasNotFound(t *testing.T) {
	conn := &fakeConn{}
	d, calls, _, stderr := newDispatcher(t, conn, nil)

	code, err := d.Dispatch(context.Background(), "mailserver", request.NewRun(""))
	require.Error(t, err)
	assert.True(t, sierrors.IsCode(err, sierrors.ErrAliasNotFound))
	assert.Equal(t, 1, code)
	assert.Empty(t, *calls)

	table := stderr.String()
	assert.Contains(t, table, "pi-kitchen")
	assert.Contains(t, table, "admin@nas.lan")
}

func TestDispatch_DialFails(t *testing.T) {
	d, _, _, _ := newDispatcher(t, &fakeConn{}, sierrors.New(sierrors.ErrSSH, "Can't reach 'nas'", ""))

	code, err := d.Dispatch(context.Background(), "nas", request.NewRun(""))
	require.Error(t, err)
	assert.Equal(t, 1, code)
	assert.True(t, sierrors.IsCode(err, sierrors.ErrSSH))
}

func TestDispatch_SessionError(t *testing.T) {
	conn := &fakeConn{err: errors.New("session broke")}
	d, _, _, _ := newDispatcher(t, conn, nil)

	code, err := d.Dispatch(context.Background(), "nas", request.NewRun(""))
	require.Error(t, err)
	assert.Equal(t, 1, code)
}

func TestDispatch_ContextCancelClosesConnection(t *testing.T) {
	conn := &fakeConn{block: make(chan struct{})}
	d, _, _, _ := newDispatcher(t, conn, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	code, err := d.Dispatch(ctx, "nas", request.NewRun(""))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, code)
}

func TestAliasTable(t *testing.T) {
	assert.Contains(t, AliasTable(nil), "remote_sys_info deploy")

	out := AliasTable([]alias.Entry{{Name: "nas", Target: "admin@nas.lan"}})
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "nas")
	assert.Contains(t, out, "admin@nas.lan")
}
