package testing

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// CommandResponse is a canned answer for commands matching a pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
}

type cannedResponse struct {
	pattern *regexp.Regexp
	exact   string
	resp    CommandResponse
}

// MockClient is a fake SSH connection to a managed host. It understands
// the commands used to edit authorized_keys and upload the agent; canned
// responses override that and anything else exits 0.
type MockClient struct {
	mu      sync.Mutex
	host    string
	fs      *MockFS
	closed  bool
	canned  []cannedResponse
	history []string
}

// NewMockClient returns a client for host with an empty filesystem.
func NewMockClient(host string) *MockClient {
	return &MockClient{host: host, fs: NewMockFS()}
}

// Exec runs cmd against the fake host.
func (m *MockClient) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	return m.run(cmd, nil)
}

// ExecInput runs cmd with r as stdin. Only "cat > path" reads it.
func (m *MockClient) ExecInput(cmd string, r io.Reader) (stdout, stderr []byte, exitCode int, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, -1, err
	}
	return m.run(cmd, data)
}

func (m *MockClient) run(cmd string, stdin []byte) ([]byte, []byte, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, -1, errors.New("connection closed")
	}
	m.history = append(m.history, cmd)

	// Later registrations win so a test can override an earlier one.
	for i := len(m.canned) - 1; i >= 0; i-- {
		c := m.canned[i]
		if cmd == c.exact || (c.pattern != nil && c.pattern.MatchString(cmd)) {
			return c.resp.Stdout, c.resp.Stderr, c.resp.ExitCode, c.resp.Error
		}
	}

	cmd = strings.TrimSpace(strings.TrimSuffix(cmd, " 2>/dev/null"))
	name, args, _ := strings.Cut(cmd, " ")
	switch name {
	case "cat":
		if rest, ok := strings.CutPrefix(args, "> "); ok {
			return m.catWrite(firstArg(rest), stdin)
		}
		return m.catRead(firstArg(args))
	case "mkdir":
		return m.mkdir(args)
	case "rm":
		return m.rm(args)
	case "mv":
		return m.mv(args)
	case "chmod":
		return m.chmod(args)
	case "chown":
		return m.chown(args)
	case "test", "[":
		return m.test(strings.TrimSuffix(args, " ]"))
	}
	return nil, nil, 0, nil
}

// History returns every command run so far, in order.
func (m *MockClient) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.history...)
}

// Close marks the connection closed; later commands fail.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetHost returns the host the client was created for.
func (m *MockClient) GetHost() string {
	return m.host
}

// SetCommandResponse answers commands equal to pattern, or matching it as
// a regular expression, with resp.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := cannedResponse{exact: pattern, resp: resp}
	if re, err := regexp.Compile(pattern); err == nil {
		c.pattern = re
	}
	m.canned = append(m.canned, c)
}

// GetFS returns the host's filesystem.
func (m *MockClient) GetFS() *MockFS {
	return m.fs
}

func fail(format string, args ...any) ([]byte, []byte, int, error) {
	return nil, []byte(fmt.Sprintf(format, args...)), 1, nil
}

func (m *MockClient) catWrite(path string, data []byte) ([]byte, []byte, int, error) {
	if path == "" {
		return fail("cat: missing output file")
	}
	if err := m.fs.WriteFile(path, data); err != nil {
		return fail("sh: %s: %v", path, err)
	}
	return nil, nil, 0, nil
}

func (m *MockClient) catRead(path string) ([]byte, []byte, int, error) {
	data, err := m.fs.ReadFile(path)
	if err != nil {
		return fail("cat: %s: No such file or directory", path)
	}
	return data, nil, 0, nil
}

func (m *MockClient) mkdir(args string) ([]byte, []byte, int, error) {
	rest, parents := strings.CutPrefix(args, "-p ")
	path := firstArg(rest)
	if path == "" {
		return fail("mkdir: missing operand")
	}
	create := m.fs.Mkdir
	if parents {
		create = m.fs.MkdirAll
	}
	if err := create(path); err != nil {
		return fail("mkdir: cannot create directory '%s': %v", path, err)
	}
	return nil, nil, 0, nil
}

func (m *MockClient) rm(args string) ([]byte, []byte, int, error) {
	args = strings.TrimSpace(strings.TrimPrefix(args, "-rf "))
	path := firstArg(args)
	if path == "" {
		return fail("rm: missing operand")
	}
	_ = m.fs.Remove(path)
	return nil, nil, 0, nil
}

func (m *MockClient) mv(args string) ([]byte, []byte, int, error) {
	operands := splitArgs(strings.TrimPrefix(args, "-f "))
	if len(operands) != 2 {
		return fail("mv: missing file operand")
	}
	if err := m.fs.Rename(operands[0], operands[1]); err != nil {
		return fail("mv: cannot stat '%s': No such file or directory", operands[0])
	}
	return nil, nil, 0, nil
}

func (m *MockClient) chmod(args string) ([]byte, []byte, int, error) {
	operands := splitArgs(args)
	if len(operands) != 2 {
		return fail("chmod: missing operand")
	}
	mode, err := strconv.ParseUint(operands[0], 8, 32)
	if err != nil {
		return fail("chmod: invalid mode: '%s'", operands[0])
	}
	if err := m.fs.Chmod(operands[1], os.FileMode(mode)); err != nil {
		return fail("chmod: cannot access '%s': No such file or directory", operands[1])
	}
	return nil, nil, 0, nil
}

func (m *MockClient) chown(args string) ([]byte, []byte, int, error) {
	operands := splitArgs(args)
	if len(operands) != 2 {
		return fail("chown: missing operand")
	}
	if !m.fs.Exists(operands[1]) {
		return fail("chown: cannot access '%s': No such file or directory", operands[1])
	}
	return nil, nil, 0, nil
}

// test handles -d, -e, -f and -x. Modes aren't checked for -x: a file placed
// by the test counts as installed.
func (m *MockClient) test(args string) ([]byte, []byte, int, error) {
	op, rest, _ := strings.Cut(args, " ")
	path := firstArg(rest)
	ok := false
	switch op {
	case "-d":
		ok = m.fs.IsDir(path)
	case "-f", "-x":
		ok = m.fs.IsFile(path)
	case "-e":
		ok = m.fs.Exists(path)
	}
	if ok {
		return nil, nil, 0, nil
	}
	return nil, nil, 1, nil
}

// splitArgs splits a command line into words, honouring single and double
// quotes.
func splitArgs(s string) []string {
	var words []string
	for s = strings.TrimSpace(s); s != ""; s = strings.TrimSpace(s) {
		word, n := nextWord(s)
		words = append(words, word)
		s = s[n:]
	}
	return words
}

func nextWord(s string) (string, int) {
	if q := s[0]; q == '\'' || q == '"' {
		if end := strings.IndexByte(s[1:], q); end != -1 {
			return s[1 : end+1], end + 2
		}
	}
	if end := strings.IndexAny(s, " \t"); end != -1 {
		return s[:end], end
	}
	return s, len(s)
}

// firstArg returns the first word of s with its quotes removed.
func firstArg(s string) string {
	if words := splitArgs(s); len(words) > 0 {
		return words[0]
	}
	return ""
}
