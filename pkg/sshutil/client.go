package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Client is an open SSH connection to a managed host.
type Client struct {
	*ssh.Client
	Host    string // target as the caller gave it
	Address string // host:port actually dialed
	User    string
}

// StrictHostKeyChecking turns known_hosts verification on. Config sets it
// from strict_host_key_checking.
var StrictHostKeyChecking = true

// Dial opens an admin connection to host, which may be an ~/.ssh/config
// alias, hostname, user@hostname or any of those with :port. It
// authenticates with the agent, SYS_INFO_SSH_KEY, the config's
// IdentityFile and the default key files, in that order.
func Dial(host string, timeout time.Duration) (*Client, error) {
	settings := resolveSSHSettings(host)

	auth := adminAuth(settings)
	if len(auth) == 0 {
		return nil, errors.New(errors.ErrSSH,
			"No SSH auth methods available",
			"Load a key with ssh-add, or point SYS_INFO_SSH_KEY at one")
	}
	return dial(host, settings, auth, timeout)
}

// DialWithKey connects to host offering only the private key at keyPath.
// The agent and default key files are never consulted, so the server can
// only match the restricted authorized_keys line bound to that key.
func DialWithKey(host, keyPath string, timeout time.Duration) (*Client, error) {
	settings := resolveSSHSettings(host)

	keyAuth, err := keyFileAuth(expandPath(keyPath))
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) {
			return nil, errors.New(errors.ErrSSH,
				fmt.Sprintf("SSH key at %s is encrypted", keyPath),
				"The restricted key must not have a passphrase. Re-run: remote_sys_info deploy")
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't load key %s", keyPath),
			"Create it with: remote_sys_info deploy <name> <user@host>")
	}
	return dial(host, settings, []ssh.AuthMethod{keyAuth}, timeout)
}

func dial(host string, settings *sshSettings, auth []ssh.AuthMethod, timeout time.Duration) (*Client, error) {
	hostKeyCallback, err := hostKeyCallbackFor()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Can't load known_hosts",
			"Check ~/.ssh/known_hosts is readable")
	}
	config := &ssh.ClientConfig{
		User:            settings.user,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	address := settings.address()
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()

		var mismatch *HostKeyMismatchError
		if stderrors.As(err, &mismatch) {
			return nil, errors.New(errors.ErrSSH, mismatch.Error(), mismatch.Suggestion())
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			suggestionForHandshakeError(err))
	}

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    host,
		Address: address,
		User:    settings.user,
	}, nil
}

// ResolveTarget expands host through ~/.ssh/config and returns it in
// user@hostname form, with :port appended when it is not 22.
func ResolveTarget(host string) string {
	s := resolveSSHSettings(host)
	target := s.user + "@" + s.hostname
	if s.port != "22" {
		target += ":" + s.port
	}
	return target
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the target the connection was opened for.
func (c *Client) GetHost() string {
	return c.Host
}

type sshSettings struct {
	hostname     string
	port         string
	user         string
	identityFile string
}

func (s *sshSettings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSSHSettings splits host into user, hostname and port, then lets
// a matching ~/.ssh/config block fill in what it names. An explicit user@
// always wins over the config's User.
func resolveSSHSettings(host string) *sshSettings {
	s := &sshSettings{port: "22", user: currentUser()}

	user, rest, explicitUser := strings.Cut(host, "@")
	if explicitUser {
		s.user = user
		host = rest
	} else if u := os.Getenv("SYS_INFO_SSH_USER"); u != "" {
		s.user = u
	}

	if i := strings.LastIndex(host, ":"); i != -1 && isPort(host[i+1:]) {
		s.port = host[i+1:]
		host = host[:i]
	}
	s.hostname = host

	cfg, err := readSSHConfig(filepath.Join(homeDir(), ".ssh", "config"))
	if err != nil {
		return s
	}
	if v, _ := cfg.Get(host, "HostName"); v != "" {
		s.hostname = v
	}
	if v, _ := cfg.Get(host, "Port"); v != "" {
		s.port = v
	}
	if v, _ := cfg.Get(host, "User"); v != "" && !explicitUser {
		s.user = v
	}
	if v, _ := cfg.Get(host, "IdentityFile"); v != "" {
		s.identityFile = expandPath(v)
	}
	return s
}

func isPort(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// readSSHConfig decodes the ssh config at path. ssh_config can't parse
// Match blocks, so everything from the first one on is ignored.
func readSSHConfig(path string) (*ssh_config.Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			lines = lines[:i]
			break
		}
	}
	return ssh_config.Decode(bytes.NewReader([]byte(strings.Join(lines, "\n"))))
}

// adminAuth collects every usable admin credential. Keys that fail to load
// are skipped; the handshake error explains a total miss.
func adminAuth(s *sshSettings) []ssh.AuthMethod {
	var methods []ssh.AuthMethod
	if a := sshAgentAuth(); a != nil {
		methods = append(methods, a)
	}

	keys := []string{
		os.Getenv("SYS_INFO_SSH_KEY"),
		s.identityFile,
		filepath.Join(homeDir(), ".ssh", "id_ed25519"),
		filepath.Join(homeDir(), ".ssh", "id_rsa"),
		filepath.Join(homeDir(), ".ssh", "id_ecdsa"),
	}
	tried := make(map[string]bool)
	for _, k := range keys {
		if k == "" || tried[k] {
			continue
		}
		tried[k] = true
		if auth, err := keyFileAuth(expandPath(k)); err == nil {
			methods = append(methods, auth)
		}
	}
	return methods
}

// hostKeyCallbackFor picks known_hosts verification or, when
// StrictHostKeyChecking is off, accepts any host key.
func hostKeyCallbackFor() (ssh.HostKeyCallback, error) {
	if !StrictHostKeyChecking {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // disabled through strict_host_key_checking: false
	}
	return createHostKeyCallback(filepath.Join(homeDir(), ".ssh", "known_hosts"))
}

// One agent connection serves every dial in the process.
var (
	agentConn     net.Conn
	agentClient   agent.ExtendedAgent
	agentConnOnce sync.Once
)

// sshAgentAuth returns agent auth, or nil when there is no agent or it
// holds no keys. An empty agent ahead of key files makes auth fail.
func sshAgentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	agentConnOnce.Do(func() {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return
		}
		agentConn = conn
		agentClient = agent.NewClient(conn)
	})
	if agentClient == nil {
		return nil
	}

	signers, err := agentClient.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}
	return ssh.PublicKeysCallback(agentClient.Signers)
}

// CloseAgent closes the shared agent connection. Call it on exit.
func CloseAgent() {
	if agentConn != nil {
		agentConn.Close()
	}
}

// keyFileAuth loads a private key. An encrypted key fails with
// *ssh.PassphraseMissingError.
func keyFileAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func suggestionForDialError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Is SSH running on that box? Try: ssh <host>"
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "Can't route to the host. Check your network connection."
	case strings.Contains(msg, "timeout"):
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"), strings.Contains(msg, "no supported methods"):
		return "Auth failed. A passphrase-protected key has to be in the agent: ssh-add <key>"
	case strings.Contains(msg, "host key"):
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}

// HostKeyMismatchError is a known_hosts entry that doesn't match the key
// the server offered.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion tells the user how to refresh known_hosts.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	known := make([]string, 0, len(e.Want))
	for _, k := range e.Want {
		known = append(known, k.Key.Type())
	}
	return fmt.Sprintf(
		"known_hosts has %s for this host but the server sent %s.\n"+
			"If the host was reinstalled, drop the old entry and connect once by hand:\n"+
			"    ssh-keygen -R %s -f %s\n"+
			"    ssh %s",
		strings.Join(known, ", "), e.ReceivedType, host, e.KnownHosts, host)
}

// createHostKeyCallback verifies against knownHostsPath, creating an empty
// file when there is none, and turns key mismatches into
// *HostKeyMismatchError.
func createHostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0700); err != nil {
			return nil, fmt.Errorf("failed to create .ssh directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, nil, 0600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   knownHostsPath,
				Want:         keyErr.Want,
			}
		}
		return err
	}, nil
}
