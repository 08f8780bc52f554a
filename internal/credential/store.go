package credential

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/util"
	"github.com/Bram-diederik/ai-linux-system-info/pkg/sshutil"
)

// DefaultRemoteStorePath is the authorized_keys file relative to the login
// directory of an SSH session.
const DefaultRemoteStorePath = ".ssh/authorized_keys"

// Store is an authorization store: the full text of an authorized_keys file.
// A missing file reads as empty. Write replaces the whole file.
type Store interface {
	Read() (string, error)
	Write(content string) error
}

// FileStore is an authorized_keys file on the local machine. The agent uses
// it to check its own restriction before self-update.
type FileStore struct {
	Path string
}

// NewFileStore returns a store for the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Read returns the file content, or "" when it doesn't exist.
func (s *FileStore) Read() (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't read %s", s.Path),
			"Check the file permissions")
	}
	return string(data), nil
}

// Write replaces the file through a temp file and rename.
func (s *FileStore) Write(content string) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't create %s", dir), "")
	}

	tmp, err := os.CreateTemp(dir, ".authorized_keys-*")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't write to %s", dir), "Check the directory permissions")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return errors.WrapWithCode(err, errors.ErrConfig, "Can't write authorized_keys", "")
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return errors.WrapWithCode(err, errors.ErrConfig, "Can't set authorized_keys permissions", "")
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Can't write authorized_keys", "")
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't replace %s", s.Path), "")
	}
	return nil
}

// RemoteStore is an authorized_keys file on a host reached over an admin
// SSH connection.
type RemoteStore struct {
	client sshutil.SSHClient
	path   string
}

// NewRemoteStore returns a store for path on the client's host. An empty
// path means DefaultRemoteStorePath; "~/" is the login directory.
func NewRemoteStore(client sshutil.SSHClient, p string) *RemoteStore {
	p = strings.TrimPrefix(p, "~/")
	if p == "" || p == "~" {
		p = DefaultRemoteStorePath
	}
	return &RemoteStore{client: client, path: p}
}

// Read fetches the file with cat, or "" when it doesn't exist.
func (s *RemoteStore) Read() (string, error) {
	quoted := util.ShellQuote(s.path)

	_, _, code, err := s.client.Exec("test -f " + quoted)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", nil
	}

	stdout, stderr, code, err := s.client.Exec("cat " + quoted)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", errors.New(errors.ErrSSH,
			fmt.Sprintf("Can't read %s on %s: %s", s.path, s.client.GetHost(), strings.TrimSpace(string(stderr))),
			"Check the file permissions on the remote host")
	}
	return string(stdout), nil
}

// Write uploads content next to the target and moves it into place.
func (s *RemoteStore) Write(content string) error {
	dir := path.Dir(s.path)
	tmp := s.path + ".sys_info.tmp"

	steps := []struct {
		cmd   string
		input string
		feed  bool
	}{
		{cmd: "mkdir -p " + util.ShellQuote(dir)},
		{cmd: "chmod 700 " + util.ShellQuote(dir)},
		{cmd: "cat > " + util.ShellQuote(tmp), input: content, feed: true},
		{cmd: "chmod 600 " + util.ShellQuote(tmp)},
		{cmd: "mv -f " + util.ShellQuote(tmp) + " " + util.ShellQuote(s.path)},
	}

	for _, step := range steps {
		var (
			stderr []byte
			code   int
			err    error
		)
		if step.feed {
			_, stderr, code, err = s.client.ExecInput(step.cmd, strings.NewReader(step.input))
		} else {
			_, stderr, code, err = s.client.Exec(step.cmd)
		}
		if err != nil {
			return err
		}
		if code != 0 {
			s.client.Exec("rm -rf " + util.ShellQuote(tmp))
			return errors.New(errors.ErrSSH,
				fmt.Sprintf("Couldn't update %s on %s: %s", s.path, s.client.GetHost(), strings.TrimSpace(string(stderr))),
				"Check the permissions of ~/.ssh on the remote host")
		}
	}
	return nil
}
