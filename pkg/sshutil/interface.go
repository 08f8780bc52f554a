package sshutil

import "io"

// SSHClient defines the interface for SSH command execution.
// Both the real Client and mock implementations satisfy this interface.
//
// The mock implementation in pkg/sshutil/testing keeps a virtual filesystem
// that answers the shell commands used to manage authorized_keys and upload
// the agent.
type SSHClient interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	Exec(cmd string) (stdout, stderr []byte, exitCode int, err error)

	// ExecInput runs a command with stdin read from r.
	ExecInput(cmd string, r io.Reader) (stdout, stderr []byte, exitCode int, err error)

	// Close closes the SSH connection.
	Close() error

	// GetHost returns the target the connection was opened for.
	GetHost() string
}
