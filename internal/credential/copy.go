package credential

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
)

// ssh-copy-id and where its messages go; tests point them elsewhere.
var (
	sshCopyID              = "ssh-copy-id"
	copyIDStdout io.Writer = os.Stdout
	copyIDStderr io.Writer = os.Stderr
)

// CopyKey installs one of the operator's own keys on target with ssh-copy-id,
// so that deploy can open the admin connection it needs. ssh-copy-id talks to
// the terminal directly and may prompt for a password.
func CopyKey(target string, keyPath string) error {
	if keyPath == "" {
		key := GetPreferredKey()
		if key == nil {
			return errors.New(errors.ErrSSH,
				"No SSH keys on this machine",
				"Generate one first: ssh-keygen -t ed25519")
		}
		keyPath = key.Path
	}

	pubKeyPath := keyPath
	if !strings.HasSuffix(pubKeyPath, ".pub") {
		pubKeyPath = keyPath + ".pub"
	}

	path, err := exec.LookPath(sshCopyID)
	if err != nil {
		return errors.New(errors.ErrSSH,
			"Can't find ssh-copy-id",
			"Install OpenSSH, or copy the key manually:\n\n"+CopyKeyManual(target, pubKeyPath))
	}

	// ssh-copy-id reports failures on stderr; keep a copy to explain them.
	var stderr bytes.Buffer
	cmd := exec.Command(path, "-i", pubKeyPath, target)
	cmd.Stdin = os.Stdin
	cmd.Stdout = copyIDStdout
	cmd.Stderr = io.MultiWriter(copyIDStderr, &stderr)
	if err := cmd.Run(); err != nil {
		outputStr := stderr.String()

		if strings.Contains(outputStr, "Permission denied") {
			return errors.New(errors.ErrSSH,
				fmt.Sprintf("Permission denied on %s", target),
				"Double-check the password or credentials and try again.")
		}
		if strings.Contains(outputStr, "Could not resolve hostname") {
			return errors.New(errors.ErrSSH,
				fmt.Sprintf("Can't resolve hostname %s", target),
				"Check the hostname and your network connection.")
		}

		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't copy SSH key to %s", target),
			"Try manually: ssh-copy-id -i "+pubKeyPath+" "+target)
	}

	return nil
}

// CopyKeyManual returns the shell instructions for installing a key by hand.
func CopyKeyManual(target string, pubKeyPath string) string {
	pubKey, err := ReadPublicKey(pubKeyPath)
	if err != nil {
		return fmt.Sprintf(`  cat %s | ssh %s "mkdir -p ~/.ssh && chmod 700 ~/.ssh && cat >> ~/.ssh/authorized_keys && chmod 600 ~/.ssh/authorized_keys"`,
			pubKeyPath, target)
	}

	return fmt.Sprintf(`  ssh %s "mkdir -p ~/.ssh && chmod 700 ~/.ssh && echo '%s' >> ~/.ssh/authorized_keys && chmod 600 ~/.ssh/authorized_keys"`,
		target, pubKey)
}
