package credential

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"golang.org/x/crypto/ssh"
)

// KeyInfo describes an SSH key found on the operator machine.
type KeyInfo struct {
	Path       string // Full path to private key
	Type       string // Key type (ed25519, rsa, ecdsa)
	PublicPath string // Path to public key
	HasPublic  bool   // Whether public key file exists
}

// DefaultKeyPaths returns the standard locations of the operator's own keys.
// These are used for admin access during deploy, never for dispatch.
func DefaultKeyPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	return []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_rsa"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
	}
}

// FindLocalKeys returns the operator keys that exist on disk.
func FindLocalKeys() []KeyInfo {
	var keys []KeyInfo

	for _, path := range DefaultKeyPaths() {
		if _, err := os.Stat(path); err == nil {
			pubPath := path + ".pub"
			_, pubErr := os.Stat(pubPath)

			keys = append(keys, KeyInfo{
				Path:       path,
				Type:       inferKeyType(path),
				PublicPath: pubPath,
				HasPublic:  pubErr == nil,
			})
		}
	}

	return keys
}

// GetPreferredKey returns the best available operator key (prefers ed25519).
func GetPreferredKey() *KeyInfo {
	keys := FindLocalKeys()
	if len(keys) == 0 {
		return nil
	}

	for _, want := range []string{"ed25519", "ecdsa", ""} {
		for _, key := range keys {
			if key.HasPublic && (want == "" || key.Type == want) {
				return &key
			}
		}
	}

	return &keys[0]
}

// DefaultKeyPath is where the restricted private key lives unless configured otherwise.
func DefaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.ssh/ai_linux_system_info_ed25519"
	}
	return filepath.Join(home, ".ssh", "ai_linux_system_info_ed25519")
}

// Generate creates the restricted ed25519 key pair at keyPath with no
// passphrase. The public key carries tag as its comment. It returns false
// without touching anything when a private key already exists; a missing
// .pub next to it is rebuilt from the private key.
func Generate(keyPath, tag string) (bool, error) {
	path, err := expandHome(keyPath)
	if err != nil {
		return false, err
	}

	if data, err := os.ReadFile(path); err == nil {
		if _, err := os.Stat(path + ".pub"); os.IsNotExist(err) {
			if err := rebuildPublicKey(path, data, tag); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to create SSH directory: %s", dir),
			"Check permissions on home directory")
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrSSH, "Failed to generate SSH key", "")
	}

	block, err := ssh.MarshalPrivateKey(priv, tag)
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrSSH, "Failed to encode SSH key", "")
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to write %s", path),
			"Check disk space and permissions")
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrSSH, "Failed to encode public key", "")
	}
	if err := writePublicKey(path+".pub", sshPub, tag); err != nil {
		return false, err
	}

	return true, nil
}

func rebuildPublicKey(path string, privPEM []byte, tag string) error {
	signer, err := ssh.ParsePrivateKey(privPEM)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't read private key %s", path),
			"Delete it and deploy again to create a fresh key")
	}
	return writePublicKey(path+".pub", signer.PublicKey(), tag)
}

func writePublicKey(path string, key ssh.PublicKey, tag string) error {
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key))) + " " + tag + "\n"
	if err := os.WriteFile(path, []byte(line), 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to write %s", path),
			"Check disk space and permissions")
	}
	return nil
}

// ReadPublicKey reads the contents of a public key file.
func ReadPublicKey(pubPath string) (string, error) {
	path, err := expandHome(pubPath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to read public key: %s", pubPath),
			"Check that the file exists and is readable")
	}
	return strings.TrimSpace(string(data)), nil
}

// inferKeyType determines key type from filename.
func inferKeyType(path string) string {
	base := filepath.Base(path)
	switch {
	case strings.Contains(base, "ed25519"):
		return "ed25519"
	case strings.Contains(base, "ecdsa"):
		return "ecdsa"
	case strings.Contains(base, "rsa"):
		return "rsa"
	default:
		return "unknown"
	}
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to determine home directory",
			"Set HOME environment variable")
	}
	return filepath.Join(home, path[1:]), nil
}
