package credential

import (
	"fmt"
	"strings"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"golang.org/x/crypto/ssh"
)

// DenyOptions are the capability flags written in front of the restricted key.
var DenyOptions = []string{
	"no-port-forwarding",
	"no-X11-forwarding",
	"no-agent-forwarding",
	"no-pty",
}

// ForcedCommand is the command sshd runs for the restricted key.
func ForcedCommand(agentPath string) string {
	return agentPath + " gate"
}

// RestrictedLine builds the authorized_keys line binding publicKey to the
// agent gate:
//
//	command="<agent> gate",no-port-forwarding,no-X11-forwarding,no-agent-forwarding,no-pty <type> <base64> <tag>
func RestrictedLine(agentPath, publicKey, tag string) (string, error) {
	if strings.ContainsAny(agentPath, "\"\\\n") || agentPath == "" {
		return "", errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' can't be used as the agent path", agentPath),
			"Use a plain absolute path like /usr/local/bin/sys_info")
	}
	if strings.TrimSpace(tag) == "" || strings.ContainsAny(tag, " \t\n") {
		return "", errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' isn't a usable key tag", tag),
			"Use a single word like ai-linux-system-info")
	}

	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(publicKey))
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			"Can't parse the restricted public key",
			"Delete the key pair and deploy again")
	}
	keyText := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))

	opts := append([]string{fmt.Sprintf("command=%q", ForcedCommand(agentPath))}, DenyOptions...)
	return strings.Join(opts, ",") + " " + keyText + " " + tag, nil
}

// hasTag reports whether an authorized_keys line ends with tag as its comment.
func hasTag(line, tag string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false
	}
	fields := strings.Fields(line)
	return fields[len(fields)-1] == tag
}

// taggedLines returns the indexes of the lines carrying tag.
func taggedLines(lines []string, tag string) []int {
	var idx []int
	for i, line := range lines {
		if hasTag(line, tag) {
			idx = append(idx, i)
		}
	}
	return idx
}

func splitLines(content string) []string {
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// isRestricted reports whether line forces a command and denies forwarding
// and terminals, either flag by flag or with the restrict keyword.
func isRestricted(line string) bool {
	_, _, options, _, err := ssh.ParseAuthorizedKey([]byte(line))
	if err != nil {
		return false
	}

	hasCommand := false
	seen := make(map[string]bool)
	for _, opt := range options {
		name := strings.ToLower(opt)
		if i := strings.Index(name, "="); i >= 0 {
			name = name[:i]
		}
		if name == "command" {
			hasCommand = true
		}
		seen[name] = true
	}
	if !hasCommand {
		return false
	}
	if seen["restrict"] {
		return true
	}
	for _, deny := range DenyOptions {
		if !seen[strings.ToLower(deny)] {
			return false
		}
	}
	return true
}

func ambiguous(n int, tag, where string) error {
	return errors.New(errors.ErrCredentialAmbiguous,
		fmt.Sprintf("Found %d lines tagged '%s' in %s", n, tag, where),
		"Remove the extra lines by hand so exactly one remains, then try again")
}
