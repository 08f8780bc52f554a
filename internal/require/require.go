// Package require checks that the tools a report depends on are installed on
// this host before anything else runs.
package require

import (
	"regexp"
)

// validToolName matches safe tool names: alphanumeric, hyphens, underscores, and periods.
var validToolName = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._+-]*$`)

// ValidateToolName reports whether name is safe to look up.
func ValidateToolName(name string) bool {
	return validToolName.MatchString(name)
}

// Tool is one program the agent may call.
type Tool struct {
	Name     string
	Required bool
	// Purpose says what the report loses without the tool.
	Purpose string
	// Packages maps a package manager to the package providing the tool.
	Packages map[string]string
}

// CheckResult is the outcome of looking up one Tool.
type CheckResult struct {
	Tool      Tool
	Satisfied bool
	// Path is where the tool was found (if satisfied).
	Path string
	// InstallHint is a command that installs the tool on this host, when known.
	InstallHint string
}

// Name returns the tool name.
func (r CheckResult) Name() string {
	return r.Tool.Name
}

// DefaultTools is what the report agent uses.
// Battery data comes from sysfs and needs no tool.
var DefaultTools = []Tool{
	{
		Name:     "systemctl",
		Required: true,
		Purpose:  "service status and failed units",
		Packages: map[string]string{"apt-get": "systemd", "dnf": "systemd", "yum": "systemd", "pacman": "systemd", "zypper": "systemd"},
	},
	{
		Name:     "journalctl",
		Required: true,
		Purpose:  "service logs and journal errors",
		Packages: map[string]string{"apt-get": "systemd", "dnf": "systemd", "yum": "systemd", "pacman": "systemd", "zypper": "systemd"},
	},
	{
		Name:     "sensors",
		Purpose:  "temperatures",
		Packages: map[string]string{"apt-get": "lm-sensors", "dnf": "lm_sensors", "yum": "lm_sensors", "pacman": "lm_sensors", "zypper": "sensors"},
	},
	{
		Name:     "docker",
		Purpose:  "container data when the runtime is used through sudo",
		Packages: map[string]string{"apt-get": "docker.io", "dnf": "moby-engine", "pacman": "docker", "zypper": "docker"},
	},
}

// installCommands are tried in order; the first manager found on PATH wins.
var installCommands = []struct {
	manager string
	format  string
}{
	{"apt-get", "sudo apt-get install -y %s"},
	{"dnf", "sudo dnf install -y %s"},
	{"yum", "sudo yum install -y %s"},
	{"pacman", "sudo pacman -S --noconfirm %s"},
	{"zypper", "sudo zypper install -y %s"},
}
