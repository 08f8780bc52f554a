package config

import "time"

// CurrentConfigVersion is the schema version for both settings files.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// OperatorConfig holds remote_sys_info settings.
type OperatorConfig struct {
	Version int `yaml:"version" mapstructure:"version"`

	// RegistryPath is the alias file (<name> <user@host> per line).
	RegistryPath string `yaml:"registry_path" mapstructure:"registry_path"`

	// KeyPath is the restricted private key. The public key is KeyPath + ".pub".
	KeyPath string `yaml:"key_path" mapstructure:"key_path"`

	// Tag identifies the restricted line in authorized_keys.
	Tag string `yaml:"tag" mapstructure:"tag"`

	// AgentPath is where sys_info lives on managed hosts.
	AgentPath string `yaml:"agent_path" mapstructure:"agent_path"`

	// AgentBinary is a local sys_info build uploaded when a host lacks one.
	AgentBinary string `yaml:"agent_binary" mapstructure:"agent_binary"`

	// ProbeTimeout bounds connection attempts during deploy and verify.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`

	// StrictHostKeyChecking rejects hosts missing from known_hosts.
	StrictHostKeyChecking bool `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`
}

// AgentConfig holds sys_info settings on a managed host.
type AgentConfig struct {
	Version int `yaml:"version" mapstructure:"version"`

	// MonitoringPath is the monitoring config written by setup.
	MonitoringPath string `yaml:"monitoring_path" mapstructure:"monitoring_path"`

	// AuthorizedKeysPath is checked before and after a self-update.
	AuthorizedKeysPath string `yaml:"authorized_keys_path" mapstructure:"authorized_keys_path"`

	Tag string `yaml:"tag" mapstructure:"tag"`

	// UpdateBaseURL is the release location; binaries are fetched from
	// <base>/download/v<version>/sys_info-linux-<arch>.
	UpdateBaseURL string `yaml:"update_base_url" mapstructure:"update_base_url"`

	// UpdateVersion pins the version to install. Empty means the latest release.
	UpdateVersion string `yaml:"update_version" mapstructure:"update_version"`

	// GateLogPath receives the gate's audit lines. Stderr goes back to the
	// operator, so the audit trail is kept on the host.
	GateLogPath string `yaml:"gate_log_path" mapstructure:"gate_log_path"`

	// Report limits.
	LogLines          int `yaml:"log_lines" mapstructure:"log_lines"`
	DetailLogLines    int `yaml:"detail_log_lines" mapstructure:"detail_log_lines"`
	JournalErrorLines int `yaml:"journal_error_lines" mapstructure:"journal_error_lines"`
	TopProcesses      int `yaml:"top_processes" mapstructure:"top_processes"`
}
