package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/spf13/viper"
)

const (
	// OperatorConfigDir holds remote_sys_info settings and the alias file.
	OperatorConfigDir = ".config/ai-linux-system-info"
	// AgentConfigDir holds sys_info settings and the monitoring config.
	AgentConfigDir = ".config/sys_info"
	// SystemAgentConfigFile is read when the user has no agent config.
	SystemAgentConfigFile = "/etc/sys_info/config.yaml"
	// ConfigFileName is the settings file name in either directory.
	ConfigFileName = "config.yaml"

	// OperatorEnvPrefix and AgentEnvPrefix prefix setting overrides,
	// e.g. REMOTE_SYS_INFO_KEY_PATH or SYS_INFO_MONITORING_PATH.
	OperatorEnvPrefix = "REMOTE_SYS_INFO"
	AgentEnvPrefix    = "SYS_INFO"

	// DefaultUpdateBaseURL is where release binaries are published.
	DefaultUpdateBaseURL = "https://github.com/Bram-diederik/ai-linux-system-info/releases"
)

// LoadOperator reads operator settings from explicit, or from
// ~/.config/ai-linux-system-info/config.yaml when explicit is empty.
// A missing default file is fine; a missing explicit file isn't.
func LoadOperator(explicit string) (*OperatorConfig, error) {
	v := newViper(OperatorEnvPrefix)
	setOperatorDefaults(v)

	if err := readConfig(v, explicit, userConfigPath(OperatorConfigDir)); err != nil {
		return nil, err
	}

	cfg := &OperatorConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+v.ConfigFileUsed())
	}
	cfg.RegistryPath = ExpandPath(cfg.RegistryPath)
	cfg.KeyPath = ExpandPath(cfg.KeyPath)
	cfg.AgentBinary = ExpandPath(cfg.AgentBinary)

	if err := ValidateOperator(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAgent reads agent settings from explicit, ~/.config/sys_info/config.yaml
// or /etc/sys_info/config.yaml, in that order.
func LoadAgent(explicit string) (*AgentConfig, error) {
	v := newViper(AgentEnvPrefix)
	setAgentDefaults(v)

	if err := readConfig(v, explicit, userConfigPath(AgentConfigDir), SystemAgentConfigFile); err != nil {
		return nil, err
	}

	cfg := &AgentConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+v.ConfigFileUsed())
	}
	cfg.MonitoringPath = ExpandPath(cfg.MonitoringPath)
	cfg.AuthorizedKeysPath = ExpandPath(cfg.AuthorizedKeysPath)
	cfg.GateLogPath = ExpandPath(cfg.GateLogPath)
	cfg.UpdateBaseURL = strings.TrimRight(cfg.UpdateBaseURL, "/")

	if err := ValidateAgent(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultOperator returns operator settings with every default applied.
func DefaultOperator() *OperatorConfig {
	cfg, err := LoadOperator("")
	if err != nil {
		return &OperatorConfig{
			Version:      CurrentConfigVersion,
			RegistryPath: ExpandTilde("~/" + OperatorConfigDir + "/aliases"),
			KeyPath:      ExpandTilde(defaultKeyPath),
			Tag:          defaultTag,
			AgentPath:    defaultAgentPath,
			ProbeTimeout: 5 * time.Second,

			StrictHostKeyChecking: true,
		}
	}
	return cfg
}

func newViper(prefix string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// readConfig reads explicit when set, else the first candidate that exists.
func readConfig(v *viper.Viper, explicit string, candidates ...string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(explicit); os.IsNotExist(statErr) {
				return errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
		return nil
	}

	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file "+path,
				"Check the file is valid YAML")
		}
		return nil
	}
	return nil
}

func userConfigPath(dir string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, dir, ConfigFileName)
}

const (
	defaultTag       = "ai-linux-system-info"
	defaultKeyPath   = "~/.ssh/ai_linux_system_info_ed25519"
	defaultAgentPath = "/usr/local/bin/sys_info"
)

func setOperatorDefaults(v *viper.Viper) {
	v.SetDefault("version", CurrentConfigVersion)
	v.SetDefault("registry_path", "~/"+OperatorConfigDir+"/aliases")
	v.SetDefault("key_path", defaultKeyPath)
	v.SetDefault("tag", defaultTag)
	v.SetDefault("agent_path", defaultAgentPath)
	v.SetDefault("agent_binary", "")
	v.SetDefault("probe_timeout", "5s")
	v.SetDefault("strict_host_key_checking", true)
}

func setAgentDefaults(v *viper.Viper) {
	v.SetDefault("version", CurrentConfigVersion)
	v.SetDefault("monitoring_path", "~/"+AgentConfigDir+"/monitoring.conf")
	v.SetDefault("authorized_keys_path", "~/.ssh/authorized_keys")
	v.SetDefault("gate_log_path", "~/"+AgentConfigDir+"/gate.log")
	v.SetDefault("tag", defaultTag)
	v.SetDefault("update_base_url", DefaultUpdateBaseURL)
	v.SetDefault("update_version", "")
	v.SetDefault("log_lines", 10)
	v.SetDefault("detail_log_lines", 50)
	v.SetDefault("journal_error_lines", 20)
	v.SetDefault("top_processes", 10)
}
