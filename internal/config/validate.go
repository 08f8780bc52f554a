package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
)

// validTag matches what can sit as the last field of an authorized_keys line.
var validTag = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]*$`)

// ValidateOperator checks operator settings.
func ValidateOperator(cfg *OperatorConfig) error {
	if err := validateVersion(cfg.Version); err != nil {
		return err
	}
	if err := validateTag(cfg.Tag); err != nil {
		return err
	}
	if err := validateRemotePath("agent_path", cfg.AgentPath); err != nil {
		return err
	}
	if cfg.KeyPath == "" {
		return errors.New(errors.ErrConfig,
			"key_path is empty",
			"Set key_path to where the restricted key should live, e.g. ~/.ssh/ai_linux_system_info_ed25519")
	}
	if cfg.RegistryPath == "" {
		return errors.New(errors.ErrConfig,
			"registry_path is empty",
			"Set registry_path to the alias file location")
	}
	if cfg.ProbeTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("probe_timeout must be positive, got %s", cfg.ProbeTimeout),
			"Use a duration like 5s")
	}
	return nil
}

// ValidateAgent checks agent settings.
func ValidateAgent(cfg *AgentConfig) error {
	if err := validateVersion(cfg.Version); err != nil {
		return err
	}
	if err := validateTag(cfg.Tag); err != nil {
		return err
	}
	if cfg.MonitoringPath == "" {
		return errors.New(errors.ErrConfig,
			"monitoring_path is empty",
			"Set monitoring_path, e.g. ~/.config/sys_info/monitoring.conf")
	}

	u, err := url.Parse(cfg.UpdateBaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("update_base_url %q isn't an http(s) URL", cfg.UpdateBaseURL),
			"Use the releases page URL, e.g. "+DefaultUpdateBaseURL)
	}
	if cfg.UpdateVersion != "" && strings.ContainsAny(cfg.UpdateVersion, "/ ") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("update_version %q isn't a version", cfg.UpdateVersion),
			"Use a plain version like 1.4.0")
	}

	for name, n := range map[string]int{
		"log_lines":           cfg.LogLines,
		"detail_log_lines":    cfg.DetailLogLines,
		"journal_error_lines": cfg.JournalErrorLines,
		"top_processes":       cfg.TopProcesses,
	} {
		if n <= 0 || n > 10000 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s must be between 1 and 10000, got %d", name, n),
				"Fix it in the sys_info config.yaml")
		}
	}
	return nil
}

func validateVersion(v int) error {
	if v > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but this build only knows up to %d)", v, CurrentConfigVersion),
			"Grab the latest release: "+DefaultUpdateBaseURL)
	}
	return nil
}

func validateTag(tag string) error {
	if !validTag.MatchString(tag) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("tag %q can't be used as a key comment", tag),
			"Use letters, digits, dots, dashes and underscores only")
	}
	return nil
}

// validateRemotePath checks a path used on the remote host.
func validateRemotePath(fieldName, path string) error {
	if !strings.HasPrefix(path, "/") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%s must be an absolute path, got %q", fieldName, path),
			"The forced command can't rely on the remote shell to expand it")
	}
	if strings.ContainsAny(path, " \t\"'\\$`") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%s %q contains characters that can't go in a forced command", fieldName, path),
			"Pick a path without spaces, quotes or shell characters")
	}
	return nil
}
