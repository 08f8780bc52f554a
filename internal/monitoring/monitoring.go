// Package monitoring reads and writes the list of services and containers a
// host reports on.
//
// The file is line oriented. Comment lines of the form "# key=value" carry
// settings, every other non-blank line is an item:
//
//	# version=2
//	# include_battery=true
//	# use_sudo_for_container_runtime=false
//	# last_updated=2026-10-18T09:12:44Z
//	service:nginx
//	docker:redis:latest
//	ssh
//
// A bare name is a service, as written by older versions. The file is only
// ever replaced as a whole by Save.
package monitoring

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/request"
)

// SchemaVersion is written to new files.
const SchemaVersion = "2"

const (
	keyVersion        = "version"
	keyIncludeBattery = "include_battery"
	keyUseSudo        = "use_sudo_for_container_runtime"
	keyLastUpdated    = "last_updated"
)

// Item is one monitored service or container image.
type Item struct {
	Kind request.ItemKind
	Name string
}

// String returns the item in file form, e.g. "docker:redis:latest".
func (i Item) String() string {
	return string(i.Kind) + ":" + i.Name
}

// ParseItem decodes one item line. Only the first colon separates the kind,
// so image tags survive.
func ParseItem(line string) (Item, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Item{}, fmt.Errorf("empty item")
	}

	for _, kind := range []request.ItemKind{request.Service, request.Docker} {
		prefix := string(kind) + ":"
		if strings.HasPrefix(line, prefix) {
			name := strings.TrimSpace(strings.TrimPrefix(line, prefix))
			if name == "" {
				return Item{}, fmt.Errorf("%q has no name", line)
			}
			return Item{Kind: kind, Name: name}, nil
		}
	}
	if strings.ContainsAny(line, " \t") {
		return Item{}, fmt.Errorf("%q isn't a service name", line)
	}
	return Item{Kind: request.Service, Name: line}, nil
}

// Config is the monitoring selection plus report preferences.
type Config struct {
	Items          []Item
	IncludeBattery bool
	UseSudo        bool // run the container CLI through sudo -n
	Version        string
	LastUpdated    time.Time
}

// Services returns the monitored service names in file order.
func (c *Config) Services() []string {
	return c.names(request.Service)
}

// Images returns the monitored image names in file order.
func (c *Config) Images() []string {
	return c.names(request.Docker)
}

func (c *Config) names(kind request.ItemKind) []string {
	var out []string
	for _, it := range c.Items {
		if it.Kind == kind {
			out = append(out, it.Name)
		}
	}
	return out
}

// Load reads the file at path. A missing file is ErrConfigMissing.
// Unreadable item lines are skipped and returned as warnings.
func Load(path string) (*Config, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.New(errors.ErrConfigMissing,
				fmt.Sprintf("No monitoring config at %s", path),
				"Run: sys_info setup")
		}
		return nil, nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't read monitoring config %s", path),
			"Check the file permissions")
	}
	defer f.Close()

	cfg := &Config{}
	var warnings []string

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			key, value, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "#")), "=")
			if ok {
				if w := cfg.setMeta(strings.TrimSpace(key), strings.TrimSpace(value)); w != "" {
					warnings = append(warnings, fmt.Sprintf("%s:%d: %s", path, lineNum, w))
				}
			}
			continue
		}

		item, err := ParseItem(line)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s:%d: %v", path, lineNum, err))
			continue
		}
		cfg.Items = append(cfg.Items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't read monitoring config %s", path), "")
	}

	return cfg, warnings, nil
}

func (c *Config) setMeta(key, value string) string {
	switch key {
	case keyVersion:
		c.Version = value
	case keyIncludeBattery, keyUseSudo:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Sprintf("%s=%q isn't true or false", key, value)
		}
		if key == keyIncludeBattery {
			c.IncludeBattery = b
		} else {
			c.UseSudo = b
		}
	case keyLastUpdated:
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return fmt.Sprintf("%s=%q isn't an RFC 3339 time", key, value)
		}
		c.LastUpdated = t
	}
	return ""
}

// Save replaces the file at path with cfg. Nothing of the previous file is kept.
func Save(path string, cfg *Config) error {
	if len(cfg.Items) == 0 {
		return errors.New(errors.ErrConfig,
			"Nothing selected to monitor",
			"Pick at least one service or container image")
	}

	version := cfg.Version
	if version == "" {
		version = SchemaVersion
	}
	updated := cfg.LastUpdated
	if updated.IsZero() {
		updated = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s=%s\n", keyVersion, version)
	fmt.Fprintf(&b, "# %s=%t\n", keyIncludeBattery, cfg.IncludeBattery)
	fmt.Fprintf(&b, "# %s=%t\n", keyUseSudo, cfg.UseSudo)
	fmt.Fprintf(&b, "# %s=%s\n", keyLastUpdated, updated.UTC().Format(time.RFC3339))
	for _, it := range cfg.Items {
		b.WriteString(it.String())
		b.WriteByte('\n')
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't create %s", dir),
			"Run setup as a user that can write there, or set monitoring_path")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't write %s", path),
			"Run setup as a user that can write there, or set monitoring_path")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't replace %s", path), "")
	}
	return nil
}
