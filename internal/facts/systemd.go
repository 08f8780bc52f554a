package facts

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Bram-diederik/ai-linux-system-info/internal/exec"
)

// StatusUnknown is used when systemd has no record of a unit.
const StatusUnknown = "unknown"

// FailedUnits lists units systemd reports as failed.
func FailedUnits(ctx context.Context, runner exec.Runner) ([]string, error) {
	out, err := exec.Output(ctx, runner, "systemctl", "list-units", "--state=failed", "--no-legend", "--plain", "--no-pager")
	if err != nil {
		return nil, err
	}
	return firstFields(out), nil
}

// UnitLogs returns the last n journal lines of a unit.
func UnitLogs(ctx context.Context, runner exec.Runner, unit string, n int) ([]string, error) {
	out, err := exec.Output(ctx, runner, "journalctl", "-u", unit, "-n", strconv.Itoa(n), "--no-pager", "--quiet")
	if err != nil {
		return nil, err
	}
	return nonEmptyLines(out), nil
}

// JournalErrors returns the last n error-priority journal lines of the
// current boot.
func JournalErrors(ctx context.Context, runner exec.Runner, n int) ([]string, error) {
	out, err := exec.Output(ctx, runner, "journalctl", "-p", "err", "-b", "-n", strconv.Itoa(n), "--no-pager", "--quiet")
	if err != nil {
		return nil, err
	}
	return nonEmptyLines(out), nil
}

// ServiceStatus reads one unit's description and state, plus its log tail
// when logLines > 0. A unit systemd doesn't know has StatusUnknown.
func ServiceStatus(ctx context.Context, runner exec.Runner, name string, logLines int) (*Service, error) {
	out, err := exec.Output(ctx, runner, "systemctl", "show", name,
		"--property=Description,LoadState,ActiveState,SubState", "--no-pager")
	if err != nil {
		return nil, err
	}
	props := parseProperties(out)

	svc := &Service{Name: name, Description: props["Description"], Status: StatusUnknown}
	if props["LoadState"] != "not-found" && props["ActiveState"] != "" {
		svc.Status = props["ActiveState"]
		if sub := props["SubState"]; sub != "" && sub != svc.Status {
			svc.Status += " (" + sub + ")"
		}
	}

	if logLines > 0 && svc.Status != StatusUnknown {
		logs, err := UnitLogs(ctx, runner, name, logLines)
		if err != nil {
			return svc, fmt.Errorf("logs for %s: %w", name, err)
		}
		svc.Logs = logs
	}
	return svc, nil
}

// ListServices returns installed service names without the .service suffix,
// sorted. Template units (name@.service) are skipped.
func ListServices(ctx context.Context, runner exec.Runner) ([]string, error) {
	out, err := exec.Output(ctx, runner, "systemctl", "list-unit-files", "--type=service", "--no-legend", "--no-pager")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, unit := range firstFields(out) {
		if strings.HasSuffix(unit, "@.service") {
			continue
		}
		names = append(names, strings.TrimSuffix(unit, ".service"))
	}
	sort.Strings(names)
	return names, nil
}

func parseProperties(out string) map[string]string {
	props := make(map[string]string)
	for _, line := range nonEmptyLines(out) {
		if key, value, ok := strings.Cut(line, "="); ok {
			props[key] = value
		}
	}
	return props
}

func firstFields(out string) []string {
	var fields []string
	for _, line := range nonEmptyLines(out) {
		f := strings.Fields(line)
		// systemctl prefixes failed units with a bullet when --plain is ignored
		if len(f) > 1 && (f[0] == "●" || f[0] == "*") {
			f = f[1:]
		}
		if len(f) > 0 {
			fields = append(fields, f[0])
		}
	}
	return fields
}

func nonEmptyLines(out string) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewBufferString(out))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), " \t\r"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
