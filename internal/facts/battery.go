package facts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PowerSupplyDir is where the kernel exposes batteries.
const PowerSupplyDir = "/sys/class/power_supply"

// ReadBattery returns the first BAT* node under dir, or nil when the host
// has no battery.
func ReadBattery(dir string) (*Battery, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "BAT*"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Strings(matches)
	node := matches[0]

	status, err := readSysfs(filepath.Join(node, "status"))
	if err != nil {
		return nil, err
	}
	capText, err := readSysfs(filepath.Join(node, "capacity"))
	if err != nil {
		return nil, err
	}
	capacity, err := strconv.Atoi(capText)
	if err != nil {
		return nil, fmt.Errorf("%s/capacity: %q isn't a number", node, capText)
	}

	return &Battery{Status: status, Capacity: capacity}, nil
}

// HasBattery reports whether dir holds a BAT* node.
func HasBattery(dir string) bool {
	matches, _ := filepath.Glob(filepath.Join(dir, "BAT*"))
	return len(matches) > 0
}

func readSysfs(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
