package facts

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Bram-diederik/ai-linux-system-info/internal/exec"
)

// Temperatures runs `sensors -j` and flattens every temp*_input reading into
// a labelled list sorted by label.
func Temperatures(ctx context.Context, runner exec.Runner) ([]Temperature, error) {
	stdout, stderr, code, err := runner.Run(ctx, "sensors", "-j")
	if err != nil {
		return nil, err
	}
	// sensors exits non-zero when an optional subfeature fails but still
	// prints the rest.
	if len(strings.TrimSpace(string(stdout))) == 0 {
		if code != 0 {
			return nil, fmt.Errorf("sensors exited %d: %s", code, strings.TrimSpace(string(stderr)))
		}
		return nil, nil
	}
	return ParseSensors(stdout)
}

// ParseSensors decodes the JSON printed by `sensors -j`. Labels are
// "<chip> <feature>", e.g. "coretemp-isa-0000 Package id 0".
func ParseSensors(data []byte) ([]Temperature, error) {
	var chips map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &chips); err != nil {
		return nil, fmt.Errorf("failed to parse sensors JSON: %w", err)
	}

	var temps []Temperature
	for chip, features := range chips {
		for feature, raw := range features {
			var readings map[string]interface{}
			// "Adapter" and similar are plain strings
			if err := json.Unmarshal(raw, &readings); err != nil {
				continue
			}
			if t, ok := tempInput(readings); ok {
				temps = append(temps, Temperature{Label: chip + " " + feature, Temp: t})
			}
		}
	}

	sort.Slice(temps, func(i, j int) bool { return temps[i].Label < temps[j].Label })
	return temps, nil
}

func tempInput(readings map[string]interface{}) (float64, bool) {
	for key, value := range readings {
		if !strings.HasPrefix(key, "temp") || !strings.HasSuffix(key, "_input") {
			continue
		}
		v, ok := value.(float64)
		if !ok || math.IsNaN(v) {
			continue
		}
		// Some drivers report millidegrees.
		if v >= 1000 || v <= -1000 {
			v /= 1000
		}
		return v, true
	}
	return 0, false
}
