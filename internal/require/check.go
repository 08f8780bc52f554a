package require

import (
	"fmt"
	"strings"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/exec"
)

// Check looks up a single tool and, when it's missing, works out how to
// install it with the host's package manager.
func Check(runner exec.Runner, tool Tool) CheckResult {
	result := CheckResult{Tool: tool}

	if !ValidateToolName(tool.Name) {
		return result
	}

	if path, err := runner.LookPath(tool.Name); err == nil {
		result.Satisfied = true
		result.Path = path
		return result
	}

	result.InstallHint = installHint(runner, tool)
	return result
}

// CheckAll checks every tool in order.
func CheckAll(runner exec.Runner, tools []Tool) []CheckResult {
	results := make([]CheckResult, len(tools))
	for i, tool := range tools {
		results[i] = Check(runner, tool)
	}
	return results
}

// Has reports whether name was found among results.
func Has(results []CheckResult, name string) bool {
	for _, r := range results {
		if r.Tool.Name == name {
			return r.Satisfied
		}
	}
	return false
}

// FilterMissing returns only the unsatisfied results.
func FilterMissing(results []CheckResult) []CheckResult {
	var missing []CheckResult
	for _, r := range results {
		if !r.Satisfied {
			missing = append(missing, r)
		}
	}
	return missing
}

// Verify fails with ErrToolMissing when a required tool is absent.
// Missing optional tools are not an error; the report notes them instead.
func Verify(results []CheckResult) error {
	var missing []CheckResult
	for _, r := range FilterMissing(results) {
		if r.Tool.Required {
			missing = append(missing, r)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	names := make([]string, len(missing))
	for i, r := range missing {
		names[i] = r.Tool.Name
	}
	return errors.New(errors.ErrToolMissing,
		fmt.Sprintf("Missing required tool(s): %s", strings.Join(names, ", ")),
		FormatMissing(missing))
}

// FormatMissing formats missing tools for display, one per line.
func FormatMissing(missing []CheckResult) string {
	var b strings.Builder
	for i, r := range missing {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s (%s)", r.Tool.Name, r.Tool.Purpose)
		if r.InstallHint != "" {
			fmt.Fprintf(&b, ": %s", r.InstallHint)
		} else {
			b.WriteString(": install it with your distribution's package manager")
		}
	}
	return b.String()
}

func installHint(runner exec.Runner, tool Tool) string {
	for _, ic := range installCommands {
		pkg, ok := tool.Packages[ic.manager]
		if !ok {
			continue
		}
		if _, err := runner.LookPath(ic.manager); err == nil {
			return fmt.Sprintf(ic.format, pkg)
		}
	}
	return ""
}
