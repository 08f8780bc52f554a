package facts

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Bram-diederik/ai-linux-system-info/internal/exec"
)

// CLIRuntime drives the docker command line. It is used when the daemon
// socket is only reachable through sudo, with a runner prefixed by "sudo -n".
type CLIRuntime struct {
	runner exec.Runner
}

// NewCLIRuntime returns a runtime that runs docker through runner.
func NewCLIRuntime(runner exec.Runner) *CLIRuntime {
	return &CLIRuntime{runner: runner}
}

type cliInfo struct {
	ServerVersion     string
	ContainersRunning int
	Containers        int
	Images            int
}

type cliContainer struct {
	ID     string
	Names  string
	Image  string
	State  string
	Status string
}

// Summary implements Runtime.
func (c *CLIRuntime) Summary(ctx context.Context) (*RuntimeSummary, error) {
	out, err := exec.Output(ctx, c.runner, "docker", "info", "--format", "{{json .}}")
	if err != nil {
		return nil, err
	}
	var info cliInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		return nil, fmt.Errorf("failed to parse docker info: %w", err)
	}
	return &RuntimeSummary{
		Version: info.ServerVersion,
		Running: info.ContainersRunning,
		Total:   info.Containers,
		Images:  info.Images,
	}, nil
}

// Images implements Runtime.
func (c *CLIRuntime) Images(ctx context.Context) ([]string, error) {
	out, err := exec.Output(ctx, c.runner, "docker", "images", "--format", "{{.Repository}}:{{.Tag}}")
	if err != nil {
		return nil, err
	}
	var refs []string
	for _, line := range nonEmptyLines(out) {
		if !strings.Contains(line, "<none>") {
			refs = append(refs, strings.TrimSpace(line))
		}
	}
	sort.Strings(refs)
	return refs, nil
}

// Containers implements Runtime.
func (c *CLIRuntime) Containers(ctx context.Context, image string) ([]Container, error) {
	args := []string{"ps", "--no-trunc", "--format", "{{json .}}"}
	if image == "" {
		args = append(args, "--all")
	} else {
		args = append(args, "--filter", "ancestor="+image)
	}

	out, err := exec.Output(ctx, c.runner, "docker", args...)
	if err != nil {
		return nil, err
	}

	var containers []Container
	for _, line := range nonEmptyLines(out) {
		var row cliContainer
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("failed to parse docker ps: %w", err)
		}
		containers = append(containers, Container{
			ID:     shortID(row.ID),
			Name:   strings.Split(row.Names, ",")[0],
			Image:  row.Image,
			State:  row.State,
			Status: row.Status,
		})
	}
	sortContainers(containers)
	return containers, nil
}

// Logs implements Runtime.
func (c *CLIRuntime) Logs(ctx context.Context, id string, n int) ([]string, error) {
	stdout, stderr, code, err := c.runner.Run(ctx, "docker", "logs", "--tail", strconv.Itoa(n), id)
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, fmt.Errorf("docker logs %s: %s", id, strings.TrimSpace(string(stderr)))
	}
	lines := append(nonEmptyLines(string(stdout)), nonEmptyLines(string(stderr))...)
	return tailLines(lines, n), nil
}

// Close implements Runtime.
func (c *CLIRuntime) Close() error {
	return nil
}
