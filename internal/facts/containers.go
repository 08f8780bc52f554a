package facts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	imagetypes "github.com/docker/docker/api/types/image"
	systemtypes "github.com/docker/docker/api/types/system"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// maxLogBytes bounds what is read from a container log stream.
const maxLogBytes = 1 << 20

// DefaultDockerSocket is checked when DOCKER_HOST isn't set.
var DefaultDockerSocket = "/var/run/docker.sock"

// Runtime is a container runtime the report can query.
type Runtime interface {
	Summary(ctx context.Context) (*RuntimeSummary, error)
	// Images returns image references as repository:tag, sorted.
	Images(ctx context.Context) ([]string, error)
	// Containers returns running containers created from image, or every
	// container in any state when image is empty.
	Containers(ctx context.Context, image string) ([]Container, error)
	Logs(ctx context.Context, id string, n int) ([]string, error)
	Close() error
}

// dockerAPI is the part of the Docker client the runtime uses.
type dockerAPI interface {
	Info(ctx context.Context) (systemtypes.Info, error)
	ContainerList(ctx context.Context, options containertypes.ListOptions) ([]containertypes.Summary, error)
	ImageList(ctx context.Context, options imagetypes.ListOptions) ([]imagetypes.Summary, error)
	ContainerLogs(ctx context.Context, container string, options containertypes.LogsOptions) (io.ReadCloser, error)
	Close() error
}

// DockerAvailable reports whether a Docker daemon endpoint is configured or
// the default socket exists.
func DockerAvailable() bool {
	if os.Getenv("DOCKER_HOST") != "" {
		return true
	}
	_, err := os.Stat(DefaultDockerSocket)
	return err == nil
}

// DockerRuntime talks to the daemon API directly.
type DockerRuntime struct {
	api dockerAPI
}

// NewDockerRuntime connects using the standard DOCKER_* environment.
func NewDockerRuntime() (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &DockerRuntime{api: cli}, nil
}

// Summary implements Runtime.
func (d *DockerRuntime) Summary(ctx context.Context) (*RuntimeSummary, error) {
	info, err := d.api.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query docker info: %w", err)
	}
	return &RuntimeSummary{
		Version: info.ServerVersion,
		Running: info.ContainersRunning,
		Total:   info.Containers,
		Images:  info.Images,
	}, nil
}

// Images implements Runtime.
func (d *DockerRuntime) Images(ctx context.Context) ([]string, error) {
	list, err := d.api.ImageList(ctx, imagetypes.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	var refs []string
	for _, img := range list {
		for _, tag := range img.RepoTags {
			if tag != "<none>:<none>" {
				refs = append(refs, tag)
			}
		}
	}
	sort.Strings(refs)
	return refs, nil
}

// Containers implements Runtime.
func (d *DockerRuntime) Containers(ctx context.Context, image string) ([]Container, error) {
	options := containertypes.ListOptions{All: image == ""}
	if image != "" {
		options.Filters = filters.NewArgs(filters.Arg("ancestor", image))
	}

	list, err := d.api.ContainerList(ctx, options)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	containers := make([]Container, 0, len(list))
	for _, summary := range list {
		containers = append(containers, Container{
			ID:     shortID(summary.ID),
			Name:   containerName(summary.Names),
			Image:  summary.Image,
			State:  summary.State,
			Status: summary.Status,
		})
	}
	sortContainers(containers)
	return containers, nil
}

// Logs implements Runtime.
func (d *DockerRuntime) Logs(ctx context.Context, id string, n int) ([]string, error) {
	rc, err := d.api.ContainerLogs(ctx, id, containertypes.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(n),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read logs of %s: %w", id, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, maxLogBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read logs of %s: %w", id, err)
	}

	// Containers without a TTY multiplex stdout and stderr.
	var demuxed bytes.Buffer
	if _, err := stdcopy.StdCopy(&demuxed, &demuxed, bytes.NewReader(raw)); err == nil && demuxed.Len() > 0 {
		raw = demuxed.Bytes()
	}
	return tailLines(nonEmptyLines(string(raw)), n), nil
}

// Close implements Runtime.
func (d *DockerRuntime) Close() error {
	return d.api.Close()
}

func containerName(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.TrimPrefix(names[0], "/")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func sortContainers(c []Container) {
	sort.SliceStable(c, func(i, j int) bool { return c[i].Name < c[j].Name })
}

func tailLines(lines []string, n int) []string {
	if n > 0 && len(lines) > n {
		return lines[len(lines)-n:]
	}
	return lines
}
