package facts

import (
	"bytes"
	"context"
	"io"
	"testing"

	exectesting "github.com/Bram-diederik/ai-linux-system-info/internal/exec/testing"
	containertypes "github.com/docker/docker/api/types/container"
	imagetypes "github.com/docker/docker/api/types/image"
	systemtypes "github.com/docker/docker/api/types/system"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDockerAPI struct {
	containers []containertypes.Summary
	images     []imagetypes.Summary
	logs       []byte
	lastList   containertypes.ListOptions
	lastLogs   containertypes.LogsOptions
	closed     bool
}

func (f *fakeDockerAPI) Info(context.Context) (systemtypes.Info, error) {
	return systemtypes.Info{ServerVersion: "27.3.1", ContainersRunning: 2, Containers: 3, Images: 4}, nil
}

func (f *fakeDockerAPI) ContainerList(_ context.Context, options containertypes.ListOptions) ([]containertypes.Summary, error) {
	f.lastList = options
	var out []containertypes.Summary
	for _, c := range f.containers {
		if ancestors := options.Filters.Get("ancestor"); len(ancestors) > 0 && c.Image != ancestors[0] {
			continue
		}
		if !options.All && c.State != "running" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeDockerAPI) ImageList(context.Context, imagetypes.ListOptions) ([]imagetypes.Summary, error) {
	return f.images, nil
}

func (f *fakeDockerAPI) ContainerLogs(_ context.Context, _ string, options containertypes.LogsOptions) (io.ReadCloser, error) {
	f.lastLogs = options
	return io.NopCloser(bytes.NewReader(f.logs)), nil
}

func (f *fakeDockerAPI) Close() error {
	f.closed = true
	return nil
}

func newFakeDocker() *fakeDockerAPI {
	return &fakeDockerAPI{
		containers: []containertypes.Summary{
			{ID: "0123456789abcdef0123", Names: []string{"/redis-cache"}, Image: "redis:7", State: "running", Status: "Up 2 hours"},
			{ID: "fedcba9876543210", Names: []string{"/redis-old"}, Image: "redis:7", State: "exited", Status: "Exited (0) 3 days ago"},
			{ID: "aaaa", Names: []string{"/web"}, Image: "nginx:latest", State: "running", Status: "Up 5 minutes"},
		},
		images: []imagetypes.Summary{
			{RepoTags: []string{"redis:7", "redis:latest"}},
			{RepoTags: []string{"<none>:<none>"}},
			{RepoTags: []string{"nginx:latest"}},
		},
	}
}

func TestDockerRuntime_Summary(t *testing.T) {
	rt := &DockerRuntime{api: newFakeDocker()}

	s, err := rt.Summary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &RuntimeSummary{Version: "27.3.1", Running: 2, Total: 3, Images: 4}, s)
}

func TestDockerRuntime_Images(t *testing.T) {
	rt := &DockerRuntime{api: newFakeDocker()}

	images, err := rt.Images(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"nginx:latest", "redis:7", "redis:latest"}, images)
}

func TestDockerRuntime_Containers(t *testing.T) {
	api := newFakeDocker()
	rt := &DockerRuntime{api: api}

	running, err := rt.Containers(context.Background(), "redis:7")
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, Container{ID: "0123456789ab", Name: "redis-cache", Image: "redis:7", State: "running", Status: "Up 2 hours"}, running[0])
	assert.False(t, api.lastList.All)

	all, err := rt.Containers(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "redis-cache", all[0].Name)
	assert.True(t, api.lastList.All)
}

func TestDockerRuntime_Logs(t *testing.T) {
	tests := []struct {
		name string
		logs func() []byte
	}{
		{
			name: "multiplexed",
			logs: func() []byte {
				var buf bytes.Buffer
				stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte("one\ntwo\n"))
				stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte("three\n"))
				return buf.Bytes()
			},
		},
		{
			name: "tty",
			logs: func() []byte { return []byte("one\ntwo\nthree\n") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeDocker()
			api.logs = tt.logs()
			rt := &DockerRuntime{api: api}

			lines, err := rt.Logs(context.Background(), "0123456789ab", 2)

			require.NoError(t, err)
			assert.Equal(t, []string{"two", "three"}, lines)
			assert.Equal(t, "2", api.lastLogs.Tail)
			require.NoError(t, rt.Close())
			assert.True(t, api.closed)
		})
	}
}

func TestCLIRuntime(t *testing.T) {
	runner := exectesting.NewFakeRunner().
		On("docker info --format {{json .}}", exectesting.Response{
			Stdout: `{"ServerVersion":"24.0.7","ContainersRunning":1,"Containers":2,"Images":3,"Driver":"overlay2"}`,
		}).
		On("docker images --format {{.Repository}}:{{.Tag}}", exectesting.Response{
			Stdout: "redis:7\n<none>:<none>\nnginx:latest\n",
		}).
		On("docker ps --no-trunc --format {{json .}} --filter ancestor=redis:7", exectesting.Response{
			Stdout: `{"ID":"0123456789abcdef","Names":"redis-cache","Image":"redis:7","State":"running","Status":"Up 2 hours"}` + "\n",
		}).
		On("docker logs --tail 3 0123456789ab", exectesting.Response{Stdout: "ready\n", Stderr: "warning\n"})
	rt := NewCLIRuntime(runner)
	ctx := context.Background()

	s, err := rt.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, &RuntimeSummary{Version: "24.0.7", Running: 1, Total: 2, Images: 3}, s)

	images, err := rt.Images(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"nginx:latest", "redis:7"}, images)

	containers, err := rt.Containers(ctx, "redis:7")
	require.NoError(t, err)
	require.Len(t, containers, 1)
	assert.Equal(t, "0123456789ab", containers[0].ID)
	assert.Equal(t, "redis-cache", containers[0].Name)

	logs, err := rt.Logs(ctx, "0123456789ab", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"ready", "warning"}, logs)
	assert.NoError(t, rt.Close())
}

func TestCLIRuntime_SudoRefused(t *testing.T) {
	runner := exectesting.NewFakeRunner().
		On("docker info --format {{json .}}", exectesting.Response{Stderr: "sudo: a password is required", ExitCode: 1})

	_, err := NewCLIRuntime(runner).Summary(context.Background())
	assert.ErrorContains(t, err, "password is required")
}
