package request

import (
	"strings"
	"testing"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Request
	}{
		{"run", Request{Kind: Run}},
		{"  run  ", Request{Kind: Run}},
		{"setup", Request{Kind: Setup}},
		{"update-script", Request{Kind: UpdateScript}},
		{"run --format=json", Request{Kind: Run, Format: FormatJSON}},
		{"info service nginx", Request{Kind: Info, ItemKind: Service, Name: "nginx"}},
		{"info service nginx.service", Request{Kind: Info, ItemKind: Service, Name: "nginx.service"}},
		{"info docker redis:latest", Request{Kind: Info, ItemKind: Docker, Name: "redis:latest"}},
		{"info docker ghcr.io/home-assistant/home-assistant:stable --format=yaml",
			Request{Kind: Info, ItemKind: Docker, Name: "ghcr.io/home-assistant/home-assistant:stable", Format: FormatYAML}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Parse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"--format=json",
		"bash",
		"run now",
		"setup please",
		"info",
		"info service",
		"info pod nginx",
		"info service nginx extra",
		"info service ;rm",
		"info service $(id)",
		"info docker -rf",
		"run --format=xml",
		"setup --format=json",
		strings.Repeat("a", MaxLineLength+1),
	}

	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			_, err := Parse(line)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrRequest))
		})
	}
}

func TestString_RoundTrip(t *testing.T) {
	reqs := []Request{
		NewRun(""),
		NewRun(FormatJSON),
		{Kind: Setup},
		{Kind: UpdateScript},
		NewInfo(Service, "ssh", ""),
		NewInfo(Docker, "redis:7", FormatYAML),
	}

	for _, r := range reqs {
		t.Run(r.String(), func(t *testing.T) {
			got, err := Parse(r.String())
			require.NoError(t, err)
			assert.Equal(t, r, got)
		})
	}
}

func TestString_TextFormatOmitted(t *testing.T) {
	assert.Equal(t, "run", NewRun(FormatText).String())
	assert.Equal(t, "info service ssh", NewInfo(Service, "ssh", FormatText).String())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("html")
	assert.Error(t, err)
}
