package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSHHostChoices(t *testing.T) {
	choices := sshHostChoices([]SSHHostInfo{
		{Alias: "nas-lan", Hostname: "10.0.0.5", User: "admin", Description: "10.0.0.5, user: admin", Target: "admin@10.0.0.5"},
		{Alias: "media"},
	})
	require.Len(t, choices, 2)

	assert.Equal(t, "nas-lan", choices[0].Title())
	assert.Equal(t, "10.0.0.5, user: admin", choices[0].Description())
	assert.Equal(t, "nas-lan 10.0.0.5 admin admin@10.0.0.5", choices[0].FilterValue())
	assert.Equal(t, "media", choices[1].FilterValue())
}

func TestPickSSHHostWithOutput_NoHosts(t *testing.T) {
	picked, cancelled, err := PickSSHHostWithOutput(nil, &bytes.Buffer{}, strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, picked)
	assert.False(t, cancelled, "an empty ~/.ssh/config falls through to typing a target")
}
