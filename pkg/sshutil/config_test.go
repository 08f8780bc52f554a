package sshutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSSHConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestParseSSHConfigFile(t *testing.T) {
	path := writeSSHConfig(t, `
Host nas
    HostName 192.168.1.20
    User admin
    Port 22
    IdentityFile ~/.ssh/id_nas

Host kitchen-pi
    HostName kitchen.lan
    User pi

Host *
    ServerAliveInterval 60

Host lab-*
    User labuser
`)

	hosts, err := ParseSSHConfigFile(path)
	require.NoError(t, err)

	// Wildcards and patterns are excluded, the rest sorted by alias
	require.Len(t, hosts, 2)
	assert.Equal(t, "kitchen-pi", hosts[0].Alias)
	assert.Equal(t, "nas", hosts[1].Alias)

	nas := hosts[1]
	assert.Equal(t, "192.168.1.20", nas.Hostname)
	assert.Equal(t, "admin", nas.User)
	assert.Equal(t, "22", nas.Port)
	assert.Contains(t, nas.IdentityFile, "id_nas")

	assert.Equal(t, "", hosts[0].Port)
}

func TestParseSSHConfigFile_Edges(t *testing.T) {
	tests := []struct {
		name    string
		content string
		aliases []string
	}{
		{"empty", "", nil},
		{"comments only", "# nothing\n# here\n", nil},
		{"duplicate host", "Host dup\n  HostName a\n\nHost dup\n  HostName b\n", []string{"dup"}},
		{"multiple patterns", "Host s1 s2 s3\n  User shared\n", []string{"s1", "s2", "s3"}},
		{"stops at Match", "Host before\n  HostName b\n\nMatch host *.lan\n  User m\n\nHost after\n  HostName a\n", []string{"before"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hosts, err := ParseSSHConfigFile(writeSSHConfig(t, tt.content))
			require.NoError(t, err)

			var aliases []string
			for _, h := range hosts {
				aliases = append(aliases, h.Alias)
			}
			assert.Equal(t, tt.aliases, aliases)
		})
	}
}

func TestParseSSHConfigFile_NotExists(t *testing.T) {
	hosts, err := ParseSSHConfigFile("/nonexistent/config")
	assert.NoError(t, err)
	assert.Nil(t, hosts)
}

func TestSSHHostEntry_Description(t *testing.T) {
	tests := []struct {
		entry    SSHHostEntry
		expected string
	}{
		{SSHHostEntry{Alias: "nas", Hostname: "192.168.1.20", User: "admin", Port: "2222"}, "192.168.1.20, user: admin, port: 2222"},
		{SSHHostEntry{Alias: "nas", Hostname: "192.168.1.20", User: "admin", Port: "22"}, "192.168.1.20, user: admin"},
		{SSHHostEntry{Alias: "nas", Hostname: "nas", User: "admin"}, "user: admin"},
		{SSHHostEntry{Alias: "nas", Port: "2200"}, "port: 2200"},
		{SSHHostEntry{Alias: "nas"}, "nas"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.entry.Description())
		})
	}
}

func TestSSHHostEntry_Target(t *testing.T) {
	t.Setenv("USER", "operator")

	assert.Equal(t, "admin@192.168.1.20", SSHHostEntry{Alias: "nas", Hostname: "192.168.1.20", User: "admin"}.Target())
	assert.Equal(t, "pi@pi.lan:2200", SSHHostEntry{Alias: "pi", Hostname: "pi.lan", User: "pi", Port: "2200"}.Target())
	assert.Equal(t, "operator@nas", SSHHostEntry{Alias: "nas"}.Target())
}
