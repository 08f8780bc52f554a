package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Bram-diederik/ai-linux-system-info/internal/credential"
	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	oldBinary  = "#!/bin/sh\necho 'sys_info 1.0.0'\n"
	newBinary  = "#!/bin/sh\necho 'sys_info 2.0.0'\n"
	badBinary  = "#!/bin/sh\necho 'segfault' >&2\nexit 139\n"
	liarBinary = "#!/bin/sh\necho 'something else'\n"
	// Passes while staged, fails once renamed over the executable.
	stagedOnlyBinary = "#!/bin/sh\ncase \"$0\" in *staging*) echo 'sys_info 2.0.0' ;; *) exit 3 ;; esac\n"
)

var fixedNow = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }

// publicKey generates a throwaway key and returns its .pub line.
func publicKey(t *testing.T) string {
	t.Helper()
	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	_, err := credential.Generate(keyPath, credential.DefaultTag)
	require.NoError(t, err)
	pub, err := credential.ReadPublicKey(keyPath + ".pub")
	require.NoError(t, err)
	return pub
}

func restrictedStore(t *testing.T) *credential.FileStore {
	t.Helper()
	line, err := credential.RestrictedLine(credential.DefaultAgentPath, publicKey(t), credential.DefaultTag)
	require.NoError(t, err)

	store := credential.NewFileStore(filepath.Join(t.TempDir(), "authorized_keys"))
	require.NoError(t, store.Write(line+"\n"))
	return store
}

func installed(t *testing.T, content string) string {
	t.Helper()
	exe := filepath.Join(t.TempDir(), "sys_info")
	require.NoError(t, os.WriteFile(exe, []byte(content), 0755))
	return exe
}

// releaseServer serves binary for every arch under version, and latest as
// the VERSION file.
func releaseServer(t *testing.T, version, latest, binary string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/releases/download/v"+version+"/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(binary))
	})
	mux.HandleFunc("/releases/latest/download/VERSION", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(latest + "\n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func baseOptions(srv *httptest.Server, exe string, store credential.Store) Options {
	return Options{
		BaseURL:    srv.URL + "/releases",
		Version:    "2.0.0",
		Arch:       "amd64",
		Executable: exe,
		Store:      store,
		Now:        fixedNow,
	}
}

func TestBinaryURL(t *testing.T) {
	assert.Equal(t,
		"https://example.com/releases/download/v1.4.0/sys_info-linux-arm64",
		BinaryURL("https://example.com/releases/", "v1.4.0", "arm64"))
	assert.Equal(t,
		"https://example.com/releases/latest/download/VERSION",
		LatestURL("https://example.com/releases"))
}

func TestRun_Success(t *testing.T) {
	store := restrictedStore(t)
	exe := installed(t, oldBinary)
	srv := releaseServer(t, "2.0.0", "2.0.0", newBinary)

	res, err := Run(context.Background(), baseOptions(srv, exe, store))
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", res.Version)
	assert.Equal(t, "sys_info 2.0.0", res.SelfTest)
	assert.Equal(t, credential.StatusOK, res.PostVerify)
	assert.NoError(t, res.PostVerifyErr)

	data, _ := os.ReadFile(exe)
	assert.Equal(t, newBinary, string(data))

	assert.Equal(t, exe+".bak-20261018T093000Z", res.Backup)
	backup, _ := os.ReadFile(res.Backup)
	assert.Equal(t, oldBinary, string(backup))

	// No staging file left behind
	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(exe), ".sys_info.staging-*"))
	assert.Empty(t, leftovers)
}

func TestRun_LatestVersion(t *testing.T) {
	store := restrictedStore(t)
	exe := installed(t, oldBinary)
	srv := releaseServer(t, "2.1.0", "v2.1.0", newBinary)

	opts := baseOptions(srv, exe, store)
	opts.Version = ""
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", res.Version)
}

func TestRun_RefusedWithoutRestriction(t *testing.T) {
	tests := []struct {
		name     string
		content  func(t *testing.T) string
		wantCode string
	}{
		{"missing", func(*testing.T) string { return "" }, errors.ErrRestrictionMissing},
		{"weak", func(t *testing.T) string { return publicKey(t) + "\n" }, errors.ErrRestrictionWeak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := credential.NewFileStore(filepath.Join(t.TempDir(), "authorized_keys"))
			if content := tt.content(t); content != "" {
				require.NoError(t, store.Write(content))
			}
			exe := installed(t, oldBinary)
			srv := releaseServer(t, "2.0.0", "2.0.0", newBinary)

			_, err := Run(context.Background(), baseOptions(srv, exe, store))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.wantCode), "got %v", err)

			data, _ := os.ReadFile(exe)
			assert.Equal(t, oldBinary, string(data))
		})
	}
}

func TestRun_StagedSelfTestFails(t *testing.T) {
	for name, binary := range map[string]string{"crash": badBinary, "wrong output": liarBinary} {
		t.Run(name, func(t *testing.T) {
			store := restrictedStore(t)
			exe := installed(t, oldBinary)
			srv := releaseServer(t, "2.0.0", "2.0.0", binary)

			res, err := Run(context.Background(), baseOptions(srv, exe, store))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrUpdateFailed))
			require.NotNil(t, res)
			assert.Equal(t, credential.StatusOK, res.PostVerify)

			data, _ := os.ReadFile(exe)
			assert.Equal(t, oldBinary, string(data))
			backups, _ := Backups(exe)
			assert.Empty(t, backups)
			leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(exe), ".sys_info.staging-*"))
			assert.Empty(t, leftovers)
		})
	}
}

func TestRun_InstalledSelfTestFailsRestores(t *testing.T) {
	store := restrictedStore(t)
	exe := installed(t, oldBinary)
	srv := releaseServer(t, "2.0.0", "2.0.0", stagedOnlyBinary)

	res, err := Run(context.Background(), baseOptions(srv, exe, store))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUpdateFailed))
	assert.Contains(t, err.Error(), "restored")

	require.NotNil(t, res)
	assert.Equal(t, credential.StatusOK, res.PostVerify)
	assert.NoError(t, res.PostVerifyErr)
	assert.Empty(t, res.SelfTest)

	data, _ := os.ReadFile(exe)
	assert.Equal(t, oldBinary, string(data))
}

func TestRun_DownloadErrors(t *testing.T) {
	store := restrictedStore(t)
	exe := installed(t, oldBinary)
	srv := releaseServer(t, "2.0.0", "2.0.0", newBinary)

	opts := baseOptions(srv, exe, store)
	opts.Version = "9.9.9"
	res, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUpdateFailed))
	assert.Contains(t, err.Error(), "404")
	require.NotNil(t, res)
	assert.Equal(t, "9.9.9", res.Version)
	assert.Equal(t, credential.StatusOK, res.PostVerify)

	empty := releaseServer(t, "2.0.0", "2.0.0", "")
	res, err = Run(context.Background(), baseOptions(empty, exe, store))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUpdateFailed))
	require.NotNil(t, res)
	assert.Equal(t, credential.StatusOK, res.PostVerify)
}

func TestRun_PostVerifyReported(t *testing.T) {
	dir := t.TempDir()
	store := restrictedStore(t)
	exe := filepath.Join(dir, "sys_info")
	// The new build drops the restricted line when it runs --version.
	binary := "#!/bin/sh\n: > " + store.Path + "\necho 'sys_info 2.0.0'\n"
	require.NoError(t, os.WriteFile(exe, []byte(oldBinary), 0755))
	srv := releaseServer(t, "2.0.0", "2.0.0", binary)

	res, err := Run(context.Background(), baseOptions(srv, exe, store))
	require.NoError(t, err)
	assert.Equal(t, credential.StatusMissing, res.PostVerify)
	assert.True(t, errors.IsCode(res.PostVerifyErr, errors.ErrRestrictionMissing))
}

func TestRun_RefusedReturnsNoResult(t *testing.T) {
	store := credential.NewFileStore(filepath.Join(t.TempDir(), "authorized_keys"))
	exe := installed(t, oldBinary)
	srv := releaseServer(t, "2.0.0", "2.0.0", newBinary)

	res, err := Run(context.Background(), baseOptions(srv, exe, store))
	require.Error(t, err)
	assert.Nil(t, res, "nothing was attempted")
}

func TestPruneBackups(t *testing.T) {
	exe := installed(t, oldBinary)
	for _, ts := range []string{"20261001T000000Z", "20261010T000000Z", "20261018T000000Z"} {
		require.NoError(t, os.WriteFile(exe+".bak-"+ts, []byte(oldBinary), 0755))
	}

	removed, err := PruneBackups(exe, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{exe + ".bak-20261001T000000Z", exe + ".bak-20261010T000000Z"}, removed)

	left, err := Backups(exe)
	require.NoError(t, err)
	assert.Equal(t, []string{exe + ".bak-20261018T000000Z"}, left)

	removed, err = PruneBackups(exe, 1)
	require.NoError(t, err)
	assert.Empty(t, removed)

	_, err = os.Stat(exe)
	assert.NoError(t, err)
}
