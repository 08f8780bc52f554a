// Package update replaces the running sys_info binary with a released build.
//
// An update is refused unless the agent's own key line is still restricted.
// The new binary is staged next to the executable, must pass a --version
// self-test before and after it is moved into place, and the previous binary
// is kept as <exe>.bak-<UTC timestamp> until the next successful run prunes it.
package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Bram-diederik/ai-linux-system-info/internal/credential"
	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/exec"
	"github.com/Bram-diederik/ai-linux-system-info/internal/logger"
)

const (
	// MaxBinarySize caps a download.
	MaxBinarySize = 128 << 20

	// downloadTimeout bounds the whole HTTP exchange.
	downloadTimeout = 5 * time.Minute

	// backupSuffix precedes the timestamp of a kept binary.
	backupSuffix = ".bak-"
	backupLayout = "20060102T150405Z"

	userAgent = "sys_info-update"
)

// Options controls one update.
type Options struct {
	// BaseURL is the release location, without a trailing slash.
	BaseURL string
	// Version to install. Empty means whatever <BaseURL>/latest/download/VERSION names.
	Version string
	// Arch defaults to runtime.GOARCH.
	Arch string
	// Executable defaults to the running binary.
	Executable string

	Store credential.Store
	Tag   string

	Runner exec.Runner
	Client *http.Client
	Now    func() time.Time
	Log    logger.Logger
}

// Result describes a finished update.
type Result struct {
	Version string
	Path    string
	Backup  string
	// SelfTest is what the installed binary printed for --version.
	SelfTest string
	// PostVerify is the restriction status read after installing.
	PostVerify    credential.Status
	PostVerifyErr error
}

// BinaryURL returns where the build for version and arch is published.
func BinaryURL(baseURL, version, arch string) string {
	return fmt.Sprintf("%s/download/v%s/sys_info-linux-%s",
		strings.TrimRight(baseURL, "/"), normalizeVersion(version), arch)
}

// LatestURL returns the file naming the newest release.
func LatestURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/latest/download/VERSION"
}

func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// Run performs the update described by opts.
//
// Once the restriction pre-check has passed, the restriction is checked again
// whatever happens to the download or the swap, and the outcome is always in
// the returned Result, alongside any update error.
func Run(ctx context.Context, opts Options) (*Result, error) {
	opts = withDefaults(opts)
	log := opts.Log

	status, err := credential.Verify(opts.Store, opts.Tag)
	if err != nil {
		return nil, err
	}
	if err := status.Err("authorized_keys"); err != nil {
		log.Warn("update refused: restriction %s", status)
		return nil, err
	}

	res := &Result{}
	err = install(ctx, opts, res)

	res.PostVerify, res.PostVerifyErr = credential.Verify(opts.Store, opts.Tag)
	if res.PostVerifyErr == nil {
		res.PostVerifyErr = res.PostVerify.Err("authorized_keys")
	}
	if res.PostVerifyErr != nil {
		log.Warn("post-update verification: %v", res.PostVerifyErr)
	}
	return res, err
}

// install downloads, tests and swaps in the new binary, filling res as it goes.
func install(ctx context.Context, opts Options, res *Result) error {
	log := opts.Log

	exe := opts.Executable
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return failed(err, "Can't find the running executable")
		}
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	res.Path = exe

	version := normalizeVersion(opts.Version)
	if version == "" {
		var err error
		version, err = LatestVersion(ctx, opts.Client, opts.BaseURL)
		if err != nil {
			return err
		}
	}
	res.Version = version

	url := BinaryURL(opts.BaseURL, version, opts.Arch)
	log.Info("downloading %s", url)
	staging, err := download(ctx, opts.Client, url, filepath.Dir(exe), filepath.Base(exe))
	if err != nil {
		return err
	}

	if _, err := SelfTest(ctx, opts.Runner, staging); err != nil {
		os.Remove(staging)
		return failed(err, "The downloaded binary failed its self-test; nothing was replaced")
	}

	backup := exe + backupSuffix + opts.Now().UTC().Format(backupLayout)
	if err := copyFile(exe, backup); err != nil {
		os.Remove(staging)
		return failed(err, "Can't back up "+exe)
	}

	if err := os.Rename(staging, exe); err != nil {
		os.Remove(staging)
		os.Remove(backup)
		return failed(err, "Can't move the new binary into place")
	}

	out, err := SelfTest(ctx, opts.Runner, exe)
	if err != nil {
		if restoreErr := restore(backup, exe); restoreErr != nil {
			log.Error("restoring %s from %s: %v", exe, backup, restoreErr)
			res.Backup = backup
			return failed(err, fmt.Sprintf("The installed binary failed its self-test and the backup couldn't be restored; copy %s over %s by hand", backup, exe))
		}
		return failed(err, "The installed binary failed its self-test; the previous binary was restored")
	}
	log.Info("installed %s (%s), backup at %s", exe, out, backup)

	res.Backup = backup
	res.SelfTest = out
	return nil
}

func withDefaults(opts Options) Options {
	if opts.Arch == "" {
		opts.Arch = runtime.GOARCH
	}
	if opts.Tag == "" {
		opts.Tag = credential.DefaultTag
	}
	if opts.Runner == nil {
		opts.Runner = exec.NewLocalRunner()
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: downloadTimeout}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logger.Noop()
	}
	return opts
}

// LatestVersion reads the newest release version.
func LatestVersion(ctx context.Context, client *http.Client, baseURL string) (string, error) {
	resp, err := get(ctx, client, LatestURL(baseURL))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", failed(err, "Can't read the latest version")
	}
	v := normalizeVersion(string(data))
	if v == "" || strings.ContainsAny(v, "/ \n") {
		return "", errors.New(errors.ErrUpdateFailed,
			fmt.Sprintf("%s doesn't name a version", LatestURL(baseURL)),
			"Pin a version with update_version in the sys_info config")
	}
	return v, nil
}

func get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, failed(err, "Bad update URL "+url)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, failed(err, "Can't reach "+url)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.New(errors.ErrUpdateFailed,
			fmt.Sprintf("%s returned %d", url, resp.StatusCode),
			"Check update_base_url and update_version in the sys_info config")
	}
	return resp, nil
}

// download writes url into a new executable file in dir and returns its path.
func download(ctx context.Context, client *http.Client, url, dir, base string) (string, error) {
	resp, err := get(ctx, client, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.ContentLength > MaxBinarySize {
		return "", errors.New(errors.ErrUpdateFailed,
			fmt.Sprintf("%s is %d bytes, more than the %d allowed", url, resp.ContentLength, MaxBinarySize), "")
	}

	f, err := os.CreateTemp(dir, "."+base+".staging-*")
	if err != nil {
		return "", failed(err, "Can't create a staging file in "+dir)
	}
	staging := f.Name()

	n, err := io.Copy(f, io.LimitReader(resp.Body, MaxBinarySize+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > MaxBinarySize {
		err = fmt.Errorf("download exceeds %d bytes", MaxBinarySize)
	}
	if err == nil && n == 0 {
		err = fmt.Errorf("download is empty")
	}
	if err == nil {
		err = os.Chmod(staging, 0755)
	}
	if err != nil {
		os.Remove(staging)
		return "", failed(err, "Can't download "+url)
	}
	return staging, nil
}

// SelfTest runs path --version and returns what it printed. The output must
// start with "sys_info ".
func SelfTest(ctx context.Context, r exec.Runner, path string) (string, error) {
	out, err := exec.Output(ctx, r, path, "--version")
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(out, "sys_info ") {
		return "", fmt.Errorf("%s --version printed %q", path, out)
	}
	return out, nil
}

func failed(err error, message string) error {
	return errors.WrapWithCode(err, errors.ErrUpdateFailed, message, "")
}

// copyFile copies src to dst with src's permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// restore puts backup back at exe without touching the backup.
func restore(backup, exe string) error {
	tmp := exe + ".restore"
	os.Remove(tmp)
	if err := copyFile(backup, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, exe); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
