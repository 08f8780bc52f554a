// Package host checks whether managed hosts answer on SSH, either with the
// operator's own keys (deploy) or with the restricted key (list --check).
package host

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Bram-diederik/ai-linux-system-info/internal/alias"
	"github.com/Bram-diederik/ai-linux-system-info/pkg/sshutil"
)

// DefaultTimeout is used for probes during deploy and verify.
const DefaultTimeout = 5 * time.Second

// ProbeFailReason categorizes why a probe failed.
type ProbeFailReason int

const (
	ProbeFailUnknown ProbeFailReason = iota
	ProbeFailTimeout
	ProbeFailRefused
	ProbeFailUnreachable
	ProbeFailAuth
	ProbeFailHostKey
)

// String returns a human-readable description of the failure reason.
func (r ProbeFailReason) String() string {
	switch r {
	case ProbeFailTimeout:
		return "connection timed out"
	case ProbeFailRefused:
		return "connection refused"
	case ProbeFailUnreachable:
		return "host unreachable"
	case ProbeFailAuth:
		return "authentication failed"
	case ProbeFailHostKey:
		return "host key verification failed"
	default:
		return "unknown error"
	}
}

// ProbeError is a failed probe with its categorized reason.
type ProbeError struct {
	Target string
	Reason ProbeFailReason
	Cause  error
}

func (e *ProbeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("probe %s failed: %s (%v)", e.Target, e.Reason, e.Cause)
	}
	return fmt.Sprintf("probe %s failed: %s", e.Target, e.Reason)
}

func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// Dial wrappers, replaced in tests.
var (
	dialAdmin = func(target string, timeout time.Duration) (io.Closer, error) {
		return sshutil.Dial(target, timeout)
	}
	dialRestricted = func(target, keyPath string, timeout time.Duration) (io.Closer, error) {
		return sshutil.DialWithKey(target, keyPath, timeout)
	}
)

// Probe completes an SSH handshake with the operator's agent and key files
// and returns how long it took.
func Probe(target string, timeout time.Duration) (time.Duration, error) {
	start := time.Now()
	c, err := dialAdmin(target, timeout)
	if err != nil {
		return 0, categorizeProbeError(target, err)
	}
	c.Close()
	return time.Since(start), nil
}

// ProbeRestricted completes a handshake offering only the key at keyPath.
// Success means the host still accepts the key; no command is run.
func ProbeRestricted(target, keyPath string, timeout time.Duration) (time.Duration, error) {
	start := time.Now()
	c, err := dialRestricted(target, keyPath, timeout)
	if err != nil {
		return 0, categorizeProbeError(target, err)
	}
	c.Close()
	return time.Since(start), nil
}

// ProbeResult is the outcome for one registry entry.
type ProbeResult struct {
	Name    string
	Target  string
	Latency time.Duration
	Error   error
	Success bool
}

// ProbeAll checks every entry with the restricted key in parallel.
// Results are in registry order.
func ProbeAll(entries []alias.Entry, keyPath string, timeout time.Duration) []ProbeResult {
	results := make([]ProbeResult, len(entries))

	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		go func(i int, e alias.Entry) {
			defer wg.Done()
			latency, err := ProbeRestricted(e.Target, keyPath, timeout)
			results[i] = ProbeResult{
				Name:    e.Name,
				Target:  e.Target,
				Latency: latency,
				Error:   err,
				Success: err == nil,
			}
		}(i, e)
	}
	wg.Wait()

	return results
}

// ReasonOf returns the failure reason of a probe error, or ProbeFailUnknown.
func ReasonOf(err error) ProbeFailReason {
	if pe, ok := err.(*ProbeError); ok {
		return pe.Reason
	}
	return ProbeFailUnknown
}

// IsAuthFailure reports whether the host answered but refused every key.
func IsAuthFailure(err error) bool {
	return ReasonOf(err) == ProbeFailAuth
}

// failurePatterns are checked in order against the lower-cased error text.
var failurePatterns = []struct {
	reason  ProbeFailReason
	needles []string
}{
	{ProbeFailTimeout, []string{"timeout", "timed out"}},
	{ProbeFailRefused, []string{"connection refused"}},
	{ProbeFailUnreachable, []string{"no route to host", "network is unreachable", "host is down", "no such host"}},
	{ProbeFailAuth, []string{"unable to authenticate", "no supported methods", "permission denied", "authentication failed"}},
	{ProbeFailHostKey, []string{"host key"}},
}

func categorizeProbeError(target string, err error) *ProbeError {
	if err == nil {
		return nil
	}

	text := strings.ToLower(err.Error())
	for _, p := range failurePatterns {
		for _, n := range p.needles {
			if strings.Contains(text, n) {
				return &ProbeError{Target: target, Reason: p.reason, Cause: err}
			}
		}
	}
	return &ProbeError{Target: target, Reason: ProbeFailUnknown, Cause: err}
}
