// Package alias maps short, human-typed host names to user@host targets.
//
// The registry is a small line-oriented file:
//
//	# comment
//	nas      admin@192.168.1.20
//	printer  pi@printer.lan
//
// Lookups first try a normalised exact match and then fall back to the
// closest name by edit distance, so "Srv-1", "srv 1" and "srv2" can all
// resolve to "srv1".
package alias

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/logger"
	"github.com/Bram-diederik/ai-linux-system-info/internal/match"
)

// MaxDistance is the largest edit distance still accepted as a fuzzy match.
const MaxDistance = 3

// Entry is one name -> target mapping.
type Entry struct {
	Name   string
	Target string
}

// Registry is an ordered set of entries with unique names and unique targets.
type Registry struct {
	path    string
	entries []Entry
	log     logger.Logger
}

// New returns an empty registry that saves to path.
func New(path string) *Registry {
	return &Registry{path: path, log: logger.Noop()}
}

// Load reads the registry file at path. A missing file yields an empty registry.
// Malformed lines are skipped and reported through log. A line repeating an
// earlier name or target replaces that entry, as Upsert would.
func Load(path string, log logger.Logger) (*Registry, error) {
	if log == nil {
		log = logger.Noop()
	}
	r := &Registry{path: path, log: log}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't read host list %s", path),
			"Check the file permissions")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 || !ValidTarget(fields[1]) {
			log.Warn("%s:%d: skipping malformed host line %q", path, lineNum, line)
			continue
		}
		for _, old := range r.put(Entry{Name: fields[0], Target: fields[1]}) {
			log.Warn("%s:%d: %q replaces earlier line %q %q", path, lineNum, line, old.Name, old.Target)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't read host list %s", path),
			"Check the file is plain text")
	}

	return r, nil
}

// Path returns the file the registry saves to.
func (r *Registry) Path() string {
	return r.path
}

// Save rewrites the whole registry file.
func (r *Registry) Save() error {
	if r.path == "" {
		return errors.New(errors.ErrConfig, "Host list has no file path", "")
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't create %s", filepath.Dir(r.path)),
			"Check the directory permissions")
	}

	var b strings.Builder
	b.WriteString("# name user@host\n")
	for _, e := range r.entries {
		fmt.Fprintf(&b, "%s %s\n", e.Name, e.Target)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't write host list %s", r.path),
			"Check the directory permissions")
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't replace host list %s", r.path),
			"Check the directory permissions")
	}
	return nil
}

// List returns the entries in file order.
func (r *Registry) List() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Upsert removes every entry whose name or target equals the new one, then
// appends the new entry.
func (r *Registry) Upsert(name, target string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, " \t") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' isn't a usable host name", name),
			"Use a single word like nas or pi-kitchen")
	}
	if !ValidTarget(target) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' isn't a user@host target", target),
			"Use the form user@hostname")
	}

	r.put(Entry{Name: name, Target: target})
	return nil
}

// put drops the entries sharing a name or target with e, appends e and
// returns what was dropped.
func (r *Registry) put(e Entry) []Entry {
	var dropped []Entry
	kept := r.entries[:0]
	for _, old := range r.entries {
		if old.Name == e.Name || old.Target == e.Target {
			dropped = append(dropped, old)
			continue
		}
		kept = append(kept, old)
	}
	r.entries = append(kept, e)
	return dropped
}

// Remove deletes the entry with exactly this name. It reports whether one was found.
func (r *Registry) Remove(name string) bool {
	for i, e := range r.entries {
		if e.Name == name {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Resolve finds the entry for a user-typed query. An exact match on the
// normalised name wins; otherwise the entry with the smallest edit distance is
// returned when that distance is at most MaxDistance. Equal distances resolve
// to the entry that comes first in the file.
func (r *Registry) Resolve(query string) (Entry, error) {
	q := Normalize(query)

	for _, e := range r.entries {
		if Normalize(e.Name) == q {
			return e, nil
		}
	}

	best := -1
	bestDist := 0
	for i, e := range r.entries {
		d := match.Distance(q, Normalize(e.Name))
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}

	if best >= 0 && bestDist <= MaxDistance {
		r.log.Debug("fuzzy match %q -> %q (distance %d)", query, r.entries[best].Name, bestDist)
		return r.entries[best], nil
	}

	return Entry{}, errors.New(errors.ErrAliasNotFound,
		fmt.Sprintf("No host matches '%s'", query),
		"Add it with: remote_sys_info deploy <name> <user@host>")
}

// Lookup finds the entry whose normalised name equals name, without typo
// forgiveness. Commands that change a host use it so a typo can't pick a
// neighbour. The error names the close match, if there is one.
func (r *Registry) Lookup(name string) (Entry, error) {
	q := Normalize(name)
	for _, e := range r.entries {
		if Normalize(e.Name) == q {
			return e, nil
		}
	}

	suggestion := "Run remote_sys_info list to see the known hosts"
	if near, err := r.Resolve(name); err == nil {
		suggestion = fmt.Sprintf("Did you mean '%s' (%s)? Type the alias exactly", near.Name, near.Target)
	}
	return Entry{}, errors.New(errors.ErrAliasNotFound,
		fmt.Sprintf("No host is called '%s'", name), suggestion)
}

// Normalize lower-cases s and drops every rune that is not a letter or digit.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidTarget reports whether s has the user@host shape.
func ValidTarget(s string) bool {
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && strings.Count(s, "@") == 1 && !strings.ContainsAny(s, " \t")
}
