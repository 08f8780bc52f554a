// Package testing fakes a managed host for tests: a MockClient answers the
// shell commands the operator runs over SSH against an in-memory MockFS.
package testing

import (
	"errors"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

// ErrNotExist is returned for paths the MockFS doesn't hold.
var ErrNotExist = errors.New("no such file or directory")

type node struct {
	dir  bool
	data []byte
	mode os.FileMode
}

// MockFS is the remote host's filesystem. Paths are POSIX and always
// absolute or relative to the login directory; they are cleaned, never
// resolved.
type MockFS struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

// NewMockFS returns an empty filesystem.
func NewMockFS() *MockFS {
	return &MockFS{nodes: make(map[string]*node)}
}

// parents lists every ancestor of p, outermost first.
func parents(p string) []string {
	var out []string
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		out = append(out, dir)
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i]) < len(out[j]) })
	return out
}

func (fs *MockFS) ensureDirs(p string) {
	for _, dir := range parents(p) {
		if _, ok := fs.nodes[dir]; !ok {
			fs.nodes[dir] = &node{dir: true, mode: 0755}
		}
	}
}

// Mkdir creates one directory like plain mkdir: the parent must exist and
// the path must not.
func (fs *MockFS) Mkdir(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	if _, ok := fs.nodes[p]; ok {
		return os.ErrExist
	}
	if parent := path.Dir(p); parent != "." && parent != "/" {
		if n, ok := fs.nodes[parent]; !ok || !n.dir {
			return ErrNotExist
		}
	}
	fs.nodes[p] = &node{dir: true, mode: 0755}
	return nil
}

// MkdirAll creates p and any missing parents like mkdir -p.
func (fs *MockFS) MkdirAll(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	if n, ok := fs.nodes[p]; ok && !n.dir {
		return os.ErrExist
	}
	fs.ensureDirs(p)
	if _, ok := fs.nodes[p]; !ok {
		fs.nodes[p] = &node{dir: true, mode: 0755}
	}
	return nil
}

// WriteFile replaces the file at p, creating parents. A new file gets 0644;
// an existing one keeps its mode.
func (fs *MockFS) WriteFile(p string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	fs.ensureDirs(p)
	if n, ok := fs.nodes[p]; ok && !n.dir {
		n.data = append([]byte(nil), data...)
		return nil
	}
	fs.nodes[p] = &node{data: append([]byte(nil), data...), mode: 0644}
	return nil
}

// ReadFile returns a copy of the file at p.
func (fs *MockFS) ReadFile(p string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, ok := fs.nodes[path.Clean(p)]
	if !ok || n.dir {
		return nil, ErrNotExist
	}
	return append([]byte(nil), n.data...), nil
}

// Rename moves the file at src over dst, mode included.
func (fs *MockFS) Rename(src, dst string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	src, dst = path.Clean(src), path.Clean(dst)
	n, ok := fs.nodes[src]
	if !ok || n.dir {
		return ErrNotExist
	}
	fs.ensureDirs(dst)
	fs.nodes[dst] = n
	delete(fs.nodes, src)
	return nil
}

// Remove deletes p and everything below it like rm -rf. A missing path is
// not an error.
func (fs *MockFS) Remove(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	delete(fs.nodes, p)
	for name := range fs.nodes {
		if strings.HasPrefix(name, p+"/") {
			delete(fs.nodes, name)
		}
	}
	return nil
}

// Chmod sets the permission bits of p.
func (fs *MockFS) Chmod(p string, mode os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, ok := fs.nodes[path.Clean(p)]
	if !ok {
		return ErrNotExist
	}
	n.mode = mode.Perm()
	return nil
}

// Mode returns the permission bits of p.
func (fs *MockFS) Mode(p string) (os.FileMode, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n, ok := fs.nodes[path.Clean(p)]
	if !ok {
		return 0, ErrNotExist
	}
	return n.mode, nil
}

// Exists reports whether p is a file or directory.
func (fs *MockFS) Exists(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.nodes[path.Clean(p)]
	return ok
}

// IsDir reports whether p is a directory.
func (fs *MockFS) IsDir(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	n, ok := fs.nodes[path.Clean(p)]
	return ok && n.dir
}

// IsFile reports whether p is a regular file.
func (fs *MockFS) IsFile(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	n, ok := fs.nodes[path.Clean(p)]
	return ok && !n.dir
}

