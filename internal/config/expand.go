package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ${USER} and ${HOME}, then a leading ~, in a local path
// setting. Other ${...} references are left as written.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.Expand(p, func(name string) string {
		switch name {
		case "USER":
			return currentUser()
		case "HOME":
			if home, err := os.UserHomeDir(); err == nil {
				return home
			}
		}
		return "${" + name + "}"
	})
	return ExpandTilde(p)
}

// ExpandTilde replaces ~ or a leading ~/ with the home directory. ~user is
// not supported.
func ExpandTilde(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
}

func currentUser() string {
	for _, env := range []string{"USER", "LOGNAME"} {
		if u := os.Getenv(env); u != "" {
			return u
		}
	}
	return "root"
}
