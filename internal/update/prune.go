package update

import (
	"os"
	"path/filepath"
	"sort"
)

// Backups returns the kept binaries for exe, oldest first.
func Backups(exe string) ([]string, error) {
	matches, err := filepath.Glob(exe + backupSuffix + "*")
	if err != nil {
		return nil, err
	}
	// The timestamp layout sorts lexically.
	sort.Strings(matches)
	return matches, nil
}

// PruneBackups removes all but the newest keep backups of exe and returns
// the removed paths.
func PruneBackups(exe string, keep int) ([]string, error) {
	backups, err := Backups(exe)
	if err != nil {
		return nil, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(backups) <= keep {
		return nil, nil
	}

	var removed []string
	for _, b := range backups[:len(backups)-keep] {
		if err := os.Remove(b); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed = append(removed, b)
	}
	return removed, nil
}
