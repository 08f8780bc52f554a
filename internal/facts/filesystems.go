package facts

import "strings"

// virtualFSTypes never hold user data and are left out of the disk section.
var virtualFSTypes = map[string]bool{
	"tmpfs":       true,
	"devtmpfs":    true,
	"cgroup":      true,
	"cgroup2":     true,
	"sysfs":       true,
	"proc":        true,
	"devpts":      true,
	"securityfs":  true,
	"debugfs":     true,
	"tracefs":     true,
	"fusectl":     true,
	"configfs":    true,
	"pstore":      true,
	"hugetlbfs":   true,
	"mqueue":      true,
	"bpf":         true,
	"overlay":     true,
	"overlayfs":   true,
	"autofs":      true,
	"squashfs":    true,
	"nsfs":        true,
	"ramfs":       true,
	"efivarfs":    true,
	"binfmt_misc": true,
	"rpc_pipefs":  true,
}

// pseudoMountPrefixes are mountpoints under which nothing is a real disk.
var pseudoMountPrefixes = []string{
	"/dev",
	"/proc",
	"/sys",
	"/run",
	"/snap",
	"/var/lib/docker",
	"/var/lib/containers",
}

// IsVirtualFilesystem reports whether a mount should be left out of the disk list.
func IsVirtualFilesystem(fsType, mountpoint string) bool {
	ft := strings.ToLower(strings.TrimSpace(fsType))
	if virtualFSTypes[ft] || (strings.HasPrefix(ft, "fuse.") && ft != "fuse.zfs") {
		return true
	}
	for _, prefix := range pseudoMountPrefixes {
		if mountpoint == prefix || strings.HasPrefix(mountpoint, prefix+"/") {
			return true
		}
	}
	return false
}
