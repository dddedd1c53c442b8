//go:build linux || darwin || freebsd || netbsd || openbsd

package notebook

import (
	"time"

	"golang.org/x/sys/unix"
)

// setLinkTime sets the access and modification time of a symlink itself.
func setLinkTime(path string, t time.Time) error {
	ts := unix.NsecToTimespec(t.UnixNano())
	return unix.UtimesNanoAt(unix.AT_FDCWD, path, []unix.Timespec{ts, ts}, unix.AT_SYMLINK_NOFOLLOW)
}
