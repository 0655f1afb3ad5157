// mtime_linux.go reads modification times with statx so the kernel can skip
// the fields the watcher never looks at.

//go:build linux

package watch

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// statModTime falls back to os.Stat when statx is unavailable or the
// filesystem does not report mtime, so errors always come back as
// *fs.PathError.
func statModTime(path string) (time.Time, error) {
	var stat unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_STATX_SYNC_AS_STAT, unix.STATX_MTIME, &stat); err == nil {
		if mtime, ok := modTimeFromStatx(stat); ok {
			return mtime, nil
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func modTimeFromStatx(stat unix.Statx_t) (time.Time, bool) {
	if stat.Mask&unix.STATX_MTIME == 0 {
		return time.Time{}, false
	}
	return time.Unix(stat.Mtime.Sec, int64(stat.Mtime.Nsec)), true
}
