// Package watch detects modifications of the displayed image file.
//
// Detection compares the file's modification time against the last value the
// caller saw. Poller stats the file on every check; Notifier only stats after
// the OS reported activity on the file, falling back to a stat whenever it
// cannot be sure. Both report a change exactly once per distinct mtime.
package watch

import (
	"fmt"
	"time"

	"github.com/treykane/pixview/internal/logging"
)

var log = logging.New("watch")

// StatError reports that the watched file could not be queried. It never
// means the file changed.
type StatError struct {
	Path string
	Err  error
}

func (e *StatError) Error() string {
	return fmt.Sprintf("stat %q: %v", e.Path, e.Err)
}

func (e *StatError) Unwrap() error { return e.Err }

// Poller checks the file's modification time on every call.
type Poller struct {
	modTime func(path string) (time.Time, error)
}

// NewPoller returns a Poller reading modification times from the filesystem.
func NewPoller() *Poller {
	return &Poller{modTime: ModTime}
}

// HasChanged reports whether path's modification time differs from last and
// returns the time it observed. On error it returns false and last.
func (p *Poller) HasChanged(path string, last time.Time) (bool, time.Time, error) {
	mtime, err := p.modTime(path)
	if err != nil {
		return false, last, &StatError{Path: path, Err: err}
	}
	if mtime.Equal(last) {
		return false, last, nil
	}
	return true, mtime, nil
}

// ModTime returns the modification time of path.
func ModTime(path string) (time.Time, error) {
	return statModTime(path)
}
