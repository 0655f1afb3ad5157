package watch

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Notifier is a change detector for a single file that avoids a stat call on
// quiet ticks. It watches the parent directory rather than the file itself
// because many editors save by writing a temporary file and renaming it over
// the original, which would orphan a watch on the old inode. When path is a
// symlink the directory of its target is watched too, and events on either
// name count.
type Notifier struct {
	watcher *fsnotify.Watcher
	path    string
	target  string
	dirs    map[string]bool
	poller  *Poller

	// dirty is set when the file may have changed since the last stat.
	dirty  bool
	closed bool
}

// NewNotifier starts watching the directory containing path.
func NewNotifier(path string) (*Notifier, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	n := &Notifier{
		watcher: w,
		path:    abs,
		target:  abs,
		dirs:    make(map[string]bool),
		poller:  NewPoller(),
		dirty:   true,
	}
	if err := n.watchDir(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}
	n.followLink()
	return n, nil
}

func (n *Notifier) watchDir(dir string) error {
	if n.dirs[dir] {
		return nil
	}
	if err := n.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %q: %w", dir, err)
	}
	n.dirs[dir] = true
	log.Debug("watching directory", "dir", dir, "file", filepath.Base(n.path))
	return nil
}

// followLink resolves the watched path and adds the target's directory. A
// path that does not resolve keeps the previous target.
func (n *Notifier) followLink() {
	target, err := filepath.EvalSymlinks(n.path)
	if err != nil {
		return
	}
	target, err = filepath.Abs(target)
	if err != nil || target == n.target {
		return
	}
	if err := n.watchDir(filepath.Dir(target)); err != nil {
		log.Warn("watch symlink target", "path", n.path, "target", target, "error", err)
		return
	}
	log.Debug("following symlink", "path", n.path, "target", target)
	n.target = target
}

// HasChanged has the same contract as Poller.HasChanged. It stats the file
// only when a filesystem event for it arrived since the previous successful
// check.
func (n *Notifier) HasChanged(path string, last time.Time) (bool, time.Time, error) {
	n.drain()
	if !n.dirty && !n.closed {
		return false, last, nil
	}
	changed, mtime, err := n.poller.HasChanged(path, last)
	if err != nil {
		return false, last, err
	}
	n.dirty = false
	return changed, mtime, nil
}

// drain consumes queued events without blocking.
func (n *Notifier) drain() {
	if n.closed {
		return
	}
	for {
		select {
		case ev, ok := <-n.watcher.Events:
			if !ok {
				n.closed = true
				return
			}
			switch filepath.Clean(ev.Name) {
			case n.path:
				log.Debug("file event", "path", ev.Name, "op", ev.Op.String())
				n.dirty = true
				// The link itself may have been replaced or re-pointed.
				n.followLink()
			case n.target:
				log.Debug("file event", "path", ev.Name, "op", ev.Op.String())
				n.dirty = true
			}
		case err, ok := <-n.watcher.Errors:
			if !ok {
				n.closed = true
				return
			}
			// Events may have been dropped; the next check must stat.
			log.Warn("filesystem watcher error", "path", n.path, "error", err)
			n.dirty = true
		default:
			return
		}
	}
}

// Close stops watching. Later checks behave like a Poller.
func (n *Notifier) Close() error {
	if n.closed {
		return nil
	}
	n.closed = true
	return n.watcher.Close()
}
