package viewer

import (
	"fmt"
	"time"

	"github.com/treykane/pixview/internal/render"
)

// Backend is the window system the viewer runs on.
type Backend interface {
	// CreateWindow opens a window whose drawable area is width x height
	// window pixels, or whatever the backend can offer closest to it.
	CreateWindow(title string, width, height int, resizable bool) (Window, error)
	// PollEvent waits at most timeout for the next event. A non-positive
	// timeout only returns an event that is already queued.
	PollEvent(timeout time.Duration) (Event, bool)
}

// Window is a top-level window owned by the controller.
type Window interface {
	Size() (width, height int)
	SetSize(width, height int) error
	CreateSurface() (Surface, error)
	Close() error
}

// Surface is a drawing surface that the controller releases at shutdown.
type Surface interface {
	render.Surface
	Close() error
}

// ChangeDetector reports modifications of the source image file.
type ChangeDetector interface {
	HasChanged(path string, last time.Time) (bool, time.Time, error)
}

// StatusReporter is implemented by windows that can show what the viewer is
// currently displaying.
type StatusReporter interface {
	ReportStatus(Status)
}

// Status summarizes the controller state for display.
type Status struct {
	Path    string
	ImageW  int
	ImageH  int
	WindowW int
	WindowH int
	Scale   float64
	OffsetX float64
	OffsetY float64
	ModTime time.Time
	Reloads int
	Err     error
}

// BackendError reports a failure to acquire window-system resources.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
