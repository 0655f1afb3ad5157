package viewer

import "fmt"

// Event is a window-system event delivered to the controller. The set of
// variants is closed: only types in this package implement it, and
// Controller.Handle switches over all of them.
type Event interface {
	isEvent()
}

// Quit asks the viewer to shut down.
type Quit struct{}

// WindowClosed reports that the window went away without a quit request,
// e.g. the terminal program was interrupted.
type WindowClosed struct{}

// Resize carries the new drawable size of the window in window pixels.
type Resize struct {
	Width, Height int
}

// Expose asks for the current frame to be drawn again.
type Expose struct{}

// ReloadRequest asks for the image to be decoded again even if its
// modification time did not change.
type ReloadRequest struct{}

// Other is any event the viewer does not act on.
type Other struct {
	Name string
}

func (Quit) isEvent()          {}
func (WindowClosed) isEvent()  {}
func (Resize) isEvent()        {}
func (Expose) isEvent()        {}
func (ReloadRequest) isEvent() {}
func (Other) isEvent()         {}

func (Quit) String() string          { return "quit" }
func (WindowClosed) String() string  { return "window-closed" }
func (r Resize) String() string      { return fmt.Sprintf("resize(%d,%d)", r.Width, r.Height) }
func (Expose) String() string        { return "expose" }
func (ReloadRequest) String() string { return "reload" }
func (o Other) String() string       { return "other(" + o.Name + ")" }
