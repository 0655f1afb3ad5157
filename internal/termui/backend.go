// Package termui is a viewer backend that uses the terminal as the window.
//
// The image is drawn with upper-half-block cells, so one terminal cell shows
// two vertically stacked pixels and the drawable height is twice the number
// of rows above the footer. The Bubble Tea program runs on its own goroutine;
// it talks to the controller only through a buffered event channel in one
// direction and immutable frame and status messages in the other.
package termui

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/treykane/pixview/internal/logging"
	"github.com/treykane/pixview/internal/viewer"
)

var log = logging.New("termui")

const (
	// eventBuffer is how many UI events may queue up before new ones are
	// dropped.
	eventBuffer = 256
	// DefaultSizeTimeout bounds how long CreateWindow waits for the terminal
	// to report its size.
	DefaultSizeTimeout = time.Second
)

// Options configures the terminal backend.
type Options struct {
	// GlamourStyle selects the glamour style of the info panel: dark, light,
	// notty or auto.
	GlamourStyle string
	// SizeTimeout overrides DefaultSizeTimeout. When it expires the
	// requested window size is used instead.
	SizeTimeout time.Duration
	// ProgramOptions are appended to the defaults (alternate screen).
	ProgramOptions []tea.ProgramOption
}

// Backend implements viewer.Backend on top of a Bubble Tea program. It opens
// at most one window.
type Backend struct {
	opts   Options
	events chan viewer.Event

	program *tea.Program
	sized   chan [2]int
	done    chan struct{}
	runErr  error

	// closing is set once the controller asked the program to stop, so its
	// exit is not reported back as WindowClosed.
	closing atomic.Bool
}

// New returns a backend; nothing touches the terminal until CreateWindow.
func New(opts Options) *Backend {
	if opts.SizeTimeout <= 0 {
		opts.SizeTimeout = DefaultSizeTimeout
	}
	return &Backend{
		opts:   opts,
		events: make(chan viewer.Event, eventBuffer),
	}
}

// send queues ev for PollEvent without blocking the UI goroutine.
func (b *Backend) send(ev viewer.Event) {
	select {
	case b.events <- ev:
	default:
		log.Warn("event queue full, dropping event", "event", ev)
	}
}

// CreateWindow starts the terminal program and waits until it reports the
// terminal size. Terminals are always resizable, so resizable is ignored.
func (b *Backend) CreateWindow(title string, width, height int, resizable bool) (viewer.Window, error) {
	if b.program != nil {
		return nil, errors.New("terminal backend supports a single window")
	}
	if !resizable {
		log.Debug("terminal window is always resizable", "title", title)
	}

	m := newModel(title, b.opts.GlamourStyle, b.send)
	b.sized = make(chan [2]int, 1)
	b.done = make(chan struct{})
	var once sync.Once
	m.onSize = func(w, h int) {
		once.Do(func() { b.sized <- [2]int{w, h} })
	}

	opts := append([]tea.ProgramOption{tea.WithAltScreen()}, b.opts.ProgramOptions...)
	b.program = tea.NewProgram(m, opts...)
	go b.run()

	win := &Window{backend: b, width: width, height: height}
	timer := time.NewTimer(b.opts.SizeTimeout)
	defer timer.Stop()
	select {
	case size := <-b.sized:
		win.width, win.height = size[0], size[1]
	case <-b.done:
		if b.runErr != nil {
			return nil, fmt.Errorf("start terminal program: %w", b.runErr)
		}
		return nil, errors.New("terminal program exited during startup")
	case <-timer.C:
		log.Warn("terminal did not report its size, using defaults", "width", width, "height", height)
	}
	log.Debug("terminal window created", "width", win.width, "height", win.height)
	return win, nil
}

func (b *Backend) run() {
	_, err := b.program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Error("terminal program", "error", err)
	}
	b.runErr = err
	close(b.done)
	if !b.closing.Load() {
		b.send(viewer.WindowClosed{})
	}
}

// PollEvent waits up to timeout for the next UI event.
func (b *Backend) PollEvent(timeout time.Duration) (viewer.Event, bool) {
	if timeout <= 0 {
		select {
		case ev := <-b.events:
			return ev, true
		default:
			return nil, false
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev := <-b.events:
		return ev, true
	case <-timer.C:
		return nil, false
	}
}

// Window is the terminal screen as seen by the controller. Its methods are
// called from the controller goroutine only.
type Window struct {
	backend *Backend
	width   int
	height  int
	surface *cellSurface
	closed  bool
}

func (w *Window) Size() (int, int) { return w.width, w.height }

// SetSize records the drawable size. The terminal decides its own size, so
// this only resizes the pixel grid backing the surface.
func (w *Window) SetSize(width, height int) error {
	w.width, w.height = width, height
	if w.surface != nil {
		w.surface.resize(width, height)
	}
	return nil
}

func (w *Window) CreateSurface() (viewer.Surface, error) {
	if w.closed {
		return nil, errors.New("window is closed")
	}
	if w.surface != nil {
		return nil, errors.New("window already has a surface")
	}
	w.surface = newCellSurface(w.width, w.height, func(frame string) {
		w.backend.program.Send(frameMsg{content: frame})
	})
	return w.surface, nil
}

// ReportStatus forwards s to the footer.
func (w *Window) ReportStatus(s viewer.Status) {
	if w.closed {
		return
	}
	w.backend.program.Send(statusMsg{status: s})
}

// Close stops the terminal program, restores the terminal and waits for the
// UI goroutine to finish.
func (w *Window) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	b := w.backend
	b.closing.Store(true)
	b.program.Quit()
	<-b.done
	if b.runErr != nil && !errors.Is(b.runErr, tea.ErrProgramKilled) {
		return b.runErr
	}
	return nil
}
