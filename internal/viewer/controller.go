// Package viewer drives the display pipeline: it owns the decoded image and
// its per-pixel layout, reacts to window events and reloads the image when
// the source file changes.
//
// A Controller runs on a single goroutine. Its only blocking point is
// Backend.PollEvent, bounded by the tick interval so the reload check keeps
// running while no events arrive.
package viewer

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/treykane/pixview/internal/layout"
	"github.com/treykane/pixview/internal/logging"
	"github.com/treykane/pixview/internal/raster"
	"github.com/treykane/pixview/internal/render"
)

var log = logging.New("viewer")

const (
	// DefaultTick is the interval between reload checks.
	DefaultTick = 30 * time.Millisecond
	// DefaultWidth and DefaultHeight size the window before the backend
	// reports its real size.
	DefaultWidth  = 500
	DefaultHeight = 500
)

// DefaultBackground fills the letterbox area around the image.
var DefaultBackground = raster.RGB(0x282c34)

// State is the controller lifecycle: Uninitialized → Running → Stopped.
type State int

const (
	Uninitialized State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DecodeFunc loads the image at path.
type DecodeFunc func(path string) (*raster.Image, error)

// Options configures a Controller. Zero fields fall back to defaults except
// Background, where the zero value is black; start from DefaultOptions.
type Options struct {
	Title      string
	Width      int
	Height     int
	Background raster.Color
	Tick       time.Duration
	// Detector enables live reload. The controller closes it on shutdown if
	// it implements io.Closer. Nil disables live reload.
	Detector ChangeDetector
	Decode   DecodeFunc
}

// DefaultOptions returns the stock window size, background and tick.
func DefaultOptions() Options {
	return Options{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Background: DefaultBackground,
		Tick:       DefaultTick,
	}
}

// Controller holds all viewer state.
type Controller struct {
	backend    Backend
	detector   ChangeDetector
	decode     DecodeFunc
	title      string
	background raster.Color
	tick       time.Duration
	initW      int
	initH      int

	state   State
	path    string
	modTime time.Time

	window  Window
	surface Surface
	width   int
	height  int

	image *raster.Image
	rects []layout.PixelRect

	reloads   int
	reloadErr error
	watchErr  error

	closed   bool
	closeErr error
}

// New returns an uninitialized controller for the image at path.
func New(path string, backend Backend, opts Options) *Controller {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.Decode == nil {
		opts.Decode = raster.DecodeFile
	}
	if opts.Title == "" {
		opts.Title = path
	}
	return &Controller{
		backend:    backend,
		detector:   opts.Detector,
		decode:     opts.Decode,
		title:      opts.Title,
		background: opts.Background,
		tick:       opts.Tick,
		initW:      opts.Width,
		initH:      opts.Height,
		path:       path,
	}
}

// State returns the lifecycle state.
func (c *Controller) State() State { return c.state }

// Image returns the image currently displayed, nil before Start and after
// shutdown.
func (c *Controller) Image() *raster.Image { return c.image }

// Rects returns the current layout, one rect per image pixel.
func (c *Controller) Rects() []layout.PixelRect { return c.rects }

// WindowSize returns the last known drawable size.
func (c *Controller) WindowSize() (int, int) { return c.width, c.height }

// ModTime returns the modification time of the source file as of the last
// successful check.
func (c *Controller) ModTime() time.Time { return c.modTime }

// Start loads the image, opens the window and draws the first frame. Any
// failure is fatal: resources acquired so far are released and the
// controller ends up Stopped.
func (c *Controller) Start() (err error) {
	if c.state != Uninitialized {
		return fmt.Errorf("start: controller is %s", c.state)
	}
	defer func() {
		if err != nil {
			if closeErr := c.Close(); closeErr != nil {
				log.Warn("release after failed start", "error", closeErr)
			}
		}
	}()

	// Read the mtime before decoding so a write racing the decode is seen
	// by the first tick.
	if c.detector != nil {
		_, mtime, err := c.detector.HasChanged(c.path, time.Time{})
		if err != nil {
			log.Warn("read initial modification time", "path", c.path, "error", err)
			c.watchErr = err
		}
		c.modTime = mtime
	}

	img, err := c.decode(c.path)
	if err != nil {
		return err
	}
	c.image = img

	win, err := c.backend.CreateWindow(c.title, c.initW, c.initH, true)
	if err != nil {
		return &BackendError{Op: "create window", Err: err}
	}
	c.window = win

	surface, err := win.CreateSurface()
	if err != nil {
		return &BackendError{Op: "create surface", Err: err}
	}
	c.surface = surface

	c.width, c.height = win.Size()
	c.state = Running
	c.relayout()
	c.redraw()
	c.reportStatus()

	log.Info("viewer started",
		"path", c.path,
		"image", fmt.Sprintf("%dx%d", img.Width, img.Height),
		"window", fmt.Sprintf("%dx%d", c.width, c.height),
	)
	return nil
}

// Run dispatches events until the controller stops, checking the source
// file once per tick. It returns the shutdown error, if any.
func (c *Controller) Run() error {
	if c.state != Running {
		return fmt.Errorf("run: controller is %s", c.state)
	}
	next := time.Now().Add(c.tick)
	for c.state == Running {
		if ev, ok := c.backend.PollEvent(time.Until(next)); ok {
			c.Handle(ev)
		}
		if c.state != Running {
			break
		}
		if now := time.Now(); !now.Before(next) {
			c.Tick()
			next = now.Add(c.tick)
		}
	}
	return c.closeErr
}

// Handle applies one event. Events arriving when the controller is not
// running are dropped.
func (c *Controller) Handle(ev Event) {
	if c.state != Running {
		return
	}
	switch ev := ev.(type) {
	case Quit:
		log.Info("quit requested")
		c.stop()
	case WindowClosed:
		log.Info("window closed")
		c.stop()
	case Resize:
		c.resize(ev.Width, ev.Height)
	case Expose:
		c.redraw()
	case ReloadRequest:
		_ = c.Reload()
	case Other:
		log.Debug("ignoring event", "event", ev.Name)
	default:
		log.Warn("unknown event", "type", fmt.Sprintf("%T", ev))
	}
}

// Tick checks the source file and reloads it when its modification time
// changed. Stat failures leave the current image on screen.
func (c *Controller) Tick() {
	if c.state != Running || c.detector == nil {
		return
	}
	changed, mtime, err := c.detector.HasChanged(c.path, c.modTime)
	if err != nil {
		// Only the first failure of a streak is reported; the check repeats
		// every tick.
		first := c.watchErr == nil
		c.watchErr = err
		if first {
			log.Warn("check image file", "path", c.path, "error", err)
			c.reportStatus()
		} else {
			log.Debug("check image file", "path", c.path, "error", err)
		}
		return
	}
	if c.watchErr != nil {
		log.Info("image file readable again", "path", c.path)
		c.watchErr = nil
		c.reportStatus()
	}
	if !changed {
		return
	}

	log.Debug("image file changed", "path", c.path, "mtime", mtime)
	// Record the new mtime even if the decode fails so a half-written file
	// is retried on its next write instead of on every tick.
	c.modTime = mtime
	_ = c.Reload()
}

// Reload decodes the source file again and displays it. On failure the
// previous image stays installed and the error is reported.
func (c *Controller) Reload() error {
	if c.state != Running {
		return fmt.Errorf("reload: controller is %s", c.state)
	}
	img, err := c.decode(c.path)
	if err != nil {
		log.Error("reload image", "path", c.path, "error", err)
		c.reloadErr = err
		c.reportStatus()
		return err
	}

	// Swap only after a successful decode; the old buffers become
	// unreachable here.
	c.image = img
	c.rects = nil
	c.reloads++
	c.reloadErr = nil

	c.relayout()
	c.redraw()
	c.reportStatus()

	log.Info("image reloaded",
		"path", c.path,
		"image", fmt.Sprintf("%dx%d", img.Width, img.Height),
		"reloads", c.reloads,
	)
	return nil
}

// Close releases the image, layout, surface, window and change detector.
// Only the first call does any work; later calls return its result.
func (c *Controller) Close() error {
	if c.closed {
		return c.closeErr
	}
	c.closed = true
	c.state = Stopped

	c.image = nil
	c.rects = nil

	var errs []error
	if c.surface != nil {
		if err := c.surface.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close surface: %w", err))
		}
		c.surface = nil
	}
	if c.window != nil {
		if err := c.window.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close window: %w", err))
		}
		c.window = nil
	}
	if closer, ok := c.detector.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close change detector: %w", err))
		}
	}
	c.detector = nil

	c.closeErr = errors.Join(errs...)
	return c.closeErr
}

func (c *Controller) stop() {
	if err := c.Close(); err != nil {
		log.Error("shutdown", "error", err)
	}
}

func (c *Controller) resize(width, height int) {
	c.width, c.height = max(0, width), max(0, height)
	if err := c.window.SetSize(c.width, c.height); err != nil {
		log.Warn("set window size", "width", c.width, "height", c.height, "error", err)
	}
	c.relayout()
	c.redraw()
	c.reportStatus()
}

func (c *Controller) relayout() {
	c.rects = layout.Compute(c.width, c.height, c.image.Width, c.image.Height)
}

func (c *Controller) redraw() {
	if c.surface == nil || c.image == nil {
		return
	}
	if err := render.Draw(c.surface, c.background, c.rects, c.image.Pix); err != nil {
		log.Error("draw frame", "error", err)
	}
}

func (c *Controller) reportStatus() {
	reporter, ok := c.window.(StatusReporter)
	if !ok || c.image == nil {
		return
	}
	status := Status{
		Path:    c.path,
		ImageW:  c.image.Width,
		ImageH:  c.image.Height,
		WindowW: c.width,
		WindowH: c.height,
		Scale:   layout.Scale(c.width, c.height, c.image.Width, c.image.Height),
		ModTime: c.modTime,
		Reloads: c.reloads,
		Err:     c.reloadErr,
	}
	status.OffsetX, status.OffsetY = layout.Offset(c.width, c.height, c.image.Width, c.image.Height)
	if status.Err == nil {
		status.Err = c.watchErr
	}
	reporter.ReportStatus(status)
}
