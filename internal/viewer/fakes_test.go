package viewer

import (
	"errors"
	"time"

	"github.com/treykane/pixview/internal/layout"
	"github.com/treykane/pixview/internal/raster"
)

// fill is one FillRect call as seen by fakeSurface; rect is nil for a clear.
type fill struct {
	color raster.Color
	rect  *layout.PixelRect
}

type fakeSurface struct {
	current raster.Color
	pending []fill
	frames  [][]fill
	closed  int
}

func (s *fakeSurface) SetDrawColor(c raster.Color) { s.current = c }

func (s *fakeSurface) FillRect(r *layout.PixelRect) {
	f := fill{color: s.current}
	if r != nil {
		copied := *r
		f.rect = &copied
	}
	s.pending = append(s.pending, f)
}

func (s *fakeSurface) Present() {
	s.frames = append(s.frames, s.pending)
	s.pending = nil
}

func (s *fakeSurface) Close() error {
	s.closed++
	return nil
}

func (s *fakeSurface) lastFrame() []fill {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

type fakeWindow struct {
	width, height int
	surface       *fakeSurface
	surfaceErr    error
	setSizes      [][2]int
	statuses      []Status
	closed        int
}

func (w *fakeWindow) Size() (int, int) { return w.width, w.height }

func (w *fakeWindow) SetSize(width, height int) error {
	w.width, w.height = width, height
	w.setSizes = append(w.setSizes, [2]int{width, height})
	return nil
}

func (w *fakeWindow) CreateSurface() (Surface, error) {
	if w.surfaceErr != nil {
		return nil, w.surfaceErr
	}
	w.surface = &fakeSurface{}
	return w.surface, nil
}

func (w *fakeWindow) Close() error {
	w.closed++
	return nil
}

func (w *fakeWindow) ReportStatus(s Status) { w.statuses = append(w.statuses, s) }

func (w *fakeWindow) lastStatus() Status {
	if len(w.statuses) == 0 {
		return Status{}
	}
	return w.statuses[len(w.statuses)-1]
}

type fakeBackend struct {
	width, height int
	windowErr     error
	surfaceErr    error
	windows       []*fakeWindow
	titles        []string
	events        []Event
	polls         int
}

func newFakeBackend(width, height int) *fakeBackend {
	return &fakeBackend{width: width, height: height}
}

func (b *fakeBackend) CreateWindow(title string, width, height int, resizable bool) (Window, error) {
	if b.windowErr != nil {
		return nil, b.windowErr
	}
	if !resizable {
		return nil, errors.New("fake backend only creates resizable windows")
	}
	b.titles = append(b.titles, title)
	w := &fakeWindow{width: b.width, height: b.height, surfaceErr: b.surfaceErr}
	b.windows = append(b.windows, w)
	return w, nil
}

func (b *fakeBackend) PollEvent(timeout time.Duration) (Event, bool) {
	b.polls++
	if len(b.events) == 0 {
		if timeout > 0 {
			time.Sleep(timeout)
		}
		return nil, false
	}
	ev := b.events[0]
	b.events = b.events[1:]
	return ev, true
}

func (b *fakeBackend) window() *fakeWindow {
	return b.windows[len(b.windows)-1]
}

// fakeDetector replays scripted results; onCheck runs after each check.
type fakeDetector struct {
	results []detectResult
	checks  int
	closed  int
	onCheck func()
}

type detectResult struct {
	changed bool
	mtime   time.Time
	err     error
}

func (d *fakeDetector) HasChanged(_ string, last time.Time) (bool, time.Time, error) {
	d.checks++
	if d.onCheck != nil {
		defer d.onCheck()
	}
	if len(d.results) == 0 {
		return false, last, nil
	}
	r := d.results[0]
	d.results = d.results[1:]
	if r.err != nil {
		return false, last, r.err
	}
	return r.changed, r.mtime, nil
}

func (d *fakeDetector) Close() error {
	d.closed++
	return nil
}
