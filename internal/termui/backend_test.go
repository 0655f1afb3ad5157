package termui

import (
	"testing"
	"time"

	"github.com/treykane/pixview/internal/viewer"
)

func TestPollEventReturnsQueuedEventsInOrder(t *testing.T) {
	b := New(Options{})
	b.send(viewer.Resize{Width: 4, Height: 2})
	b.send(viewer.Quit{})

	for _, want := range []viewer.Event{viewer.Resize{Width: 4, Height: 2}, viewer.Quit{}} {
		ev, ok := b.PollEvent(0)
		if !ok || ev != want {
			t.Fatalf("expected %v, got %v (ok=%v)", want, ev, ok)
		}
	}
	if ev, ok := b.PollEvent(0); ok {
		t.Fatalf("expected empty queue, got %v", ev)
	}
}

func TestPollEventTimesOut(t *testing.T) {
	b := New(Options{})
	start := time.Now()
	if _, ok := b.PollEvent(5 * time.Millisecond); ok {
		t.Fatal("expected timeout")
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Fatal("expected PollEvent to wait for the timeout")
	}
}

func TestSendDropsEventsWhenQueueIsFull(t *testing.T) {
	b := New(Options{})
	for i := 0; i < eventBuffer+10; i++ {
		b.send(viewer.Expose{})
	}
	if got := len(b.events); got != eventBuffer {
		t.Fatalf("expected %d queued events, got %d", eventBuffer, got)
	}
}

func TestNewAppliesDefaultSizeTimeout(t *testing.T) {
	if b := New(Options{}); b.opts.SizeTimeout != DefaultSizeTimeout {
		t.Fatalf("expected default timeout, got %v", b.opts.SizeTimeout)
	}
}

func TestWindowSetSizeResizesSurface(t *testing.T) {
	w := &Window{width: 2, height: 2}
	w.surface = newCellSurface(2, 2, nil)

	if err := w.SetSize(10, 6); err != nil {
		t.Fatalf("set size: %v", err)
	}
	if width, height := w.Size(); width != 10 || height != 6 {
		t.Fatalf("expected 10x6, got %dx%d", width, height)
	}
	if len(w.surface.pix) != 60 {
		t.Fatalf("expected surface grid resized, got %d pixels", len(w.surface.pix))
	}
	if _, err := w.CreateSurface(); err == nil {
		t.Fatal("expected a second surface to be rejected")
	}
}
