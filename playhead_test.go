package gowrangler

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu       sync.Mutex
	pos, dur float64
	paused   bool
	seeking  bool
}

func (c *fakeClock) CurrentTime() float64 { c.mu.Lock(); defer c.mu.Unlock(); return c.pos }
func (c *fakeClock) Duration() float64    { c.mu.Lock(); defer c.mu.Unlock(); return c.dur }
func (c *fakeClock) Paused() bool         { c.mu.Lock(); defer c.mu.Unlock(); return c.paused }
func (c *fakeClock) Seeking() bool        { c.mu.Lock(); defer c.mu.Unlock(); return c.seeking }

func (c *fakeClock) set(pos float64, paused, seeking bool) {
	c.mu.Lock()
	c.pos, c.paused, c.seeking = pos, paused, seeking
	c.mu.Unlock()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPlayheadFollowsClock(t *testing.T) {
	clock := &fakeClock{pos: 15, dur: 60}
	p := NewPlayheadTracker(time.Millisecond)
	defer p.Stop()

	p.Track(clock)
	waitFor(t, "first frame", func() bool {
		f, on := p.Position()
		return on && f == 0.25
	})

	clock.set(30, false, false)
	waitFor(t, "position update", func() bool {
		f, _ := p.Position()
		return f == 0.5
	})
}

func TestPlayheadSelfTerminatesOnPause(t *testing.T) {
	clock := &fakeClock{pos: 5, dur: 10}
	p := NewPlayheadTracker(time.Millisecond)

	var mu sync.Mutex
	var last bool
	p.OnUpdate(func(_ float64, active bool) {
		mu.Lock()
		last = active
		mu.Unlock()
	})

	p.Track(clock)
	waitFor(t, "active", func() bool { _, on := p.Position(); return on })

	clock.set(5, true, false)
	waitFor(t, "loop exit", func() bool { return !p.Running() })

	if _, on := p.Position(); on {
		t.Error("Marker should be inactive after pause")
	}
	mu.Lock()
	defer mu.Unlock()
	if last {
		t.Error("Final frame should report inactive")
	}
}

func TestPlayheadKeepsRunningWhileSeeking(t *testing.T) {
	clock := &fakeClock{pos: 2, dur: 10, paused: true, seeking: true}
	p := NewPlayheadTracker(time.Millisecond)
	defer p.Stop()

	p.Track(clock)
	waitFor(t, "active while seeking", func() bool { _, on := p.Position(); return on })

	time.Sleep(5 * time.Millisecond)
	if !p.Running() {
		t.Error("Loop should keep running while a seek is in progress")
	}
}

func TestPlayheadTrackReplacesLoop(t *testing.T) {
	a := &fakeClock{pos: 1, dur: 10}
	b := &fakeClock{pos: 9, dur: 10}
	p := NewPlayheadTracker(time.Millisecond)
	defer p.Stop()

	p.Track(a)
	p.Track(b)

	waitFor(t, "second clock", func() bool { f, _ := p.Position(); return f == 0.9 })
	time.Sleep(5 * time.Millisecond)
	if f, _ := p.Position(); f != 0.9 {
		t.Errorf("Old loop still writing: fraction %f", f)
	}
}

func TestPlayheadStopIdempotent(t *testing.T) {
	p := NewPlayheadTracker(0)
	p.Stop()
	p.Stop()

	p.Track(&fakeClock{dur: 1})
	p.Stop()
	p.Stop()

	if p.Running() {
		t.Error("Tracker still running after Stop")
	}
}

func TestPlayheadUnknownDuration(t *testing.T) {
	clock := &fakeClock{pos: 3, dur: 0}
	p := NewPlayheadTracker(time.Millisecond)
	defer p.Stop()

	p.Track(clock)
	waitFor(t, "active", func() bool { _, on := p.Position(); return on })
	if f, _ := p.Position(); f != 0 {
		t.Errorf("Fraction with unknown duration = %f, want 0", f)
	}
}
