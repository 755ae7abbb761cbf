package gowrangler

import (
	"context"
	"sync"
	"time"

	"github.com/schollz/gowrangler/internal/repeat"
)

// DefaultFrameInterval is roughly one display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// Clock is the playback state the playhead follows.
type Clock interface {
	CurrentTime() float64
	Duration() float64
	Paused() bool
	Seeking() bool
}

// PlayheadTracker mirrors a clock's position while it plays. Its frame loop
// ends on its own as soon as the clock is paused and not seeking.
type PlayheadTracker struct {
	interval time.Duration

	trackMu sync.Mutex // serializes Track and Stop

	mu        sync.Mutex
	task      *repeat.Task
	fraction  float64
	active    bool
	listeners []func(fraction float64, active bool)
}

// NewPlayheadTracker returns a stopped tracker. A non-positive interval
// uses DefaultFrameInterval.
func NewPlayheadTracker(interval time.Duration) *PlayheadTracker {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &PlayheadTracker{interval: interval}
}

// OnUpdate registers fn to receive every frame. active is false on the
// final frame of a loop.
func (p *PlayheadTracker) OnUpdate(fn func(fraction float64, active bool)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Track stops any running loop and starts following clock.
func (p *PlayheadTracker) Track(clock Clock) {
	p.trackMu.Lock()
	defer p.trackMu.Unlock()

	p.stopLocked()

	task := repeat.Start(context.Background(), p.interval, func(ctx context.Context) bool {
		return p.frame(clock)
	})

	p.mu.Lock()
	p.task = task
	p.mu.Unlock()
}

// Stop cancels the loop and hides the marker. Safe to call at any time.
func (p *PlayheadTracker) Stop() {
	p.trackMu.Lock()
	defer p.trackMu.Unlock()

	if p.stopLocked() {
		p.notify(p.Position())
	}
}

func (p *PlayheadTracker) stopLocked() bool {
	p.mu.Lock()
	task := p.task
	p.task = nil
	wasActive := p.active
	p.active = false
	p.mu.Unlock()

	// Stop outside mu: the loop takes mu on every frame.
	task.Stop()
	return wasActive
}

// Running reports whether a frame loop is live.
func (p *PlayheadTracker) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.task.Running()
}

// Position returns the last fraction and whether the marker is shown.
func (p *PlayheadTracker) Position() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fraction, p.active
}

func (p *PlayheadTracker) frame(clock Clock) bool {
	if clock.Paused() && !clock.Seeking() {
		p.mu.Lock()
		p.active = false
		fraction := p.fraction
		p.mu.Unlock()
		p.notify(fraction, false)
		return false
	}

	p.mu.Lock()
	if d := clock.Duration(); d > 0 {
		p.fraction = clock.CurrentTime() / d
	}
	p.active = true
	fraction := p.fraction
	p.mu.Unlock()

	p.notify(fraction, true)
	return true
}

func (p *PlayheadTracker) notify(fraction float64, active bool) {
	p.mu.Lock()
	listeners := append([]func(float64, bool){}, p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(fraction, active)
	}
}
