// Package transport provides Rewind / Play / Stop control over playable
// elements. The three controls are separate actions rather than a toggle:
// Stop keeps the position, Rewind keeps the play state, and Play always
// silences every other registered element first.
package transport

import (
	"fmt"
	"math"
	"sync"
)

// Element is something that plays audio and owns its own playback state.
type Element interface {
	Play() error
	Pause()
	Seek(sec float64)
	CurrentTime() float64
	Duration() float64
	Paused() bool
	Seeking() bool
	// OnEnded registers fn to run when playback reaches the end.
	OnEnded(fn func())
}

// Registry tracks every live element so only one plays at a time.
type Registry struct {
	mu    sync.Mutex
	elems []Element
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add tracks e. Adding twice is a no-op.
func (r *Registry) Add(e Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.elems {
		if x == e {
			return
		}
	}
	r.elems = append(r.elems, e)
}

// Remove stops tracking e.
func (r *Registry) Remove(e Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, x := range r.elems {
		if x == e {
			r.elems = append(r.elems[:i], r.elems[i+1:]...)
			return
		}
	}
}

// StopOthers pauses every playing element except the given one.
func (r *Registry) StopOthers(except Element) {
	r.mu.Lock()
	elems := append([]Element(nil), r.elems...)
	r.mu.Unlock()

	for _, e := range elems {
		if e != except && !e.Paused() {
			e.Pause()
		}
	}
}

// Playing returns the elements currently not paused.
func (r *Registry) Playing() []Element {
	r.mu.Lock()
	elems := append([]Element(nil), r.elems...)
	r.mu.Unlock()

	var out []Element
	for _, e := range elems {
		if !e.Paused() {
			out = append(out, e)
		}
	}
	return out
}

// Event is a playback transition observed by the controller.
type Event int

const (
	EventPlay Event = iota
	EventPause
	EventEnded
	EventSeek
)

func (e Event) String() string {
	switch e {
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventEnded:
		return "ended"
	case EventSeek:
		return "seek"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// State is a snapshot for drawing the transport bar.
type State struct {
	Position    float64
	Duration    float64
	Progress    float64 // Position / Duration, 0 when the duration is unknown
	Playing     bool
	StopEnabled bool
	Label       string // "m:ss / m:ss"
}

// Controller drives one element.
type Controller struct {
	el  Element
	reg *Registry

	mu        sync.Mutex
	listeners []func(Event)
}

// New registers el with reg and returns its controller.
func New(el Element, reg *Registry) *Controller {
	c := &Controller{el: el, reg: reg}
	reg.Add(el)
	el.OnEnded(c.ended)
	return c
}

// Element returns the controlled element.
func (c *Controller) Element() Element { return c.el }

// OnEvent registers fn for playback transitions.
func (c *Controller) OnEvent(fn func(Event)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Controller) emit(ev Event) {
	c.mu.Lock()
	listeners := append([]func(Event){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Play resumes from the current position after pausing all other elements.
func (c *Controller) Play() error {
	c.reg.StopOthers(c.el)
	if err := c.el.Play(); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	c.emit(EventPlay)
	return nil
}

// Stop pauses and keeps the position, so the next Play resumes.
func (c *Controller) Stop() {
	c.el.Pause()
	c.emit(EventPause)
}

// Rewind jumps to the start without changing whether it is playing.
func (c *Controller) Rewind() {
	c.el.Seek(0)
	c.emit(EventSeek)
}

// Scrub seeks to fraction of the duration and starts playing. It does
// nothing while the duration is unknown.
func (c *Controller) Scrub(fraction float64) error {
	d := c.el.Duration()
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return nil
	}
	fraction = math.Min(1, math.Max(0, fraction))

	c.el.Seek(fraction * d)
	c.emit(EventSeek)
	return c.Play()
}

// ended returns the element to paused-at-start.
func (c *Controller) ended() {
	if !c.el.Paused() {
		c.el.Pause()
	}
	c.el.Seek(0)
	c.emit(EventEnded)
}

// State reports position, progress and which controls are enabled.
func (c *Controller) State() State {
	pos := c.el.CurrentTime()
	dur := c.el.Duration()
	if math.IsNaN(dur) || math.IsInf(dur, 0) || dur < 0 {
		dur = 0
	}
	playing := !c.el.Paused()

	s := State{
		Position:    pos,
		Duration:    dur,
		Playing:     playing,
		StopEnabled: playing,
		Label:       clock(pos) + " / " + clock(dur),
	}
	if dur > 0 {
		s.Progress = math.Min(1, pos/dur)
	}
	return s
}

// Close stops tracking the element.
func (c *Controller) Close() {
	c.reg.Remove(c.el)
}

func clock(s float64) string {
	if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		s = 0
	}
	whole := int(s)
	return fmt.Sprintf("%d:%02d", whole/60, whole%60)
}
