package gowrangler

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
)

var (
	ErrRegionOrder  = errors.New("region start must be before end")
	ErrRegionBounds = errors.New("region end exceeds audio duration")
)

// Region is a time range in seconds within the loaded clip.
type Region struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Empty reports whether the region selects nothing.
func (r Region) Empty() bool { return r.End <= r.Start }

// Length returns End - Start, or 0 for an empty region.
func (r Region) Length() float64 {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start
}

// Contains reports whether t lies within [Start, End].
func (r Region) Contains(t float64) bool {
	return t >= r.Start && t <= r.End
}

// Validate checks a region typed in by hand against the clip duration.
// A zero end is treated as unset. duration <= 0 skips the bounds check.
func (r Region) Validate(duration float64) error {
	if r.Start < 0 {
		return ErrRegionBounds
	}
	if r.Start >= r.End && r.End > 0 {
		return ErrRegionOrder
	}
	if duration > 0 && r.End > duration {
		return ErrRegionBounds
	}
	return nil
}

// Section is a named span of the song, estimated from lyric headers.
type Section struct {
	Name  string  `json:"name"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Bars  int     `json:"bars,omitempty"`
}

// Target identifies what a pointer press landed on.
type Target int

const (
	TargetTimeline Target = iota
	TargetLeftHandle
	TargetRightHandle
	TargetLabel
)

// RegionSelector owns the selected region. Drags, handle moves, section
// clicks and typed values all end up in SetRegion, so every view of the
// region reads the same value.
type RegionSelector struct {
	mu        sync.Mutex
	duration  float64
	region    Region
	target    Target
	dragging  bool
	anchor    float64
	listeners []func(Region)
}

// NewRegionSelector returns a selector with no clip loaded.
func NewRegionSelector() *RegionSelector {
	return &RegionSelector{}
}

// OnChange registers fn to receive every region update.
func (s *RegionSelector) OnChange(fn func(Region)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// SetDuration sets the clip length and selects the whole clip.
// A non-positive duration clears the region.
func (s *RegionSelector) SetDuration(d float64) {
	s.mu.Lock()
	s.dragging = false
	if d <= 0 {
		s.duration = 0
		s.region = Region{}
		s.mu.Unlock()
		s.notify(Region{})
		return
	}
	s.duration = d
	s.mu.Unlock()

	s.SetRegion(0, d)
}

// Duration returns the current clip length.
func (s *RegionSelector) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// Region returns the current selection.
func (s *RegionSelector) Region() Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.region
}

// SetRegion clamps start and end to the clip, snaps them to tenths of a
// second and keeps end >= start. Applying the result again changes nothing.
func (s *RegionSelector) SetRegion(start, end float64) Region {
	s.mu.Lock()
	r := clampRegion(start, end, s.duration)
	s.region = r
	s.mu.Unlock()

	s.notify(r)
	return r
}

func (s *RegionSelector) notify(r Region) {
	s.mu.Lock()
	listeners := append([]func(Region){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(r)
	}
}

func clampRegion(start, end, duration float64) Region {
	if duration <= 0 {
		return Region{}
	}

	limit := math.Floor(duration*10+1e-9) / 10
	if limit > duration {
		limit = math.Floor(duration*10) / 10
	}

	start = math.Max(0, quantize(start))
	end = math.Min(limit, quantize(end))
	if start > limit {
		start = limit
	}
	if end < start {
		end = start
	}
	return Region{Start: start, End: end}
}

func quantize(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Round(v*10) / 10
}

// PointerDown starts a gesture at sec. A press on the timeline anchors a new
// region there; a press on a handle moves only that boundary. Label presses
// are left to ClickSection.
func (s *RegionSelector) PointerDown(sec float64, target Target) {
	s.mu.Lock()
	if target == TargetLabel || s.duration <= 0 {
		s.mu.Unlock()
		return
	}
	s.target = target
	s.dragging = true
	s.anchor = clampTime(sec, s.duration)
	anchor := s.anchor
	s.mu.Unlock()

	if target == TargetTimeline {
		s.SetRegion(anchor, anchor)
	}
}

// PointerMove updates the active gesture. It does nothing when no gesture
// is in progress.
func (s *RegionSelector) PointerMove(sec float64) {
	s.mu.Lock()
	if !s.dragging {
		s.mu.Unlock()
		return
	}
	sec = clampTime(sec, s.duration)
	cur := s.region
	target := s.target
	anchor := s.anchor
	s.mu.Unlock()

	switch target {
	case TargetLeftHandle:
		s.SetRegion(math.Min(sec, cur.End), cur.End)
	case TargetRightHandle:
		s.SetRegion(cur.Start, math.Max(sec, cur.Start))
	default:
		s.SetRegion(math.Min(anchor, sec), math.Max(anchor, sec))
	}
}

// PointerUp ends the active gesture.
func (s *RegionSelector) PointerUp() {
	s.mu.Lock()
	s.dragging = false
	s.mu.Unlock()
}

// Dragging reports whether a gesture is in progress.
func (s *RegionSelector) Dragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dragging
}

// ClickSection selects sec, or with extend grows the current region to
// cover both.
func (s *RegionSelector) ClickSection(sec Section, extend bool) Region {
	if !extend {
		return s.SetRegion(sec.Start, sec.End)
	}
	cur := s.Region()
	return s.SetRegion(math.Min(cur.Start, sec.Start), math.Max(cur.End, sec.End))
}

// Describe summarizes the selection, e.g.
// "Verse + Chorus · 0:05.0 – 0:20.0 (15.0s)". Sections count when they lie
// inside the region give or take half a second. Returns "" with no selection.
func (s *RegionSelector) Describe(sections []Section) string {
	s.mu.Lock()
	r, d := s.region, s.duration
	s.mu.Unlock()

	if r.Empty() || d <= 0 {
		return ""
	}

	var names []string
	for _, sec := range sections {
		if sec.Start >= r.Start-0.5 && sec.End <= r.End+0.5 {
			names = append(names, sec.Name)
		}
	}

	var sb strings.Builder
	if len(names) > 0 {
		sb.WriteString(strings.Join(names, " + "))
		sb.WriteString(" · ")
	}
	fmt.Fprintf(&sb, "%s – %s (%.1fs)", FormatTimecode(r.Start), FormatTimecode(r.End), r.End-r.Start)
	return sb.String()
}

// FormatTimecode renders seconds as m:ss.t
func FormatTimecode(secs float64) string {
	if secs < 0 {
		secs = 0
	}
	tenths := int(math.Round(secs * 10))
	return fmt.Sprintf("%d:%02d.%d", tenths/600, (tenths/10)%60, tenths%10)
}

// FormatClock renders seconds as m:ss.
func FormatClock(secs float64) string {
	if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		secs = 0
	}
	whole := int(secs)
	return fmt.Sprintf("%d:%02d", whole/60, whole%60)
}

func clampTime(sec, duration float64) float64 {
	if sec < 0 {
		return 0
	}
	if sec > duration {
		return duration
	}
	return sec
}
