package gowrangler

import "math"

// Bar heights use this share of the surface height.
const barHeightRatio = 0.85

// Surface is a drawing area in logical units. PixelRatio maps logical units
// to physical pixels, like a browser's device pixel ratio.
type Surface struct {
	Width      float64
	Height     float64
	PixelRatio float64
}

// Physical returns the surface size in device pixels.
func (s Surface) Physical() (int, int) {
	pr := s.ratio()
	return int(math.Round(s.Width * pr)), int(math.Round(s.Height * pr))
}

// BarCount returns how many peaks should be extracted for this surface.
func (s Surface) BarCount() int {
	w, _ := s.Physical()
	return BarCount(w, s.ratio())
}

func (s Surface) ratio() float64 {
	if s.PixelRatio <= 0 {
		return 1
	}
	return s.PixelRatio
}

// View is everything drawn on top of the peaks.
type View struct {
	Region     Region
	ShowRegion bool // only when the active edit honors a region
	Sections   []Section
	Playhead   float64 // fraction of duration in [0,1]
	PlayheadOn bool
}

// Bar is one peak rectangle in logical units.
type Bar struct {
	X, Y, W, H float64
	Peak       float32
	Selected   bool
}

// Stripe is one section overlay. Even and odd stripes alternate shading.
type Stripe struct {
	Name  string
	X, W  float64
	Index int
}

// Span is a horizontal extent that may be hidden.
type Span struct {
	X, W    float64
	Visible bool
}

// Frame is a fully laid out timeline, ready for any backend to paint.
type Frame struct {
	Surface   Surface
	Duration  float64
	Bars      []Bar
	Stripes   []Stripe
	Selection Span
	Playhead  Span
}

// Layout positions every element of the timeline on s. Bars are centered on
// the midline with a minimum height of one unit so silence stays visible.
func Layout(data *WaveformData, s Surface, v View) Frame {
	f := Frame{Surface: s}
	if data == nil || len(data.Peaks) == 0 {
		return f
	}
	f.Duration = data.Duration

	n := len(data.Peaks)
	barW := s.Width / float64(n)
	midY := s.Height / 2
	maxH := s.Height * barHeightRatio

	hasSel := v.ShowRegion && !v.Region.Empty() && data.Duration > 0

	f.Bars = make([]Bar, n)
	for i, p := range data.Peaks {
		h := math.Max(1, float64(p)*maxH)
		t := float64(i) / float64(n) * data.Duration
		f.Bars[i] = Bar{
			X:        float64(i) * barW,
			Y:        midY - h/2,
			W:        math.Max(1, barW-0.5),
			H:        h,
			Peak:     p,
			Selected: hasSel && v.Region.Contains(t),
		}
	}

	if data.Duration > 0 {
		for i, sec := range v.Sections {
			f.Stripes = append(f.Stripes, Stripe{
				Name:  sec.Name,
				X:     sec.Start / data.Duration * s.Width,
				W:     (sec.End - sec.Start) / data.Duration * s.Width,
				Index: i,
			})
		}
	}

	if hasSel {
		f.Selection = Span{
			X:       v.Region.Start / data.Duration * s.Width,
			W:       v.Region.Length() / data.Duration * s.Width,
			Visible: true,
		}
	}

	if v.PlayheadOn {
		p := math.Min(1, math.Max(0, v.Playhead))
		f.Playhead = Span{X: p * s.Width, Visible: true}
	}

	return f
}

// TimeAt converts a logical x coordinate to seconds, clamped to the clip.
func (f Frame) TimeAt(x float64) float64 {
	if f.Surface.Width <= 0 || f.Duration <= 0 {
		return 0
	}
	x = math.Min(f.Surface.Width, math.Max(0, x))
	return x / f.Surface.Width * f.Duration
}

// TargetAt reports whether x hits a selection handle within tol units,
// falling back to the timeline itself.
func (f Frame) TargetAt(x, tol float64) Target {
	if !f.Selection.Visible {
		return TargetTimeline
	}
	left := f.Selection.X
	right := f.Selection.X + f.Selection.W
	switch {
	case math.Abs(x-left) <= tol && math.Abs(x-left) <= math.Abs(x-right):
		return TargetLeftHandle
	case math.Abs(x-right) <= tol:
		return TargetRightHandle
	}
	return TargetTimeline
}

// StripeAt returns the index of the section under x, or -1.
func (f Frame) StripeAt(x float64) int {
	for _, st := range f.Stripes {
		if x >= st.X && x < st.X+st.W {
			return st.Index
		}
	}
	return -1
}
