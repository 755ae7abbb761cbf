package gowrangler

import (
	"math"
	"testing"
)

func testData(peaks ...float32) *WaveformData {
	return &WaveformData{
		SampleRate: 10,
		Duration:   float64(len(peaks)),
		Length:     len(peaks),
		Peaks:      peaks,
	}
}

func TestSurfaceBarCount(t *testing.T) {
	s := Surface{Width: 400, Height: 100, PixelRatio: 2}
	w, h := s.Physical()
	if w != 800 || h != 200 {
		t.Errorf("Physical() = %dx%d, want 800x200", w, h)
	}
	if got := s.BarCount(); got != 200 {
		t.Errorf("BarCount() = %d, want 200", got)
	}
}

func TestLayoutBarGeometry(t *testing.T) {
	data := testData(0, 0.5, 1, 0.25)
	f := Layout(data, Surface{Width: 40, Height: 100, PixelRatio: 1}, View{})

	if len(f.Bars) != 4 {
		t.Fatalf("Expected 4 bars, got %d", len(f.Bars))
	}

	// Silent bars keep a one unit baseline.
	if f.Bars[0].H != 1 {
		t.Errorf("Silent bar height = %f, want 1", f.Bars[0].H)
	}
	if math.Abs(f.Bars[2].H-85) > 1e-9 {
		t.Errorf("Full bar height = %f, want 85", f.Bars[2].H)
	}

	for i, b := range f.Bars {
		if math.Abs((b.Y+b.H/2)-50) > 1e-9 {
			t.Errorf("bar %d not centered on the midline", i)
		}
		if b.X != float64(i)*10 {
			t.Errorf("bar %d x = %f, want %d", i, b.X, i*10)
		}
		if b.W != 9.5 {
			t.Errorf("bar %d width = %f, want 9.5", i, b.W)
		}
		if b.Selected {
			t.Errorf("bar %d selected without a region", i)
		}
	}
}

func TestLayoutNarrowBarsKeepMinimumWidth(t *testing.T) {
	data := testData(make([]float32, 100)...)
	f := Layout(data, Surface{Width: 50, Height: 10}, View{})
	for i, b := range f.Bars {
		if b.W != 1 {
			t.Fatalf("bar %d width = %f, want 1", i, b.W)
		}
	}
}

func TestLayoutSelection(t *testing.T) {
	data := testData(make([]float32, 10)...) // 10 bars, 10 seconds
	s := Surface{Width: 100, Height: 20}
	region := Region{Start: 2, End: 5}

	f := Layout(data, s, View{Region: region, ShowRegion: true})
	for i, b := range f.Bars {
		want := i >= 2 && i <= 5
		if b.Selected != want {
			t.Errorf("bar %d selected = %v, want %v", i, b.Selected, want)
		}
	}
	if !f.Selection.Visible || !approx(f.Selection.X, 20) || !approx(f.Selection.W, 30) {
		t.Errorf("Selection = %+v, want x=20 w=30", f.Selection)
	}

	// The same region is never shown when the edit ignores it.
	f = Layout(data, s, View{Region: region, ShowRegion: false})
	if f.Selection.Visible {
		t.Error("Selection visible with ShowRegion off")
	}
	for i, b := range f.Bars {
		if b.Selected {
			t.Errorf("bar %d selected with ShowRegion off", i)
		}
	}

	f = Layout(data, s, View{Region: Region{Start: 4, End: 4}, ShowRegion: true})
	if f.Selection.Visible {
		t.Error("Empty region should not be highlighted")
	}
}

func TestLayoutStripesAndPlayhead(t *testing.T) {
	data := testData(make([]float32, 20)...)
	sections := []Section{
		{Name: "Verse", Start: 0, End: 10},
		{Name: "Chorus", Start: 10, End: 20},
	}

	f := Layout(data, Surface{Width: 200, Height: 20}, View{
		Sections:   sections,
		Playhead:   0.25,
		PlayheadOn: true,
	})

	if len(f.Stripes) != 2 {
		t.Fatalf("Expected 2 stripes, got %d", len(f.Stripes))
	}
	if f.Stripes[1].X != 100 || f.Stripes[1].W != 100 || f.Stripes[1].Name != "Chorus" {
		t.Errorf("Chorus stripe = %+v", f.Stripes[1])
	}
	if !f.Playhead.Visible || f.Playhead.X != 50 {
		t.Errorf("Playhead = %+v, want x=50", f.Playhead)
	}
	if got := f.StripeAt(150); got != 1 {
		t.Errorf("StripeAt(150) = %d, want 1", got)
	}
	if got := f.StripeAt(500); got != -1 {
		t.Errorf("StripeAt(500) = %d, want -1", got)
	}
}

func TestLayoutEmpty(t *testing.T) {
	f := Layout(nil, Surface{Width: 100, Height: 10}, View{ShowRegion: true, Region: Region{0, 1}})
	if len(f.Bars) != 0 || f.Selection.Visible {
		t.Error("Empty data should produce an empty frame")
	}
}

func TestFrameHitTesting(t *testing.T) {
	data := testData(make([]float32, 10)...)
	f := Layout(data, Surface{Width: 100, Height: 20}, View{Region: Region{2, 6}, ShowRegion: true})

	if got := f.TimeAt(55); !approx(got, 5.5) {
		t.Errorf("TimeAt(55) = %f, want 5.5", got)
	}
	if got := f.TimeAt(-10); got != 0 {
		t.Errorf("TimeAt(-10) = %f, want 0", got)
	}
	if got := f.TimeAt(1000); got != 10 {
		t.Errorf("TimeAt(1000) = %f, want 10", got)
	}

	tests := []struct {
		x    float64
		want Target
	}{
		{19, TargetLeftHandle},
		{21, TargetLeftHandle},
		{61, TargetRightHandle},
		{40, TargetTimeline},
	}
	for _, tt := range tests {
		if got := f.TargetAt(tt.x, 2); got != tt.want {
			t.Errorf("TargetAt(%g) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
