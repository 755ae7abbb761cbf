package estimate

import (
	"math"
	"testing"
)

const song = `[Intro]
[Verse 1]
walking down the road
[Chorus]
la la la
[Verse 2]
[Chorus]
[Outro]`

func TestHeaders(t *testing.T) {
	got := Headers("[Verse]\nline [not a header]\n  [Indented]\n[chorus 2]\n")
	want := []string{"Verse", "chorus 2"}
	if len(got) != len(want) {
		t.Fatalf("Headers = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("header %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBars(t *testing.T) {
	tests := []struct {
		header string
		want   int
	}{
		{"Verse", 16},
		{"verse 2", 16},
		{" INTRO ", 8},
		{"Pre-Chorus 2", 8},
		{"Final Chorus", 8},
		{"Spoken word", 8},
		{"Second Verse", 16},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := Bars(tt.header); got != tt.want {
				t.Errorf("Bars(%q) = %d, want %d", tt.header, got, tt.want)
			}
		})
	}
}

func TestBeatsPerBar(t *testing.T) {
	for sig, want := range map[string]int{"4/4": 4, "3/4": 3, "6/8": 6, "": 4, "x/4": 4, "0/4": 4} {
		if got := BeatsPerBar(sig); got != want {
			t.Errorf("BeatsPerBar(%q) = %d, want %d", sig, got, want)
		}
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 10},
		{12, 10},
		{13, 15},
		{61, 60},
		{64, 65},
		{1000, 600},
		{math.NaN(), 10},
	}
	for _, tt := range tests {
		if got := Quantize(tt.in); got != tt.want {
			t.Errorf("Quantize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSnapRoundsHalvesUp(t *testing.T) {
	tests := []struct {
		in, snap, quantize float64
	}{
		{12.5, 15, 10},
		{62.5, 65, 60},
		{72.5, 75, 70},
		{67.5, 70, 70},
		{61, 60, 60},
		{3, 10, 10},
		{900, 600, 600},
		{math.NaN(), 10, 10},
	}
	for _, tt := range tests {
		if got := Snap(tt.in); got != tt.snap {
			t.Errorf("Snap(%v) = %v, want %v", tt.in, got, tt.snap)
		}
		if got := Quantize(tt.in); got != tt.quantize {
			t.Errorf("Quantize(%v) = %v, want %v", tt.in, got, tt.quantize)
		}
	}
}

func TestHeuristicSeconds(t *testing.T) {
	// 8+16+8+16+8+8 = 64 bars of 4/4 at 120 BPM = 128 s, snapped to 130.
	if got := HeuristicSeconds(song, 120, "4/4"); got != 130 {
		t.Errorf("HeuristicSeconds = %v, want 130", got)
	}
	// No headers: 48 bars at 120 BPM = 96 s, snapped to 95.
	if got := HeuristicSeconds("just words", 0, "4/4"); got != 95 {
		t.Errorf("HeuristicSeconds(no headers) = %v, want 95", got)
	}
	// 3/4 at 60 BPM: 64 bars * 3 beats = 192 s, snapped to 190.
	if got := HeuristicSeconds(song, 60, "3/4"); got != 190 {
		t.Errorf("HeuristicSeconds(3/4) = %v, want 190", got)
	}
	if got := HeuristicSeconds(song, 1, "4/4"); got != MaxSeconds {
		t.Errorf("HeuristicSeconds(slow) = %v, want clamp", got)
	}
}

func TestSectionsScaleToDuration(t *testing.T) {
	secs := Sections("[Verse]\n[Chorus]\n[Chorus]", 64, 120, "4/4")
	if len(secs) != 3 {
		t.Fatalf("got %d sections", len(secs))
	}
	// 16:8:8 bars spread over 64 s.
	want := []Section{
		{"Verse", 0, 32, 16},
		{"Chorus", 32, 48, 8},
		{"Chorus", 48, 64, 8},
	}
	for i, w := range want {
		if secs[i] != w {
			t.Errorf("section %d = %+v, want %+v", i, secs[i], w)
		}
	}
}

func TestSectionsRounding(t *testing.T) {
	secs := Sections("[A]\n[B]\n[C]", 10, 120, "4/4")
	if len(secs) != 3 {
		t.Fatalf("got %d sections", len(secs))
	}
	if secs[0].End != 3.33 || secs[1].Start != 3.33 || secs[1].End != 6.67 || secs[2].End != 10 {
		t.Errorf("sections = %+v", secs)
	}
}

func TestSectionsWithoutHeaders(t *testing.T) {
	if secs := Sections("no headers here", 30, 120, "4/4"); secs != nil {
		t.Errorf("Sections = %+v, want nil", secs)
	}
}
