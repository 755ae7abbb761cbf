// Package estimate guesses song length and section boundaries from the
// bracketed section headers in a lyric sheet.
package estimate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultBPM is assumed when the caller has no tempo.
const DefaultBPM = 120

// Duration bounds shared by every duration the app sends.
const (
	MinSeconds = 10
	MaxSeconds = 600
)

const unknownBars = 8

// sectionBars is checked in order so that "pre-chorus 2" matches before "chorus".
var sectionBars = []struct {
	name string
	bars int
}{
	{"intro", 8},
	{"verse", 16},
	{"pre-chorus", 8},
	{"prechorus", 8},
	{"pre chorus", 8},
	{"chorus", 8},
	{"hook", 8},
	{"bridge", 8},
	{"outro", 8},
	{"instrumental", 8},
	{"break", 8},
	{"interlude", 8},
	{"refrain", 8},
	{"drop", 8},
	{"build", 8},
	{"solo", 8},
}

var headerRE = regexp.MustCompile(`(?mi)^\[([^\]]+)\]`)

// Section is an estimated span of the song.
type Section struct {
	Name  string  `json:"name"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Bars  int     `json:"bars"`
}

// Headers returns the section header names in order of appearance.
func Headers(lyrics string) []string {
	m := headerRE.FindAllStringSubmatch(lyrics, -1)
	out := make([]string, 0, len(m))
	for _, sm := range m {
		out = append(out, sm[1])
	}
	return out
}

// Bars looks up the bar count for a header like "Verse 2".
func Bars(header string) int {
	h := strings.ToLower(strings.TrimSpace(header))
	for _, s := range sectionBars {
		if h == s.name {
			return s.bars
		}
	}
	for _, s := range sectionBars {
		if strings.HasPrefix(h, s.name) || strings.Contains(h, s.name) {
			return s.bars
		}
	}
	return unknownBars
}

// BeatsPerBar reads the numerator of a time signature, 4 when unparseable.
func BeatsPerBar(timeSig string) int {
	num, _, _ := strings.Cut(timeSig, "/")
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n <= 0 {
		return 4
	}
	return n
}

// Quantize snaps seconds to the nearest 5 and clamps to [MinSeconds, MaxSeconds].
// Halves go to the even multiple, as the server heuristic always has.
func Quantize(seconds float64) float64 {
	return snap(seconds, math.RoundToEven)
}

// Snap is Quantize with halves rounded up, so a clip of 62.5 s asks for
// 65 s and never for less than it holds. Client-side durations use it.
func Snap(seconds float64) float64 {
	return snap(seconds, func(x float64) float64 { return math.Floor(x + 0.5) })
}

func snap(seconds float64, round func(float64) float64) float64 {
	if math.IsNaN(seconds) {
		return MinSeconds
	}
	s := round(seconds/5) * 5
	return math.Max(MinSeconds, math.Min(MaxSeconds, s))
}

// HeuristicSeconds estimates the song length. Without headers it assumes
// two verses and two choruses.
func HeuristicSeconds(lyrics string, bpm int, timeSig string) float64 {
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	total := 0
	headers := Headers(lyrics)
	if len(headers) == 0 {
		total = 16*2 + 8*2
	}
	for _, h := range headers {
		total += Bars(h)
	}
	secs := float64(total*BeatsPerBar(timeSig)) / float64(bpm) * 60
	return Quantize(secs)
}

// Sections spreads the headers over duration in proportion to their bar
// counts. Boundaries are rounded to 0.01 s. No headers means no sections.
func Sections(lyrics string, duration float64, bpm int, timeSig string) []Section {
	headers := Headers(lyrics)
	if len(headers) == 0 {
		return nil
	}
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	beats := BeatsPerBar(timeSig)

	raw := make([]float64, len(headers))
	var total float64
	for i, h := range headers {
		raw[i] = float64(Bars(h)*beats) / float64(bpm) * 60
		total += raw[i]
	}
	if total <= 0 {
		return nil
	}

	scale := duration / total
	cursor := 0.0
	out := make([]Section, len(headers))
	for i, h := range headers {
		scaled := raw[i] * scale
		out[i] = Section{
			Name:  strings.TrimSpace(h),
			Start: round2(cursor),
			End:   round2(cursor + scaled),
			Bars:  Bars(h),
		}
		cursor += scaled
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
