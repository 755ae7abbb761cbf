package session

import (
	"strings"

	"github.com/schollz/gowrangler/internal/task"
)

// Form holds every operator-editable value.
type Form struct {
	Tags        []string
	CustomStyle string

	// Direction is the free-text style for a rework.
	Direction string

	KeyRoot       string
	KeyMode       string
	BPM           *int
	TimeSignature string

	Lyrics     string
	LyricsMode LyricsMode
	Language   string

	Shared task.Shared

	// CoverStrength is 0..1.
	CoverStrength float64

	LMModel  string
	VRAMTier int
}

// DefaultForm returns the values a fresh surface starts with.
func DefaultForm() Form {
	return Form{
		KeyMode:       "major",
		TimeSignature: "4/4",
		Language:      "en",
		Shared:        task.DefaultShared(),
		CoverStrength: 0.5,
		LMModel:       "1.7b",
		VRAMTier:      16,
	}
}

func (f Form) clone() Form {
	f.Tags = append([]string(nil), f.Tags...)
	if f.BPM != nil {
		bpm := *f.BPM
		f.BPM = &bpm
	}
	return f
}

// Style is the combined tags and custom text.
func (f Form) Style() string {
	return task.StylePrompt(f.Tags, f.CustomStyle)
}

// ToggleTag adds tag when absent and removes it otherwise.
func (f *Form) ToggleTag(tag string) {
	for i, t := range f.Tags {
		if t == tag {
			f.Tags = append(f.Tags[:i], f.Tags[i+1:]...)
			return
		}
	}
	f.Tags = append(f.Tags, tag)
}

type batchLimit struct{ heavy, normal int }

// Per VRAM tier in GB.
var batchLimits = []struct {
	tier int
	batchLimit
}{
	{16, batchLimit{1, 2}},
	{24, batchLimit{2, 4}},
	{32, batchLimit{4, 8}},
}

// Heavy reports whether the model pair needs the smaller batch limit.
func (f Form) Heavy() bool {
	return (f.Shared.GenModel == "sft" || f.Shared.GenModel == "base") && f.LMModel == "4b"
}

// BatchLimit is the largest batch the VRAM tier allows. Tiers in between
// use the next lower one.
func (f Form) BatchLimit() int {
	l := batchLimits[0].batchLimit
	for _, b := range batchLimits {
		if f.VRAMTier >= b.tier {
			l = b.batchLimit
		}
	}
	if f.Heavy() {
		return l.heavy
	}
	return l.normal
}

// BatchLocked reports whether the batch size is pinned to 1.
func (f Form) BatchLocked() bool { return f.BatchLimit() == 1 }

// secondsPerWord assumes a 100 wpm singing pace.
const secondsPerWord = 0.6

// LyricWords counts the words on lines that are not section headers.
func LyricWords(lyrics string) int {
	n := 0
	for _, line := range strings.Split(lyrics, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "[") {
			continue
		}
		n += len(strings.Fields(line))
	}
	return n
}

// LyricsTooLong reports whether lyrics need more than duration seconds at
// a normal singing pace.
func LyricsTooLong(lyrics string, duration float64) bool {
	words := LyricWords(lyrics)
	return words > 0 && float64(words)*secondsPerWord > duration
}
