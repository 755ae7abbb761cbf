package task

import (
	"errors"
	"fmt"
	"math"

	"github.com/schollz/gowrangler"
	"github.com/schollz/gowrangler/internal/api"
	"github.com/schollz/gowrangler/internal/estimate"
)

// ErrUnknownRequest is returned by Payload for a Request or Approach it
// does not know how to encode.
var ErrUnknownRequest = errors.New("unknown request type")

// Request is a generation request: Create or Rework.
type Request interface {
	request()
}

// Approach is the rework strategy: Cover or Repaint.
type Approach interface {
	approach()
}

// Shared carries the controls common to both request kinds.
type Shared struct {
	Lyrics string

	// Draft is the lyric sheet as typed. It is not sent; it rides along to
	// the rework hand-off even when Lyrics is blanked for an instrumental.
	Draft string

	Duration       float64
	LyricAdherence int
	Creativity     float64
	Quality        int
	Seed           *int
	GenModel       string
	BatchSize      int
	Scheduler      string
	AudioFormat    string

	// Raw overrides; nil leaves the friendly presets in charge.
	GuidanceScale      *float64
	AudioGuidanceScale *float64
	InferenceSteps     *int
}

// DefaultShared mirrors the server defaults.
func DefaultShared() Shared {
	d := api.DefaultGenerateRequest()
	return Shared{
		Duration:       d.Duration,
		LyricAdherence: d.LyricAdherence,
		Creativity:     d.Creativity,
		Quality:        d.Quality,
		GenModel:       d.GenModel,
		BatchSize:      d.BatchSize,
		Scheduler:      d.Scheduler,
		AudioFormat:    d.AudioFormat,
	}
}

// Create generates a new song from a style and optional lyrics.
type Create struct {
	Shared
	Style         string
	Key           string
	BPM           *int
	TimeSignature string

	// SampleQuery asks the backend's LM to write the lyrics.
	SampleQuery   string
	VocalLanguage string
}

// Rework transforms an existing clip.
type Rework struct {
	Shared
	Style        string
	SrcAudioPath string
	Approach     Approach
}

// Cover restyles the whole clip. Strength is 0..1.
type Cover struct {
	Strength float64
}

// Repaint regenerates only Region.
type Repaint struct {
	Region gowrangler.Region
}

func (Create) request() {}
func (Rework) request() {}

func (Cover) approach()   {}
func (Repaint) approach() {}

// draftLyrics is what the hand-off into rework should estimate sections
// from: the typed sheet, or the sent lyrics when nothing else was given.
func draftLyrics(req Request) string {
	var sh Shared
	switch r := req.(type) {
	case Create:
		sh = r.Shared
	case Rework:
		sh = r.Shared
	}
	if sh.Draft != "" {
		return sh.Draft
	}
	return sh.Lyrics
}

// IsRework reports whether req edits an existing clip.
func IsRework(req Request) bool {
	_, ok := req.(Rework)
	return ok
}

// Payload encodes req as the /generate body. The duration is snapped to
// 5 s buckets in [10, 600] and region bounds to 0.1 s.
func Payload(req Request) (api.GenerateRequest, error) {
	p := api.DefaultGenerateRequest()

	switch r := req.(type) {
	case Create:
		applyShared(&p, r.Shared)
		p.Style = r.Style
		p.Key = r.Key
		p.BPM = r.BPM
		if r.TimeSignature != "" {
			p.TimeSignature = r.TimeSignature
		}
		if r.SampleQuery != "" {
			p.SampleQuery = r.SampleQuery
			if r.VocalLanguage != "" {
				p.VocalLanguage = r.VocalLanguage
			}
		}

	case Rework:
		applyShared(&p, r.Shared)
		p.Style = r.Style
		p.SrcAudioPath = r.SrcAudioPath
		switch a := r.Approach.(type) {
		case Cover:
			p.TaskType = api.TaskCover
			s := math.Max(0, math.Min(1, a.Strength))
			p.AudioCoverStrength = &s
		case Repaint:
			p.TaskType = api.TaskRepaint
			start, end := tenth(a.Region.Start), tenth(a.Region.End)
			p.RepaintingStart = &start
			p.RepaintingEnd = &end
		default:
			return api.GenerateRequest{}, fmt.Errorf("%w: approach %T", ErrUnknownRequest, r.Approach)
		}

	default:
		return api.GenerateRequest{}, fmt.Errorf("%w: %T", ErrUnknownRequest, req)
	}

	return p, nil
}

func applyShared(p *api.GenerateRequest, s Shared) {
	p.Lyrics = s.Lyrics
	p.Duration = estimate.Snap(s.Duration)
	p.LyricAdherence = s.LyricAdherence
	p.Creativity = s.Creativity
	p.Quality = s.Quality
	p.Seed = s.Seed
	if s.GenModel != "" {
		p.GenModel = s.GenModel
	}
	p.BatchSize = max(1, s.BatchSize)
	if s.Scheduler != "" {
		p.Scheduler = s.Scheduler
	}
	if s.AudioFormat != "" {
		p.AudioFormat = s.AudioFormat
	}
	p.GuidanceScaleRaw = s.GuidanceScale
	p.AudioGuidanceScale = s.AudioGuidanceScale
	p.InferenceStepsRaw = s.InferenceSteps
}

func tenth(v float64) float64 {
	return math.Round(v*10) / 10
}
