package server

import (
	"math"
	"strconv"

	"github.com/schollz/gowrangler/internal/acestep"
	"github.com/schollz/gowrangler/internal/api"
)

// Friendly slider positions to upstream values.
var (
	lyricAdherenceGuidance = [3]float64{3, 7, 12} // loose, medium, strict
	qualitySteps           = [3]int{15, 60, 120}  // raw, balanced, polished
)

var genModels = map[string]string{
	"turbo": "acestep-v15-turbo",
	"sft":   "acestep-v15-sft",
	"base":  "acestep-v15-base",
}

var schedulers = map[string]string{
	"euler": "ode",
	"dpm":   "dpm",
	"ddim":  "ddim",
}

// The upstream ignores vocal_language in sample_query mode, so the
// language is spelled out in the query text instead.
var languageLabels = map[string]string{
	"en": "English",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
}

// BuildPayload maps a wrangler request onto an ACE-Step task.
func BuildPayload(req api.GenerateRequest) acestep.Payload {
	adherence := clampInt(req.LyricAdherence, 0, 2)
	quality := clampInt(req.Quality, 0, 2)
	creativity := math.Max(0, math.Min(100, req.Creativity))

	// 0% creativity is shift 5.0, 100% is 1.0.
	shift := math.Round((5-creativity/100*4)*100) / 100

	p := acestep.Payload{
		Prompt:         Prompt(req.Style, req.Key, req.BPM, req.TimeSignature),
		Lyrics:         req.Lyrics,
		AudioDuration:  req.Duration,
		GuidanceScale:  lyricAdherenceGuidance[adherence],
		Shift:          shift,
		InferenceSteps: qualitySteps[quality],
		BatchSize:      max(1, req.BatchSize),
		UseRandomSeed:  req.Seed == nil,
		Seed:           -1,
		InferMethod:    "ode",
		AudioFormat:    req.AudioFormat,

		AudioGuidanceScale: req.AudioGuidanceScale,
	}
	if req.GuidanceScaleRaw != nil {
		p.GuidanceScale = *req.GuidanceScaleRaw
	}
	if req.InferenceStepsRaw != nil {
		p.InferenceSteps = *req.InferenceStepsRaw
	}
	if req.Seed != nil {
		p.Seed = *req.Seed
	}
	if m, ok := schedulers[req.Scheduler]; ok {
		p.InferMethod = m
	}

	if req.SampleQuery != "" {
		p.SampleQuery = req.SampleQuery
		if label := languageLabels[req.VocalLanguage]; label != "" {
			p.SampleQuery += ". " + label + " vocals."
		}
		p.VocalLanguage = req.VocalLanguage
	}

	if m, ok := genModels[req.GenModel]; ok {
		p.Model = m
	}

	switch req.TaskType {
	case api.TaskCover, api.TaskRepaint:
		p.TaskType = req.TaskType
		p.SrcAudioPath = req.SrcAudioPath
		if req.TaskType == api.TaskCover {
			p.AudioCoverStrength = req.AudioCoverStrength
		} else {
			p.RepaintingStart = req.RepaintingStart
			p.RepaintingEnd = req.RepaintingEnd
		}
	}

	return p
}

// Prompt appends the song parameters to the style:
// "rock, C major, 120 BPM, 4/4 time". The time signature is only added
// next to a key or tempo.
func Prompt(style, key string, bpm *int, timeSig string) string {
	var suffix string
	if key != "" {
		suffix = key
	}
	if bpm != nil && *bpm != 0 {
		if suffix != "" {
			suffix += ", "
		}
		suffix += strconv.Itoa(*bpm) + " BPM"
	}
	if suffix == "" {
		return style
	}
	suffix += ", " + timeSig + " time"
	if style == "" {
		return suffix
	}
	return style + ", " + suffix
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
