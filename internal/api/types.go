// Package api holds the wire types of the wrangler HTTP surface and a typed
// client for it. The server in internal/server speaks the same types.
package api

import "fmt"

// Task statuses reported by /status/{task_id}.
const (
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)

// Task types understood by /generate.
const (
	TaskText2Music = "text2music"
	TaskCover      = "cover"
	TaskRepaint    = "repaint"
)

// Download kinds for /download/{task_id}/{index}/{kind}.
const (
	KindAudio = "audio"
	KindJSON  = "json"
)

// GenerateRequest is the body of POST /generate. Pointer fields are optional
// and omitted when nil.
type GenerateRequest struct {
	Style          string  `json:"style"`
	Lyrics         string  `json:"lyrics"`
	Duration       float64 `json:"duration"`
	LyricAdherence int     `json:"lyric_adherence"` // 0 loose, 1 medium, 2 strict
	Creativity     float64 `json:"creativity"`      // 0..100
	Quality        int     `json:"quality"`         // 0 raw, 1 balanced, 2 polished

	Seed        *int   `json:"seed"`
	GenModel    string `json:"gen_model"`
	BatchSize   int    `json:"batch_size"`
	Scheduler   string `json:"scheduler"`
	AudioFormat string `json:"audio_format"`

	Key           string `json:"key"`
	BPM           *int   `json:"bpm"`
	TimeSignature string `json:"time_signature"`

	GuidanceScaleRaw   *float64 `json:"guidance_scale_raw,omitempty"`
	AudioGuidanceScale *float64 `json:"audio_guidance_scale,omitempty"`
	InferenceStepsRaw  *int     `json:"inference_steps_raw,omitempty"`

	SampleQuery   string `json:"sample_query,omitempty"`
	VocalLanguage string `json:"vocal_language,omitempty"`

	TaskType           string   `json:"task_type,omitempty"`
	SrcAudioPath       string   `json:"src_audio_path,omitempty"`
	AudioCoverStrength *float64 `json:"audio_cover_strength,omitempty"`
	RepaintingStart    *float64 `json:"repainting_start,omitempty"`
	RepaintingEnd      *float64 `json:"repainting_end,omitempty"`
}

// DefaultGenerateRequest returns a request carrying the server-side defaults.
// Decoding a body on top of it leaves absent fields at these values.
func DefaultGenerateRequest() GenerateRequest {
	return GenerateRequest{
		Duration:       30,
		LyricAdherence: 1,
		Creativity:     50,
		Quality:        1,
		GenModel:       "turbo",
		BatchSize:      1,
		Scheduler:      "euler",
		AudioFormat:    "mp3",
		TimeSignature:  "4/4",
		VocalLanguage:  "en",
		TaskType:       TaskText2Music,
	}
}

// TaskRef is the response of POST /generate.
type TaskRef struct {
	TaskID string `json:"task_id"`
}

// Result is one generated clip.
type Result struct {
	AudioURL string         `json:"audio_url"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// Status is the response of GET /status/{task_id}.
type Status struct {
	Status  string   `json:"status"`
	Results []Result `json:"results,omitempty"`
}

// Upload is the response of POST /upload-audio.
type Upload struct {
	UploadID string `json:"upload_id"`
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// Section is an estimated song section.
type Section struct {
	Name  string  `json:"name"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Bars  int     `json:"bars,omitempty"`
}

// SectionsRequest is the body of POST /estimate-sections.
type SectionsRequest struct {
	Lyrics        string  `json:"lyrics"`
	Duration      float64 `json:"duration"`
	BPM           *int    `json:"bpm"`
	TimeSignature string  `json:"time_signature"`
}

// SectionsResponse is the response of POST /estimate-sections.
type SectionsResponse struct {
	Sections []Section `json:"sections"`
}

// DurationRequest is the body of POST /estimate-duration.
type DurationRequest struct {
	Lyrics        string `json:"lyrics"`
	BPM           *int   `json:"bpm"`
	TimeSignature string `json:"time_signature"`
	LMModel       string `json:"lm_model"`
}

// Estimation methods reported by /estimate-duration.
const (
	MethodLM        = "lm"
	MethodHeuristic = "heuristic"
)

// DurationResponse is the response of POST /estimate-duration.
type DurationResponse struct {
	Seconds    float64 `json:"seconds"`
	Method     string  `json:"method"`
	AssumedBPM int     `json:"assumed_bpm,omitempty"`
}

// ErrorBody is the JSON shape of every non-2xx response.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// HTTPError is returned by the client for non-2xx responses.
type HTTPError struct {
	Code   int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("http %d", e.Code)
	}
	return e.Detail
}

// DownloadPath is the server path of a result download.
func DownloadPath(taskID string, index int, kind string) string {
	return fmt.Sprintf("/download/%s/%d/%s", taskID, index, kind)
}

// DownloadName is the file name the server suggests for a download.
func DownloadName(taskID string, index int, ext string) string {
	short := taskID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("acestep-%s-%d.%s", short, index+1, ext)
}
