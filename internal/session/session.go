// Package session holds the control-surface state that sits between the
// operator and the generation backend: the create/rework mode, the rework
// source clip, the form values and the glue that keeps the timeline and the
// task controller in step.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/schollz/gowrangler"
	"github.com/schollz/gowrangler/internal/api"
	"github.com/schollz/gowrangler/internal/estimate"
	"github.com/schollz/gowrangler/internal/task"
)

// Operator hints.
const (
	HintNotAudio    = "Only audio files are supported."
	HintNoSource    = "Upload audio to get started."
	HintNoContent   = "Add some lyrics or a style description first."
	HintRegionOrder = "Region start must be before end."
	HintRegionEnd   = "Region end exceeds audio duration."
	WarnLyricsLong  = "May be too long for selected duration"
)

// Labels shown for a rework source that was not uploaded by name.
const (
	LabelGenerated = "Generated audio"
	LabelReworked  = "Reworked audio"
)

var (
	ErrNotAudio  = errors.New("not an audio file")
	ErrNoContent = errors.New("nothing to generate from")
)

// Mode is the top-level workflow.
type Mode int

const (
	ModeCreate Mode = iota
	ModeRework
)

func (m Mode) String() string {
	if m == ModeRework {
		return "rework"
	}
	return "create"
}

// Approach is how a rework treats its source.
type Approach int

const (
	ApproachCover Approach = iota
	ApproachRepaint
)

func (a Approach) String() string {
	if a == ApproachRepaint {
		return "repaint"
	}
	return "cover"
}

// LyricsMode selects between sung and instrumental output in create mode.
type LyricsMode int

const (
	LyricsVocal LyricsMode = iota
	LyricsInstrumental
)

// Backend is the part of the wrangler API a session talks to.
// *api.Client implements it.
type Backend interface {
	task.Backend
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (*api.Upload, error)
	Audio(ctx context.Context, path string) (io.ReadCloser, error)
	EstimateSections(ctx context.Context, in api.SectionsRequest) ([]api.Section, error)
	EstimateDuration(ctx context.Context, in api.DurationRequest) (*api.DurationResponse, error)
}

// Source is the clip a rework starts from.
type Source struct {
	Path     string
	Label    string
	Duration float64
}

// Downloads are the links for a finished rework.
type Downloads struct {
	TaskID    string
	Audio     string
	Meta      string
	AudioName string
	MetaName  string
}

// Config wires a Session. Tasks and Timeline are created when nil.
type Config struct {
	Backend  Backend
	Timeline *gowrangler.Timeline
	Tasks    *task.Controller
	Logger   *slog.Logger
}

// Session is the state of one control surface.
type Session struct {
	backend  Backend
	timeline *gowrangler.Timeline
	tasks    *task.Controller
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	mode      Mode
	approach  Approach
	form      Form
	source    *Source
	downloads *Downloads
	listeners []func()
}

// New returns a session in create mode with default form values.
func New(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeline == nil {
		cfg.Timeline = gowrangler.NewTimeline(gowrangler.TimelineConfig{Logger: cfg.Logger})
	}
	if cfg.Tasks == nil {
		cfg.Tasks = task.NewController(cfg.Backend, task.Config{Logger: cfg.Logger})
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		backend:  cfg.Backend,
		timeline: cfg.Timeline,
		tasks:    cfg.Tasks,
		logger:   cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
		form:     DefaultForm(),
	}
	s.tasks.OnDone(s.finished)
	return s
}

// Timeline returns the waveform timeline.
func (s *Session) Timeline() *gowrangler.Timeline { return s.timeline }

// Tasks returns the generation controller.
func (s *Session) Tasks() *task.Controller { return s.tasks }

// OnChange registers fn to be called after mode, source, form or download
// changes.
func (s *Session) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Session) changed() {
	s.mu.Lock()
	ls := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range ls {
		fn()
	}
}

// Mode returns the current workflow.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Approach returns the current rework approach.
func (s *Session) Approach() Approach {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.approach
}

// Source returns the rework source, or nil.
func (s *Session) Source() *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return nil
	}
	src := *s.source
	return &src
}

// Downloads returns the links of the last finished rework, or nil.
func (s *Session) Downloads() *Downloads {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.downloads == nil {
		return nil
	}
	d := *s.downloads
	return &d
}

// Form returns a copy of the form values.
func (s *Session) Form() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.clone()
}

// UpdateForm applies fn to the form. The batch size is clamped to the
// current limit afterwards.
func (s *Session) UpdateForm(fn func(*Form)) {
	s.mu.Lock()
	fn(&s.form)
	if limit := s.form.BatchLimit(); s.form.Shared.BatchSize > limit {
		s.form.Shared.BatchSize = limit
	}
	s.mu.Unlock()
	s.changed()
}

// Action names the generate trigger for the current mode.
func (s *Session) Action() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.mode == ModeCreate:
		return "Generate"
	case s.approach == ApproachCover:
		return "Reimagine"
	default:
		return "Repaint"
	}
}

// SwitchMode changes the workflow. It does nothing while a job is running.
// Entering create clears the timeline. Entering rework with no source
// loads the last generation when there is one.
func (s *Session) SwitchMode(ctx context.Context, mode Mode) bool {
	if s.tasks.Busy() {
		return false
	}

	if mode == ModeRework {
		s.mu.Lock()
		src := s.source
		s.mu.Unlock()
		if src == nil {
			if last := s.tasks.Last(); last != nil {
				return s.LoadIntoRework(ctx, last.AudioURL, LabelGenerated, last.Lyrics) == nil
			}
		}
	}

	s.mu.Lock()
	s.mode = mode
	showRegion := mode == ModeRework && s.approach == ApproachRepaint
	src := s.source
	lyrics := s.form.Lyrics
	s.mu.Unlock()

	s.timeline.SetShowRegion(showRegion)
	switch {
	case mode == ModeCreate:
		s.timeline.Clear()
		s.tasks.SetView(task.ViewIdle)
	case src != nil && s.timeline.Data() == nil:
		s.loadWaveform(ctx, src.Path, lyrics)
	}
	s.changed()
	return true
}

// SwitchApproach changes the rework approach. The region highlight is only
// shown for repaints.
func (s *Session) SwitchApproach(a Approach) {
	s.mu.Lock()
	s.approach = a
	showRegion := s.mode == ModeRework && a == ApproachRepaint
	s.mu.Unlock()

	s.timeline.SetShowRegion(showRegion)
	s.changed()
}

// UploadAudio sends a clip to the server and makes it the rework source.
// Anything that is not audio is rejected before a request is made.
func (s *Session) UploadAudio(ctx context.Context, name, contentType string, r io.Reader) error {
	if !strings.HasPrefix(contentType, "audio/") {
		s.tasks.SetHint(HintNotAudio)
		return ErrNotAudio
	}

	up, err := s.backend.Upload(ctx, name, contentType, r)
	if err != nil {
		s.RemoveAudio()
		s.tasks.SetHint("Upload failed: " + err.Error())
		return fmt.Errorf("upload: %w", err)
	}
	s.logger.Info("audio uploaded", "path", up.Path, "filename", up.Filename)

	s.mu.Lock()
	s.source = &Source{Path: up.Path, Label: name}
	s.downloads = nil
	lyrics := s.form.Lyrics
	s.mu.Unlock()
	s.tasks.SetHint("")
	s.changed()

	s.loadWaveform(ctx, up.Path, lyrics)
	return nil
}

// LoadIntoRework makes path the rework source, switches to rework and
// loads its waveform. label defaults to "Generated audio".
func (s *Session) LoadIntoRework(ctx context.Context, path, label, lyrics string) error {
	if s.tasks.Busy() {
		return task.ErrBusy
	}
	if label == "" {
		label = LabelGenerated
	}

	s.mu.Lock()
	s.source = &Source{Path: path, Label: label}
	s.downloads = nil
	s.mode = ModeRework
	showRegion := s.approach == ApproachRepaint
	s.mu.Unlock()

	s.timeline.SetShowRegion(showRegion)
	s.changed()
	s.loadWaveform(ctx, path, lyrics)
	return nil
}

// RemoveAudio drops the rework source and clears the timeline.
func (s *Session) RemoveAudio() {
	s.mu.Lock()
	s.source = nil
	s.downloads = nil
	s.mu.Unlock()

	s.timeline.Clear()
	s.tasks.SetView(task.ViewIdle)
	s.changed()
}

// loadWaveform shows path on the timeline and, when there are lyrics,
// overlays estimated sections. Section estimates are optional and their
// failures are only logged.
func (s *Session) loadWaveform(ctx context.Context, path, lyrics string) {
	s.tasks.SetView(task.ViewWaveform)

	gen, err := s.timeline.LoadGen(ctx, func(ctx context.Context) (io.ReadCloser, error) {
		return s.backend.Audio(ctx, path)
	})
	if errors.Is(err, gowrangler.ErrSuperseded) {
		return
	}

	dur := s.timeline.Duration()
	s.mu.Lock()
	if s.source != nil && s.source.Path == path {
		s.source.Duration = dur
	}
	form := s.form
	s.mu.Unlock()
	s.changed()

	if strings.TrimSpace(lyrics) == "" {
		return
	}
	if dur <= 0 {
		dur = 30
	}
	secs, err := s.backend.EstimateSections(ctx, api.SectionsRequest{
		Lyrics:        lyrics,
		Duration:      dur,
		BPM:           form.BPM,
		TimeSignature: form.TimeSignature,
	})
	if err != nil {
		s.logger.Debug("section estimate failed", "error", err)
		return
	}
	out := make([]gowrangler.Section, len(secs))
	for i, sec := range secs {
		out[i] = gowrangler.Section{Name: sec.Name, Start: sec.Start, End: sec.End, Bars: sec.Bars}
	}

	s.mu.Lock()
	current := s.source != nil && s.source.Path == path
	s.mu.Unlock()
	if !current || !s.timeline.SetSectionsFor(gen, out) {
		s.logger.Debug("dropping sections of a replaced clip", "path", path)
	}
}

// HasContent reports whether there is enough input to generate from.
func (s *Session) HasContent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeRework {
		return s.source != nil
	}
	return strings.TrimSpace(s.form.Lyrics) != "" || s.form.Style() != ""
}

// DurationLocked returns the source length snapped to the duration grid
// when a rework source with a known length is loaded.
func (s *Session) DurationLocked() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockedLocked()
}

func (s *Session) lockedLocked() (float64, bool) {
	if s.mode != ModeRework || s.source == nil || s.source.Duration <= 0 {
		return 0, false
	}
	return estimate.Snap(s.source.Duration), true
}

// Duration is the length the next request will ask for.
func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.lockedLocked(); ok {
		return d
	}
	return s.form.Shared.Duration
}

// BuildRequest assembles the request for the current mode.
func (s *Session) BuildRequest() task.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	shared := s.form.Shared
	shared.Lyrics = s.form.Lyrics
	shared.Draft = s.form.Lyrics
	if d, ok := s.lockedLocked(); ok {
		shared.Duration = d
	}
	shared.BatchSize = min(max(1, shared.BatchSize), s.form.BatchLimit())

	if s.mode == ModeRework {
		rw := task.Rework{
			Shared: shared,
			Style:  strings.TrimSpace(s.form.Direction),
		}
		if s.source != nil {
			rw.SrcAudioPath = s.source.Path
		}
		if s.approach == ApproachCover {
			rw.Approach = task.Cover{Strength: s.form.CoverStrength}
		} else {
			rw.Approach = task.Repaint{Region: s.timeline.Selector().Region()}
		}
		return rw
	}

	if s.form.LyricsMode == LyricsInstrumental {
		shared.Lyrics = ""
	}
	style := s.form.Style()
	key := task.Key(s.form.KeyRoot, s.form.KeyMode)
	cr := task.Create{
		Shared:        shared,
		Style:         style,
		Key:           key,
		BPM:           s.form.BPM,
		TimeSignature: s.form.TimeSignature,
	}
	if s.form.LyricsMode == LyricsVocal && strings.TrimSpace(s.form.Lyrics) == "" {
		q := task.SampleQuery(style, task.SongParams(key, s.form.BPM, s.form.TimeSignature))
		if q != "" {
			cr.SampleQuery = q
			cr.VocalLanguage = s.form.Language
		}
	}
	return cr
}

// validate returns the operator hint for input that must not be sent.
func (s *Session) validate() (string, error) {
	if !s.HasContent() {
		if s.Mode() == ModeRework {
			return HintNoSource, ErrNoContent
		}
		return HintNoContent, ErrNoContent
	}

	s.mu.Lock()
	repaint := s.mode == ModeRework && s.approach == ApproachRepaint
	var dur float64
	if s.source != nil {
		dur = s.source.Duration
	}
	s.mu.Unlock()
	if !repaint {
		return "", nil
	}

	err := s.timeline.Selector().Region().Validate(dur)
	return RegionHint(err), err
}

// RegionHint maps a region validation error to the hint shown to the
// operator. It returns "" for nil.
func RegionHint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, gowrangler.ErrRegionOrder):
		return HintRegionOrder
	}
	return HintRegionEnd
}

// Generate validates the form and submits it. Rejected input sets a hint
// and sends nothing.
func (s *Session) Generate(ctx context.Context) error {
	if s.tasks.Busy() {
		return task.ErrBusy
	}
	if hint, err := s.validate(); err != nil {
		s.tasks.SetHint(hint)
		return err
	}
	s.tasks.SetHint("")
	return s.tasks.Submit(ctx, s.BuildRequest())
}

// finished runs on the poll goroutine when a job completes. A finished
// rework becomes the new source.
func (s *Session) finished(c task.Completion) {
	if !task.IsRework(c.Request) {
		return
	}

	first := c.Results[0]
	format := c.Payload.AudioFormat
	if format == "" {
		format = "mp3"
	}
	short := c.TaskID
	if len(short) > 8 {
		short = short[:8]
	}

	s.mu.Lock()
	s.source = &Source{Path: first.AudioURL, Label: LabelReworked}
	s.downloads = &Downloads{
		TaskID:    c.TaskID,
		Audio:     first.AudioDownload,
		Meta:      first.MetaDownload,
		AudioName: "acestep-" + short + "-rework." + format,
		MetaName:  "acestep-" + short + "-rework.json",
	}
	s.mu.Unlock()
	s.changed()

	s.loadWaveform(s.ctx, first.AudioURL, c.Lyrics)
}

// AutoDuration asks the server for a song length and applies it to the
// form. Failures leave the form alone.
func (s *Session) AutoDuration(ctx context.Context) (float64, bool) {
	form := s.Form()
	resp, err := s.backend.EstimateDuration(ctx, api.DurationRequest{
		Lyrics:        form.Lyrics,
		BPM:           form.BPM,
		TimeSignature: form.TimeSignature,
		LMModel:       form.LMModel,
	})
	if err != nil {
		s.logger.Debug("duration estimate failed", "error", err)
		return 0, false
	}

	secs := estimate.Snap(resp.Seconds)
	s.UpdateForm(func(f *Form) { f.Shared.Duration = secs })
	s.logger.Debug("duration estimated", "seconds", secs, "method", resp.Method)
	return secs, true
}

// LyricsWarning returns a warning when the lyrics look too long to sing in
// the selected duration, or "".
func (s *Session) LyricsWarning() string {
	lyrics := s.Form().Lyrics
	if LyricsTooLong(lyrics, s.Duration()) {
		return WarnLyricsLong
	}
	return ""
}

// Close stops polling and any rework load started by a completion.
func (s *Session) Close() {
	s.cancel()
	s.tasks.Close()
}
