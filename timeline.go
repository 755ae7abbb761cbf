package gowrangler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/schollz/gowrangler/internal/decode"
)

// ErrSuperseded is returned by Load when a newer load or Clear happened
// before it finished. Its result is discarded.
var ErrSuperseded = errors.New("superseded by a newer load")

// Source opens the encoded audio for a load.
type Source func(ctx context.Context) (io.ReadCloser, error)

// BytesSource serves an in-memory file.
func BytesSource(b []byte) Source {
	return func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
}

// TimelineConfig configures a Timeline. Zero values pick defaults.
type TimelineConfig struct {
	Surface       Surface
	Registry      *decode.Registry
	FrameInterval time.Duration
	Logger        *slog.Logger
}

// Timeline owns the loaded waveform, its sections, the region selector and
// the playhead. Only the most recent load may replace what is shown.
type Timeline struct {
	reg    *decode.Registry
	logger *slog.Logger

	selector *RegionSelector
	playhead *PlayheadTracker

	// swap orders data replacements with the selector duration that
	// follows them. Taken before mu.
	swap sync.Mutex

	mu         sync.Mutex
	surface    Surface
	data       *WaveformData
	sections   []Section
	showRegion bool
	gen        uint64
	cancel     context.CancelFunc
	listeners  []func()
}

// NewTimeline returns an empty timeline.
func NewTimeline(cfg TimelineConfig) *Timeline {
	if cfg.Surface.Width <= 0 {
		cfg.Surface = Surface{Width: 800, Height: 120, PixelRatio: 1}
	}
	if cfg.Registry == nil {
		cfg.Registry = decode.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	t := &Timeline{
		reg:      cfg.Registry,
		logger:   cfg.Logger,
		surface:  cfg.Surface,
		selector: NewRegionSelector(),
		playhead: NewPlayheadTracker(cfg.FrameInterval),
	}
	t.selector.OnChange(func(Region) { t.changed() })
	t.playhead.OnUpdate(func(float64, bool) { t.changed() })
	return t
}

// OnChange registers fn to be called whenever the frame would look different.
func (t *Timeline) OnChange(fn func()) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

func (t *Timeline) changed() {
	t.mu.Lock()
	listeners := append([]func(){}, t.listeners...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Selector returns the region selector.
func (t *Timeline) Selector() *RegionSelector { return t.selector }

// Playhead returns the playhead tracker.
func (t *Timeline) Playhead() *PlayheadTracker { return t.playhead }

// Load fetches and decodes a clip, replacing the current waveform and
// dropping its sections. Any load still in flight is cancelled. Decode
// failures are logged and leave the timeline empty; they are returned so
// callers can tell, but they are not meant for the operator.
func (t *Timeline) Load(ctx context.Context, src Source) error {
	_, err := t.LoadGen(ctx, src)
	return err
}

// LoadGen is Load that also reports the load generation, for attaching
// follow-up data with SetSectionsFor.
func (t *Timeline) LoadGen(ctx context.Context, src Source) (uint64, error) {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	t.gen++
	gen := t.gen
	t.cancel = cancel
	t.sections = nil
	bars := t.surface.BarCount()
	t.mu.Unlock()
	t.changed()

	defer cancel()

	data, err := t.fetch(ctx, src, bars)

	t.swap.Lock()
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		t.swap.Unlock()
		return gen, ErrSuperseded
	}
	t.cancel = nil
	if err != nil {
		t.data = nil
		t.mu.Unlock()
		t.selector.SetDuration(0)
		t.swap.Unlock()
		t.logger.Warn("waveform unavailable", "error", err)
		t.changed()
		return gen, err
	}
	t.data = data
	t.mu.Unlock()
	t.selector.SetDuration(data.Duration)
	t.swap.Unlock()

	t.logger.Debug("waveform loaded", "bars", data.Length, "duration", data.Duration)
	t.changed()
	return gen, nil
}

func (t *Timeline) fetch(ctx context.Context, src Source, bars int) (*WaveformData, error) {
	rc, err := src(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching audio: %w", err)
	}
	defer rc.Close()

	pcm, err := decode.Reader(rc, t.reg)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return FromPCM(pcm, bars), nil
}

// SetData installs already extracted peaks, superseding any load in flight.
func (t *Timeline) SetData(data *WaveformData) {
	t.swap.Lock()
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen++
	t.data = data
	t.mu.Unlock()

	d := 0.0
	if data != nil {
		d = data.Duration
	}
	t.selector.SetDuration(d)
	t.swap.Unlock()
	t.changed()
}

// Clear drops the waveform and sections and stops the playhead.
func (t *Timeline) Clear() {
	t.playhead.Stop()

	t.swap.Lock()
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen++
	t.data = nil
	t.sections = nil
	t.mu.Unlock()

	t.selector.SetDuration(0)
	t.swap.Unlock()
	t.changed()
}

// Data returns the current waveform, or nil.
func (t *Timeline) Data() *WaveformData {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data
}

// Duration returns the loaded clip length in seconds.
func (t *Timeline) Duration() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.data == nil {
		return 0
	}
	return t.data.Duration
}

// SetSections replaces the section overlay.
func (t *Timeline) SetSections(sections []Section) {
	t.mu.Lock()
	t.sections = append([]Section(nil), sections...)
	t.mu.Unlock()
	t.changed()
}

// SetSectionsFor replaces the section overlay only while the load that
// reported gen is still the one shown. It reports whether it did.
func (t *Timeline) SetSectionsFor(gen uint64, sections []Section) bool {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return false
	}
	t.sections = append([]Section(nil), sections...)
	t.mu.Unlock()
	t.changed()
	return true
}

// Sections returns the section overlay.
func (t *Timeline) Sections() []Section {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Section(nil), t.sections...)
}

// SetShowRegion toggles the region highlight. It should be on only while
// the active edit honors a region.
func (t *Timeline) SetShowRegion(show bool) {
	t.mu.Lock()
	t.showRegion = show
	t.mu.Unlock()
	t.changed()
}

// ShowRegion reports whether the region highlight is on.
func (t *Timeline) ShowRegion() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.showRegion
}

// Resize changes the drawing surface. Peaks are kept; only layout changes.
func (t *Timeline) Resize(s Surface) {
	t.mu.Lock()
	t.surface = s
	t.mu.Unlock()
	t.changed()
}

// Surface returns the drawing surface.
func (t *Timeline) Surface() Surface {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.surface
}

// Follow starts mirroring clock on the playhead.
func (t *Timeline) Follow(clock Clock) { t.playhead.Track(clock) }

// Frame lays out the timeline as it should look right now.
func (t *Timeline) Frame() Frame {
	t.mu.Lock()
	data, surface := t.data, t.surface
	view := View{
		ShowRegion: t.showRegion,
		Sections:   t.sections,
	}
	t.mu.Unlock()

	view.Region = t.selector.Region()
	view.Playhead, view.PlayheadOn = t.playhead.Position()
	return Layout(data, surface, view)
}

// Describe summarizes the current selection, or "" when the region is
// hidden or empty.
func (t *Timeline) Describe() string {
	if !t.ShowRegion() {
		return ""
	}
	return t.selector.Describe(t.Sections())
}
