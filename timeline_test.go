package gowrangler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/schollz/gowrangler/internal/audiotest"
	"github.com/schollz/gowrangler/internal/decode"
)

func newTestTimeline() *Timeline {
	return NewTimeline(TimelineConfig{
		Surface: Surface{Width: 200, Height: 40, PixelRatio: 1},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestTimelineLoad(t *testing.T) {
	tl := newTestTimeline()

	var changes atomic.Int32
	tl.OnChange(func() { changes.Add(1) })

	if err := tl.Load(context.Background(), BytesSource(audiotest.SineWAV(2))); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	data := tl.Data()
	if data == nil {
		t.Fatal("Expected waveform data after load")
	}
	if len(data.Peaks) != 100 {
		t.Errorf("Expected 100 bars for a 200 wide surface, got %d", len(data.Peaks))
	}
	if r := tl.Selector().Region(); r.Start != 0 || r.End != 2 {
		t.Errorf("Region should span the clip, got %+v", r)
	}
	if changes.Load() == 0 {
		t.Error("Expected change notifications")
	}
}

func TestTimelineDecodeFailureLeavesEmpty(t *testing.T) {
	tl := newTestTimeline()
	tl.SetData(&WaveformData{Duration: 5, Length: 1, Peaks: []float32{1}})

	err := tl.Load(context.Background(), BytesSource([]byte("garbage")))
	if !errors.Is(err, decode.ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
	if tl.Data() != nil {
		t.Error("Timeline should be empty after a failed decode")
	}
	if tl.Duration() != 0 {
		t.Errorf("Duration = %f, want 0", tl.Duration())
	}
}

func TestTimelineStaleLoadDiscarded(t *testing.T) {
	tl := newTestTimeline()

	release := make(chan struct{})
	started := make(chan struct{})
	slow := func(ctx context.Context) (io.ReadCloser, error) {
		close(started)
		<-release
		return BytesSource(audiotest.SineWAV(4))(ctx)
	}

	errc := make(chan error, 1)
	go func() { errc <- tl.Load(context.Background(), slow) }()
	<-started

	if err := tl.Load(context.Background(), BytesSource(audiotest.SineWAV(1))); err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	close(release)

	if err := <-errc; !errors.Is(err, ErrSuperseded) {
		t.Errorf("first Load should be superseded, got %v", err)
	}
	if d := tl.Duration(); d < 0.99 || d > 1.01 {
		t.Errorf("Stale load overwrote newer data: duration %f", d)
	}
}

func TestTimelineClearSupersedesLoad(t *testing.T) {
	tl := newTestTimeline()

	release := make(chan struct{})
	started := make(chan struct{})
	slow := func(ctx context.Context) (io.ReadCloser, error) {
		close(started)
		<-release
		return BytesSource(audiotest.SineWAV(1))(ctx)
	}

	errc := make(chan error, 1)
	go func() { errc <- tl.Load(context.Background(), slow) }()
	<-started
	tl.Clear()
	close(release)

	if err := <-errc; !errors.Is(err, ErrSuperseded) {
		t.Errorf("Load after Clear should be superseded, got %v", err)
	}
	if tl.Data() != nil {
		t.Error("Cleared timeline got data from a stale load")
	}
}

func TestTimelineFrameHonorsShowRegion(t *testing.T) {
	tl := newTestTimeline()
	tl.SetData(&WaveformData{Duration: 10, Length: 10, Peaks: make([]float32, 10)})
	tl.Selector().SetRegion(2, 4)
	tl.SetSections([]Section{{Name: "Verse", Start: 2, End: 4}})

	if f := tl.Frame(); f.Selection.Visible {
		t.Error("Selection should be hidden until the region is shown")
	}
	if got := tl.Describe(); got != "" {
		t.Errorf("Describe with hidden region = %q", got)
	}

	tl.SetShowRegion(true)
	f := tl.Frame()
	if !f.Selection.Visible {
		t.Error("Selection should be visible")
	}
	if len(f.Stripes) != 1 {
		t.Errorf("Expected 1 stripe, got %d", len(f.Stripes))
	}
	if got := tl.Describe(); got != "Verse · 0:02.0 – 0:04.0 (2.0s)" {
		t.Errorf("Describe() = %q", got)
	}
}

func TestTimelineResizeKeepsPeaks(t *testing.T) {
	tl := newTestTimeline()
	data := &WaveformData{Duration: 1, Length: 4, Peaks: []float32{0.1, 0.2, 0.3, 0.4}}
	tl.SetData(data)

	tl.Resize(Surface{Width: 40, Height: 10, PixelRatio: 1})

	if tl.Data() != data {
		t.Error("Resize should not replace peaks")
	}
	if f := tl.Frame(); f.Bars[1].X != 10 {
		t.Errorf("Bar x after resize = %f, want 10", f.Bars[1].X)
	}
}

func TestTimelineLoadDropsSections(t *testing.T) {
	tl := newTestTimeline()
	tl.SetData(&WaveformData{Duration: 8, Length: 1, Peaks: []float32{1}})
	tl.SetSections([]Section{{Name: "Verse", Start: 0, End: 8}})

	gen, err := tl.LoadGen(context.Background(), BytesSource(audiotest.SineWAV(1)))
	if err != nil {
		t.Fatalf("LoadGen failed: %v", err)
	}
	if got := tl.Sections(); len(got) != 0 {
		t.Errorf("sections of the previous clip survived a load: %+v", got)
	}
	if !tl.SetSectionsFor(gen, []Section{{Name: "Chorus", Start: 0, End: 1}}) {
		t.Error("SetSectionsFor rejected the current load")
	}
	if got := tl.Sections(); len(got) != 1 || got[0].Name != "Chorus" {
		t.Errorf("Sections() = %+v", got)
	}
}

func TestTimelineSetSectionsForIgnoresStaleLoads(t *testing.T) {
	tl := newTestTimeline()

	old, err := tl.LoadGen(context.Background(), BytesSource(audiotest.SineWAV(2)))
	if err != nil {
		t.Fatalf("first LoadGen failed: %v", err)
	}
	if _, err := tl.LoadGen(context.Background(), BytesSource(audiotest.SineWAV(1))); err != nil {
		t.Fatalf("second LoadGen failed: %v", err)
	}

	if tl.SetSectionsFor(old, []Section{{Name: "Verse", Start: 0, End: 2}}) {
		t.Error("sections from a superseded load were accepted")
	}
	if got := tl.Sections(); len(got) != 0 {
		t.Errorf("Sections() = %+v, want none", got)
	}

	tl.SetData(&WaveformData{Duration: 3, Length: 1, Peaks: []float32{1}})
	if tl.SetSectionsFor(old+1, []Section{{Name: "Verse", Start: 0, End: 3}}) {
		t.Error("SetData should supersede the load generation")
	}
}

func TestTimelineSelectorFollowsLatestData(t *testing.T) {
	tl := newTestTimeline()

	release := make(chan struct{})
	started := make(chan struct{})
	slow := func(ctx context.Context) (io.ReadCloser, error) {
		close(started)
		<-release
		return BytesSource(audiotest.SineWAV(4))(ctx)
	}

	errc := make(chan error, 1)
	go func() { errc <- tl.Load(context.Background(), slow) }()
	<-started

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			tl.SetData(&WaveformData{Duration: 3, Length: 1, Peaks: []float32{1}})
		}
		close(done)
	}()
	close(release)
	<-done
	<-errc

	if got, want := tl.Selector().Duration(), tl.Duration(); got != want {
		t.Errorf("selector duration %f out of step with data duration %f", got, want)
	}
}
