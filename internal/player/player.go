// Package player plays decoded audio on the default output device through
// the beep speaker. A Player satisfies transport.Element.
package player

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/schollz/gowrangler/internal/decode"
)

// SpeakerRate is the rate the output device is opened at.
const SpeakerRate beep.SampleRate = 44100

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(SpeakerRate, SpeakerRate.N(100*time.Millisecond))
	})
	return speakerErr
}

// Player is one playable clip. All state shared with the audio callback is
// guarded by the speaker lock.
type Player struct {
	stream *pcmStreamer
	ctrl   *beep.Ctrl
	audio  beep.Streamer

	inMixer bool
	closed  bool

	mu      sync.Mutex
	onEnded []func()
}

// New wraps decoded audio. The output device is opened on the first Play.
func New(pcm *decode.PCM) *Player {
	stream := newPCMStreamer(pcm)

	var src beep.Streamer = stream
	if rate := stream.format().SampleRate; rate != SpeakerRate {
		src = beep.Resample(4, rate, SpeakerRate, stream)
	}

	return &Player{
		stream: stream,
		ctrl:   &beep.Ctrl{Streamer: src, Paused: true},
	}
}

// Load decodes r and wraps the result.
func Load(r io.Reader) (*Player, error) {
	pcm, err := decode.Reader(r, nil)
	if err != nil {
		return nil, err
	}
	return New(pcm), nil
}

// Play resumes playback from the current position.
func (p *Player) Play() error {
	if err := initSpeaker(); err != nil {
		return fmt.Errorf("opening audio device: %w", err)
	}

	speaker.Lock()
	defer speaker.Unlock()

	if p.closed {
		return fmt.Errorf("player closed")
	}
	if p.stream.Position() >= p.stream.Len() {
		p.stream.Seek(0)
	}
	p.ctrl.Paused = false
	if !p.inMixer {
		p.inMixer = true
		speaker.Play(beep.Seq(p.ctrl, beep.Callback(func() {
			// Runs on the audio goroutine with the speaker locked.
			go p.finished()
		})))
	}
	return nil
}

func (p *Player) finished() {
	speaker.Lock()
	p.inMixer = false
	p.ctrl.Paused = true
	closed := p.closed
	speaker.Unlock()

	if closed {
		return
	}

	p.mu.Lock()
	fns := append([]func(){}, p.onEnded...)
	p.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Pause stops output and keeps the position.
func (p *Player) Pause() {
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
}

// Seek moves to sec, clamped to the clip.
func (p *Player) Seek(sec float64) {
	speaker.Lock()
	defer speaker.Unlock()

	frame := int(math.Round(sec * float64(p.stream.pcm.SampleRate)))
	if frame < 0 {
		frame = 0
	}
	if frame > p.stream.Len() {
		frame = p.stream.Len()
	}
	p.stream.Seek(frame)
}

// CurrentTime returns the playback position in seconds.
func (p *Player) CurrentTime() float64 {
	speaker.Lock()
	pos := p.stream.Position()
	speaker.Unlock()
	return float64(pos) / float64(p.stream.pcm.SampleRate)
}

// Duration returns the clip length in seconds.
func (p *Player) Duration() float64 {
	return p.stream.pcm.Duration()
}

// Paused reports whether the clip is silent.
func (p *Player) Paused() bool {
	speaker.Lock()
	defer speaker.Unlock()
	return !p.inMixer || p.ctrl.Paused
}

// Seeking is always false: seeks complete synchronously.
func (p *Player) Seeking() bool { return false }

// OnEnded registers fn to run when the clip plays to its end.
func (p *Player) OnEnded(fn func()) {
	p.mu.Lock()
	p.onEnded = append(p.onEnded, fn)
	p.mu.Unlock()
}

// Close silences the clip for good. End callbacks do not fire afterwards.
func (p *Player) Close() {
	speaker.Lock()
	p.closed = true
	p.ctrl.Paused = true
	p.ctrl.Streamer = nil
	speaker.Unlock()
}
