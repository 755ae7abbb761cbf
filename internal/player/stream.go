package player

import (
	"errors"

	"github.com/gopxl/beep/v2"

	"github.com/schollz/gowrangler/internal/decode"
)

// pcmStreamer implements beep.StreamSeeker over decoded audio held in
// memory. Mono is duplicated to both speaker channels; anything beyond two
// channels keeps only the first two.
type pcmStreamer struct {
	pcm *decode.PCM
	pos int // frame
}

func newPCMStreamer(pcm *decode.PCM) *pcmStreamer {
	return &pcmStreamer{pcm: pcm}
}

func (s *pcmStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	frames := s.pcm.Frames()
	if s.pos >= frames {
		return 0, false
	}

	ch := s.pcm.Channels
	for i := range samples {
		if s.pos >= frames {
			return i, true
		}
		base := s.pos * ch
		left := float64(s.pcm.Samples[base])
		right := left
		if ch > 1 {
			right = float64(s.pcm.Samples[base+1])
		}
		samples[i][0] = left
		samples[i][1] = right
		s.pos++
	}
	return len(samples), true
}

func (s *pcmStreamer) Err() error { return nil }

func (s *pcmStreamer) Len() int { return s.pcm.Frames() }

func (s *pcmStreamer) Position() int { return s.pos }

func (s *pcmStreamer) Seek(p int) error {
	if p < 0 || p > s.Len() {
		return errors.New("seek position out of range")
	}
	s.pos = p
	return nil
}

func (s *pcmStreamer) format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(s.pcm.SampleRate),
		NumChannels: 2,
		Precision:   2,
	}
}
