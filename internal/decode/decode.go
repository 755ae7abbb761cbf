// Package decode turns encoded audio bytes into interleaved float PCM.
//
// Formats are detected from the first bytes of the stream and dispatched to
// a decoder registered under the format key ("wav", "aiff", "ogg", "flac",
// "mp3"). Everything is decoded into memory; clips handled here are at most
// a few minutes long.
package decode

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// PCM holds decoded audio as interleaved float32 samples in [-1, 1].
type PCM struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// Frames returns the number of sample frames (samples per channel).
func (p *PCM) Frames() int {
	if p == nil || p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Duration returns the clip length in seconds.
func (p *PCM) Duration() float64 {
	if p == nil || p.SampleRate <= 0 {
		return 0
	}
	return float64(p.Frames()) / float64(p.SampleRate)
}

// Decoder decodes a complete audio file.
type Decoder interface {
	Decode(r io.ReadSeeker) (*PCM, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(r io.ReadSeeker) (*PCM, error)

// Decode calls f(r).
func (f DecoderFunc) Decode(r io.ReadSeeker) (*PCM, error) { return f(r) }

// Registry maps format keys to decoders.
type Registry struct {
	codecs map[string]Decoder
	mtx    sync.Mutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// Register adds or replaces the decoder for format.
func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[format] = d
}

// Get returns the decoder registered for format.
func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[format]
	return d, ok
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns a registry with every built-in format registered.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = NewRegistry()
		defaultReg.Register(FormatWAV, DecoderFunc(decodeWAV))
		defaultReg.Register(FormatAIFF, DecoderFunc(decodeAIFF))
		defaultReg.Register(FormatOgg, DecoderFunc(decodeVorbis))
		defaultReg.Register(FormatFLAC, DecoderFunc(decodeFLAC))
		defaultReg.Register(FormatMP3, DecoderFunc(decodeMP3))
	})
	return defaultReg
}

// Format keys returned by Sniff.
const (
	FormatWAV  = "wav"
	FormatAIFF = "aiff"
	FormatOgg  = "ogg"
	FormatFLAC = "flac"
	FormatMP3  = "mp3"
)

// Sniff identifies the container from the leading bytes of a file.
// It returns "" when nothing matches.
func Sniff(head []byte) string {
	switch {
	case len(head) >= 12 && string(head[0:4]) == "RIFF" && string(head[8:12]) == "WAVE":
		return FormatWAV
	case len(head) >= 12 && string(head[0:4]) == "FORM" &&
		(string(head[8:12]) == "AIFF" || string(head[8:12]) == "AIFC"):
		return FormatAIFF
	case len(head) >= 4 && string(head[0:4]) == "OggS":
		return FormatOgg
	case len(head) >= 4 && string(head[0:4]) == "fLaC":
		return FormatFLAC
	case len(head) >= 3 && string(head[0:3]) == "ID3":
		return FormatMP3
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		// MPEG frame sync
		return FormatMP3
	}
	return ""
}

// Bytes decodes a whole file held in memory using reg (Default when nil).
func Bytes(data []byte, reg *Registry) (*PCM, error) {
	if reg == nil {
		reg = Default()
	}

	head := data
	if len(head) > 16 {
		head = head[:16]
	}
	format := Sniff(head)
	if format == "" {
		return nil, ErrUnsupportedFormat
	}

	dec, ok := reg.Get(format)
	if !ok {
		return nil, fmt.Errorf("%w: no decoder for %s", ErrUnsupportedFormat, format)
	}

	pcm, err := dec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, format, err)
	}
	if pcm.SampleRate <= 0 || pcm.Channels <= 0 {
		return nil, fmt.Errorf("%w: %s: missing stream format", ErrCorrupt, format)
	}
	return pcm, nil
}

// Reader reads r to the end and decodes it.
func Reader(r io.Reader, reg *Registry) (*PCM, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	return Bytes(data, reg)
}
