package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

func decodeWAV(r io.ReadSeeker) (*PCM, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("not a WAV file")
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("unsupported WAV encoding %d (only PCM)", dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	return fromIntBuffer(buf, int(dec.BitDepth)), nil
}

func decodeAIFF(r io.ReadSeeker) (*PCM, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("not an AIFF file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	return fromIntBuffer(buf, int(dec.BitDepth)), nil
}

// fromIntBuffer scales go-audio integer samples into [-1, 1].
func fromIntBuffer(buf *goaudio.IntBuffer, bitDepth int) *PCM {
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}

	scale := float32(int64(1) << (bitDepth - 1))
	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		if bitDepth == 8 {
			// 8-bit PCM is unsigned
			v -= 128
		}
		out[i] = float32(v) / scale
	}

	pcm := &PCM{Samples: out}
	if buf.Format != nil {
		pcm.SampleRate = buf.Format.SampleRate
		pcm.Channels = buf.Format.NumChannels
	}
	return pcm
}

// go-mp3 always yields 16-bit little-endian stereo.
func decodeMP3(r io.ReadSeeker) (*PCM, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}

	n := len(raw) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		out[i] = float32(v) / 32768.0
	}

	return &PCM{
		SampleRate: dec.SampleRate(),
		Channels:   2,
		Samples:    out,
	}, nil
}

func decodeVorbis(r io.ReadSeeker) (*PCM, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &PCM{
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		Samples:    samples,
	}, nil
}

func decodeFLAC(r io.ReadSeeker) (*PCM, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	if channels == 0 {
		return nil, errors.New("flac stream has no channels")
	}
	scale := float32(int64(1) << (stream.Info.BitsPerSample - 1))

	out := make([]float32, 0, int(stream.Info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		n := frame.Subframes[0].NSamples
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				out = append(out, float32(frame.Subframes[ch].Samples[i])/scale)
			}
		}
	}

	return &PCM{
		SampleRate: int(stream.Info.SampleRate),
		Channels:   channels,
		Samples:    out,
	}, nil
}
