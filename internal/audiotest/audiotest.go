// Package audiotest builds in-memory audio fixtures for tests.
package audiotest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// WAV returns a canonical 16-bit PCM WAV file holding the interleaved samples.
func WAV(sampleRate, channels int, samples []int16) []byte {
	buf := new(bytes.Buffer)

	dataSize := uint32(len(samples) * 2)
	blockAlign := uint16(channels * 2)

	// RIFF header
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")

	// fmt chunk
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate)*uint32(blockAlign))
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, uint16(16))

	// data chunk
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataSize)
	binary.Write(buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

// Sine returns frames of a sine tone at the given amplitude (0..1),
// duplicated across channels.
func Sine(sampleRate, channels int, seconds, freq, amplitude float64) []int16 {
	frames := int(float64(sampleRate) * seconds)
	out := make([]int16, 0, frames*channels)
	for i := 0; i < frames; i++ {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		s := int16(v * 32767)
		for ch := 0; ch < channels; ch++ {
			out = append(out, s)
		}
	}
	return out
}

// Constant returns frames holding the same value on every channel.
func Constant(frames, channels int, v int16) []int16 {
	out := make([]int16, frames*channels)
	for i := range out {
		out[i] = v
	}
	return out
}

// SineWAV is shorthand for a mono 44.1 kHz sine file.
func SineWAV(seconds float64) []byte {
	return WAV(44100, 1, Sine(44100, 1, seconds, 440, 0.5))
}
