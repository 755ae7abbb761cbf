package gowrangler

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/schollz/gowrangler/internal/decode"
)

// WaveformData is the peak envelope of one clip. It is never modified after
// it is produced; a new load replaces it wholesale.
type WaveformData struct {
	Version     int       `json:"version"`
	SampleRate  int       `json:"sample_rate"`
	SampleCount int       `json:"sample_count"` // mono samples the peaks were taken from
	Duration    float64   `json:"duration"`     // seconds
	Length      int       `json:"length"`       // number of bars
	Peaks       []float32 `json:"peaks"`        // one value in [0,1] per bar
}

// WaveformOptions selects the part of a file to summarize.
type WaveformOptions struct {
	Start float64 // Start time in seconds
	End   float64 // End time in seconds (0 means end of file)
	Bars  int     // Number of peaks to produce
}

// Mixdown folds interleaved samples into one channel by averaging every
// channel of each frame.
func Mixdown(samples []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			sum += samples[base+ch]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// BarCount returns how many bars fit a surface of the given physical pixel
// width: one bar per two CSS pixels, never fewer than one.
func BarCount(physicalWidth int, pixelRatio float64) int {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	n := int(math.Floor(float64(physicalWidth) / (2 * pixelRatio)))
	if n < 1 {
		return 1
	}
	return n
}

// ExtractPeaks downsamples a mono buffer to barCount peak-hold values.
// Each bar holds the largest absolute sample of its bucket, clamped to 1.
// Samples left over after the last full bucket are not counted.
func ExtractPeaks(mono []float32, sampleRate, barCount int) *WaveformData {
	if barCount < 1 {
		barCount = 1
	}

	n := len(mono)
	peaks := make([]float32, barCount)
	samplesPerBar := n / barCount

	if samplesPerBar > 0 {
		for i := 0; i < barCount; i++ {
			var peak float32
			for _, s := range mono[i*samplesPerBar : (i+1)*samplesPerBar] {
				if s < 0 {
					s = -s
				}
				if s > peak {
					peak = s
				}
			}
			if peak > 1 {
				peak = 1
			}
			peaks[i] = peak
		}
	}

	var duration float64
	if sampleRate > 0 {
		duration = float64(n) / float64(sampleRate)
	}

	return &WaveformData{
		Version:     1,
		SampleRate:  sampleRate,
		SampleCount: n,
		Duration:    duration,
		Length:      barCount,
		Peaks:       peaks,
	}
}

// FromPCM mixes decoded audio down to mono and extracts barCount peaks.
func FromPCM(pcm *decode.PCM, barCount int) *WaveformData {
	return ExtractPeaks(Mixdown(pcm.Samples, pcm.Channels), pcm.SampleRate, barCount)
}

// Decode reads an encoded clip and returns its peaks. reg may be nil.
func Decode(r io.Reader, reg *decode.Registry, barCount int) (*WaveformData, error) {
	pcm, err := decode.Reader(r, reg)
	if err != nil {
		return nil, err
	}
	return FromPCM(pcm, barCount), nil
}

// GenerateWaveformData decodes an audio file and summarizes the requested range.
func GenerateWaveformData(filename string, opts WaveformOptions) (*WaveformData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	pcm, err := decode.Reader(file, nil)
	if err != nil {
		return nil, err
	}

	mono := Mixdown(pcm.Samples, pcm.Channels)

	startSample := int(opts.Start * float64(pcm.SampleRate))
	endSample := len(mono)
	if opts.End > 0 {
		endSample = int(opts.End * float64(pcm.SampleRate))
	}
	if startSample < 0 {
		startSample = 0
	}
	if endSample > len(mono) {
		endSample = len(mono)
	}
	if startSample >= endSample {
		return nil, fmt.Errorf("invalid range: start must be before end")
	}

	bars := opts.Bars
	if bars <= 0 {
		bars = 800
	}

	return ExtractPeaks(mono[startSample:endSample], pcm.SampleRate, bars), nil
}

// GenerateJSON generates JSON output from waveform data
func GenerateJSON(data *WaveformData) ([]byte, error) {
	return json.MarshalIndent(data, "", "  ")
}

// GenerateWaveformJSON is a convenience function that generates JSON directly from an audio file
func GenerateWaveformJSON(filename string, opts WaveformOptions) ([]byte, error) {
	data, err := GenerateWaveformData(filename, opts)
	if err != nil {
		return nil, err
	}
	return GenerateJSON(data)
}
