package gowrangler

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// Helper function to verify an image file exists and can be opened
func verifyImageFile(t *testing.T, filename string) image.Image {
	t.Helper()

	file, err := os.Open(filename)
	if err != nil {
		t.Fatalf("Failed to open image file %s: %v", filename, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		t.Fatalf("Failed to decode image file %s: %v", filename, err)
	}
	return img
}

func testFrame(show bool, ratio float64) Frame {
	peaks := make([]float32, 10)
	for i := range peaks {
		peaks[i] = 1
	}
	data := &WaveformData{SampleRate: 1, Duration: 10, Length: 10, Peaks: peaks}
	return Layout(data, Surface{Width: 100, Height: 50, PixelRatio: ratio}, View{
		Region:     Region{Start: 0, End: 10},
		ShowRegion: show,
		Sections: []Section{
			{Name: "Verse", Start: 0, End: 5},
			{Name: "Chorus", Start: 5, End: 10},
		},
	})
}

func TestSavePlotBasicPNG(t *testing.T) {
	tmpPlot := filepath.Join(t.TempDir(), "plot.png")

	if err := SavePlot(testFrame(true, 1), tmpPlot); err != nil {
		t.Fatalf("SavePlot failed: %v", err)
	}

	verifyImageFile(t, tmpPlot)
}

func TestSavePlotJPEG(t *testing.T) {
	tmpPlot := filepath.Join(t.TempDir(), "plot.jpg")

	if err := SavePlot(testFrame(false, 1), tmpPlot); err != nil {
		t.Fatalf("SavePlot failed: %v", err)
	}

	verifyImageFile(t, tmpPlot)
}

func TestSavePlotUsesPixelRatio(t *testing.T) {
	tmpPlot := filepath.Join(t.TempDir(), "retina.png")

	if err := SavePlot(testFrame(true, 2), tmpPlot); err != nil {
		t.Fatalf("SavePlot failed: %v", err)
	}

	b := verifyImageFile(t, tmpPlot).Bounds()
	if abs(b.Dx()-200) > 1 || abs(b.Dy()-100) > 1 {
		t.Errorf("Expected ~200x100 image, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestSavePlotUnsupportedFormat(t *testing.T) {
	err := SavePlot(testFrame(true, 1), filepath.Join(t.TempDir(), "plot.gif"))
	if err == nil {
		t.Error("Expected error for unsupported format, got nil")
	}
}

func TestWritePlotColorsSelection(t *testing.T) {
	tests := []struct {
		name string
		show bool
		want color.RGBA
	}{
		{"selected bars use accent", true, color.RGBA{R: 0xff, G: 0x00, B: 0x00, A: 255}},
		{"hidden region uses muted", false, color.RGBA{R: 0x00, G: 0x00, B: 0xff, A: 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := WritePlot(&buf, testFrame(tt.show, 1), "png",
				OptionSetAccentColor("#f00"),
				OptionSetForegroundColor("#00f"),
				OptionShowLabels(false),
			)
			if err != nil {
				t.Fatalf("WritePlot failed: %v", err)
			}

			img, err := png.Decode(&buf)
			if err != nil {
				t.Fatalf("Failed to decode PNG: %v", err)
			}

			// Middle of the sixth bar.
			r, g, b, _ := img.At(54, 25).RGBA()
			got := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
			if got != tt.want {
				t.Errorf("pixel = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestWritePlotRejectsEmptySurface(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePlot(&buf, Frame{}, "png"); err == nil {
		t.Error("Expected error for zero-size surface")
	}
}

func TestHexToColor(t *testing.T) {
	tests := []struct {
		name     string
		hex      string
		expected color.Color
	}{
		{
			name:     "Full hex with hash",
			hex:      "#FF0000",
			expected: color.RGBA{R: 255, G: 0, B: 0, A: 255},
		},
		{
			name:     "Full hex without hash",
			hex:      "00FF00",
			expected: color.RGBA{R: 0, G: 255, B: 0, A: 255},
		},
		{
			name:     "Short hex with hash",
			hex:      "#F0F",
			expected: color.RGBA{R: 255, G: 0, B: 255, A: 255},
		},
		{
			name:     "Short hex without hash",
			hex:      "0F0",
			expected: color.RGBA{R: 0, G: 255, B: 0, A: 255},
		},
		{
			name:     "Invalid length",
			hex:      "#12345",
			expected: color.Black,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			er, eg, eb, ea := tt.expected.RGBA()
			rr, rg, rb, ra := hexToColor(tt.hex).RGBA()

			if rr != er || rg != eg || rb != eb || ra != ea {
				t.Errorf("hexToColor(%s) = RGBA{%d, %d, %d, %d}, want RGBA{%d, %d, %d, %d}",
					tt.hex, rr, rg, rb, ra, er, eg, eb, ea)
			}
		})
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
