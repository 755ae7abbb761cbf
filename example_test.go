package gowrangler_test

import (
	"context"
	"fmt"
	"log"

	"github.com/schollz/gowrangler"
	"github.com/schollz/gowrangler/internal/audiotest"
)

func ExampleExtractPeaks() {
	mono := gowrangler.Mixdown([]float32{0.2, 0.4, -0.8, -0.6, 0.1, 0.1, 0, 0}, 2)
	data := gowrangler.ExtractPeaks(mono, 2, 2)

	fmt.Printf("%.1f\n", data.Peaks)
	// Output: [0.7 0.1]
}

func ExampleTimeline() {
	tl := gowrangler.NewTimeline(gowrangler.TimelineConfig{
		Surface: gowrangler.Surface{Width: 400, Height: 80, PixelRatio: 2},
	})

	wav := audiotest.WAV(8000, 1, audiotest.Sine(8000, 1, 30, 220, 0.5))
	if err := tl.Load(context.Background(), gowrangler.BytesSource(wav)); err != nil {
		log.Fatalf("Error loading audio: %v", err)
	}

	tl.SetShowRegion(true)
	tl.SetSections([]gowrangler.Section{
		{Name: "Verse", Start: 0, End: 16},
		{Name: "Chorus", Start: 16, End: 30},
	})
	tl.Selector().ClickSection(tl.Sections()[1], false)

	fmt.Println(len(tl.Data().Peaks))
	fmt.Println(tl.Describe())
	// Output:
	// 200
	// Chorus · 0:16.0 – 0:30.0 (14.0s)
}
