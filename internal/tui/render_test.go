package tui

import (
	"strings"
	"testing"

	"github.com/schollz/gowrangler"
)

func frameOf(peaks []float32, cols, rows int, v gowrangler.View) gowrangler.Frame {
	data := &gowrangler.WaveformData{Duration: 8, Length: len(peaks), Peaks: peaks}
	return gowrangler.Layout(data, termSurface(cols, rows), v)
}

func TestGlyphs(t *testing.T) {
	if lowerGlyph(4) != "▄" || upperGlyph(4) != "▀" {
		t.Errorf("half blocks = %q %q", lowerGlyph(4), upperGlyph(4))
	}
	if lowerGlyph(8) != "█" || upperGlyph(8) != "█" {
		t.Error("full cell is not a full block")
	}
	if lowerGlyph(1) != "▁" || upperGlyph(1) != "▔" {
		t.Errorf("eighths = %q %q", lowerGlyph(1), upperGlyph(1))
	}
}

func TestTermSurfaceGivesOneBarPerColumn(t *testing.T) {
	s := termSurface(80, 6)
	if got := s.BarCount(); got != 80 {
		t.Errorf("BarCount() = %d, want 80", got)
	}
	if s.Height != 48 {
		t.Errorf("Height = %v, want 48", s.Height)
	}
}

func TestPaintCells(t *testing.T) {
	f := frameOf([]float32{1, 0, 0, 0}, 4, 2, gowrangler.View{})
	grid := paintCells(f, 4, 2)

	if grid[0][0].glyph != "▇" || grid[1][0].glyph != "🮆" {
		t.Errorf("loud column = %q / %q", grid[0][0].glyph, grid[1][0].glyph)
	}
	// Silence still draws a hairline on the midline.
	if grid[0][1].glyph != "▁" || grid[1][1].glyph != "▔" {
		t.Errorf("silent column = %q / %q", grid[0][1].glyph, grid[1][1].glyph)
	}
	for _, row := range grid {
		for _, c := range row {
			if c.kind != cellBar {
				t.Fatalf("unexpected kind %d without selection or playhead", c.kind)
			}
		}
	}
}

func TestPaintCellsSelectionAndPlayhead(t *testing.T) {
	f := frameOf([]float32{1, 0.5, 0.5, 0.5}, 4, 2, gowrangler.View{
		Region:     gowrangler.Region{Start: 0, End: 3},
		ShowRegion: true,
		Playhead:   0.75,
		PlayheadOn: true,
	})
	grid := paintCells(f, 4, 2)

	if grid[0][0].kind != cellSelected || grid[0][1].kind != cellSelected {
		t.Errorf("selected columns = %d %d", grid[0][0].kind, grid[0][1].kind)
	}
	if grid[0][2].kind != cellBar {
		t.Errorf("column outside the region = %d", grid[0][2].kind)
	}
	if grid[0][3].kind != cellPlayhead || grid[1][3].kind != cellPlayhead {
		t.Errorf("playhead column = %d %d", grid[0][3].kind, grid[1][3].kind)
	}
}

func TestPaintCellsStretchesFewBars(t *testing.T) {
	f := frameOf([]float32{1, 0}, 2, 2, gowrangler.View{})
	grid := paintCells(f, 4, 2)
	if grid[0][0].glyph != grid[0][1].glyph || grid[0][2].glyph != grid[0][3].glyph {
		t.Errorf("columns not repeated: %q", []string{grid[0][0].glyph, grid[0][1].glyph, grid[0][2].glyph, grid[0][3].glyph})
	}
}

func TestPaintCellsEmptyFrame(t *testing.T) {
	grid := paintCells(gowrangler.Frame{}, 3, 2)
	for _, row := range grid {
		for _, c := range row {
			if c.glyph != " " {
				t.Fatalf("empty frame drew %q", c.glyph)
			}
		}
	}
}

func TestSectionCells(t *testing.T) {
	f := frameOf(make([]float32, 20), 20, 2, gowrangler.View{Sections: []gowrangler.Section{
		{Name: "Verse", Start: 0, End: 4},
		{Name: "Chorus", Start: 4, End: 8},
	}})
	labels, odd := sectionCells(f, 20)
	row := string(labels)
	if !strings.HasPrefix(row, "Verse") || string(labels[10:16]) != "Chorus" {
		t.Errorf("labels = %q", row)
	}
	if odd[0] != 0 || odd[9] != 0 || odd[10] != 1 || odd[19] != 1 {
		t.Errorf("stripe shading = %v", odd)
	}
}

func TestRuler(t *testing.T) {
	ticks, labels := ruler(40, 30)
	if len([]rune(ticks)) != 40 || len([]rune(labels)) != 40 {
		t.Fatalf("ruler width = %d/%d", len([]rune(ticks)), len([]rune(labels)))
	}
	if ticks[0] != '|' || ticks[39] != '|' {
		t.Errorf("ticks = %q", ticks)
	}
	if !strings.HasPrefix(labels, "0:00") || !strings.HasSuffix(labels, "0:30") {
		t.Errorf("labels = %q", labels)
	}

	ticks, _ = ruler(10, 0)
	if strings.TrimSpace(ticks) != "" {
		t.Errorf("ruler without a clip = %q", ticks)
	}
}
