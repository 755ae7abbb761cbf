package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/schollz/gowrangler"
)

// Each character cell is split into eight vertical segments.
const segmentsPerCell = 8

// termSurface maps a block of character cells onto the logical surface
// the timeline lays out on: one bar per column, one unit per segment.
func termSurface(cols, rows int) gowrangler.Surface {
	return gowrangler.Surface{
		Width:      float64(2 * cols),
		Height:     float64(rows * segmentsPerCell),
		PixelRatio: 1,
	}
}

type cellKind uint8

const (
	cellEmpty cellKind = iota
	cellBar
	cellSelected
	cellShade // empty, inside the selection
	cellPlayhead
)

type cell struct {
	glyph string
	kind  cellKind
}

// lowerGlyph returns a block rising n eighths from the bottom of a cell.
func lowerGlyph(n int) string {
	switch n {
	case 1:
		return "▁"
	case 2:
		return "▂"
	case 3:
		return "▃"
	case 4:
		return "▄"
	case 5:
		return "▅"
	case 6:
		return "▆"
	case 7:
		return "▇"
	}
	return "█"
}

// upperGlyph returns a block hanging n eighths from the top of a cell.
func upperGlyph(n int) string {
	switch n {
	case 1:
		return "▔"
	case 2:
		return "🮂"
	case 3:
		return "🮃"
	case 4:
		return "▀"
	case 5:
		return "🮄"
	case 6:
		return "🮅"
	case 7:
		return "🮆"
	}
	return "█"
}

// column is the vertical extent of everything drawn in one character column,
// in segments from the top.
type column struct {
	top, bottom float64
	filled      bool
	selected    bool
}

func columns(f gowrangler.Frame, cols, rows int) []column {
	out := make([]column, cols)
	if cols <= 0 || f.Surface.Width <= 0 || f.Surface.Height <= 0 {
		return out
	}
	colW := f.Surface.Width / float64(cols)
	scale := float64(rows*segmentsPerCell) / f.Surface.Height

	for _, b := range f.Bars {
		c := int(b.X / colW)
		if c < 0 || c >= cols {
			continue
		}
		col := &out[c]
		top, bottom := b.Y*scale, (b.Y+b.H)*scale
		if !col.filled {
			col.top, col.bottom, col.filled = top, bottom, true
		} else {
			col.top = math.Min(col.top, top)
			col.bottom = math.Max(col.bottom, bottom)
		}
		col.selected = col.selected || b.Selected
	}

	// More columns than bars: repeat the bar under each column center.
	if len(f.Bars) > 0 && len(f.Bars) < cols {
		barW := f.Surface.Width / float64(len(f.Bars))
		for c := range out {
			if out[c].filled {
				continue
			}
			i := min(len(f.Bars)-1, int((float64(c)+0.5)*colW/barW))
			b := f.Bars[i]
			out[c] = column{top: b.Y * scale, bottom: (b.Y + b.H) * scale, filled: true, selected: b.Selected}
		}
	}
	return out
}

// paintCells rasterizes the waveform part of f onto cols×rows cells.
func paintCells(f gowrangler.Frame, cols, rows int) [][]cell {
	grid := make([][]cell, rows)
	for r := range grid {
		grid[r] = make([]cell, cols)
		for c := range grid[r] {
			grid[r][c] = cell{glyph: " "}
		}
	}
	if cols <= 0 || rows <= 0 {
		return grid
	}

	colW := f.Surface.Width / float64(cols)
	inSelection := func(c int) bool {
		if !f.Selection.Visible || colW <= 0 {
			return false
		}
		mid := (float64(c) + 0.5) * colW
		return mid >= f.Selection.X && mid < f.Selection.X+f.Selection.W
	}
	playheadCol := -1
	if f.Playhead.Visible && colW > 0 {
		playheadCol = min(cols-1, int(f.Playhead.X/colW))
	}

	for c, col := range columns(f, cols, rows) {
		shade := inSelection(c)
		for r := 0; r < rows; r++ {
			cellTop := float64(r * segmentsPerCell)
			cellBottom := cellTop + segmentsPerCell

			kind := cellEmpty
			glyph := " "
			if col.filled {
				overlap := math.Min(col.bottom, cellBottom) - math.Max(col.top, cellTop)
				n := int(math.Round(overlap))
				switch {
				case n >= segmentsPerCell:
					glyph = "█"
				case n <= 0:
				case col.bottom >= cellBottom:
					glyph = lowerGlyph(n)
				default:
					glyph = upperGlyph(n)
				}
				if glyph != " " {
					kind = cellBar
					if col.selected {
						kind = cellSelected
					}
				}
			}
			if kind == cellEmpty && shade {
				kind = cellShade
			}
			if c == playheadCol {
				if glyph == " " {
					glyph = "│"
				}
				kind = cellPlayhead
			}
			grid[r][c] = cell{glyph: glyph, kind: kind}
		}
	}
	return grid
}

// sectionCells writes section names over their stripes. Stripes alternate
// between two shades; odd is reported per cell.
func sectionCells(f gowrangler.Frame, cols int) (labels []rune, odd []int) {
	labels = []rune(strings.Repeat(" ", cols))
	odd = make([]int, cols)
	for i := range odd {
		odd[i] = -1
	}
	if cols <= 0 || f.Surface.Width <= 0 {
		return labels, odd
	}
	colW := f.Surface.Width / float64(cols)

	for _, st := range f.Stripes {
		from := max(0, int(math.Round(st.X/colW)))
		to := min(cols, int(math.Round((st.X+st.W)/colW)))
		for c := from; c < to; c++ {
			odd[c] = st.Index % 2
		}
		name := []rune(st.Name)
		if room := to - from - 1; len(name) > room {
			name = name[:max(0, room)]
		}
		for i, r := range name {
			labels[from+i] = r
		}
	}
	return labels, odd
}

// ruler returns a tick line and a label line for a clip of duration seconds.
func ruler(cols int, duration float64) (ticks, labels string) {
	if cols <= 0 {
		return "", ""
	}
	if duration <= 0 {
		return strings.Repeat(" ", cols), strings.Repeat(" ", cols)
	}

	var precision int
	var interval float64
	switch {
	case duration < 1:
		precision, interval = 2, 0.1
	case duration < 10:
		precision, interval = 1, 1
	case duration < 60:
		precision, interval = 0, 5
	default:
		precision, interval = 0, 15
	}

	n := int(duration / interval)
	if n < 4 {
		n = 4
		interval = duration / float64(n)
	} else if n > cols/8 {
		n = max(1, cols/8)
		interval = duration / float64(n)
	}

	tickLine := []rune(strings.Repeat(" ", cols))
	labelLine := []rune(strings.Repeat(" ", cols))
	nextFree := 0
	for i := 0; i <= n; i++ {
		t := math.Min(duration, float64(i)*interval)
		pos := int(float64(cols-1) * t / duration)
		tickLine[pos] = '|'

		var label string
		if precision == 0 {
			label = gowrangler.FormatClock(t)
		} else {
			label = fmt.Sprintf("%.*f", precision, t)
		}
		start := max(0, min(cols-len(label), pos-len(label)/2))
		if start < nextFree {
			continue
		}
		copy(labelLine[start:], []rune(label))
		nextFree = start + len(label) + 1
	}
	return string(tickLine), string(labelLine)
}

// styles colors the terminal timeline.
type styles struct {
	bar      lipgloss.Style
	selected lipgloss.Style
	shade    lipgloss.Style
	playhead lipgloss.Style
	stripe   [2]lipgloss.Style
	dim      lipgloss.Style
	title    lipgloss.Style
	active   lipgloss.Style
	hint     lipgloss.Style
	warn     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		bar:      lipgloss.NewStyle().Foreground(lipgloss.Color("#6b6b78")),
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color("#e88a3c")).Background(lipgloss.Color("#2a2018")),
		shade:    lipgloss.NewStyle().Background(lipgloss.Color("#2a2018")),
		playhead: lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")),
		stripe: [2]lipgloss.Style{
			lipgloss.NewStyle().Foreground(lipgloss.Color("#c8c8d0")).Background(lipgloss.Color("#1c1c22")),
			lipgloss.NewStyle().Foreground(lipgloss.Color("#c8c8d0")).Background(lipgloss.Color("#26262e")),
		},
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6b6b78")),
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e88a3c")),
		active: lipgloss.NewStyle().Bold(true).Reverse(true),
		hint:   lipgloss.NewStyle().Foreground(lipgloss.Color("#e8c33c")),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("#e85c3c")),
	}
}

func (st styles) forKind(k cellKind) (lipgloss.Style, bool) {
	switch k {
	case cellBar:
		return st.bar, true
	case cellSelected:
		return st.selected, true
	case cellShade:
		return st.shade, true
	case cellPlayhead:
		return st.playhead, true
	}
	return lipgloss.Style{}, false
}

// renderTimeline draws the section row, the waveform rows and the ruler.
func renderTimeline(f gowrangler.Frame, cols, rows int, st styles) string {
	var sb strings.Builder

	labels, odd := sectionCells(f, cols)
	runStart := 0
	for c := 1; c <= cols; c++ {
		if c < cols && odd[c] == odd[runStart] {
			continue
		}
		text := string(labels[runStart:c])
		if o := odd[runStart]; o >= 0 {
			text = st.stripe[o].Render(text)
		}
		sb.WriteString(text)
		runStart = c
	}
	sb.WriteByte('\n')

	for _, row := range paintCells(f, cols, rows) {
		var run strings.Builder
		kind := cellEmpty
		flush := func() {
			if s, ok := st.forKind(kind); ok {
				sb.WriteString(s.Render(run.String()))
			} else {
				sb.WriteString(run.String())
			}
			run.Reset()
		}
		for _, c := range row {
			if c.kind != kind {
				flush()
				kind = c.kind
			}
			run.WriteString(c.glyph)
		}
		flush()
		sb.WriteByte('\n')
	}

	ticks, marks := ruler(cols, f.Duration)
	sb.WriteString(st.dim.Render(ticks))
	sb.WriteByte('\n')
	sb.WriteString(st.dim.Render(marks))
	return sb.String()
}
