package gowrangler

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// PlotConfig holds the colors used to paint a Frame.
type PlotConfig struct {
	backgroundColor color.Color
	mutedColor      color.Color
	accentColor     color.Color
	stripeColor     color.Color
	selectionColor  color.Color
	playheadColor   color.Color
	labelColor      color.Color
	showLabels      bool
	labelSize       vg.Length
}

// Option is the type all plot options need to adhere to
type Option func(*PlotConfig)

// OptionSetBackgroundColor sets the background color using a hex color code
func OptionSetBackgroundColor(hexColor string) Option {
	return func(c *PlotConfig) {
		c.backgroundColor = hexToColor(hexColor)
	}
}

// OptionSetForegroundColor sets the color of bars outside the selection
func OptionSetForegroundColor(hexColor string) Option {
	return func(c *PlotConfig) {
		c.mutedColor = hexToColor(hexColor)
	}
}

// OptionSetAccentColor sets the color of bars inside the selection
func OptionSetAccentColor(hexColor string) Option {
	return func(c *PlotConfig) {
		c.accentColor = hexToColor(hexColor)
	}
}

// OptionSetStripeColor sets the shading of every other section stripe
func OptionSetStripeColor(hexColor string) Option {
	return func(c *PlotConfig) {
		c.stripeColor = hexToColor(hexColor)
	}
}

// OptionSetPlayheadColor sets the playhead marker color
func OptionSetPlayheadColor(hexColor string) Option {
	return func(c *PlotConfig) {
		c.playheadColor = hexToColor(hexColor)
	}
}

// OptionShowLabels enables or disables section names
func OptionShowLabels(show bool) Option {
	return func(c *PlotConfig) {
		c.showLabels = show
	}
}

// hexToColor converts a hex color string to color.Color
// Supports formats: #RGB, #RRGGBB, RGB, RRGGBB
func hexToColor(hex string) color.Color {
	hex = strings.TrimPrefix(hex, "#")

	// Default to black if invalid
	if len(hex) != 3 && len(hex) != 6 {
		return color.Black
	}

	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}

	var r, g, b uint8
	fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func defaultPlotConfig() PlotConfig {
	return PlotConfig{
		backgroundColor: color.RGBA{R: 0x14, G: 0x14, B: 0x18, A: 255},
		mutedColor:      color.RGBA{R: 0x6b, G: 0x6b, B: 0x78, A: 255},
		accentColor:     color.RGBA{R: 0xe8, G: 0x8a, B: 0x3c, A: 255},
		stripeColor:     color.RGBA{R: 255, G: 255, B: 255, A: 14},
		selectionColor:  color.RGBA{R: 0xe8, G: 0x8a, B: 0x3c, A: 40},
		playheadColor:   color.White,
		labelColor:      color.RGBA{R: 0xc8, G: 0xc8, B: 0xd0, A: 255},
		showLabels:      true,
		labelSize:       vg.Points(8),
	}
}

// SavePlot saves the frame to an image file.
// The file format (PNG or JPEG) is determined by the filename extension
func SavePlot(f Frame, filename string, opts ...Option) error {
	ext := strings.ToLower(filepath.Ext(filename))
	var format string
	switch ext {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	default:
		return fmt.Errorf("unsupported file format: %s (supported: .png, .jpg, .jpeg)", ext)
	}

	out, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	if err := WritePlot(out, f, format, opts...); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// WritePlot paints the frame and encodes it as "png" or "jpeg".
// The image is Width·PixelRatio by Height·PixelRatio device pixels.
func WritePlot(w io.Writer, f Frame, format string, opts ...Option) error {
	config := defaultPlotConfig()
	for _, opt := range opts {
		opt(&config)
	}

	s := f.Surface
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid surface %gx%g", s.Width, s.Height)
	}

	// Logical units are CSS pixels at 96 DPI.
	c := vgimg.NewWith(
		vgimg.UseWH(unit(s.Width), unit(s.Height)),
		vgimg.UseDPI(int(96*s.ratio())),
		vgimg.UseBackgroundColor(config.backgroundColor),
	)
	dc := draw.New(c)

	p := painter{dc: dc, height: s.Height}

	for _, st := range f.Stripes {
		if st.Index%2 == 0 {
			p.rect(config.stripeColor, st.X, 0, st.W, s.Height)
		}
	}
	if f.Selection.Visible {
		p.rect(config.selectionColor, f.Selection.X, 0, f.Selection.W, s.Height)
	}
	for _, b := range f.Bars {
		clr := config.mutedColor
		if b.Selected {
			clr = config.accentColor
		}
		p.rect(clr, b.X, b.Y, b.W, b.H)
	}
	if f.Playhead.Visible {
		p.rect(config.playheadColor, f.Playhead.X-0.5, 0, 1, s.Height)
	}

	if config.showLabels && len(f.Stripes) > 0 {
		sty := draw.TextStyle{
			Color:   config.labelColor,
			Font:    font.From(plot.DefaultFont, config.labelSize),
			Handler: plot.DefaultTextHandler,
		}
		for _, st := range f.Stripes {
			dc.FillText(sty, vg.Point{X: unit(st.X + 3), Y: unit(s.Height - 12)}, st.Name)
		}
	}

	var err error
	switch format {
	case "png":
		_, err = vgimg.PngCanvas{Canvas: c}.WriteTo(w)
	case "jpeg", "jpg":
		_, err = vgimg.JpegCanvas{Canvas: c}.WriteTo(w)
	default:
		return fmt.Errorf("unsupported image format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return nil
}

// painter fills rectangles given in top-left logical coordinates.
type painter struct {
	dc     draw.Canvas
	height float64
}

func (p painter) rect(clr color.Color, x, y, w, h float64) {
	// vg's origin is bottom-left.
	x0, x1 := unit(x), unit(x+w)
	y0, y1 := unit(p.height-y-h), unit(p.height-y)
	p.dc.FillPolygon(clr, []vg.Point{
		{X: x0, Y: y0},
		{X: x1, Y: y0},
		{X: x1, Y: y1},
		{X: x0, Y: y1},
	})
}

func unit(v float64) vg.Length {
	return vg.Length(v) * vg.Inch / 96
}
