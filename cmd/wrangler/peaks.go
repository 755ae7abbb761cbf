package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schollz/gowrangler"
)

var peaksFlags struct {
	output string
	start  float64
	end    float64
	bars   int
}

var peaksCmd = &cobra.Command{
	Use:   "peaks <audio-file>",
	Short: "Print the peak envelope of an audio file as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeaks,
}

var plotFlags struct {
	output     string
	width      float64
	height     float64
	ratio      float64
	background string
	foreground string
	accent     string
	region     []float64
	playhead   float64
	noLabels   bool
}

var plotCmd = &cobra.Command{
	Use:   "plot <audio-file>",
	Short: "Draw the waveform of an audio file to a PNG or JPEG",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlot,
}

func init() {
	peaksCmd.Flags().StringVarP(&peaksFlags.output, "output", "o", "", "Output JSON file (default: stdout)")
	peaksCmd.Flags().Float64Var(&peaksFlags.start, "start", 0, "Start time in seconds")
	peaksCmd.Flags().Float64Var(&peaksFlags.end, "end", 0, "End time in seconds (0 means end of file)")
	peaksCmd.Flags().IntVarP(&peaksFlags.bars, "bars", "n", 800, "Number of peaks")

	plotCmd.Flags().StringVarP(&plotFlags.output, "output", "o", "waveform.png", "Output image (.png, .jpg)")
	plotCmd.Flags().Float64Var(&plotFlags.width, "width", 800, "Width in logical pixels")
	plotCmd.Flags().Float64Var(&plotFlags.height, "height", 120, "Height in logical pixels")
	plotCmd.Flags().Float64Var(&plotFlags.ratio, "ratio", 1, "Device pixel ratio")
	plotCmd.Flags().StringVar(&plotFlags.background, "bg", "", "Background color (hex)")
	plotCmd.Flags().StringVar(&plotFlags.foreground, "fg", "", "Bar color (hex)")
	plotCmd.Flags().StringVar(&plotFlags.accent, "accent", "", "Selected bar color (hex)")
	plotCmd.Flags().Float64SliceVar(&plotFlags.region, "region", nil, "Highlight a region: start,end in seconds")
	plotCmd.Flags().Float64Var(&plotFlags.playhead, "playhead", -1, "Draw the playhead at this time in seconds")
	plotCmd.Flags().BoolVar(&plotFlags.noLabels, "no-labels", false, "Hide section labels")
}

func runPeaks(cmd *cobra.Command, args []string) error {
	jsonData, err := gowrangler.GenerateWaveformJSON(args[0], gowrangler.WaveformOptions{
		Start: peaksFlags.start,
		End:   peaksFlags.end,
		Bars:  peaksFlags.bars,
	})
	if err != nil {
		return fmt.Errorf("generating waveform: %w", err)
	}

	if peaksFlags.output == "" {
		fmt.Println(string(jsonData))
		return nil
	}
	if err := os.WriteFile(peaksFlags.output, jsonData, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Waveform data written to %s\n", peaksFlags.output)
	return nil
}

func runPlot(cmd *cobra.Command, args []string) error {
	surface := gowrangler.Surface{Width: plotFlags.width, Height: plotFlags.height, PixelRatio: plotFlags.ratio}
	data, err := gowrangler.GenerateWaveformData(args[0], gowrangler.WaveformOptions{Bars: surface.BarCount()})
	if err != nil {
		return fmt.Errorf("generating waveform: %w", err)
	}

	var view gowrangler.View
	if len(plotFlags.region) > 0 {
		if len(plotFlags.region) != 2 {
			return fmt.Errorf("--region takes start,end")
		}
		sel := gowrangler.NewRegionSelector()
		sel.SetDuration(data.Duration)
		sel.SetRegion(plotFlags.region[0], plotFlags.region[1])
		view.Region = sel.Region()
		view.ShowRegion = true
	}
	if plotFlags.playhead >= 0 {
		view.Playhead = plotFlags.playhead
		view.PlayheadOn = true
	}

	var opts []gowrangler.Option
	if plotFlags.background != "" {
		opts = append(opts, gowrangler.OptionSetBackgroundColor(plotFlags.background))
	}
	if plotFlags.foreground != "" {
		opts = append(opts, gowrangler.OptionSetForegroundColor(plotFlags.foreground))
	}
	if plotFlags.accent != "" {
		opts = append(opts, gowrangler.OptionSetAccentColor(plotFlags.accent))
	}
	opts = append(opts, gowrangler.OptionShowLabels(!plotFlags.noLabels))

	if err := gowrangler.SavePlot(gowrangler.Layout(data, surface, view), plotFlags.output, opts...); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Waveform written to %s\n", plotFlags.output)
	return nil
}
