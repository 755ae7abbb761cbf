// Command wrangler runs the ACE-Step wrangler: the HTTP backend that fronts
// ACE-Step, a terminal control surface for it, and a few offline waveform
// tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schollz/gowrangler/internal/config"
	"github.com/schollz/gowrangler/internal/log"
)

var (
	Version = "dev"

	cfg config.Config

	flags struct {
		apiURL   string
		logLevel string
	}
)

var rootCmd = &cobra.Command{
	Use:   "wrangler",
	Short: "A control surface for the ACE-Step music generator",
	Long: `wrangler fronts an ACE-Step API server.

  wrangler serve      run the HTTP backend
  wrangler tui        open the terminal control surface
  wrangler generate   submit one job and wait for it
  wrangler peaks      print the peak envelope of an audio file
  wrangler plot       draw an audio file as an image`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flags.apiURL != "" {
			cfg.APIURL = flags.apiURL
		}
		if flags.logLevel != "" {
			cfg.LogLevel = flags.logLevel
		}
		if cmd.Name() != "tui" {
			log.Init(cfg.LogLevel, nil)
		}
	},
}

func init() {
	cfg = config.Load()

	rootCmd.PersistentFlags().StringVar(&flags.apiURL, "api", "",
		"Wrangler server URL (default $WRANGLER_API_URL or "+cfg.APIURL+")")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "",
		"Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd, tuiCmd, generateCmd, peaksCmd, plotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
