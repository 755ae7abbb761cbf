package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/schollz/gowrangler"
	"github.com/schollz/gowrangler/internal/api"
	"github.com/schollz/gowrangler/internal/log"
	"github.com/schollz/gowrangler/internal/session"
	"github.com/schollz/gowrangler/internal/task"
	"github.com/schollz/gowrangler/internal/tui"
)

var tuiFlags struct {
	logFile string
	rework  string
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal control surface",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiFlags.logFile, "log", "l", "", "Log file (default $WRANGLER_LOG_FILE)")
	tuiCmd.Flags().StringVarP(&tuiFlags.rework, "rework", "r", "", "Upload this audio file and start in rework mode")
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("tui needs an interactive terminal")
	}

	logFile := cfg.LogFile
	if tuiFlags.logFile != "" {
		logFile = tuiFlags.logFile
	}
	f, err := tea.LogToFile(logFile, "wrangler")
	if err != nil {
		return err
	}
	defer f.Close()
	logger := log.Init(cfg.LogLevel, f)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := api.New(cfg.APIURL, nil)
	sess := session.New(session.Config{
		Backend: client,
		Timeline: gowrangler.NewTimeline(gowrangler.TimelineConfig{
			FrameInterval: cfg.FrameInterval,
			Logger:        logger.With("component", "timeline"),
		}),
		Tasks: task.NewController(client, task.Config{
			PollInterval: cfg.PollInterval,
			Logger:       logger.With("component", "tasks"),
		}),
		Logger: logger,
	})
	defer sess.Close()

	if tuiFlags.rework != "" {
		sess.SwitchMode(ctx, session.ModeRework)
		go func() {
			if err := sess.UploadFile(ctx, tuiFlags.rework); err != nil {
				logger.Warn("initial upload failed", "path", tuiFlags.rework, "error", err)
			}
		}()
	}

	logger.Info("starting control surface", "api", client.BaseURL())
	return tui.Run(ctx, sess, tui.Config{
		Audio:          client,
		ResizeDebounce: cfg.ResizeDebounce,
		Logger:         logger.With("component", "tui"),
	})
}
