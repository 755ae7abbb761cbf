package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/schollz/gowrangler/internal/api"
	"github.com/schollz/gowrangler/internal/log"
	"github.com/schollz/gowrangler/internal/session"
	"github.com/schollz/gowrangler/internal/task"
)

var genFlags struct {
	style        string
	tags         []string
	lyricsFile   string
	instrumental bool
	language     string
	duration     float64
	batch        int
	seed         int
	format       string
	model        string
	outDir       string

	rework    string
	direction string
	cover     float64
	repaint   []float64
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Submit one generation, wait for it and download the results",
	Example: `  wrangler generate --tags rock,anthemic --lyrics-file song.txt -o out/
  wrangler generate --rework demo.wav --direction "lo-fi" --repaint 10,20`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&genFlags.style, "style", "s", "", "Free-form style description")
	f.StringSliceVarP(&genFlags.tags, "tags", "t", nil, "Style tags")
	f.StringVarP(&genFlags.lyricsFile, "lyrics-file", "L", "", "Read lyrics from this file")
	f.BoolVarP(&genFlags.instrumental, "instrumental", "i", false, "No vocals")
	f.StringVar(&genFlags.language, "language", "en", "Vocal language when the backend writes the lyrics")
	f.Float64VarP(&genFlags.duration, "duration", "d", 0, "Length in seconds (default: estimated)")
	f.IntVarP(&genFlags.batch, "batch", "b", 1, "Number of variations")
	f.IntVar(&genFlags.seed, "seed", -1, "Seed (-1 for random)")
	f.StringVar(&genFlags.format, "format", "mp3", "Audio format: mp3, wav, flac")
	f.StringVar(&genFlags.model, "model", "turbo", "Generation model: turbo, sft, base")
	f.StringVarP(&genFlags.outDir, "output", "o", ".", "Download directory (empty skips downloads)")

	f.StringVar(&genFlags.rework, "rework", "", "Rework this audio file instead of creating a new song")
	f.StringVar(&genFlags.direction, "direction", "", "Rework direction")
	f.Float64Var(&genFlags.cover, "cover", 0.5, "Cover strength 0..1")
	f.Float64SliceVar(&genFlags.repaint, "repaint", nil, "Repaint only start,end seconds")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.L()
	client := api.New(cfg.APIURL, nil)
	sess := session.New(session.Config{
		Backend: client,
		Tasks:   task.NewController(client, task.Config{PollInterval: cfg.PollInterval, Logger: logger}),
		Logger:  logger,
	})
	defer sess.Close()

	lyrics := ""
	if genFlags.lyricsFile != "" {
		b, err := os.ReadFile(genFlags.lyricsFile)
		if err != nil {
			return err
		}
		lyrics = string(b)
	}

	sess.UpdateForm(func(f *session.Form) {
		f.Tags = genFlags.tags
		f.CustomStyle = genFlags.style
		f.Direction = genFlags.direction
		f.Lyrics = lyrics
		f.Language = genFlags.language
		f.CoverStrength = genFlags.cover
		if genFlags.instrumental {
			f.LyricsMode = session.LyricsInstrumental
		}
		if genFlags.duration > 0 {
			f.Shared.Duration = genFlags.duration
		}
		f.Shared.BatchSize = genFlags.batch
		f.Shared.AudioFormat = genFlags.format
		f.Shared.GenModel = genFlags.model
		if genFlags.seed >= 0 {
			seed := genFlags.seed
			f.Shared.Seed = &seed
		}
	})

	if genFlags.rework != "" {
		sess.SwitchMode(ctx, session.ModeRework)
		if len(genFlags.repaint) > 0 {
			sess.SwitchApproach(session.ApproachRepaint)
		}
		if err := sess.UploadFile(ctx, genFlags.rework); err != nil {
			return err
		}
		if len(genFlags.repaint) > 0 {
			if len(genFlags.repaint) != 2 {
				return errors.New("--repaint takes start,end")
			}
			sess.Timeline().Selector().SetRegion(genFlags.repaint[0], genFlags.repaint[1])
		}
	} else if genFlags.duration <= 0 && lyrics != "" {
		if d, ok := sess.AutoDuration(ctx); ok {
			logger.Info("estimated duration", "seconds", d)
		}
	}
	if w := sess.LyricsWarning(); w != "" {
		logger.Warn(w)
	}

	done := make(chan task.Snapshot, 1)
	sess.Tasks().OnChange(func(s task.Snapshot) {
		switch s.State {
		case task.StateDone, task.StateError, task.StateCancelled:
			select {
			case done <- s:
			default:
			}
		}
	})

	if err := sess.Generate(ctx); err != nil {
		if h := sess.Tasks().Snapshot().Hint; h != "" {
			return errors.New(h)
		}
		return err
	}
	fmt.Fprintf(os.Stderr, "%s: task %s submitted\n", sess.Action(), sess.Tasks().Snapshot().TaskID)

	var snap task.Snapshot
	select {
	case snap = <-done:
	case <-ctx.Done():
		sess.Tasks().Cancel()
		return ctx.Err()
	}
	if snap.State != task.StateDone {
		return errors.New(snap.Hint)
	}
	fmt.Fprintf(os.Stderr, "done in %s\n", task.FormatElapsed(time.Since(snap.Started)))

	for _, r := range snap.Results {
		fmt.Println(client.URL(r.AudioDownload))
		if genFlags.outDir == "" {
			continue
		}
		name := api.DownloadName(snap.TaskID, r.Index, genFlags.format)
		if err := download(ctx, client, snap.TaskID, r.Index, filepath.Join(genFlags.outDir, name)); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved %s\n", name)
	}
	return nil
}

func download(ctx context.Context, client *api.Client, taskID string, index int, path string) error {
	body, err := client.Download(ctx, taskID, index, api.KindAudio)
	if err != nil {
		return fmt.Errorf("download result %d: %w", index+1, err)
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
