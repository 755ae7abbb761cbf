package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/schollz/gowrangler/internal/acestep"
	"github.com/schollz/gowrangler/internal/log"
	"github.com/schollz/gowrangler/internal/server"
)

var serveFlags struct {
	port      int
	upstream  string
	uploadDir string
	wait      bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wrangler HTTP backend",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&serveFlags.port, "port", "p", 0, "Listen port (default $WRANGLER_PORT)")
	serveCmd.Flags().StringVar(&serveFlags.upstream, "acestep", "", "ACE-Step API URL (default $ACESTEP_API_URL)")
	serveCmd.Flags().StringVar(&serveFlags.uploadDir, "uploads", "", "Upload directory (default $WRANGLER_UPLOAD_DIR)")
	serveCmd.Flags().BoolVar(&serveFlags.wait, "wait", false, "Wait for ACE-Step to report healthy before listening")
}

func runServe(cmd *cobra.Command, args []string) error {
	port := cfg.Port
	if serveFlags.port > 0 {
		port = serveFlags.port
	}
	upstream := cfg.ACEStepAPIURL
	if serveFlags.upstream != "" {
		upstream = serveFlags.upstream
	}
	uploadDir := cfg.UploadDir
	if serveFlags.uploadDir != "" {
		uploadDir = serveFlags.uploadDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ace := acestep.NewClient(upstream, cfg.ACEStepAPIKey)
	if serveFlags.wait {
		log.Info("waiting for ACE-Step", "url", ace.URL())
		if err := ace.WaitForHealthy(ctx, 2*time.Second); err != nil {
			return fmt.Errorf("ACE-Step never became healthy: %w", err)
		}
	}

	srv, err := server.New(server.Config{
		Upstream:  ace,
		UploadDir: uploadDir,
		Logger:    log.With("component", "server"),
	})
	if err != nil {
		return err
	}
	log.Info("forwarding to ACE-Step", "url", ace.URL(), "uploads", srv.UploadDir())

	errc := make(chan error, 1)
	go func() { errc <- srv.Listen(fmt.Sprintf(":%d", port)) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := srv.Shutdown(5 * time.Second); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
