// Package server is the wrangler HTTP backend. It validates and reshapes
// requests from the control surface and forwards them to ACE-Step.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/schollz/gowrangler/internal/acestep"
	"github.com/schollz/gowrangler/internal/api"
)

// Upstream is the ACE-Step API. *acestep.Client implements it.
type Upstream interface {
	ReleaseTask(ctx context.Context, p acestep.Payload) (string, error)
	QueryResult(ctx context.Context, taskID string) (*acestep.Task, error)
	AudioBytes(ctx context.Context, ref string) ([]byte, string, error)
	Health(ctx context.Context) (map[string]any, error)
	FormatInput(ctx context.Context, lyrics string) (map[string]any, error)
}

// Config configures a Server.
type Config struct {
	Upstream Upstream

	// UploadDir receives uploaded audio. Empty means a fresh temp dir.
	UploadDir string

	// TempDir is the only place the upstream accepts source audio from.
	// Empty means os.TempDir().
	TempDir string

	Logger *slog.Logger
}

// Server serves the wrangler API.
type Server struct {
	app       *fiber.App
	up        Upstream
	uploadDir string
	tempDir   string
	logger    *slog.Logger
	store     *store
}

// New builds the fiber app and creates the upload directory.
func New(cfg Config) (*Server, error) {
	if cfg.Upstream == nil {
		return nil, errors.New("server: no upstream")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.UploadDir == "" {
		dir, err := os.MkdirTemp("", "wrangler-uploads-")
		if err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
		cfg.UploadDir = dir
	} else if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	s := &Server{
		up:        cfg.Upstream,
		uploadDir: cfg.UploadDir,
		tempDir:   cfg.TempDir,
		logger:    cfg.Logger,
		store:     newStore(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "ACE-Step Wrangler",
		DisableStartupMessage: true,
		BodyLimit:             200 << 20,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(s.logRequests)

	app.Get("/api/health", s.handleHealth)
	app.Post("/generate", s.handleGenerate)
	app.Get("/status/:task_id", s.handleStatus)
	app.Get("/audio", s.handleAudio)
	app.Get("/download/:task_id/:index/audio", s.handleDownloadAudio)
	app.Get("/download/:task_id/:index/json", s.handleDownloadJSON)
	app.Post("/upload-audio", s.handleUpload)
	app.Post("/estimate-duration", s.handleEstimateDuration)
	app.Post("/estimate-sections", s.handleEstimateSections)

	s.app = app
	return s, nil
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App { return s.app }

// UploadDir is where uploads are stored.
func (s *Server) UploadDir() string { return s.uploadDir }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("wrangler server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting up to timeout for open requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// detail writes the error body every non-2xx response uses.
func detail(c *fiber.Ctx, code int, msg string) error {
	return c.Status(code).JSON(api.ErrorBody{Detail: msg})
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= 500 {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return detail(c, code, err.Error())
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"took", time.Since(start),
	)
	return err
}
