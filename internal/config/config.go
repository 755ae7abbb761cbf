package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Wrangler server the clients talk to
	APIURL string
	Port   int

	// Upstream ACE-Step connection
	ACEStepAPIURL string
	ACEStepAPIKey string

	UploadDir string

	// Client behavior
	PollInterval   time.Duration // status check cadence
	FrameInterval  time.Duration // playhead refresh
	ResizeDebounce time.Duration // redraw delay after a resize

	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first when present;
// variables already set in the environment win over it.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIURL: envStr("WRANGLER_API_URL", "http://localhost:7860"),
		Port:   envInt("WRANGLER_PORT", 7860),

		ACEStepAPIURL: envStr("ACESTEP_API_URL", "http://localhost:8001"),
		ACEStepAPIKey: envStr("ACESTEP_API_KEY", ""),

		UploadDir: envStr("WRANGLER_UPLOAD_DIR", filepath.Join(os.TempDir(), "wrangler-uploads")),

		PollInterval:   envDuration("WRANGLER_POLL_INTERVAL", 2*time.Second),
		FrameInterval:  envDuration("WRANGLER_FRAME_INTERVAL", 16*time.Millisecond),
		ResizeDebounce: envDuration("WRANGLER_RESIZE_DEBOUNCE", 200*time.Millisecond),

		LogLevel: envStr("WRANGLER_LOG_LEVEL", "info"),
		LogFile:  envStr("WRANGLER_LOG_FILE", "wrangler.log"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("2s", "150ms").
func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
