package service

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadConfig.
const (
	EnvWorkDir       = "CODETASK_WORKDIR"
	EnvModel         = "CODETASK_MODEL"
	EnvProvider      = "CODETASK_PROVIDER"
	EnvMaxIterations = "CODETASK_MAX_ITERATIONS"
	EnvHistoryLimit  = "CODETASK_HISTORY_LIMIT"
)

// Config holds service-level settings.
type Config struct {
	// WorkDir is the default working directory for operations that do not
	// name their own.
	WorkDir string

	// Model overrides the provider's default model when set.
	Model string

	// Provider pins requests to a named provider. Empty means the client
	// default.
	Provider string

	// MaxIterations is the default tool-round cap per task.
	MaxIterations int

	// HistoryLimit bounds the in-memory execution history.
	HistoryLimit int
}

// LoadConfig reads configuration from a .env file (when present) and the
// process environment. Environment variables win over .env values, which is
// godotenv's default behavior.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		WorkDir:  os.Getenv(EnvWorkDir),
		Model:    os.Getenv(EnvModel),
		Provider: os.Getenv(EnvProvider),
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir, _ = os.Getwd()
	}
	cfg.MaxIterations = intFromEnv(EnvMaxIterations)
	cfg.HistoryLimit = intFromEnv(EnvHistoryLimit)
	return cfg
}

func intFromEnv(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
