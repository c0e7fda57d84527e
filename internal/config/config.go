// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/lostfound/backend/internal/auth"
	"github.com/pkordes/lostfound/backend/internal/vision"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// AutoMigrate applies pending migrations at start-up. Defaults to true.
	AutoMigrate bool

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	CORSOrigins []string

	// AdminEmails may register, recover and delete items.
	AdminEmails []string

	// AuthHeader carries the authenticated email set by the upstream proxy.
	AuthHeader string

	// Vision selects the classification backend and its credentials.
	// Only the selected backend's credentials are required.
	Vision vision.Config

	// VocabularyPath points at a YAML label vocabulary. Empty selects the
	// built-in Portuguese vocabulary.
	VocabularyPath string

	// UploadDir is where photos are stored. Defaults to "./uploads".
	UploadDir string

	// PublicBaseURL prefixes stored photo references. Defaults to
	// "http://localhost:<Port>".
	PublicBaseURL string

	// MaxUploadBytes caps request bodies. Defaults to 10 MiB.
	MaxUploadBytes int64
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or
// naming the first malformed value.
func Load() (Config, error) {
	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CORSOrigins:    splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		AdminEmails:    splitCSV(os.Getenv("ADMIN_EMAILS")),
		AuthHeader:     getEnv("AUTH_HEADER", auth.DefaultHeader),
		VocabularyPath: os.Getenv("VOCABULARY_PATH"),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		Vision: vision.Config{
			Backend:         strings.ToLower(getEnv("CLASSIFIER", vision.BackendNone)),
			GoogleAPIKey:    os.Getenv("GOOGLE_VISION_API_KEY"),
			ImaggaAPIKey:    os.Getenv("IMAGGA_API_KEY"),
			ImaggaAPISecret: os.Getenv("IMAGGA_API_SECRET"),
			ImaggaLanguage:  getEnv("IMAGGA_LANGUAGE", "pt"),
			AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
			AnthropicModel:  getEnv("ANTHROPIC_MODEL", vision.DefaultClaudeModel),
		},
	}
	cfg.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+cfg.Port), "/")

	var err error
	if cfg.AutoMigrate, err = strconv.ParseBool(getEnv("AUTO_MIGRATE", "true")); err != nil {
		return Config{}, fmt.Errorf("AUTO_MIGRATE: %w", err)
	}
	if cfg.Vision.Timeout, err = time.ParseDuration(getEnv("CLASSIFY_TIMEOUT", "10s")); err != nil {
		return Config{}, fmt.Errorf("CLASSIFY_TIMEOUT: %w", err)
	}
	if cfg.Vision.Timeout <= 0 {
		return Config{}, fmt.Errorf("CLASSIFY_TIMEOUT: must be positive")
	}
	if cfg.MaxUploadBytes, err = strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "10485760"), 10, 64); err != nil {
		return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES: must be positive")
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	switch cfg.Vision.Backend {
	case vision.BackendNone:
	case vision.BackendGoogle:
		missing = appendIfEmpty(missing, "GOOGLE_VISION_API_KEY", cfg.Vision.GoogleAPIKey)
	case vision.BackendImagga:
		missing = appendIfEmpty(missing, "IMAGGA_API_KEY", cfg.Vision.ImaggaAPIKey)
		missing = appendIfEmpty(missing, "IMAGGA_API_SECRET", cfg.Vision.ImaggaAPISecret)
	case vision.BackendClaude:
		missing = appendIfEmpty(missing, "ANTHROPIC_API_KEY", cfg.Vision.AnthropicAPIKey)
	default:
		return Config{}, fmt.Errorf("CLASSIFIER: unknown backend %q (want none, google, imagga or claude)", cfg.Vision.Backend)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func appendIfEmpty(missing []string, key, value string) []string {
	if value == "" {
		return append(missing, key)
	}
	return missing
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
