package vision

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
)

// Backend names accepted by New.
const (
	BackendNone   = "none"
	BackendGoogle = "google"
	BackendImagga = "imagga"
	BackendClaude = "claude"
)

// Config selects and configures one classification backend.
type Config struct {
	Backend string
	Timeout time.Duration

	GoogleAPIKey string

	ImaggaAPIKey    string
	ImaggaAPISecret string
	ImaggaLanguage  string

	AnthropicAPIKey string
	AnthropicModel  string

	// BaseURL overrides the backend endpoint. Empty selects the provider default.
	BaseURL string
}

// New builds the Adapter for cfg.Backend. An empty backend name is treated as
// BackendNone. The adapter's HTTP client carries the same timeout as the
// per-call context so a stalled connection cannot outlive a call.
func New(cfg Config, log *slog.Logger) (*Adapter, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	var d Detector
	switch cfg.Backend {
	case "", BackendNone:
		return NewAdapter(BackendNone, nil, timeout, log), nil
	case BackendGoogle:
		d = NewGoogleVision(cfg.GoogleAPIKey, cfg.BaseURL, client)
	case BackendImagga:
		d = NewImagga(cfg.ImaggaAPIKey, cfg.ImaggaAPISecret, cfg.ImaggaLanguage, cfg.BaseURL, client)
	case BackendClaude:
		var opts []option.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		d = NewClaude(cfg.AnthropicAPIKey, cfg.AnthropicModel, client, opts...)
	default:
		return nil, fmt.Errorf("vision.New: unknown backend %q", cfg.Backend)
	}
	return NewAdapter(cfg.Backend, d, timeout, log), nil
}
