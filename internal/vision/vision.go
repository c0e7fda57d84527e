package vision

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pkordes/lostfound/backend/internal/domain"
)

// DefaultTimeout bounds a single classification call when none is configured.
const DefaultTimeout = 10 * time.Second

// Image is the photo handed to a backend: either a publicly dereferenceable
// URL or the raw bytes. Exactly one of URL and Data must be set.
type Image struct {
	URL      string
	Data     []byte
	MIMEType string // e.g. "image/jpeg"; used only with Data
}

// errInvalidImage is returned by Image.validate.
var errInvalidImage = errors.New("exactly one of URL and Data must be set")

func (img Image) validate() error {
	hasURL, hasData := img.URL != "", len(img.Data) > 0
	if hasURL == hasData {
		return errInvalidImage
	}
	return nil
}

// Classifier turns one image into raw candidates. Implementations must not
// fail: any error yields an empty slice.
type Classifier interface {
	Classify(ctx context.Context, img Image) []domain.Candidate
}

// Detector is a backend call that may fail. Adapter turns a Detector into a
// Classifier.
type Detector interface {
	Detect(ctx context.Context, img Image) ([]domain.Candidate, error)
}

// localizer is implemented by detectors whose labels are already in the
// display language.
type localizer interface {
	Localized() bool
}

// Adapter wraps a Detector with a timeout and the fail-soft error policy.
// A nil Detector classifies every image as having no candidates.
type Adapter struct {
	name     string
	detector Detector
	timeout  time.Duration
	log      *slog.Logger
}

// NewAdapter constructs an Adapter. A timeout <= 0 selects DefaultTimeout and
// a nil logger selects slog.Default().
func NewAdapter(name string, d Detector, timeout time.Duration, log *slog.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		name:     name,
		detector: d,
		timeout:  timeout,
		log:      log.With("component", "vision", "backend", name),
	}
}

// Name returns the configured backend name.
func (a *Adapter) Name() string {
	return a.name
}

// Localized reports whether the backend returns display-language labels, in
// which case the identity vocabulary should be paired with it.
func (a *Adapter) Localized() bool {
	l, ok := a.detector.(localizer)
	return ok && l.Localized()
}

// Classify runs one detection attempt bounded by the adapter timeout.
func (a *Adapter) Classify(ctx context.Context, img Image) []domain.Candidate {
	if a.detector == nil {
		return nil
	}
	if err := img.validate(); err != nil {
		a.log.WarnContext(ctx, "classification skipped", "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	candidates, err := a.detector.Detect(ctx, img)
	if err != nil {
		a.log.WarnContext(ctx, "classification failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}
	a.log.DebugContext(ctx, "classification complete",
		"candidates", len(candidates),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return candidates
}
