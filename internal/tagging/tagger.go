package tagging

import (
	"context"
	"log/slog"

	"github.com/pkordes/lostfound/backend/internal/vision"
	"github.com/pkordes/lostfound/backend/internal/vocabulary"
)

// Tagger runs classification and extraction for one image.
type Tagger struct {
	classifier vision.Classifier
	vocabulary vocabulary.Vocabulary
	log        *slog.Logger
}

// NewTagger constructs a Tagger. A nil logger selects slog.Default().
func NewTagger(c vision.Classifier, v vocabulary.Vocabulary, log *slog.Logger) *Tagger {
	if log == nil {
		log = slog.Default()
	}
	return &Tagger{classifier: c, vocabulary: v, log: log.With("component", "tagging")}
}

// Tag classifies img and returns its sorted, deduplicated tags. Classification
// failures yield an empty, non-nil slice.
func (t *Tagger) Tag(ctx context.Context, img vision.Image) []string {
	candidates := t.classifier.Classify(ctx, img)
	tags := Extract(candidates, t.vocabulary).Sorted()
	t.log.DebugContext(ctx, "image tagged", "candidates", len(candidates), "tags", len(tags))
	return tags
}

// Preview classifies img and returns the per-candidate decisions alongside the
// resulting tags, without side effects.
func (t *Tagger) Preview(ctx context.Context, img vision.Image) ([]Decision, []string) {
	candidates := t.classifier.Classify(ctx, img)
	return Explain(candidates, t.vocabulary), Extract(candidates, t.vocabulary).Sorted()
}
