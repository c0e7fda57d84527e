// Package tagging turns raw classification candidates into the deduplicated
// display-label set attached to an item.
package tagging

import (
	"strings"

	"github.com/pkordes/lostfound/backend/internal/domain"
	"github.com/pkordes/lostfound/backend/internal/vocabulary"
)

// Threshold is the confidence a candidate must strictly exceed to become a tag.
// Candidates are on a 0–1 scale, so this is the 70 % cutoff.
const Threshold = 0.70

// Extract filters, translates, and deduplicates candidates. It never fails
// and, for a fixed input and vocabulary, always yields the same set.
func Extract(candidates []domain.Candidate, v vocabulary.Vocabulary) domain.TagSet {
	tags := domain.NewTagSet()
	for _, c := range candidates {
		if display, ok := keep(c, v); ok {
			tags.Add(display)
		}
	}
	return tags
}

// keep applies the threshold and translation to one candidate.
func keep(c domain.Candidate, v vocabulary.Vocabulary) (string, bool) {
	if !c.Valid() || c.Confidence <= Threshold {
		return "", false
	}
	display := v.Translate(c.Label)
	if strings.TrimSpace(display) == "" {
		return "", false
	}
	return display, true
}

// Decision records what Extract did with a single candidate.
type Decision struct {
	Candidate domain.Candidate
	Kept      bool
	Display   string // translated label; empty when the candidate was dropped
	Reason    string // why a candidate was dropped; empty when kept
}

// Explain reports, per candidate and in input order, whether it survives
// extraction and what it translates to.
func Explain(candidates []domain.Candidate, v vocabulary.Vocabulary) []Decision {
	out := make([]Decision, 0, len(candidates))
	for _, c := range candidates {
		d := Decision{Candidate: c}
		switch {
		case !c.Valid():
			d.Reason = "no confidence"
		case c.Confidence <= Threshold:
			d.Reason = "below threshold"
		default:
			d.Display, d.Kept = keep(c, v)
			if !d.Kept {
				d.Reason = "blank translation"
			}
		}
		out = append(out, d)
	}
	return out
}
