package domain

import (
	"math"
	"strings"
)

// Modality is the detection mode that produced a Candidate.
type Modality string

const (
	// ModalityLabel is whole-image label detection.
	ModalityLabel Modality = "label"
	// ModalityObject is localized object detection.
	ModalityObject Modality = "object"
)

// Candidate is a raw (label, confidence) pair returned by a classification
// backend, before thresholding and translation. Candidates are never persisted.
//
// Confidence is always on a 0–1 scale; adapters for backends that report
// percentages divide by 100 before handing candidates on.
type Candidate struct {
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Modality   Modality `json:"modality"`
}

// Valid reports whether the candidate carries a usable label and confidence.
// A blank label or a confidence that is NaN or outside [0,1] counts as
// "no confidence".
func (c Candidate) Valid() bool {
	if strings.TrimSpace(c.Label) == "" {
		return false
	}
	if math.IsNaN(c.Confidence) || c.Confidence < 0 || c.Confidence > 1 {
		return false
	}
	return true
}
