// Package domain contains the core data types for the Lost & Found catalog.
// Nothing here performs I/O; repo, service, filter, and handler all build on it.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a reported item.
// Items start Active and move to Recovered exactly once.
type Status string

const (
	StatusActive    Status = "active"
	StatusRecovered Status = "recovered"
)

// Item is a single lost object reported by an administrator.
// ID and CreatedAt are assigned by the store; both are zero until persisted.
type Item struct {
	ID          uuid.UUID  `json:"id"`
	Description string     `json:"description"`
	ImageRef    string     `json:"image_ref"`
	Tags        []string   `json:"tags"` // sorted, unique display labels
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	RecoveredAt *time.Time `json:"recovered_at,omitempty"` // nil while Active
}

// Validate reports whether the item may be persisted.
// A description (non-blank) and an image reference are both required.
func (it Item) Validate() error {
	if strings.TrimSpace(it.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if strings.TrimSpace(it.ImageRef) == "" {
		return fmt.Errorf("%w: image is required", ErrValidation)
	}
	return nil
}

// IsRecovered reports whether the item has been handed back to its owner.
func (it Item) IsRecovered() bool {
	return it.Status == StatusRecovered
}

// MatchesSearch reports whether query matches the item's description or any
// of its tags. Matching is a case-insensitive substring test; an empty query
// matches everything.
func (it Item) MatchesSearch(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(it.Description), q) {
		return true
	}
	for _, tag := range it.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
