package domain

import "time"

// ExportRow is a single row in the full catalog export: one row per item,
// newest first.
//
// Tags is the item's sorted tag list.
// Callers that need a joined string (e.g. CSV) should join with "|".
type ExportRow struct {
	ItemID      string
	Description string
	ImageRef    string
	Status      Status
	CreatedAt   time.Time
	RecoveredAt *time.Time
	Tags        []string
}
