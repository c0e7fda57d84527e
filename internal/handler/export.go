// Package handler: export.go implements GET /export.
// Returns every item as a flat table, as JSON by default or as CSV with ?format=csv.
package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/lostfound/backend/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"item_id", "description", "image_ref", "status",
	"created_at", "recovered_at", "tags",
}

// ExportRow is the JSON form of domain.ExportRow.
type ExportRow struct {
	ItemID      string     `json:"item_id"`
	Description string     `json:"description"`
	ImageRef    string     `json:"image_ref"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	RecoveredAt *time.Time `json:"recovered_at,omitempty"`
	Tags        []string   `json:"tags"`
}

// getExport handles GET /export.
func (s *Server) getExport(w http.ResponseWriter, r *http.Request) {
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid format: %v", domain.ErrValidation, err))
		return
	}
	wantCSV := false
	if format != nil {
		switch *format {
		case "csv":
			wantCSV = true
		case "json", "":
		default:
			s.writeError(w, r, fmt.Errorf("%w: format must be json or csv", domain.ErrValidation))
			return
		}
	}

	rows, err := s.export.Export(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if wantCSV {
		writeCSV(w, rows)
		return
	}
	out := make([]ExportRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, domainRowToJSON(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// writeCSV encodes rows as CSV. Tags within a row are pipe-separated ("|") to
// keep each item on a single CSV line.
func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, row := range rows {
		//nolint:errcheck
		cw.Write(domainRowToCSVRecord(row))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="items.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func domainRowToJSON(r domain.ExportRow) ExportRow {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return ExportRow{
		ItemID:      r.ItemID,
		Description: r.Description,
		ImageRef:    r.ImageRef,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		RecoveredAt: r.RecoveredAt,
		Tags:        tags,
	}
}

// domainRowToCSVRecord encodes a domain.ExportRow as a flat string slice.
// A nil RecoveredAt is encoded as an empty string.
func domainRowToCSVRecord(r domain.ExportRow) []string {
	return []string{
		r.ItemID,
		r.Description,
		r.ImageRef,
		string(r.Status),
		r.CreatedAt.UTC().Format(time.RFC3339),
		formatOptionalTime(r.RecoveredAt),
		strings.Join(r.Tags, "|"),
	}
}

// formatOptionalTime returns the RFC3339 representation of t, or "" if t is nil.
func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
