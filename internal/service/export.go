package service

import (
	"context"
	"fmt"

	"github.com/pkordes/lostfound/backend/internal/domain"
)

// Export returns one row per item, newest first, with tags sorted.
func (s *ItemService) Export(ctx context.Context) ([]domain.ExportRow, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ItemService.Export: %w", err)
	}

	rows := make([]domain.ExportRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, domain.ExportRow{
			ItemID:      it.ID.String(),
			Description: it.Description,
			ImageRef:    it.ImageRef,
			Status:      it.Status,
			CreatedAt:   it.CreatedAt,
			RecoveredAt: it.RecoveredAt,
			Tags:        domain.NewTagSet(it.Tags...).Sorted(),
		})
	}
	return rows, nil
}
