package feed

import (
	"context"
	"fmt"

	"github.com/pkordes/lostfound/backend/internal/domain"
)

// Lister loads the full item collection, newest first. repo.ItemRepo
// satisfies it.
type Lister interface {
	List(ctx context.Context) ([]domain.Item, error)
}

// Refresher reloads the collection from the store and publishes it.
type Refresher struct {
	items Lister
	hub   *Hub
}

// NewRefresher constructs a Refresher.
func NewRefresher(items Lister, hub *Hub) *Refresher {
	return &Refresher{items: items, hub: hub}
}

// Refresh loads and publishes the current collection. On error nothing is
// published and subscribers keep the previous snapshot.
func (r *Refresher) Refresh(ctx context.Context) error {
	items, err := r.items.List(ctx)
	if err != nil {
		return fmt.Errorf("feed.Refresher.Refresh: %w", err)
	}
	if items == nil {
		items = []domain.Item{}
	}
	r.hub.Publish(items)
	return nil
}
