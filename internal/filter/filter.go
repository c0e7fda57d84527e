// Package filter projects the visible subset of the live item collection for
// a free-text query and a status selector.
//
// The projection is always recomputed in full from the current inputs. Input
// snapshots are treated as immutable: nothing here writes to a slice it was
// given.
package filter

import (
	"slices"
	"sync"

	"github.com/pkordes/lostfound/backend/internal/domain"
)

// Visible returns the items that match both query and sel, in input order.
// The result is a new slice and never nil.
func Visible(items []domain.Item, query string, sel domain.StatusSelector) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if sel.Includes(it.Status) && it.MatchesSearch(query) {
			out = append(out, it)
		}
	}
	return out
}

// Subscriber is a live feed of full item snapshots. feed.Hub satisfies it.
type Subscriber interface {
	Subscribe(fn func([]domain.Item)) (unsubscribe func())
}

// Engine holds the current query, selector, and item snapshot, and re-derives
// the visible items whenever any of them changes. It is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	items    []domain.Item
	query    string
	selector domain.StatusSelector
	visible  []domain.Item
	onChange func([]domain.Item)
}

// NewEngine returns an Engine with an empty query and the default selector.
// onChange, if non-nil, is called with every recomputed projection. It runs
// while the engine's lock is held, so it must not call back into the Engine.
func NewEngine(onChange func([]domain.Item)) *Engine {
	return &Engine{
		selector: domain.DefaultSelector,
		visible:  []domain.Item{},
		onChange: onChange,
	}
}

// Attach feeds every snapshot published by sub into the engine. The returned
// function stops the subscription.
func (e *Engine) Attach(sub Subscriber) (detach func()) {
	return sub.Subscribe(e.SetItems)
}

// SetItems replaces the item snapshot.
func (e *Engine) SetItems(items []domain.Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = items
	e.recompute()
}

// SetQuery replaces the free-text query.
func (e *Engine) SetQuery(q string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.query = q
	e.recompute()
}

// SetSelector replaces the status selector.
func (e *Engine) SetSelector(sel domain.StatusSelector) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selector = sel
	e.recompute()
}

// Clear resets the query to empty and the selector to the default.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.query = ""
	e.selector = domain.DefaultSelector
	e.recompute()
}

// Visible returns a copy of the current projection. Item tag slices are
// shared with the engine and must not be modified.
func (e *Engine) Visible() []domain.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.visible)
}

// Query returns the current query text.
func (e *Engine) Query() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query
}

// Selector returns the current status selector.
func (e *Engine) Selector() domain.StatusSelector {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selector
}

// recompute must be called with e.mu held.
func (e *Engine) recompute() {
	e.visible = Visible(e.items, e.query, e.selector)
	if e.onChange != nil {
		e.onChange(e.visible)
	}
}
