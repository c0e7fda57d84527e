// Package service contains the business logic for the lost-and-found catalog.
// Services enforce permissions, validate inputs, and orchestrate the store,
// image storage, tagging, and the live feed. No SQL lives here.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/lostfound/backend/internal/auth"
	"github.com/pkordes/lostfound/backend/internal/domain"
	"github.com/pkordes/lostfound/backend/internal/filter"
	"github.com/pkordes/lostfound/backend/internal/repo"
	"github.com/pkordes/lostfound/backend/internal/storage"
	"github.com/pkordes/lostfound/backend/internal/tagging"
	"github.com/pkordes/lostfound/backend/internal/vision"
)

// Tagger produces display tags for a photo. *tagging.Tagger satisfies it.
type Tagger interface {
	Tag(ctx context.Context, img vision.Image) []string
	Preview(ctx context.Context, img vision.Image) ([]tagging.Decision, []string)
}

var _ Tagger = (*tagging.Tagger)(nil)

// Publisher pushes the current collection to live subscribers.
// *feed.Refresher satisfies it.
type Publisher interface {
	Refresh(ctx context.Context) error
}

// Snapshotter exposes the latest published collection. *feed.Hub satisfies
// it. A nil snapshot means nothing has been published yet.
type Snapshotter interface {
	Snapshot() []domain.Item
}

// NewItem is an ingestion request. Exactly one of Image and ImageURL is used;
// Image wins when both are set.
type NewItem struct {
	Description string
	Image       *storage.Upload
	ImageURL    string
}

// Preview is the outcome of a dry-run classification.
type Preview struct {
	Decisions []tagging.Decision
	Tags      []string
}

// ItemService implements the item lifecycle.
type ItemService struct {
	repo     repo.ItemRepo
	uploader storage.Uploader
	tagger   Tagger
	authz    auth.Authorizer
	feed     Publisher
	snapshot Snapshotter
	log      *slog.Logger
}

// Deps groups ItemService collaborators. Snapshot and Log are optional.
type Deps struct {
	Repo     repo.ItemRepo
	Uploader storage.Uploader
	Tagger   Tagger
	Auth     auth.Authorizer
	Feed     Publisher
	Snapshot Snapshotter
	Log      *slog.Logger
}

// NewItemService constructs an ItemService.
func NewItemService(d Deps) *ItemService {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &ItemService{
		repo:     d.Repo,
		uploader: d.Uploader,
		tagger:   d.Tagger,
		authz:    d.Auth,
		feed:     d.Feed,
		snapshot: d.Snapshot,
		log:      log.With("component", "items"),
	}
}

// Create ingests a new item: upload, tag, store, publish. Callers that are
// not admins get domain.ErrPermission before anything happens. A failed
// classification still creates the item, with no tags.
func (s *ItemService) Create(ctx context.Context, in NewItem) (domain.Item, error) {
	if !s.authz.IsAdmin(ctx) {
		return domain.Item{}, fmt.Errorf("service.ItemService.Create: %w", domain.ErrPermission)
	}

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return domain.Item{}, fmt.Errorf("service.ItemService.Create: %w: description is required", domain.ErrValidation)
	}
	img, err := s.sourceImage(in)
	if err != nil {
		return domain.Item{}, fmt.Errorf("service.ItemService.Create: %w", err)
	}

	ref := strings.TrimSpace(in.ImageURL)
	uploaded := false
	if in.Image != nil {
		ref, err = s.uploader.Upload(ctx, *in.Image)
		if err != nil {
			return domain.Item{}, fmt.Errorf("service.ItemService.Create: %w", err)
		}
		uploaded = true
	}

	tags := s.tagger.Tag(ctx, img)

	if err := ctx.Err(); err != nil {
		s.discard(ctx, uploaded, ref)
		return domain.Item{}, fmt.Errorf("service.ItemService.Create: %w", err)
	}

	item := domain.Item{Description: desc, ImageRef: ref, Tags: tags, Status: domain.StatusActive}
	if err := item.Validate(); err != nil {
		s.discard(ctx, uploaded, ref)
		return domain.Item{}, fmt.Errorf("service.ItemService.Create: %w", err)
	}

	created, err := s.repo.Create(ctx, item)
	if err != nil {
		s.discard(ctx, uploaded, ref)
		return domain.Item{}, fmt.Errorf("service.ItemService.Create: %w", err)
	}

	s.log.InfoContext(ctx, "item created", "item_id", created.ID, "tags", len(created.Tags))
	s.publish(ctx)
	return created, nil
}

// Preview classifies a photo and reports every candidate decision without
// storing anything. Admin only.
func (s *ItemService) Preview(ctx context.Context, u storage.Upload) (Preview, error) {
	if !s.authz.IsAdmin(ctx) {
		return Preview{}, fmt.Errorf("service.ItemService.Preview: %w", domain.ErrPermission)
	}
	img, err := s.sourceImage(NewItem{Image: &u})
	if err != nil {
		return Preview{}, fmt.Errorf("service.ItemService.Preview: %w", err)
	}
	decisions, tags := s.tagger.Preview(ctx, img)
	if decisions == nil {
		decisions = []tagging.Decision{}
	}
	return Preview{Decisions: decisions, Tags: tags}, nil
}

// MarkRecovered flips an item to recovered. Admin only. Recovering an item
// twice returns it unchanged.
func (s *ItemService) MarkRecovered(ctx context.Context, id uuid.UUID) (domain.Item, error) {
	if !s.authz.IsAdmin(ctx) {
		return domain.Item{}, fmt.Errorf("service.ItemService.MarkRecovered: %w", domain.ErrPermission)
	}
	item, err := s.repo.MarkRecovered(ctx, id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("service.ItemService.MarkRecovered: %w", err)
	}
	s.log.InfoContext(ctx, "item recovered", "item_id", id)
	s.publish(ctx)
	return item, nil
}

// Delete removes an item and, best effort, its stored photo. Admin only.
// The photo stays while another item still references it.
func (s *ItemService) Delete(ctx context.Context, id uuid.UUID) error {
	if !s.authz.IsAdmin(ctx) {
		return fmt.Errorf("service.ItemService.Delete: %w", domain.ErrPermission)
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service.ItemService.Delete: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.ItemService.Delete: %w", err)
	}
	if !s.imageInUse(ctx, item) {
		s.discard(ctx, true, item.ImageRef)
	}
	s.log.InfoContext(ctx, "item deleted", "item_id", id)
	s.publish(ctx)
	return nil
}

// List returns the whole collection, newest first.
func (s *ItemService) List(ctx context.Context) ([]domain.Item, error) {
	if s.snapshot != nil {
		if items := s.snapshot.Snapshot(); items != nil {
			return items, nil
		}
	}
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ItemService.List: %w", err)
	}
	return items, nil
}

// Search filters the collection by query and status and returns the requested
// page together with the total number of matches.
func (s *ItemService) Search(ctx context.Context, query string, sel domain.StatusSelector, page domain.PaginationParams) ([]domain.Item, int, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ItemService.Search: %w", err)
	}
	visible := filter.Visible(items, query, sel)
	start, end := page.Bounds(len(visible))
	return visible[start:end], len(visible), nil
}

// sourceImage validates the photo part of a request and returns what the
// classifier should look at.
func (s *ItemService) sourceImage(in NewItem) (vision.Image, error) {
	if in.Image != nil {
		format, err := storage.Sniff(in.Image.Data)
		if err != nil {
			return vision.Image{}, err
		}
		return vision.Image{Data: in.Image.Data, MIMEType: storage.MIMEType(format)}, nil
	}
	raw := strings.TrimSpace(in.ImageURL)
	if raw == "" {
		return vision.Image{}, fmt.Errorf("%w: image is required", domain.ErrValidation)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return vision.Image{}, fmt.Errorf("%w: image_url must be an absolute http(s) URL", domain.ErrValidation)
	}
	return vision.Image{URL: raw}, nil
}

// imageInUse reports whether any item other than gone still references its
// photo. The store is consulted rather than the snapshot, which may lag. When
// the store cannot answer, the photo is treated as in use.
func (s *ItemService) imageInUse(ctx context.Context, gone domain.Item) bool {
	if gone.ImageRef == "" {
		return false
	}
	items, err := s.repo.List(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "image reference check failed, keeping image", "ref", gone.ImageRef, "error", err)
		return true
	}
	for _, it := range items {
		if it.ID != gone.ID && it.ImageRef == gone.ImageRef {
			return true
		}
	}
	return false
}

// discard removes an uploaded photo that will not be referenced by any item.
func (s *ItemService) discard(ctx context.Context, uploaded bool, ref string) {
	if !uploaded || ref == "" {
		return
	}
	if err := s.uploader.Delete(context.WithoutCancel(ctx), ref); err != nil {
		s.log.WarnContext(ctx, "image cleanup failed", "ref", ref, "error", err)
	}
}

// publish refreshes the live feed. Failures are logged; the write already happened.
func (s *ItemService) publish(ctx context.Context) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Refresh(context.WithoutCancel(ctx)); err != nil {
		s.log.WarnContext(ctx, "feed refresh failed", "error", err)
	}
}
