package service_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/lostfound/backend/internal/auth"
	"github.com/pkordes/lostfound/backend/internal/domain"
	"github.com/pkordes/lostfound/backend/internal/repo"
	"github.com/pkordes/lostfound/backend/internal/service"
	"github.com/pkordes/lostfound/backend/internal/storage"
	"github.com/pkordes/lostfound/backend/internal/tagging"
	"github.com/pkordes/lostfound/backend/internal/vision"
)

// mockItemRepo is a hand-written test double for repo.ItemRepo.
// Each method is a function field; set only the ones your test needs.
// Unset fields fail the test if called.
type mockItemRepo struct {
	t             *testing.T
	create        func(ctx context.Context, item domain.Item) (domain.Item, error)
	getByID       func(ctx context.Context, id uuid.UUID) (domain.Item, error)
	list          func(ctx context.Context) ([]domain.Item, error)
	markRecovered func(ctx context.Context, id uuid.UUID) (domain.Item, error)
	delete        func(ctx context.Context, id uuid.UUID) error
}

func (m *mockItemRepo) Create(ctx context.Context, item domain.Item) (domain.Item, error) {
	if m.create == nil {
		m.t.Fatal("unexpected repo.Create")
	}
	return m.create(ctx, item)
}
func (m *mockItemRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Item, error) {
	if m.getByID == nil {
		m.t.Fatal("unexpected repo.GetByID")
	}
	return m.getByID(ctx, id)
}
func (m *mockItemRepo) List(ctx context.Context) ([]domain.Item, error) {
	if m.list == nil {
		m.t.Fatal("unexpected repo.List")
	}
	return m.list(ctx)
}
func (m *mockItemRepo) MarkRecovered(ctx context.Context, id uuid.UUID) (domain.Item, error) {
	if m.markRecovered == nil {
		m.t.Fatal("unexpected repo.MarkRecovered")
	}
	return m.markRecovered(ctx, id)
}
func (m *mockItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.delete == nil {
		m.t.Fatal("unexpected repo.Delete")
	}
	return m.delete(ctx, id)
}

var _ repo.ItemRepo = (*mockItemRepo)(nil)

// mockUploader records uploads and deletions.
type mockUploader struct {
	upload  func(ctx context.Context, u storage.Upload) (string, error)
	deleted []string
}

func (m *mockUploader) Upload(ctx context.Context, u storage.Upload) (string, error) {
	return m.upload(ctx, u)
}
func (m *mockUploader) Delete(_ context.Context, ref string) error {
	m.deleted = append(m.deleted, ref)
	return nil
}

var _ storage.Uploader = (*mockUploader)(nil)

type mockTagger struct {
	calls   int
	tag     func(ctx context.Context, img vision.Image) []string
	preview func(ctx context.Context, img vision.Image) ([]tagging.Decision, []string)
}

func (m *mockTagger) Tag(ctx context.Context, img vision.Image) []string {
	m.calls++
	return m.tag(ctx, img)
}
func (m *mockTagger) Preview(ctx context.Context, img vision.Image) ([]tagging.Decision, []string) {
	m.calls++
	return m.preview(ctx, img)
}

var _ service.Tagger = (*mockTagger)(nil)

type mockPublisher struct {
	refreshes int
	err       error
}

func (m *mockPublisher) Refresh(context.Context) error {
	m.refreshes++
	return m.err
}

var _ service.Publisher = (*mockPublisher)(nil)

type staticAuth bool

func (a staticAuth) IsAdmin(context.Context) bool { return bool(a) }

var _ auth.Authorizer = staticAuth(false)

type staticSnapshot []domain.Item

func (s staticSnapshot) Snapshot() []domain.Item { return s }

// ---- helpers ---------------------------------------------------------------

func pngUpload(t *testing.T) *storage.Upload {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	return &storage.Upload{Filename: "bag.png", ContentType: "image/png", Data: buf.Bytes()}
}

func echoRepo(t *testing.T) *mockItemRepo {
	return &mockItemRepo{
		t: t,
		create: func(_ context.Context, it domain.Item) (domain.Item, error) {
			it.ID = uuid.New()
			return it, nil
		},
	}
}

func fixedTagger(tags ...string) *mockTagger {
	return &mockTagger{tag: func(context.Context, vision.Image) []string { return tags }}
}

type fixture struct {
	repo     *mockItemRepo
	uploader *mockUploader
	tagger   *mockTagger
	feed     *mockPublisher
	admin    bool
	snapshot service.Snapshotter
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		repo: echoRepo(t),
		uploader: &mockUploader{upload: func(context.Context, storage.Upload) (string, error) {
			return "http://localhost:8080/images/1_bag.png", nil
		}},
		tagger: fixedTagger("Bolsa"),
		feed:   &mockPublisher{},
		admin:  true,
	}
}

func (f *fixture) service() *service.ItemService {
	return service.NewItemService(service.Deps{
		Repo:     f.repo,
		Uploader: f.uploader,
		Tagger:   f.tagger,
		Auth:     staticAuth(f.admin),
		Feed:     f.feed,
		Snapshot: f.snapshot,
	})
}
