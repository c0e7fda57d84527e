package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/lostfound/backend/internal/domain"
	"github.com/pkordes/lostfound/backend/internal/feed"
	"github.com/pkordes/lostfound/backend/internal/handler"
	"github.com/pkordes/lostfound/backend/internal/service"
	"github.com/pkordes/lostfound/backend/internal/storage"
	"github.com/pkordes/lostfound/backend/internal/tagging"
)

// ---- mock ItemServicer -----------------------------------------------------

type mockItemServicer struct {
	create        func(ctx context.Context, in service.NewItem) (domain.Item, error)
	preview       func(ctx context.Context, u storage.Upload) (service.Preview, error)
	markRecovered func(ctx context.Context, id uuid.UUID) (domain.Item, error)
	delete        func(ctx context.Context, id uuid.UUID) error
	search        func(ctx context.Context, q string, sel domain.StatusSelector, p domain.PaginationParams) ([]domain.Item, int, error)
}

func (m *mockItemServicer) Create(ctx context.Context, in service.NewItem) (domain.Item, error) {
	return m.create(ctx, in)
}
func (m *mockItemServicer) Preview(ctx context.Context, u storage.Upload) (service.Preview, error) {
	return m.preview(ctx, u)
}
func (m *mockItemServicer) MarkRecovered(ctx context.Context, id uuid.UUID) (domain.Item, error) {
	return m.markRecovered(ctx, id)
}
func (m *mockItemServicer) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}
func (m *mockItemServicer) Search(ctx context.Context, q string, sel domain.StatusSelector, p domain.PaginationParams) ([]domain.Item, int, error) {
	return m.search(ctx, q, sel, p)
}

var _ handler.ItemServicer = (*mockItemServicer)(nil)
var _ handler.ItemServicer = (*service.ItemService)(nil)

// ---- helpers ---------------------------------------------------------------

func newItemsHandler(svc handler.ItemServicer, opts handler.Options) http.Handler {
	return handler.NewServer(svc, nil, feed.NewHub(), opts).Handler()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

// multipartRequest builds a multipart POST with the given text fields and an
// optional "image" file part.
func multipartRequest(t *testing.T, target string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "photo.jpg")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func itemFixture() domain.Item {
	return domain.Item{
		ID:          uuid.New(),
		Description: "Garrafa térmica",
		ImageRef:    "http://localhost:8080/images/1_x.jpg",
		Tags:        []string{"Garrafa"},
		Status:      domain.StatusActive,
	}
}

// ---- GET /items ------------------------------------------------------------

func TestListItems_Defaults(t *testing.T) {
	var gotQ string
	var gotSel domain.StatusSelector
	var gotPage domain.PaginationParams
	svc := &mockItemServicer{
		search: func(_ context.Context, q string, sel domain.StatusSelector, p domain.PaginationParams) ([]domain.Item, int, error) {
			gotQ, gotSel, gotPage = q, sel, p
			return []domain.Item{itemFixture()}, 1, nil
		},
	}

	rec := serve(newItemsHandler(svc, handler.Options{}), httptest.NewRequest(http.MethodGet, "/items", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", gotQ)
	assert.Equal(t, domain.SelectActive, gotSel)
	assert.Equal(t, domain.PaginationParams{Page: 1, Limit: 20}, gotPage)

	var body handler.ItemPage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, handler.Pagination{Page: 1, Limit: 20, Total: 1}, body.Pagination)
}

func TestListItems_QueryParams(t *testing.T) {
	var gotQ string
	var gotSel domain.StatusSelector
	var gotPage domain.PaginationParams
	svc := &mockItemServicer{
		search: func(_ context.Context, q string, sel domain.StatusSelector, p domain.PaginationParams) ([]domain.Item, int, error) {
			gotQ, gotSel, gotPage = q, sel, p
			return []domain.Item{}, 0, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/items?q=garrafa%20azul&status=todos&page=2&limit=500", nil)
	rec := serve(newItemsHandler(svc, handler.Options{}), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "garrafa azul", gotQ)
	assert.Equal(t, domain.SelectAll, gotSel)
	assert.Equal(t, domain.PaginationParams{Page: 2, Limit: 100}, gotPage)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestListItems_InvalidParams(t *testing.T) {
	for _, target := range []string{"/items?status=lost", "/items?page=abc", "/items?limit=1.5"} {
		t.Run(target, func(t *testing.T) {
			rec := serve(newItemsHandler(&mockItemServicer{}, handler.Options{}), httptest.NewRequest(http.MethodGet, target, nil))

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, "validation_error", decodeError(t, rec).Code)
		})
	}
}

// ---- POST /items -----------------------------------------------------------

func TestCreateItem_Multipart(t *testing.T) {
	var got service.NewItem
	svc := &mockItemServicer{
		create: func(_ context.Context, in service.NewItem) (domain.Item, error) {
			got = in
			return itemFixture(), nil
		},
	}

	req := multipartRequest(t, "/items", map[string]string{"description": "Garrafa térmica"}, []byte("jpeg-bytes"))
	rec := serve(newItemsHandler(svc, handler.Options{}), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Garrafa térmica", got.Description)
	require.NotNil(t, got.Image)
	assert.Equal(t, "photo.jpg", got.Image.Filename)
	assert.Equal(t, []byte("jpeg-bytes"), got.Image.Data)

	var item domain.Item
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&item))
	assert.Equal(t, []string{"Garrafa"}, item.Tags)
}

func TestCreateItem_JSON(t *testing.T) {
	var got service.NewItem
	svc := &mockItemServicer{
		create: func(_ context.Context, in service.NewItem) (domain.Item, error) {
			got = in
			return itemFixture(), nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/items",
		strings.NewReader(`{"description":"Guarda-chuva","image_url":"https://cdn.example.com/u.jpg"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := serve(newItemsHandler(svc, handler.Options{}), req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Guarda-chuva", got.Description)
	assert.Equal(t, "https://cdn.example.com/u.jpg", got.ImageURL)
	assert.Nil(t, got.Image)
}

func TestCreateItem_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"validation", fmt.Errorf("service.ItemService.Create: %w: description is required", domain.ErrValidation), http.StatusUnprocessableEntity, "description is required"},
		{"permission", fmt.Errorf("service.ItemService.Create: %w", domain.ErrPermission), http.StatusForbidden, "forbidden"},
		{"upload", fmt.Errorf("storage.Disk.Upload: %w: disk full", domain.ErrUpload), http.StatusBadGateway, "upload_failed"},
		{"internal", fmt.Errorf("connection refused"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockItemServicer{
				create: func(context.Context, service.NewItem) (domain.Item, error) { return domain.Item{}, tc.err },
			}

			req := multipartRequest(t, "/items", map[string]string{"description": "x"}, []byte("img"))
			rec := serve(newItemsHandler(svc, handler.Options{}), req)

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}

func TestCreateItem_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"description":`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(newItemsHandler(&mockItemServicer{}, handler.Options{}), req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "malformed JSON body", decodeError(t, rec).Message)
}

func TestCreateItem_UnsupportedContentType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader("description=x"))
	req.Header.Set("Content-Type", "text/plain")
	rec := serve(newItemsHandler(&mockItemServicer{}, handler.Options{}), req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestCreateItem_ImageTooLarge(t *testing.T) {
	req := multipartRequest(t, "/items", map[string]string{"description": "x"}, bytes.Repeat([]byte("a"), 2048))
	rec := serve(newItemsHandler(&mockItemServicer{}, handler.Options{MaxUploadBytes: 1024}), req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

// ---- POST /items/preview ---------------------------------------------------

func TestPreviewItem(t *testing.T) {
	svc := &mockItemServicer{
		preview: func(_ context.Context, u storage.Upload) (service.Preview, error) {
			assert.Equal(t, []byte("img"), u.Data)
			return service.Preview{
				Decisions: []tagging.Decision{
					{Candidate: domain.Candidate{Label: "Bottle", Confidence: 0.93, Modality: domain.ModalityLabel}, Kept: true, Display: "Garrafa"},
					{Candidate: domain.Candidate{Label: "Table", Confidence: 0.5, Modality: domain.ModalityObject}, Reason: "below threshold"},
				},
				Tags: []string{"Garrafa"},
			}, nil
		},
	}

	rec := serve(newItemsHandler(svc, handler.Options{}), multipartRequest(t, "/items/preview", nil, []byte("img")))

	require.Equal(t, http.StatusOK, rec.Code)
	var body handler.PreviewResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, []string{"Garrafa"}, body.Tags)
	require.Len(t, body.Decisions, 2)
	assert.Equal(t, handler.Decision{Label: "Bottle", Confidence: 0.93, Modality: "label", Kept: true, Display: "Garrafa"}, body.Decisions[0])
	assert.Equal(t, "below threshold", body.Decisions[1].Reason)
}

func TestPreviewItem_MissingImage(t *testing.T) {
	rec := serve(newItemsHandler(&mockItemServicer{}, handler.Options{}), multipartRequest(t, "/items/preview", map[string]string{"x": "y"}, nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "image is required", decodeError(t, rec).Message)
}

// ---- POST /items/{id}/recover ----------------------------------------------

func TestRecoverItem(t *testing.T) {
	item := itemFixture()
	item.Status = domain.StatusRecovered
	svc := &mockItemServicer{
		markRecovered: func(_ context.Context, id uuid.UUID) (domain.Item, error) {
			assert.Equal(t, item.ID, id)
			return item, nil
		},
	}

	rec := serve(newItemsHandler(svc, handler.Options{}), httptest.NewRequest(http.MethodPost, "/items/"+item.ID.String()+"/recover", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"recovered"`)
}

func TestRecoverItem_InvalidID(t *testing.T) {
	rec := serve(newItemsHandler(&mockItemServicer{}, handler.Options{}), httptest.NewRequest(http.MethodPost, "/items/not-a-uuid/recover", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRecoverItem_NotFound(t *testing.T) {
	svc := &mockItemServicer{
		markRecovered: func(context.Context, uuid.UUID) (domain.Item, error) {
			return domain.Item{}, fmt.Errorf("repo.ItemRepo.GetByID: %w", domain.ErrNotFound)
		},
	}

	rec := serve(newItemsHandler(svc, handler.Options{}), httptest.NewRequest(http.MethodPost, "/items/"+uuid.NewString()+"/recover", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)
}

// ---- DELETE /items/{id} ----------------------------------------------------

func TestDeleteItem(t *testing.T) {
	id := uuid.New()
	svc := &mockItemServicer{
		delete: func(_ context.Context, got uuid.UUID) error {
			assert.Equal(t, id, got)
			return nil
		},
	}

	rec := serve(newItemsHandler(svc, handler.Options{}), httptest.NewRequest(http.MethodDelete, "/items/"+id.String(), nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestDeleteItem_Forbidden(t *testing.T) {
	svc := &mockItemServicer{
		delete: func(context.Context, uuid.UUID) error {
			return fmt.Errorf("service.ItemService.Delete: %w", domain.ErrPermission)
		},
	}

	rec := serve(newItemsHandler(svc, handler.Options{}), httptest.NewRequest(http.MethodDelete, "/items/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// ---- GET /images/* ---------------------------------------------------------

func TestImages_ServedFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_x.jpg"), []byte("jpeg"), 0o644))
	h := newItemsHandler(&mockItemServicer{}, handler.Options{ImageDir: dir})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/images/1_x.jpg", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg", rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/images/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "directory listing must be hidden")

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/images/missing.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
