package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/lostfound/backend/internal/domain"
	"github.com/pkordes/lostfound/backend/internal/service"
	"github.com/pkordes/lostfound/backend/internal/storage"
)

// Pagination describes the page returned by GET /items.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// ItemPage is the body of GET /items.
type ItemPage struct {
	Data       []domain.Item `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// Decision is one candidate in a preview response.
type Decision struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Modality   string  `json:"modality"`
	Kept       bool    `json:"kept"`
	Display    string  `json:"display,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// PreviewResponse is the body of POST /items/preview.
type PreviewResponse struct {
	Decisions []Decision `json:"decisions"`
	Tags      []string   `json:"tags"`
}

// createItemJSON is the JSON form of POST /items.
type createItemJSON struct {
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// listItems handles GET /items.
// Supports ?q=, ?status=, ?page= and ?limit= (defaults: active, page=1, limit=20, max=100).
func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	query, sel, err := filterParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var page, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &page); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid page: %v", domain.ErrValidation, err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid limit: %v", domain.ErrValidation, err))
		return
	}
	params := domain.NewPaginationParams(page, limit)

	items, total, err := s.items.Search(r.Context(), query, sel, params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemPage{
		Data:       items,
		Pagination: Pagination{Page: params.Page, Limit: params.Limit, Total: total},
	})
}

// createItem handles POST /items. Photos arrive either as a multipart upload
// or, in a JSON body, as a URL.
func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeNewItem(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.items.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// previewItem handles POST /items/preview.
func (s *Server) previewItem(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	upload, err := s.readUpload(r, "image")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if upload == nil {
		s.writeError(w, r, fmt.Errorf("%w: image is required", domain.ErrValidation))
		return
	}

	p, err := s.items.Preview(r.Context(), *upload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := PreviewResponse{Decisions: make([]Decision, len(p.Decisions)), Tags: p.Tags}
	for i, d := range p.Decisions {
		resp.Decisions[i] = Decision{
			Label:      d.Candidate.Label,
			Confidence: d.Candidate.Confidence,
			Modality:   string(d.Candidate.Modality),
			Kept:       d.Kept,
			Display:    d.Display,
			Reason:     d.Reason,
		}
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// recoverItem handles POST /items/{id}/recover.
func (s *Server) recoverItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.items.MarkRecovered(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// deleteItem handles DELETE /items/{id}.
func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.items.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- request decoding -------------------------------------------------------

// filterParams binds ?q= and ?status= shared by the list and stream routes.
func filterParams(r *http.Request) (string, domain.StatusSelector, error) {
	var q, status *string
	if err := runtime.BindQueryParameter("form", true, false, "q", r.URL.Query(), &q); err != nil {
		return "", "", fmt.Errorf("%w: invalid q: %v", domain.ErrValidation, err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "status", r.URL.Query(), &status); err != nil {
		return "", "", fmt.Errorf("%w: invalid status: %v", domain.ErrValidation, err)
	}
	var query, raw string
	if q != nil {
		query = *q
	}
	if status != nil {
		raw = *status
	}
	sel, err := domain.ParseStatusSelector(raw)
	if err != nil {
		return "", "", err
	}
	return query, sel, nil
}

// pathID binds the {id} path parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid item id", domain.ErrValidation)
	}
	return id, nil
}

// decodeNewItem reads a create request in either of its two encodings.
func (s *Server) decodeNewItem(r *http.Request) (service.NewItem, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return service.NewItem{}, fmt.Errorf("%w: missing or malformed Content-Type", errUnsupportedMedia)
	}

	switch mediaType {
	case "multipart/form-data":
		if err := s.parseMultipart(r); err != nil {
			return service.NewItem{}, err
		}
		defer r.MultipartForm.RemoveAll()

		upload, err := s.readUpload(r, "image")
		if err != nil {
			return service.NewItem{}, err
		}
		return service.NewItem{
			Description: r.FormValue("description"),
			Image:       upload,
			ImageURL:    r.FormValue("image_url"),
		}, nil

	case "application/json":
		var body createItemJSON
		if err := json.NewDecoder(io.LimitReader(r.Body, s.maxUpload)).Decode(&body); err != nil {
			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				return service.NewItem{}, err
			}
			return service.NewItem{}, fmt.Errorf("%w: malformed JSON body", domain.ErrValidation)
		}
		return service.NewItem{Description: body.Description, ImageURL: body.ImageURL}, nil

	default:
		return service.NewItem{}, fmt.Errorf("%w: %s", errUnsupportedMedia, mediaType)
	}
}

// parseMultipart parses a multipart body, spilling files past maxUpload to disk.
func (s *Server) parseMultipart(r *http.Request) error {
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: malformed multipart body", domain.ErrValidation)
	}
	return nil
}

// readUpload reads the named file part. A missing part yields nil, nil.
func (s *Server) readUpload(r *http.Request, field string) (*storage.Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable %s part", domain.ErrValidation, field)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("handler.readUpload: %w", err)
	}
	if int64(len(data)) > s.maxUpload {
		return nil, errTooLarge
	}
	return &storage.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
