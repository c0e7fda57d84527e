// Package handler implements the HTTP surface of the catalog API on a chi
// router. All handlers are methods on Server; they are split into
// domain-specific files (health.go, items.go, stream.go, export.go) but share
// its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/lostfound/backend/internal/domain"
	"github.com/pkordes/lostfound/backend/internal/filter"
	"github.com/pkordes/lostfound/backend/internal/service"
	"github.com/pkordes/lostfound/backend/internal/storage"
)

// ItemServicer defines the business operations the item handlers depend on.
// *service.ItemService satisfies it.
type ItemServicer interface {
	Create(ctx context.Context, in service.NewItem) (domain.Item, error)
	Preview(ctx context.Context, u storage.Upload) (service.Preview, error)
	MarkRecovered(ctx context.Context, id uuid.UUID) (domain.Item, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, sel domain.StatusSelector, page domain.PaginationParams) ([]domain.Item, int, error)
}

// ExportServicer produces the flat catalog export.
type ExportServicer interface {
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// DefaultMaxUploadBytes caps photo uploads when Options.MaxUploadBytes is zero.
const DefaultMaxUploadBytes = 10 << 20

// DefaultHeartbeat is the interval between keep-alive comments on event streams.
const DefaultHeartbeat = 15 * time.Second

// Options configures optional Server behaviour.
type Options struct {
	// ImageDir is served under /images/. Empty disables the route.
	ImageDir       string
	MaxUploadBytes int64
	Heartbeat      time.Duration
	Log            *slog.Logger
}

// Server holds the dependencies shared by every handler.
type Server struct {
	items     ItemServicer
	export    ExportServicer
	feed      filter.Subscriber
	imageDir  string
	maxUpload int64
	heartbeat time.Duration
	log       *slog.Logger

	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer constructs the Server with all its dependencies.
func NewServer(items ItemServicer, export ExportServicer, feed filter.Subscriber, opts Options) *Server {
	s := &Server{
		items:     items,
		export:    export,
		feed:      feed,
		imageDir:  opts.ImageDir,
		maxUpload: opts.MaxUploadBytes,
		heartbeat: opts.Heartbeat,
		log:       opts.Log,
		closing:   make(chan struct{}),
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	if s.heartbeat <= 0 {
		s.heartbeat = DefaultHeartbeat
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Handler returns the router for every API route. Cross-cutting middleware
// (request IDs, logging, CORS, auth) is applied by the caller.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.getHealth)
	r.Get("/openapi.yaml", s.getOpenAPI)

	r.Route("/items", func(r chi.Router) {
		r.Get("/", s.listItems)
		r.Post("/", s.createItem)
		r.Post("/preview", s.previewItem)
		r.Get("/stream", s.streamItems)
		r.Post("/{id}/recover", s.recoverItem)
		r.Delete("/{id}", s.deleteItem)
	})

	r.Get("/export", s.getExport)

	if s.imageDir != "" {
		r.Handle(storage.ImagePath+"*", http.StripPrefix(storage.ImagePath, noListing(http.FileServer(http.Dir(s.imageDir)))))
	}
	return r
}

// CloseStreams ends every open event stream. Register it with
// http.Server.RegisterOnShutdown so Shutdown does not wait on them.
func (s *Server) CloseStreams() {
	s.closeOnce.Do(func() { close(s.closing) })
}

// noListing hides directory indexes from the image file server.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
