// Package main is the entry point for the lost-and-found catalog API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pkordes/lostfound/backend/internal/auth"
	"github.com/pkordes/lostfound/backend/internal/config"
	"github.com/pkordes/lostfound/backend/internal/feed"
	"github.com/pkordes/lostfound/backend/internal/handler"
	"github.com/pkordes/lostfound/backend/internal/middleware"
	"github.com/pkordes/lostfound/backend/internal/repo"
	"github.com/pkordes/lostfound/backend/internal/service"
	"github.com/pkordes/lostfound/backend/internal/storage"
	"github.com/pkordes/lostfound/backend/internal/tagging"
	"github.com/pkordes/lostfound/backend/internal/vision"
	"github.com/pkordes/lostfound/backend/internal/vocabulary"
	"github.com/pkordes/lostfound/backend/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if cfg.AutoMigrate {
		if err := migrate(ctx, pool); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	// --- Tagging pipeline -------------------------------------------------
	classifier, err := vision.New(cfg.Vision, logger)
	if err != nil {
		slog.Error("failed to configure classifier", "error", err)
		os.Exit(1)
	}
	vocab, err := vocabulary.Select(cfg.VocabularyPath, classifier.Localized())
	if err != nil {
		slog.Error("failed to load vocabulary", "error", err)
		os.Exit(1)
	}
	tagger := tagging.NewTagger(classifier, vocab, logger)
	slog.Info("classifier configured", "backend", classifier.Name(), "timeout", cfg.Vision.Timeout.String())

	// --- Storage, feed, services -----------------------------------------
	uploads, err := storage.NewDisk(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		slog.Error("failed to prepare upload directory", "error", err)
		os.Exit(1)
	}

	items := repo.NewItemRepo(pool)
	hub := feed.NewHub()
	refresher := feed.NewRefresher(items, hub)
	if err := refresher.Refresh(ctx); err != nil {
		slog.Error("failed to load items", "error", err)
		os.Exit(1)
	}
	listener := feed.NewListener(pool, refresher, logger)
	go func() {
		if err := listener.Run(ctx); err != nil {
			slog.Error("feed listener stopped", "error", err)
		}
	}()

	admins := auth.NewAllowlist(cfg.AdminEmails)
	if admins.Len() == 0 {
		slog.Warn("ADMIN_EMAILS is empty; the catalog is read-only")
	}

	itemService := service.NewItemService(service.Deps{
		Repo:     items,
		Uploader: uploads,
		Tagger:   tagger,
		Auth:     admins,
		Feed:     refresher,
		Snapshot: hub,
		Log:      logger,
	})

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Auth → Logger →
	// Recoverer → CORS → body limit.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(auth.Middleware(cfg.AuthHeader))
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxUploadBytes))

	server := handler.NewServer(itemService, itemService, hub, handler.Options{
		ImageDir:       uploads.Dir(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		Log:            logger,
	})
	r.Mount("/", server.Handler())

	// --- HTTP Server ------------------------------------------------------
	// The event stream clears its own write deadline.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	// Event streams never go idle; end them when shutdown starts.
	srv.RegisterOnShutdown(server.CloseStreams)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// migrate applies every pending migration through a database/sql view of pool.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, res := range results {
		slog.Info("migration applied", "version", res.Source.Version, "duration_ms", res.Duration.Milliseconds())
	}
	return nil
}
