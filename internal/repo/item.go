// Package repo contains all database access logic for the lost-and-found catalog.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/lostfound/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ItemRepo defines the persistence operations for catalog items.
type ItemRepo interface {
	// Create inserts a new active item and returns the persisted record with
	// DB-generated id and created_at populated.
	Create(ctx context.Context, item domain.Item) (domain.Item, error)

	// GetByID returns domain.ErrNotFound if no item with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Item, error)

	// List returns all items, newest first.
	List(ctx context.Context) ([]domain.Item, error)

	// MarkRecovered flips an active item to recovered. An item that is already
	// recovered is returned unchanged. Returns domain.ErrNotFound if absent.
	MarkRecovered(ctx context.Context, id uuid.UUID) (domain.Item, error)

	// Delete removes an item by ID. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgItemRepo struct {
	db db
}

// NewItemRepo constructs an ItemRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewItemRepo(db db) ItemRepo {
	return &pgItemRepo{db: db}
}

const itemColumns = `id, description, image_ref, tags, status, created_at, recovered_at`

func (r *pgItemRepo) Create(ctx context.Context, item domain.Item) (domain.Item, error) {
	const q = `
		INSERT INTO items (description, image_ref, tags)
		VALUES (@description, @image_ref, @tags)
		RETURNING ` + itemColumns

	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	args := pgx.NamedArgs{
		"description": item.Description,
		"image_ref":   item.ImageRef,
		"tags":        tags,
	}

	result, err := scanItem(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Item{}, fmt.Errorf("repo.ItemRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgItemRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Item, error) {
	const q = `SELECT ` + itemColumns + ` FROM items WHERE id = @id`

	result, err := scanItem(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Item{}, fmt.Errorf("repo.ItemRepo.GetByID: %w", err)
	}
	return result, nil
}

// List orders by created_at with id as a tiebreaker so the order is stable
// for rows inserted in the same transaction.
func (r *pgItemRepo) List(ctx context.Context) ([]domain.Item, error) {
	const q = `SELECT ` + itemColumns + ` FROM items ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.ItemRepo.List: %w", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ItemRepo.List: scan: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ItemRepo.List: rows: %w", err)
	}
	return items, nil
}

func (r *pgItemRepo) MarkRecovered(ctx context.Context, id uuid.UUID) (domain.Item, error) {
	const q = `
		UPDATE items
		SET status       = 'recovered',
		    recovered_at = now()
		WHERE id = @id AND status = 'active'
		RETURNING ` + itemColumns

	result, err := scanItem(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if errors.Is(err, domain.ErrNotFound) {
		// Either absent or already recovered; GetByID tells them apart.
		return r.GetByID(ctx, id)
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("repo.ItemRepo.MarkRecovered: %w", err)
	}
	return result, nil
}

func (r *pgItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM items WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.ItemRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ItemRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (domain.Item, error) {
	var (
		it          domain.Item
		id          pgtype.UUID
		status      string
		recoveredAt pgtype.Timestamptz
	)

	err := s.Scan(&id, &it.Description, &it.ImageRef, &it.Tags, &status, &it.CreatedAt, &recoveredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Item{}, domain.ErrNotFound
		}
		return domain.Item{}, err
	}

	it.ID = uuid.UUID(id.Bytes)
	it.Status = domain.Status(status)
	if it.Tags == nil {
		it.Tags = []string{}
	}
	if recoveredAt.Valid {
		t := recoveredAt.Time
		it.RecoveredAt = &t
	}
	return it, nil
}
