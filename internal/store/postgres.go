// Package store persists announcements and enforces the external-ID
// uniqueness invariant.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"bidwatch/internal/model"
)

// BidStore is the persistence seam used by the pipeline and the HTTP API.
type BidStore interface {
	// InsertIfAbsent writes the bid unless a row with the same external ID
	// already exists. The duplicate case is a successful no-op returning
	// false; only infrastructure failures are errors.
	InsertIfAbsent(ctx context.Context, bid model.Bid) (inserted bool, err error)

	// ListAll returns every stored bid, newest first.
	ListAll(ctx context.Context) ([]model.Bid, error)

	// ToggleFavorite flips is_favorite on a bid. Unknown IDs are a no-op.
	ToggleFavorite(ctx context.Context, id int64) error
}

// PostgresStore implements BidStore on a pgx connection pool. Uniqueness is
// enforced by the external_id unique constraint, so concurrent writers are
// safe regardless of any serialization upstream.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the bids table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bids (
			id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			external_id TEXT NOT NULL UNIQUE,
			title       TEXT NOT NULL,
			agency      TEXT NOT NULL DEFAULT '',
			price       TEXT NOT NULL DEFAULT '',
			closing_at  TEXT NOT NULL DEFAULT '',
			detail_link TEXT NOT NULL DEFAULT '',
			is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
			status      TEXT NOT NULL DEFAULT 'NEW',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create bids table: %w", err)
	}
	return nil
}

// InsertIfAbsent relies on ON CONFLICT DO NOTHING so a losing concurrent
// writer sees zero rows affected instead of a unique-violation error. The
// existing row — including is_favorite and status — is left untouched.
func (s *PostgresStore) InsertIfAbsent(ctx context.Context, bid model.Bid) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO bids (external_id, title, agency, price, closing_at, detail_link, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (external_id) DO NOTHING`,
		bid.ExternalID, bid.Title, bid.Agency, bid.Price, bid.ClosingAt, bid.DetailLink, string(bid.Status),
	)
	if err != nil {
		return false, fmt.Errorf("insert bid %s: %w", bid.ExternalID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListAll returns stored bids ordered by creation time, newest first.
func (s *PostgresStore) ListAll(ctx context.Context) ([]model.Bid, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, external_id, title, agency, price, closing_at, detail_link,
		        is_favorite, status, created_at
		 FROM bids
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	bids := make([]model.Bid, 0)
	for rows.Next() {
		var (
			b      model.Bid
			status string
		)
		if err := rows.Scan(
			&b.ID, &b.ExternalID, &b.Title, &b.Agency, &b.Price,
			&b.ClosingAt, &b.DetailLink, &b.IsFavorite, &status, &b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		b.Status = model.Status(status)
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

// ToggleFavorite flips the flag in place. A missing ID affects zero rows and
// is not an error.
func (s *PostgresStore) ToggleFavorite(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE bids SET is_favorite = NOT is_favorite WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("toggle favorite %d: %w", id, err)
	}
	return nil
}
