package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stitchline/atelier-api/internal/models"
)

// RosterRepository maintains the production-head roster and the round-robin
// cursor. The cursor row is locked for the duration of each pick so two
// concurrent assignments can never land on the same head.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// AddHead appends a production head at the end of the roster.
func (r *RosterRepository) AddHead(ctx context.Context, head *models.ProductionHead) error {
	if head.ID == "" {
		head.ID = uuid.NewString()
	}
	if head.CreatedAt.IsZero() {
		head.CreatedAt = time.Now().UTC()
	}
	head.Active = true
	const query = `INSERT INTO production_heads (id, user_id, full_name, position, active, created_at)
	VALUES (:id, :user_id, :full_name,
	  (SELECT COALESCE(MAX(position), -1) + 1 FROM production_heads),
	  :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, head); err != nil {
		return fmt.Errorf("add production head: %w", err)
	}
	return nil
}

// ListHeads returns the active roster in rotation order.
func (r *RosterRepository) ListHeads(ctx context.Context) ([]models.ProductionHead, error) {
	const query = `SELECT id, user_id, full_name, position, active, created_at
	FROM production_heads WHERE active ORDER BY position`
	var heads []models.ProductionHead
	if err := r.db.SelectContext(ctx, &heads, query); err != nil {
		return nil, fmt.Errorf("list production heads: %w", err)
	}
	return heads, nil
}

// NextHead picks the head under the cursor and advances the cursor by one,
// wrapping cyclically. Strict rotation, no load awareness.
func (r *RosterRepository) NextHead(ctx context.Context) (*models.ProductionHead, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin next head: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var cursor int
	if err := tx.GetContext(ctx, &cursor,
		`SELECT position FROM assignment_cursor WHERE id = 1 FOR UPDATE`); err != nil {
		return nil, fmt.Errorf("lock assignment cursor: %w", err)
	}

	var heads []models.ProductionHead
	if err := tx.SelectContext(ctx, &heads,
		`SELECT id, user_id, full_name, position, active, created_at
		 FROM production_heads WHERE active ORDER BY position`); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	if len(heads) == 0 {
		return nil, sql.ErrNoRows
	}

	head := heads[cursor%len(heads)]
	next := (cursor + 1) % len(heads)

	if _, err := tx.ExecContext(ctx,
		`UPDATE assignment_cursor SET position = $1, updated_at = $2 WHERE id = 1`,
		next, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("advance assignment cursor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit next head: %w", err)
	}
	return &head, nil
}
