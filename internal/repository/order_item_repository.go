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

// OrderItemRepository persists order items and their section states.
type OrderItemRepository struct {
	db *sqlx.DB
}

// NewOrderItemRepository constructs the repository.
func NewOrderItemRepository(db *sqlx.DB) *OrderItemRepository {
	return &OrderItemRepository{db: db}
}

const orderItemColumns = `id, order_id, product_id, product_name, size_code, status,
       total_amount, production_head_id, due_date, created_at, updated_at`

const sectionColumns = `id, order_item_id, name, status, current_round,
       qa_video_ref, video_uploaded_at, created_at, updated_at`

// Create inserts an order item with its sections in one transaction.
func (r *OrderItemRepository) Create(ctx context.Context, item *models.OrderItem, sections []models.SectionState) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Status == "" {
		item.Status = models.OrderStatusPendingInventoryCheck
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create order item: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertItem = `INSERT INTO order_items
	(id, order_id, product_id, product_name, size_code, status, total_amount, production_head_id, due_date, created_at, updated_at)
	VALUES (:id, :order_id, :product_id, :product_name, :size_code, :status, :total_amount, :production_head_id, :due_date, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertItem, item); err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}

	const insertSection = `INSERT INTO order_item_sections
	(id, order_item_id, name, status, current_round, qa_video_ref, video_uploaded_at, created_at, updated_at)
	VALUES (:id, :order_item_id, :name, :status, :current_round, :qa_video_ref, :video_uploaded_at, :created_at, :updated_at)`
	for i := range sections {
		if sections[i].ID == "" {
			sections[i].ID = uuid.NewString()
		}
		sections[i].OrderItemID = item.ID
		if sections[i].Status == "" {
			sections[i].Status = models.SectionStatusPendingMaterials
		}
		if sections[i].CurrentRound == 0 {
			sections[i].CurrentRound = 1
		}
		sections[i].CreatedAt = now
		sections[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, insertSection, &sections[i]); err != nil {
			return fmt.Errorf("insert section: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create order item: %w", err)
	}
	item.Sections = sections
	return nil
}

// GetByID fetches an order item with its sections.
func (r *OrderItemRepository) GetByID(ctx context.Context, id string) (*models.OrderItem, error) {
	query := fmt.Sprintf("SELECT %s FROM order_items WHERE id = $1", orderItemColumns)
	var item models.OrderItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	sectionsQuery := fmt.Sprintf("SELECT %s FROM order_item_sections WHERE order_item_id = $1 ORDER BY name", sectionColumns)
	if err := r.db.SelectContext(ctx, &item.Sections, sectionsQuery, id); err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	return &item, nil
}

// List returns order items for the workflow board, newest first.
func (r *OrderItemRepository) List(ctx context.Context, limit, offset int) ([]models.OrderItem, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM order_items ORDER BY created_at DESC LIMIT %d OFFSET %d",
		orderItemColumns, limit, offset)
	var items []models.OrderItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return items, nil
}

// UpdateStatus applies a compare-and-swap order status transition.
func (r *OrderItemRepository) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	const query = `UPDATE order_items SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check order status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetProductionHead records the round-robin assignment for production.
func (r *OrderItemRepository) SetProductionHead(ctx context.Context, orderItemID, headUserID string) error {
	const query = `UPDATE order_items SET production_head_id = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, headUserID, time.Now().UTC(), orderItemID)
	if err != nil {
		return fmt.Errorf("set production head: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check production head rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateSectionStatus moves one section between states. The round counter is
// never touched here; rejections go through RejectSection.
func (r *OrderItemRepository) UpdateSectionStatus(ctx context.Context, orderItemID, name string, from, to models.SectionStatus) error {
	const query = `UPDATE order_item_sections SET status = $1, updated_at = $2
	WHERE order_item_id = $3 AND name = $4 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), orderItemID, name, from)
	if err != nil {
		return fmt.Errorf("update section status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check section status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateSectionsStatus moves every section of an order item in one statement.
func (r *OrderItemRepository) UpdateSectionsStatus(ctx context.Context, orderItemID string, to models.SectionStatus) error {
	const query = `UPDATE order_item_sections SET status = $1, updated_at = $2 WHERE order_item_id = $3`
	if _, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), orderItemID); err != nil {
		return fmt.Errorf("update sections status: %w", err)
	}
	return nil
}

// SectionRejectionParams describes one section rejection event.
type SectionRejectionParams struct {
	OrderItemID string
	SectionName string
	From        models.SectionStatus
	To          models.SectionStatus
	Stage       string
	ReasonCode  string
	Notes       string
	RejectedBy  string
}

// RejectSection moves the section to its rework state, increments its round
// by exactly one, and records the rejection, all in one transaction.
func (r *OrderItemRepository) RejectSection(ctx context.Context, params SectionRejectionParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reject section: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := rejectSectionTx(ctx, tx, params); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reject section: %w", err)
	}
	return nil
}

func rejectSectionTx(ctx context.Context, tx *sqlx.Tx, params SectionRejectionParams) error {
	const rejectQuery = `UPDATE order_item_sections
	SET status = $1, current_round = current_round + 1, updated_at = $2
	WHERE order_item_id = $3 AND name = $4 AND status = $5
	RETURNING id, current_round`
	var section struct {
		ID           string `db:"id"`
		CurrentRound int    `db:"current_round"`
	}
	if err := tx.GetContext(ctx, &section, rejectQuery,
		params.To, time.Now().UTC(), params.OrderItemID, params.SectionName, params.From); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("reject section: %w", err)
	}

	const insertRejection = `INSERT INTO section_rejections
	(id, section_id, round, stage, reason_code, notes, rejected_by, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, insertRejection,
		uuid.NewString(), section.ID, section.CurrentRound, params.Stage,
		params.ReasonCode, params.Notes, params.RejectedBy, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert rejection: %w", err)
	}
	return nil
}

// RejectSections applies a batch of rejections atomically. Used by the sales
// alteration path, which is all-or-nothing across the selected sections.
func (r *OrderItemRepository) RejectSections(ctx context.Context, batch []SectionRejectionParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reject sections: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, params := range batch {
		if err := rejectSectionTx(ctx, tx, params); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reject sections: %w", err)
	}
	return nil
}

// ApproveSection approves one section and evaluates the fan-in barrier inside
// the same transaction. When the approval leaves zero unapproved sections the
// order item is flipped to READY_FOR_VIDEO against its committed status.
// Returns whether the barrier fired.
func (r *OrderItemRepository) ApproveSection(ctx context.Context, orderItemID, name string, orderFrom models.OrderStatus) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin approve section: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const approveQuery = `UPDATE order_item_sections SET status = $1, updated_at = $2
	WHERE order_item_id = $3 AND name = $4 AND status = $5`
	result, err := tx.ExecContext(ctx, approveQuery,
		models.SectionStatusApproved, time.Now().UTC(), orderItemID, name, models.SectionStatusPendingQA)
	if err != nil {
		return false, fmt.Errorf("approve section: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check approve rows: %w", err)
	}
	if rows == 0 {
		return false, sql.ErrNoRows
	}

	var remaining int
	if err := tx.GetContext(ctx, &remaining,
		`SELECT COUNT(*) FROM order_item_sections WHERE order_item_id = $1 AND status <> $2`,
		orderItemID, models.SectionStatusApproved); err != nil {
		return false, fmt.Errorf("count unapproved sections: %w", err)
	}

	barrierFired := false
	if remaining == 0 {
		result, err := tx.ExecContext(ctx,
			`UPDATE order_items SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
			models.OrderStatusReadyForVideo, time.Now().UTC(), orderItemID, orderFrom)
		if err != nil {
			return false, fmt.Errorf("advance order to ready for video: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("check barrier rows: %w", err)
		}
		barrierFired = affected > 0
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit approve section: %w", err)
	}
	return barrierFired, nil
}

// SetSectionVideo stores the durable playback reference for a section.
func (r *OrderItemRepository) SetSectionVideo(ctx context.Context, orderItemID, name, videoRef string, uploadedAt time.Time) error {
	const query = `UPDATE order_item_sections SET qa_video_ref = $1, video_uploaded_at = $2, updated_at = $3
	WHERE order_item_id = $4 AND name = $5`
	result, err := r.db.ExecContext(ctx, query, videoRef, uploadedAt, time.Now().UTC(), orderItemID, name)
	if err != nil {
		return fmt.Errorf("set section video: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check video rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ResetToInventoryCheck implements start-from-scratch: the order item returns
// to the inventory-check stage and every section reverts to its initial
// state with round 1. Allocations are intentionally left untouched; the next
// inventory check allocates fresh.
func (r *OrderItemRepository) ResetToInventoryCheck(ctx context.Context, orderItemID string, from models.OrderStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin scratch reset: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx,
		`UPDATE order_items SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		models.OrderStatusPendingInventoryCheck, time.Now().UTC(), orderItemID, from)
	if err != nil {
		return fmt.Errorf("reset order status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reset rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE order_item_sections SET status = $1, current_round = 1, qa_video_ref = NULL,
		 video_uploaded_at = NULL, updated_at = $2 WHERE order_item_id = $3`,
		models.SectionStatusPendingMaterials, time.Now().UTC(), orderItemID); err != nil {
		return fmt.Errorf("reset sections: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scratch reset: %w", err)
	}
	return nil
}

// ListRejections returns the rejection history for the sections of an order
// item, oldest first.
func (r *OrderItemRepository) ListRejections(ctx context.Context, orderItemID string) ([]models.SectionRejection, error) {
	const query = `SELECT sr.id, sr.section_id, sr.round, sr.stage, sr.reason_code, sr.notes, sr.rejected_by, sr.created_at
	FROM section_rejections sr
	JOIN order_item_sections s ON s.id = sr.section_id
	WHERE s.order_item_id = $1 ORDER BY sr.created_at`
	var rejections []models.SectionRejection
	if err := r.db.SelectContext(ctx, &rejections, query, orderItemID); err != nil {
		return nil, fmt.Errorf("list rejections: %w", err)
	}
	return rejections, nil
}
