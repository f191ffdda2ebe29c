package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stitchline/atelier-api/internal/models"
)

// ApprovalRepository persists sales-level approval decisions for audit.
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository constructs the repository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Create inserts an approval request row.
func (r *ApprovalRepository) Create(ctx context.Context, req *models.ApprovalRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO approval_requests
	(id, order_item_id, action, sections, section_notes, reason, requested_by, created_at)
	VALUES (:id, :order_item_id, :action, :sections, :section_notes, :reason, :requested_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create approval request: %w", err)
	}
	return nil
}

// List returns approval requests matching the filter, latest first.
func (r *ApprovalRepository) List(ctx context.Context, filter models.ApprovalFilter) ([]models.ApprovalRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 2)
	builder.WriteString(`SELECT id, order_item_id, action, sections, section_notes, reason, requested_by, created_at
	FROM approval_requests`)

	conditions := make([]string, 0, 2)
	if filter.OrderItemID != "" {
		args = append(args, filter.OrderItemID)
		conditions = append(conditions, fmt.Sprintf("order_item_id = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.ApprovalRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list approval requests: %w", err)
	}
	return requests, nil
}
