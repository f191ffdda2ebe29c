package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stitchline/atelier-api/internal/models"
)

// PaymentRepository persists payments recorded against order items.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment row.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payments (id, order_item_id, amount, method, reference, recorded_by, created_at)
	VALUES (:id, :order_item_id, :amount, :method, :reference, :recorded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// TotalPaid returns the sum of all payments for an order item.
func (r *PaymentRepository) TotalPaid(ctx context.Context, orderItemID string) (float64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_item_id = $1`
	var total float64
	if err := r.db.GetContext(ctx, &total, query, orderItemID); err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}

// List returns payments for an order item, oldest first.
func (r *PaymentRepository) List(ctx context.Context, orderItemID string) ([]models.Payment, error) {
	const query = `SELECT id, order_item_id, amount, method, reference, recorded_by, created_at
	FROM payments WHERE order_item_id = $1 ORDER BY created_at`
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, orderItemID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}
