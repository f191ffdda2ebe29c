package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/stitchline/atelier-api/internal/models"
)

// InventoryRepository answers material questions from the shared inventory
// schema. The workflow core treats it as a collaborator and never does stock
// arithmetic itself.
type InventoryRepository struct {
	db *sqlx.DB
}

// NewInventoryRepository constructs the repository.
func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Requirements returns the bill of materials for the given pieces of a
// product in one size.
func (r *InventoryRepository) Requirements(ctx context.Context, productID, sizeCode string, pieces []string) ([]models.MaterialRequirement, error) {
	const query = `SELECT inventory_item_id, required_qty, unit, piece
	FROM product_materials
	WHERE product_id = $1 AND size_code = $2 AND piece = ANY($3)
	ORDER BY piece, inventory_item_id`
	rows := make([]struct {
		InventoryItemID string  `db:"inventory_item_id"`
		RequiredQty     float64 `db:"required_qty"`
		Unit            string  `db:"unit"`
		Piece           string  `db:"piece"`
	}, 0)
	if err := r.db.SelectContext(ctx, &rows, query, productID, sizeCode, pq.Array(pieces)); err != nil {
		return nil, fmt.Errorf("load material requirements: %w", err)
	}

	requirements := make([]models.MaterialRequirement, len(rows))
	for i, row := range rows {
		requirements[i] = models.MaterialRequirement{
			InventoryItemID: row.InventoryItemID,
			RequiredQty:     row.RequiredQty,
			Unit:            row.Unit,
			Piece:           row.Piece,
		}
	}
	return requirements, nil
}

// ItemInfo resolves the metadata used to enrich pick-list rows.
func (r *InventoryRepository) ItemInfo(ctx context.Context, inventoryItemID string) (*models.InventoryItemInfo, error) {
	const query = `SELECT name, sku, unit, rack_location FROM inventory_items WHERE id = $1`
	var info models.InventoryItemInfo
	if err := r.db.GetContext(ctx, &info, query, inventoryItemID); err != nil {
		return nil, fmt.Errorf("load inventory item %s: %w", inventoryItemID, err)
	}
	return &info, nil
}
