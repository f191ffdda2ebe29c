package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/stitchline/atelier-api/internal/models"
)

// ErrAlreadyPicked distinguishes a re-pick from an unknown pick-list row.
var ErrAlreadyPicked = fmt.Errorf("pick list item already picked")

// PacketRepository persists packets, pick lists, and packet timelines.
type PacketRepository struct {
	db *sqlx.DB
}

// NewPacketRepository constructs the repository.
func NewPacketRepository(db *sqlx.DB) *PacketRepository {
	return &PacketRepository{db: db}
}

const packetColumns = `id, order_item_id, status, is_partial, packet_round,
       sections_included, sections_pending, total_items, picked_items,
       previous_round_picked_items, assigned_to, assigned_by, previous_assignee,
       last_extension_sections, created_at, updated_at`

// Create inserts a packet together with its initial pick list in one tx.
func (r *PacketRepository) Create(ctx context.Context, packet *models.Packet, items []models.PickListItem) error {
	if packet.ID == "" {
		packet.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	packet.CreatedAt = now
	packet.UpdatedAt = now
	packet.TotalItems = len(items)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create packet: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertPacket = `INSERT INTO packets
	(id, order_item_id, status, is_partial, packet_round, sections_included, sections_pending,
	 total_items, picked_items, previous_round_picked_items, assigned_to, assigned_by,
	 previous_assignee, last_extension_sections, created_at, updated_at)
	VALUES (:id, :order_item_id, :status, :is_partial, :packet_round, :sections_included, :sections_pending,
	 :total_items, :picked_items, :previous_round_picked_items, :assigned_to, :assigned_by,
	 :previous_assignee, :last_extension_sections, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertPacket, packet); err != nil {
		return fmt.Errorf("insert packet: %w", err)
	}

	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		items[i].PacketID = packet.ID
		if items[i].AddedInRound == 0 {
			items[i].AddedInRound = packet.PacketRound
		}
	}
	if err := insertPickItems(ctx, tx, items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create packet: %w", err)
	}
	packet.PickList = items
	return nil
}

func insertPickItems(ctx context.Context, tx *sqlx.Tx, items []models.PickListItem) error {
	const insertItem = `INSERT INTO pick_list_items
	(id, packet_id, inventory_item_id, name, sku, required_qty, unit, rack_location,
	 piece, is_picked, picked_qty, added_in_round, picked_by, picked_at)
	VALUES (:id, :packet_id, :inventory_item_id, :name, :sku, :required_qty, :unit, :rack_location,
	 :piece, :is_picked, :picked_qty, :added_in_round, :picked_by, :picked_at)`
	for i := range items {
		if _, err := tx.NamedExecContext(ctx, insertItem, &items[i]); err != nil {
			return fmt.Errorf("insert pick list item: %w", err)
		}
	}
	return nil
}

// GetByID fetches a packet with its pick list and timeline.
func (r *PacketRepository) GetByID(ctx context.Context, id string) (*models.Packet, error) {
	query := fmt.Sprintf("SELECT %s FROM packets WHERE id = $1", packetColumns)
	var packet models.Packet
	if err := r.db.GetContext(ctx, &packet, query, id); err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, &packet); err != nil {
		return nil, err
	}
	return &packet, nil
}

// GetByOrderItemID fetches the packet owned by the given order item.
func (r *PacketRepository) GetByOrderItemID(ctx context.Context, orderItemID string) (*models.Packet, error) {
	query := fmt.Sprintf("SELECT %s FROM packets WHERE order_item_id = $1", packetColumns)
	var packet models.Packet
	if err := r.db.GetContext(ctx, &packet, query, orderItemID); err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, &packet); err != nil {
		return nil, err
	}
	return &packet, nil
}

func (r *PacketRepository) loadChildren(ctx context.Context, packet *models.Packet) error {
	const itemsQuery = `SELECT id, packet_id, inventory_item_id, name, sku, required_qty, unit,
       rack_location, piece, is_picked, picked_qty, added_in_round, picked_by, picked_at
	FROM pick_list_items WHERE packet_id = $1 ORDER BY added_in_round, piece, name`
	if err := r.db.SelectContext(ctx, &packet.PickList, itemsQuery, packet.ID); err != nil {
		return fmt.Errorf("load pick list: %w", err)
	}
	const timelineQuery = `SELECT id, packet_id, action, user_id, details, created_at
	FROM packet_timeline WHERE packet_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &packet.Timeline, timelineQuery, packet.ID); err != nil {
		return fmt.Errorf("load timeline: %w", err)
	}
	return nil
}

// PacketStatusUpdate groups the columns touched by a guarded status change.
type PacketStatusUpdate struct {
	ID            string
	From          models.PacketStatus
	To            models.PacketStatus
	AssignedTo    *string
	AssignedBy    *string
	SetAssignment bool
}

// UpdateStatus applies a compare-and-swap status transition. Returns
// sql.ErrNoRows when the packet was not in the expected originating state, so
// the caller can surface a state conflict without a partial write.
func (r *PacketRepository) UpdateStatus(ctx context.Context, params PacketStatusUpdate) error {
	query := `UPDATE packets SET status = :to, updated_at = :now`
	if params.SetAssignment {
		query += `, assigned_to = :assigned_to, assigned_by = :assigned_by`
	}
	query += ` WHERE id = :id AND status = :from`

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":          params.ID,
		"from":        params.From,
		"to":          params.To,
		"assigned_to": params.AssignedTo,
		"assigned_by": params.AssignedBy,
		"now":         time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("update packet status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check packet status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkItemPicked marks one pick-list row picked and increments the round
// counter in the same transaction. The increment happens in SQL so two
// concurrent picks never race on a read value.
func (r *PacketRepository) MarkItemPicked(ctx context.Context, packetID, itemID string, qty float64, userID string) (*models.PickListItem, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin pick item: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const pickQuery = `UPDATE pick_list_items
	SET is_picked = TRUE, picked_qty = $1, picked_by = $2, picked_at = $3
	WHERE id = $4 AND packet_id = $5 AND is_picked = FALSE
	RETURNING id, packet_id, inventory_item_id, name, sku, required_qty, unit,
	  rack_location, piece, is_picked, picked_qty, added_in_round, picked_by, picked_at`
	var item models.PickListItem
	err = tx.GetContext(ctx, &item, pickQuery, qty, userID, time.Now().UTC(), itemID, packetID)
	if err != nil {
		if err == sql.ErrNoRows {
			// Re-picking is an explicit error, not a silent success.
			var exists bool
			checkErr := tx.GetContext(ctx, &exists,
				`SELECT EXISTS (SELECT 1 FROM pick_list_items WHERE id = $1 AND packet_id = $2)`, itemID, packetID)
			if checkErr == nil && exists {
				return nil, ErrAlreadyPicked
			}
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("mark item picked: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE packets SET picked_items = picked_items + 1, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), packetID); err != nil {
		return nil, fmt.Errorf("increment picked counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit pick item: %w", err)
	}
	return &item, nil
}

// ExtendPacketParams carries one material-extension event.
type ExtendPacketParams struct {
	PacketID         string
	ExpectedRound    int
	NewSections      []string
	NewItems         []models.PickListItem
	PurgeReason      string
	NewStatus        models.PacketStatus
	SectionsIncluded []string
	SectionsPending  []string
	PreviousAssignee *string
}

// Extend applies the re-entry algorithm in a single transaction: archive and
// purge rows for the re-added sections, append new rows tagged with the next
// round, merge section sets, and bump the round exactly once. The round CAS
// serializes concurrent extension attempts.
func (r *PacketRepository) Extend(ctx context.Context, params ExtendPacketParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin extend packet: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	newRound := params.ExpectedRound + 1

	const archiveQuery = `INSERT INTO packet_removed_items
	(id, packet_id, inventory_item_id, piece, required_qty, was_picked, reason, removed_in_round, removed_at)
	SELECT gen_random_uuid(), packet_id, inventory_item_id, piece, required_qty, is_picked, $1, $2, $3
	FROM pick_list_items WHERE packet_id = $4 AND piece = ANY($5)`
	if _, err := tx.ExecContext(ctx, archiveQuery,
		params.PurgeReason, newRound, time.Now().UTC(), params.PacketID, pq.Array(params.NewSections)); err != nil {
		return fmt.Errorf("archive purged rows: %w", err)
	}

	const purgeQuery = `DELETE FROM pick_list_items WHERE packet_id = $1 AND piece = ANY($2)`
	if _, err := tx.ExecContext(ctx, purgeQuery, params.PacketID, pq.Array(params.NewSections)); err != nil {
		return fmt.Errorf("purge pick list rows: %w", err)
	}

	items := make([]models.PickListItem, len(params.NewItems))
	copy(items, params.NewItems)
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		items[i].PacketID = params.PacketID
		items[i].AddedInRound = newRound
	}
	if err := insertPickItems(ctx, tx, items); err != nil {
		return err
	}

	// The active scope after an extension is every row not yet picked.
	var totalItems int
	if err := tx.GetContext(ctx, &totalItems,
		`SELECT COUNT(*) FROM pick_list_items WHERE packet_id = $1 AND is_picked = FALSE`, params.PacketID); err != nil {
		return fmt.Errorf("count active scope: %w", err)
	}

	const updateQuery = `UPDATE packets SET
	  status = $1,
	  packet_round = $2,
	  sections_included = $3,
	  sections_pending = $4,
	  is_partial = $5,
	  previous_assignee = $6,
	  last_extension_sections = $7,
	  previous_round_picked_items = picked_items,
	  picked_items = 0,
	  total_items = $8,
	  updated_at = $9
	WHERE id = $10 AND packet_round = $11`
	result, err := tx.ExecContext(ctx, updateQuery,
		params.NewStatus,
		newRound,
		pq.Array(params.SectionsIncluded),
		pq.Array(params.SectionsPending),
		len(params.SectionsPending) > 0,
		params.PreviousAssignee,
		pq.Array(params.NewSections),
		totalItems,
		time.Now().UTC(),
		params.PacketID,
		params.ExpectedRound,
	)
	if err != nil {
		return fmt.Errorf("extend packet: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check extend rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit extend packet: %w", err)
	}
	return nil
}

// AppendTimeline records one append-only history entry.
func (r *PacketRepository) AppendTimeline(ctx context.Context, entry *models.TimelineEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO packet_timeline (id, packet_id, action, user_id, details, created_at)
	VALUES (:id, :packet_id, :action, :user_id, :details, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append timeline: %w", err)
	}
	return nil
}

// ListRemovedItems returns the purge archive for a packet.
func (r *PacketRepository) ListRemovedItems(ctx context.Context, packetID string) ([]models.RemovedPickItem, error) {
	const query = `SELECT id, packet_id, inventory_item_id, piece, required_qty, was_picked,
       reason, removed_in_round, removed_at
	FROM packet_removed_items WHERE packet_id = $1 ORDER BY removed_at`
	var removed []models.RemovedPickItem
	if err := r.db.SelectContext(ctx, &removed, query, packetID); err != nil {
		return nil, fmt.Errorf("list removed items: %w", err)
	}
	return removed, nil
}
