package models

import (
	"time"

	"github.com/lib/pq"
)

// Packet is the physical bundle of materials gathered to fulfill one order
// item. A packet is created once per order item and extended in place.
type Packet struct {
	ID                       string         `db:"id" json:"id"`
	OrderItemID              string         `db:"order_item_id" json:"orderItemId"`
	Status                   PacketStatus   `db:"status" json:"status"`
	IsPartial                bool           `db:"is_partial" json:"isPartial"`
	PacketRound              int            `db:"packet_round" json:"packetRound"`
	SectionsIncluded         pq.StringArray `db:"sections_included" json:"sectionsIncluded"`
	SectionsPending          pq.StringArray `db:"sections_pending" json:"sectionsPending"`
	TotalItems               int            `db:"total_items" json:"totalItems"`
	PickedItems              int            `db:"picked_items" json:"pickedItems"`
	PreviousRoundPickedItems int            `db:"previous_round_picked_items" json:"previousRoundPickedItems"`
	AssignedTo               *string        `db:"assigned_to" json:"assignedTo,omitempty"`
	AssignedBy               *string        `db:"assigned_by" json:"assignedBy,omitempty"`
	PreviousAssignee         *string        `db:"previous_assignee" json:"previousAssignee,omitempty"`
	LastExtensionSections    pq.StringArray `db:"last_extension_sections" json:"lastExtensionSections,omitempty"`
	CreatedAt                time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt                time.Time      `db:"updated_at" json:"updatedAt"`

	PickList []PickListItem  `db:"-" json:"pickList,omitempty"`
	Timeline []TimelineEntry `db:"-" json:"timeline,omitempty"`
}

// PickListItem is one material row on a packet's pick list.
type PickListItem struct {
	ID              string     `db:"id" json:"id"`
	PacketID        string     `db:"packet_id" json:"packetId"`
	InventoryItemID string     `db:"inventory_item_id" json:"inventoryItemId"`
	Name            string     `db:"name" json:"name"`
	SKU             string     `db:"sku" json:"sku"`
	RequiredQty     float64    `db:"required_qty" json:"requiredQty"`
	Unit            string     `db:"unit" json:"unit"`
	RackLocation    string     `db:"rack_location" json:"rackLocation"`
	Piece           string     `db:"piece" json:"piece"`
	IsPicked        bool       `db:"is_picked" json:"isPicked"`
	PickedQty       float64    `db:"picked_qty" json:"pickedQty"`
	AddedInRound    int        `db:"added_in_round" json:"addedInRound"`
	PickedBy        *string    `db:"picked_by" json:"pickedBy,omitempty"`
	PickedAt        *time.Time `db:"picked_at" json:"pickedAt,omitempty"`
}

// RemovedPickItem archives a purged pick-list row for audit.
type RemovedPickItem struct {
	ID              string    `db:"id" json:"id"`
	PacketID        string    `db:"packet_id" json:"packetId"`
	InventoryItemID string    `db:"inventory_item_id" json:"inventoryItemId"`
	Piece           string    `db:"piece" json:"piece"`
	RequiredQty     float64   `db:"required_qty" json:"requiredQty"`
	WasPicked       bool      `db:"was_picked" json:"wasPicked"`
	Reason          string    `db:"reason" json:"reason"`
	RemovedInRound  int       `db:"removed_in_round" json:"removedInRound"`
	RemovedAt       time.Time `db:"removed_at" json:"removedAt"`
}

// TimelineEntry is one row of the packet's append-only history.
type TimelineEntry struct {
	ID        string    `db:"id" json:"id"`
	PacketID  string    `db:"packet_id" json:"packetId"`
	Action    string    `db:"action" json:"action"`
	UserID    string    `db:"user_id" json:"user"`
	Details   string    `db:"details" json:"details"`
	CreatedAt time.Time `db:"created_at" json:"timestamp"`
}

// Timeline actions recorded by the packet engine.
const (
	TimelineActionCreated      = "PACKET_CREATED"
	TimelineActionExtended     = "PACKET_EXTENDED"
	TimelineActionAssigned     = "PACKET_ASSIGNED"
	TimelineActionAutoContinue = "ASSIGNEE_CONTINUED"
	TimelineActionStarted      = "PICKING_STARTED"
	TimelineActionItemPicked   = "ITEM_PICKED"
	TimelineActionCompleted    = "PACKET_COMPLETED"
	TimelineActionApproved     = "PACKET_APPROVED"
	TimelineActionRejected     = "PACKET_REJECTED"
)

// MaterialRequirement is the inventory service's answer to "what does this
// product need": one row per material per piece, before enrichment.
type MaterialRequirement struct {
	InventoryItemID string  `json:"inventoryItemId"`
	RequiredQty     float64 `json:"requiredQty"`
	Unit            string  `json:"unit"`
	Piece           string  `json:"piece"`
}

// InventoryItemInfo carries the metadata used to enrich pick-list rows.
type InventoryItemInfo struct {
	Name         string `db:"name" json:"name"`
	SKU          string `db:"sku" json:"sku"`
	Unit         string `db:"unit" json:"unit"`
	RackLocation string `db:"rack_location" json:"rackLocation"`
}
