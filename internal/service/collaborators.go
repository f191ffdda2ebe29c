package service

import (
	"context"
	"io"
	"time"

	"github.com/stitchline/atelier-api/internal/models"
)

// InventoryClient is the narrow interface onto the inventory service. The
// workflow core never does stock arithmetic itself.
type InventoryClient interface {
	// Requirements returns the material rows needed to produce the given
	// pieces of a product.
	Requirements(ctx context.Context, productID, sizeCode string, pieces []string) ([]models.MaterialRequirement, error)
	// ItemInfo resolves the metadata used to enrich pick-list rows.
	ItemInfo(ctx context.Context, inventoryItemID string) (*models.InventoryItemInfo, error)
}

// MediaClient stores QA videos and returns durable playback references.
type MediaClient interface {
	Store(ctx context.Context, name string, r io.Reader) (ref string, uploadedAt time.Time, err error)
	PlaybackURL(ref string) (url string, expiresAt time.Time, err error)
}

// NotificationEvent describes one workflow mutation outcome.
type NotificationEvent struct {
	Type        string            `json:"type"`
	OrderItemID string            `json:"orderItemId,omitempty"`
	PacketID    string            `json:"packetId,omitempty"`
	ActorID     string            `json:"actorId,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

// Notification event types emitted by the workflow services.
const (
	EventPacketCreated    = "packet.created"
	EventPacketExtended   = "packet.extended"
	EventPacketAssigned   = "packet.assigned"
	EventPacketCompleted  = "packet.completed"
	EventPacketApproved   = "packet.approved"
	EventPacketRejected   = "packet.rejected"
	EventSectionApproved  = "section.approved"
	EventSectionRejected  = "section.rejected"
	EventOrderReadyVideo  = "order.ready_for_video"
	EventOrderSentClient  = "order.sent_to_client"
	EventOrderAltered     = "order.alteration_requested"
	EventOrderReVideo     = "order.re_video_requested"
	EventOrderScratched   = "order.reset_from_scratch"
	EventOrderCancelled   = "order.cancelled"
	EventOrderDispatch    = "order.ready_for_dispatch"
	EventPaymentRecorded  = "payment.recorded"
	EventProductionStart  = "production.started"
	EventProductionDone   = "production.completed"
)

// Notifier is informed, never consulted: no core behavior depends on
// delivery succeeding.
type Notifier interface {
	Publish(event NotificationEvent)
}

// NotifierFunc allows plain functions as notifiers.
type NotifierFunc func(event NotificationEvent)

// Publish implements Notifier.
func (f NotifierFunc) Publish(event NotificationEvent) { f(event) }

// NopNotifier discards every event.
type NopNotifier struct{}

// Publish implements Notifier.
func (NopNotifier) Publish(NotificationEvent) {}
