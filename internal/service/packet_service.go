package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/stitchline/atelier-api/internal/dto"
	"github.com/stitchline/atelier-api/internal/models"
	"github.com/stitchline/atelier-api/internal/repository"
	appErrors "github.com/stitchline/atelier-api/pkg/errors"
)

// PacketStore is the packet persistence surface the engine depends on.
type PacketStore interface {
	Create(ctx context.Context, packet *models.Packet, items []models.PickListItem) error
	GetByID(ctx context.Context, id string) (*models.Packet, error)
	GetByOrderItemID(ctx context.Context, orderItemID string) (*models.Packet, error)
	UpdateStatus(ctx context.Context, params repository.PacketStatusUpdate) error
	MarkItemPicked(ctx context.Context, packetID, itemID string, qty float64, userID string) (*models.PickListItem, error)
	Extend(ctx context.Context, params repository.ExtendPacketParams) error
	AppendTimeline(ctx context.Context, entry *models.TimelineEntry) error
	ListRemovedItems(ctx context.Context, packetID string) ([]models.RemovedPickItem, error)
}

// PacketOrderStore is the slice of order persistence the engine touches when
// an approved packet routes its order item downstream.
type PacketOrderStore interface {
	GetByID(ctx context.Context, id string) (*models.OrderItem, error)
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error
	UpdateSectionStatus(ctx context.Context, orderItemID, name string, from, to models.SectionStatus) error
	SetProductionHead(ctx context.Context, orderItemID, headUserID string) error
}

// HeadPicker supplies the next production head in rotation.
type HeadPicker interface {
	NextHead(ctx context.Context) (*models.ProductionHead, error)
}

// PacketService runs the material packet lifecycle: one packet per order
// item, created once and extended in place, with an append-only timeline.
type PacketService struct {
	packets   PacketStore
	orders    PacketOrderStore
	inventory InventoryClient
	heads     HeadPicker
	cache     WorkflowCache
	notifier  Notifier
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewPacketService wires the packet engine.
func NewPacketService(
	packets PacketStore,
	orders PacketOrderStore,
	inventory InventoryClient,
	heads HeadPicker,
	cache WorkflowCache,
	notifier Notifier,
	logger *zap.Logger,
) *PacketService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PacketService{
		packets:   packets,
		orders:    orders,
		inventory: inventory,
		heads:     heads,
		cache:     cache,
		notifier:  notifier,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Get returns a packet with its pick list and timeline.
func (s *PacketService) Get(ctx context.Context, packetID string) (*models.Packet, error) {
	packet, err := s.packets.GetByID(ctx, packetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "packet not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load packet")
	}
	return packet, nil
}

// GetForOrderItem returns the packet owned by an order item.
func (s *PacketService) GetForOrderItem(ctx context.Context, orderItemID string) (*models.Packet, error) {
	packet, err := s.packets.GetByOrderItemID(ctx, orderItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order item has no packet")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load packet")
	}
	return packet, nil
}

// RemovedItems returns the purge archive for a packet.
func (s *PacketService) RemovedItems(ctx context.Context, packetID string) ([]models.RemovedPickItem, error) {
	if _, err := s.Get(ctx, packetID); err != nil {
		return nil, err
	}
	removed, err := s.packets.ListRemovedItems(ctx, packetID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load removed items")
	}
	return removed, nil
}

// CreateOrExtend is the single entry point from the inventory check. The
// first successful check creates the packet; every later one extends it in
// place. A packet is never recreated.
func (s *PacketService) CreateOrExtend(ctx context.Context, item *models.OrderItem, passed, pending []string, actorID string) (*models.Packet, error) {
	if len(passed) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one section must pass the inventory check")
	}

	items, err := s.buildPickList(ctx, item, passed)
	if err != nil {
		return nil, err
	}

	existing, err := s.packets.GetByOrderItemID(ctx, item.ID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load packet")
		}
		return s.createPacket(ctx, item, items, passed, pending, actorID)
	}
	return s.extendPacket(ctx, existing, items, passed, pending, actorID)
}

func (s *PacketService) buildPickList(ctx context.Context, item *models.OrderItem, sections []string) ([]models.PickListItem, error) {
	requirements, err := s.inventory.Requirements(ctx, item.ProductID, item.SizeCode, sections)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status,
			"inventory requirements lookup failed")
	}

	items := make([]models.PickListItem, 0, len(requirements))
	for _, req := range requirements {
		info, err := s.inventory.ItemInfo(ctx, req.InventoryItemID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status,
				"inventory item lookup failed")
		}
		unit := req.Unit
		if unit == "" {
			unit = info.Unit
		}
		items = append(items, models.PickListItem{
			InventoryItemID: req.InventoryItemID,
			Name:            info.Name,
			SKU:             info.SKU,
			RequiredQty:     req.RequiredQty,
			Unit:            unit,
			RackLocation:    info.RackLocation,
			Piece:           req.Piece,
		})
	}
	return items, nil
}

func (s *PacketService) createPacket(ctx context.Context, item *models.OrderItem, items []models.PickListItem, passed, pending []string, actorID string) (*models.Packet, error) {
	packet := &models.Packet{
		OrderItemID:      item.ID,
		Status:           models.PacketStatusPending,
		IsPartial:        len(pending) > 0,
		PacketRound:      1,
		SectionsIncluded: passed,
		SectionsPending:  pending,
	}
	if err := s.packets.Create(ctx, packet, items); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create packet")
	}

	s.appendTimeline(ctx, packet.ID, models.TimelineActionCreated, actorID,
		fmt.Sprintf("packet created with %d items across sections %v", len(items), passed))
	s.notifier.Publish(NotificationEvent{
		Type:        EventPacketCreated,
		OrderItemID: item.ID,
		PacketID:    packet.ID,
		ActorID:     actorID,
	})
	invalidateWorkflowCache(ctx, s.cache, s.logger, item.ID)
	return packet, nil
}

func (s *PacketService) extendPacket(ctx context.Context, packet *models.Packet, items []models.PickListItem, passed, pending []string, actorID string) (*models.Packet, error) {
	// Extension is legal from any packet status: a pending section can
	// clear the inventory check while round 1 is still unassigned, mid-pick,
	// or long approved. The round guard in the store serializes concurrent
	// extensions. The new status only encodes whether an assignee exists:
	// the previous worker continues, otherwise back to the assignment pool.
	newStatus := models.PacketStatusPending
	if packet.AssignedTo != nil {
		newStatus = models.PacketStatusAssigned
	}

	included := unionSections(packet.SectionsIncluded, passed)
	stillPending := subtractSections(unionSections(packet.SectionsPending, pending), passed)

	params := repository.ExtendPacketParams{
		PacketID:         packet.ID,
		ExpectedRound:    packet.PacketRound,
		NewSections:      passed,
		NewItems:         items,
		PurgeReason:      "superseded by extension",
		NewStatus:        newStatus,
		SectionsIncluded: included,
		SectionsPending:  stillPending,
		PreviousAssignee: packet.AssignedTo,
	}
	if err := s.packets.Extend(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "packet was extended concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to extend packet")
	}

	s.appendTimeline(ctx, packet.ID, models.TimelineActionExtended, actorID,
		fmt.Sprintf("round %d: sections %v re-added with %d items", packet.PacketRound+1, passed, len(items)))
	if packet.AssignedTo != nil {
		s.appendTimeline(ctx, packet.ID, models.TimelineActionAutoContinue, *packet.AssignedTo,
			"previous assignee continues on the new round")
	}
	s.notifier.Publish(NotificationEvent{
		Type:        EventPacketExtended,
		OrderItemID: packet.OrderItemID,
		PacketID:    packet.ID,
		ActorID:     actorID,
		Details:     map[string]string{"round": fmt.Sprintf("%d", packet.PacketRound+1)},
	})
	invalidateWorkflowCache(ctx, s.cache, s.logger, packet.OrderItemID)

	return s.Get(ctx, packet.ID)
}

// Assign hands a pending packet to a worker.
func (s *PacketService) Assign(ctx context.Context, packetID string, req dto.AssignPacketRequest, actor *models.User) (*models.Packet, error) {
	if !actor.Role.HasPermission(models.PermissionAssignTasks) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	packet, err := s.Get(ctx, packetID)
	if err != nil {
		return nil, err
	}

	err = s.packets.UpdateStatus(ctx, repository.PacketStatusUpdate{
		ID:            packetID,
		From:          models.PacketStatusPending,
		To:            models.PacketStatusAssigned,
		AssignedTo:    &req.UserID,
		AssignedBy:    &actor.ID,
		SetAssignment: true,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict,
				fmt.Sprintf("packet in status %s is not awaiting assignment", packet.Status))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign packet")
	}

	s.appendTimeline(ctx, packetID, models.TimelineActionAssigned, actor.ID,
		fmt.Sprintf("assigned to %s", req.UserID))
	s.notifier.Publish(NotificationEvent{
		Type:        EventPacketAssigned,
		OrderItemID: packet.OrderItemID,
		PacketID:    packetID,
		ActorID:     actor.ID,
		Details:     map[string]string{"assignee": req.UserID},
	})
	invalidateWorkflowCache(ctx, s.cache, s.logger, packet.OrderItemID)
	return s.Get(ctx, packetID)
}

// Start moves an assigned packet into active picking. Only the assignee may
// start work.
func (s *PacketService) Start(ctx context.Context, packetID string, actor *models.User) (*models.Packet, error) {
	packet, err := s.Get(ctx, packetID)
	if err != nil {
		return nil, err
	}
	if packet.AssignedTo == nil || *packet.AssignedTo != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "packet is assigned to another user")
	}

	err = s.packets.UpdateStatus(ctx, repository.PacketStatusUpdate{
		ID:   packetID,
		From: models.PacketStatusAssigned,
		To:   models.PacketStatusInProgress,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict,
				fmt.Sprintf("packet in status %s cannot start picking", packet.Status))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start packet")
	}

	s.appendTimeline(ctx, packetID, models.TimelineActionStarted, actor.ID, "picking started")
	invalidateWorkflowCache(ctx, s.cache, s.logger, packet.OrderItemID)
	return s.Get(ctx, packetID)
}

// PickItem marks one pick-list row picked. Re-picking an already picked row
// is a conflict, never a silent success.
func (s *PacketService) PickItem(ctx context.Context, packetID string, req dto.PickItemRequest, actor *models.User) (*models.PickListItem, error) {
	if !actor.Role.HasPermission(models.PermissionPickMaterials) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	packet, err := s.Get(ctx, packetID)
	if err != nil {
		return nil, err
	}
	if packet.Status != models.PacketStatusInProgress {
		return nil, appErrors.Clone(appErrors.ErrStateConflict,
			fmt.Sprintf("packet in status %s does not accept picks", packet.Status))
	}
	if packet.AssignedTo == nil || *packet.AssignedTo != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "packet is assigned to another user")
	}

	item, err := s.packets.MarkItemPicked(ctx, packetID, req.ItemID, req.PickedQty, actor.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyPicked):
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "pick list item is already picked")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pick list item not found")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pick item")
		}
	}

	s.appendTimeline(ctx, packetID, models.TimelineActionItemPicked, actor.ID,
		fmt.Sprintf("picked %s (%s) qty %.2f", item.Name, item.Piece, item.PickedQty))
	invalidateWorkflowCache(ctx, s.cache, s.logger, packet.OrderItemID)
	return item, nil
}

// Complete closes the active picking round. Every item in the current scope
// must be picked first.
func (s *PacketService) Complete(ctx context.Context, packetID string, req dto.CompletePacketRequest, actor *models.User) (*models.Packet, error) {
	packet, err := s.Get(ctx, packetID)
	if err != nil {
		return nil, err
	}
	if packet.AssignedTo == nil || *packet.AssignedTo != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "packet is assigned to another user")
	}
	if packet.Status != models.PacketStatusInProgress {
		return nil, appErrors.Clone(appErrors.ErrStateConflict,
			fmt.Sprintf("packet in status %s cannot be completed", packet.Status))
	}
	if packet.PickedItems != packet.TotalItems {
		return nil, appErrors.Clone(appErrors.ErrStateConflict,
			fmt.Sprintf("cannot complete: %d of %d items picked", packet.PickedItems, packet.TotalItems))
	}

	err = s.packets.UpdateStatus(ctx, repository.PacketStatusUpdate{
		ID:   packetID,
		From: models.PacketStatusInProgress,
		To:   models.PacketStatusCompleted,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "packet state changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete packet")
	}

	details := "all items picked"
	if req.Notes != "" {
		details = req.Notes
	}
	s.appendTimeline(ctx, packetID, models.TimelineActionCompleted, actor.ID, details)
	s.notifier.Publish(NotificationEvent{
		Type:        EventPacketCompleted,
		OrderItemID: packet.OrderItemID,
		PacketID:    packetID,
		ActorID:     actor.ID,
	})
	invalidateWorkflowCache(ctx, s.cache, s.logger, packet.OrderItemID)
	return s.Get(ctx, packetID)
}

// Approve accepts a completed packet and routes the order item downstream.
// Ready-stock garments skip the production floor and go straight to QA;
// everything else enters production under a round-robin production head.
func (s *PacketService) Approve(ctx context.Context, packetID string, req dto.ApprovePacketRequest, actor *models.User) (*models.Packet, error) {
	if !actor.Role.HasPermission(models.PermissionReviewPackets) {
		return nil, appErrors.ErrForbidden
	}

	packet, err := s.Get(ctx, packetID)
	if err != nil {
		return nil, err
	}
	item, err := s.orders.GetByID(ctx, packet.OrderItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order item")
	}

	// Pick the production head before any write so an empty roster leaves
	// the packet untouched.
	var head *models.ProductionHead
	if !req.IsReadyStock && item.ProductionHead == nil {
		head, err = s.heads.NextHead(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrStateConflict, "no active production heads on the roster")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pick production head")
		}
	}

	err = s.packets.UpdateStatus(ctx, repository.PacketStatusUpdate{
		ID:   packetID,
		From: models.PacketStatusCompleted,
		To:   models.PacketStatusApproved,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict,
				fmt.Sprintf("packet in status %s cannot be approved", packet.Status))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve packet")
	}

	sectionTarget := models.SectionStatusInProduction
	orderTarget := models.OrderStatusInProduction
	if req.IsReadyStock {
		sectionTarget = models.SectionStatusPendingQA
		orderTarget = models.OrderStatusReadyForQA
	}

	// Only the sections covered by this packet round move. Sections already
	// past PENDING_MATERIALS keep their state.
	for _, name := range packet.SectionsIncluded {
		err := s.orders.UpdateSectionStatus(ctx, packet.OrderItemID, name,
			models.SectionStatusPendingMaterials, sectionTarget)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to route section")
		}
	}

	if err := s.orders.UpdateStatus(ctx, packet.OrderItemID, models.OrderStatusPacketing, orderTarget); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to route order item")
		}
		// Extension rounds can approve while the order item is already
		// past the packeting stage.
		s.logger.Warn("order item not in packeting stage at packet approval",
			zap.String("order_item_id", packet.OrderItemID))
	}

	if head != nil {
		if err := s.orders.SetProductionHead(ctx, packet.OrderItemID, head.UserID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record production head")
		}
	}

	details := "packet approved"
	if req.IsReadyStock {
		details = "packet approved as ready stock"
	}
	if req.Notes != "" {
		details = fmt.Sprintf("%s: %s", details, req.Notes)
	}
	s.appendTimeline(ctx, packetID, models.TimelineActionApproved, actor.ID, details)
	s.notifier.Publish(NotificationEvent{
		Type:        EventPacketApproved,
		OrderItemID: packet.OrderItemID,
		PacketID:    packetID,
		ActorID:     actor.ID,
		Details:     map[string]string{"readyStock": fmt.Sprintf("%t", req.IsReadyStock)},
	})
	if head != nil {
		s.notifier.Publish(NotificationEvent{
			Type:        EventProductionStart,
			OrderItemID: packet.OrderItemID,
			ActorID:     actor.ID,
			Details:     map[string]string{"productionHead": head.UserID},
		})
	}
	invalidateWorkflowCache(ctx, s.cache, s.logger, packet.OrderItemID)
	return s.Get(ctx, packetID)
}

// Reject sends a completed packet back to its assignee. The pick list and
// round are untouched; the objection lands in the timeline only.
func (s *PacketService) Reject(ctx context.Context, packetID string, req dto.RejectPacketRequest, actor *models.User) (*models.Packet, error) {
	if !actor.Role.HasPermission(models.PermissionReviewPackets) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	packet, err := s.Get(ctx, packetID)
	if err != nil {
		return nil, err
	}

	err = s.packets.UpdateStatus(ctx, repository.PacketStatusUpdate{
		ID:   packetID,
		From: models.PacketStatusCompleted,
		To:   models.PacketStatusAssigned,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict,
				fmt.Sprintf("packet in status %s cannot be rejected", packet.Status))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject packet")
	}

	s.appendTimeline(ctx, packetID, models.TimelineActionRejected, actor.ID,
		fmt.Sprintf("[%s] %s", req.ReasonCode, req.Reason))
	s.notifier.Publish(NotificationEvent{
		Type:        EventPacketRejected,
		OrderItemID: packet.OrderItemID,
		PacketID:    packetID,
		ActorID:     actor.ID,
		Details:     map[string]string{"reasonCode": req.ReasonCode},
	})
	invalidateWorkflowCache(ctx, s.cache, s.logger, packet.OrderItemID)
	return s.Get(ctx, packetID)
}

// appendTimeline best-effort records a history entry. Timeline writes never
// fail the operation that produced them.
func (s *PacketService) appendTimeline(ctx context.Context, packetID, action, userID, details string) {
	entry := &models.TimelineEntry{
		PacketID: packetID,
		Action:   action,
		UserID:   userID,
		Details:  details,
	}
	if err := s.packets.AppendTimeline(ctx, entry); err != nil {
		s.logger.Error("failed to append packet timeline",
			zap.String("packet_id", packetID), zap.String("action", action), zap.Error(err))
	}
}

func unionSections(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func subtractSections(a, b []string) []string {
	drop := make(map[string]struct{}, len(b))
	for _, s := range b {
		drop[s] = struct{}{}
	}
	out := make([]string, 0, len(a))
	for _, s := range a {
		if _, ok := drop[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
