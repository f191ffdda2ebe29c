package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/stitchline/atelier-api/internal/dto"
	"github.com/stitchline/atelier-api/internal/models"
	appErrors "github.com/stitchline/atelier-api/pkg/errors"
)

// OrderItemStore is the order persistence surface the order service uses.
type OrderItemStore interface {
	Create(ctx context.Context, item *models.OrderItem, sections []models.SectionState) error
	GetByID(ctx context.Context, id string) (*models.OrderItem, error)
	List(ctx context.Context, limit, offset int) ([]models.OrderItem, error)
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error
	UpdateSectionStatus(ctx context.Context, orderItemID, name string, from, to models.SectionStatus) error
}

// PacketCreator is the packet engine's entry point from the inventory check.
type PacketCreator interface {
	CreateOrExtend(ctx context.Context, item *models.OrderItem, passed, pending []string, actorID string) (*models.Packet, error)
}

// boardOrder fixes the column layout of the workflow board.
var boardOrder = []models.OrderStatus{
	models.OrderStatusPendingInventoryCheck,
	models.OrderStatusReadyForPacketing,
	models.OrderStatusPacketing,
	models.OrderStatusInProduction,
	models.OrderStatusReadyForQA,
	models.OrderStatusReadyForVideo,
	models.OrderStatusReadyForClientApproval,
	models.OrderStatusAwaitingClientApproval,
	models.OrderStatusAlterationRequired,
	models.OrderStatusAwaitingAccountApproval,
	models.OrderStatusReadyForDispatch,
	models.OrderStatusDispatched,
	models.OrderStatusCancelledByClient,
}

// OrderService manages order items: registration, the workflow board, the
// inventory-check choreography, and production completion.
type OrderService struct {
	orders    OrderItemStore
	packets   PacketCreator
	cache     WorkflowCache
	notifier  Notifier
	validate  *validator.Validate
	logger    *zap.Logger
	boardTTL  time.Duration
	detailTTL time.Duration
}

// NewOrderService wires the order service.
func NewOrderService(orders OrderItemStore, packets PacketCreator, cache WorkflowCache, notifier Notifier, boardTTL, detailTTL time.Duration, logger *zap.Logger) *OrderService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if boardTTL <= 0 {
		boardTTL = 30 * time.Second
	}
	if detailTTL <= 0 {
		detailTTL = time.Minute
	}
	return &OrderService{
		orders:    orders,
		packets:   packets,
		cache:     cache,
		notifier:  notifier,
		validate:  validator.New(),
		logger:    logger,
		boardTTL:  boardTTL,
		detailTTL: detailTTL,
	}
}

// Create registers a new order item with one section per garment piece.
func (s *OrderService) Create(ctx context.Context, req dto.CreateOrderItemRequest, actorID string) (*models.OrderItem, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	seen := make(map[string]struct{}, len(req.Pieces))
	for _, piece := range req.Pieces {
		if _, ok := seen[piece]; ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate piece %s", piece))
		}
		seen[piece] = struct{}{}
	}

	item := &models.OrderItem{
		OrderID:     req.OrderID,
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		SizeCode:    req.SizeCode,
		Status:      models.OrderStatusPendingInventoryCheck,
		TotalAmount: req.TotalAmount,
		DueDate:     req.DueDate,
	}
	sections := make([]models.SectionState, len(req.Pieces))
	for i, piece := range req.Pieces {
		sections[i] = models.SectionState{
			Name:         piece,
			Status:       models.SectionStatusPendingMaterials,
			CurrentRound: 1,
		}
	}
	if err := s.orders.Create(ctx, item, sections); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create order item")
	}

	s.logger.Info("order item created",
		zap.String("order_item_id", item.ID),
		zap.String("product_id", item.ProductID),
		zap.Int("sections", len(sections)))
	invalidateWorkflowCache(ctx, s.cache, s.logger, item.ID)
	return item, nil
}

// Get returns an order item with its sections, through the detail cache.
func (s *OrderService) Get(ctx context.Context, orderItemID string) (*models.OrderItem, error) {
	if s.cache != nil {
		var cached models.OrderItem
		if err := s.cache.Get(ctx, orderCacheKey(orderItemID), &cached); err == nil {
			return &cached, nil
		}
	}

	item, err := s.orders.GetByID(ctx, orderItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order item")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, orderCacheKey(orderItemID), item, s.detailTTL); err != nil {
			s.logger.Warn("failed to cache order item", zap.Error(err))
		}
	}
	return item, nil
}

// Board returns every order item grouped by workflow status, in the fixed
// board column order.
func (s *OrderService) Board(ctx context.Context) (*dto.Board, error) {
	if s.cache != nil {
		var cached dto.Board
		if err := s.cache.Get(ctx, boardCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	items, err := s.orders.List(ctx, 500, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load board")
	}

	grouped := make(map[models.OrderStatus][]models.OrderItem, len(boardOrder))
	for _, item := range items {
		grouped[item.Status] = append(grouped[item.Status], item)
	}
	board := &dto.Board{
		Columns:     make([]dto.BoardColumn, 0, len(boardOrder)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, status := range boardOrder {
		board.Columns = append(board.Columns, dto.BoardColumn{
			Status: status,
			Items:  grouped[status],
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, boardCacheKey, board, s.boardTTL); err != nil {
			s.logger.Warn("failed to cache board", zap.Error(err))
		}
	}
	return board, nil
}

// RunInventoryCheck records an allocation outcome and drives packeting. The
// first check creates the packet and advances the order item to the
// packeting stage; later checks extend the packet in place.
func (s *OrderService) RunInventoryCheck(ctx context.Context, orderItemID string, req dto.InventoryCheckRequest, actor *models.User) (*models.Packet, error) {
	if !actor.Role.HasPermission(models.PermissionPickMaterials) {
		return nil, appErrors.ErrForbidden
	}
	if len(req.PassedSections) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one section must pass the inventory check")
	}

	item, err := s.orders.GetByID(ctx, orderItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order item")
	}

	if item.Status != models.OrderStatusPendingInventoryCheck && item.Status != models.OrderStatusPacketing {
		return nil, appErrors.Clone(appErrors.ErrStateConflict,
			fmt.Sprintf("order item in status %s does not accept an inventory check", item.Status))
	}
	if err := s.validateSectionSplit(item, req.PassedSections, req.PendingSections); err != nil {
		return nil, err
	}

	packet, err := s.packets.CreateOrExtend(ctx, item, req.PassedSections, req.PendingSections, actor.ID)
	if err != nil {
		return nil, err
	}

	if item.Status == models.OrderStatusPendingInventoryCheck {
		if err := s.orders.UpdateStatus(ctx, orderItemID,
			models.OrderStatusPendingInventoryCheck, models.OrderStatusReadyForPacketing); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrStateConflict, "order item changed state concurrently")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance order item")
		}
		if err := s.orders.UpdateStatus(ctx, orderItemID,
			models.OrderStatusReadyForPacketing, models.OrderStatusPacketing); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance order item")
		}
	}

	invalidateWorkflowCache(ctx, s.cache, s.logger, orderItemID)
	return packet, nil
}

// CompleteProduction marks floor work done and hands every produced section
// to QA.
func (s *OrderService) CompleteProduction(ctx context.Context, orderItemID string, actor *models.User) (*models.OrderItem, error) {
	if !actor.Role.HasPermission(models.PermissionPickMaterials) {
		return nil, appErrors.ErrForbidden
	}

	item, err := s.orders.GetByID(ctx, orderItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order item")
	}
	if item.ProductionHead != nil && *item.ProductionHead != actor.ID && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "order item belongs to another production head")
	}

	// Alteration work resumes on the floor before it can re-enter QA.
	if item.Status == models.OrderStatusAlterationRequired {
		if err := s.orders.UpdateStatus(ctx, orderItemID,
			models.OrderStatusAlterationRequired, models.OrderStatusInProduction); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resume order item")
		}
	}

	if err := s.orders.UpdateStatus(ctx, orderItemID,
		models.OrderStatusInProduction, models.OrderStatusReadyForQA); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict,
				fmt.Sprintf("order item in status %s is not in production", item.Status))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance order item")
	}

	for _, section := range item.Sections {
		if section.Status != models.SectionStatusInProduction {
			continue
		}
		err := s.orders.UpdateSectionStatus(ctx, orderItemID, section.Name,
			models.SectionStatusInProduction, models.SectionStatusPendingQA)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to route section to QA")
		}
	}

	s.notifier.Publish(NotificationEvent{Type: EventProductionDone, OrderItemID: orderItemID, ActorID: actor.ID})
	invalidateWorkflowCache(ctx, s.cache, s.logger, orderItemID)
	return s.Get(ctx, orderItemID)
}

func (s *OrderService) validateSectionSplit(item *models.OrderItem, passed, pending []string) error {
	known := make(map[string]struct{}, len(item.Sections))
	for _, section := range item.Sections {
		known[section.Name] = struct{}{}
	}
	seen := make(map[string]struct{}, len(passed)+len(pending))
	for _, name := range append(append([]string{}, passed...), pending...) {
		if _, ok := known[name]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown section %s", name))
		}
		if _, dup := seen[name]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("section %s listed twice", name))
		}
		seen[name] = struct{}{}
	}
	return nil
}
