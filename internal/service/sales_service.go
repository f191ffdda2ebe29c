package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/stitchline/atelier-api/internal/dto"
	"github.com/stitchline/atelier-api/internal/models"
	"github.com/stitchline/atelier-api/internal/repository"
	appErrors "github.com/stitchline/atelier-api/pkg/errors"
)

// SalesOrderStore is the order persistence surface the sales flow touches.
type SalesOrderStore interface {
	GetByID(ctx context.Context, id string) (*models.OrderItem, error)
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error
	UpdateSectionStatus(ctx context.Context, orderItemID, name string, from, to models.SectionStatus) error
	RejectSections(ctx context.Context, batch []repository.SectionRejectionParams) error
	ResetToInventoryCheck(ctx context.Context, orderItemID string, from models.OrderStatus) error
}

// ApprovalStore records sales decisions for audit.
type ApprovalStore interface {
	Create(ctx context.Context, req *models.ApprovalRequest) error
	List(ctx context.Context, filter models.ApprovalFilter) ([]models.ApprovalRequest, error)
}

// PaymentStore persists payments and answers the dispatch gate.
type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	TotalPaid(ctx context.Context, orderItemID string) (float64, error)
	List(ctx context.Context, orderItemID string) ([]models.Payment, error)
}

// SalesService orchestrates client review: sending videos out, the four-way
// rejection tree, payments, and the dispatch gate.
type SalesService struct {
	orders    SalesOrderStore
	approvals ApprovalStore
	payments  PaymentStore
	cache     WorkflowCache
	notifier  Notifier
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewSalesService wires the sales orchestrator.
func NewSalesService(orders SalesOrderStore, approvals ApprovalStore, payments PaymentStore, cache WorkflowCache, notifier Notifier, logger *zap.Logger) *SalesService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalesService{
		orders:    orders,
		approvals: approvals,
		payments:  payments,
		cache:     cache,
		notifier:  notifier,
		validate:  validator.New(),
		logger:    logger,
	}
}

// SendToClient forwards the QA videos to the client for review.
func (s *SalesService) SendToClient(ctx context.Context, orderItemID string, actor *models.User) (*models.OrderItem, error) {
	if !actor.Role.HasPermission(models.PermissionManageSales) {
		return nil, appErrors.ErrForbidden
	}
	item, err := s.transition(ctx, orderItemID, models.OrderStatusReadyForClientApproval, models.OrderStatusAwaitingClientApproval)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(NotificationEvent{Type: EventOrderSentClient, OrderItemID: orderItemID, ActorID: actor.ID})
	return item, nil
}

// ClientApprove records the client's acceptance and hands the order item to
// accounts.
func (s *SalesService) ClientApprove(ctx context.Context, orderItemID string, actor *models.User) (*models.OrderItem, error) {
	if !actor.Role.HasPermission(models.PermissionManageSales) {
		return nil, appErrors.ErrForbidden
	}
	return s.transition(ctx, orderItemID, models.OrderStatusAwaitingClientApproval, models.OrderStatusAwaitingAccountApproval)
}

// RequestReVideo asks QA for a fresh video. The garment itself is fine, so
// the order item stays where it is.
func (s *SalesService) RequestReVideo(ctx context.Context, orderItemID string, req dto.ReVideoRequest, actor *models.User) error {
	if !actor.Role.HasPermission(models.PermissionManageSales) {
		return appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	item, err := s.getOrderItem(ctx, orderItemID)
	if err != nil {
		return err
	}
	if item.Status != models.OrderStatusAwaitingClientApproval {
		return appErrors.Clone(appErrors.ErrStateConflict,
			fmt.Sprintf("order item in status %s is not under client review", item.Status))
	}

	if err := s.recordApproval(ctx, &models.ApprovalRequest{
		OrderItemID: orderItemID,
		Action:      models.ApprovalActionReVideo,
		Reason:      req.Notes,
		RequestedBy: actor.ID,
	}); err != nil {
		return err
	}
	s.notifier.Publish(NotificationEvent{Type: EventOrderReVideo, OrderItemID: orderItemID, ActorID: actor.ID})
	return nil
}

// RequestAlteration sends the selected sections back to rework. The batch is
// all-or-nothing: every section must exist, be approved, and carry notes.
func (s *SalesService) RequestAlteration(ctx context.Context, orderItemID string, req dto.AlterationRequest, actor *models.User) (*models.OrderItem, error) {
	if !actor.Role.HasPermission(models.PermissionManageSales) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	item, err := s.getOrderItem(ctx, orderItemID)
	if err != nil {
		return nil, err
	}
	if item.Status != models.OrderStatusAwaitingClientApproval {
		return nil, appErrors.Clone(appErrors.ErrStateConflict,
			fmt.Sprintf("order item in status %s is not under client review", item.Status))
	}

	known := make(map[string]models.SectionState, len(item.Sections))
	for _, section := range item.Sections {
		known[section.Name] = section
	}
	batch := make([]repository.SectionRejectionParams, 0, len(req.Sections))
	names := make([]string, 0, len(req.Sections))
	notes := make(map[string]string, len(req.Sections))
	for _, target := range req.Sections {
		section, ok := known[target.Name]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("unknown section %s", target.Name))
		}
		if section.Status != models.SectionStatusApproved {
			return nil, appErrors.Clone(appErrors.ErrStateConflict,
				fmt.Sprintf("section %s is not approved", target.Name))
		}
		batch = append(batch, repository.SectionRejectionParams{
			OrderItemID: orderItemID,
			SectionName: target.Name,
			From:        models.SectionStatusApproved,
			To:          models.SectionStatusRework,
			Stage:       models.RejectionStageClient,
			ReasonCode:  "CLIENT_ALTERATION",
			Notes:       target.Notes,
			RejectedBy:  actor.ID,
		})
		names = append(names, target.Name)
		notes[target.Name] = target.Notes
	}

	if err := s.orders.RejectSections(ctx, batch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "a selected section changed state concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record alterations")
	}
	for _, name := range names {
		if err := s.orders.UpdateSectionStatus(ctx, orderItemID, name,
			models.SectionStatusRework, models.SectionStatusInProduction); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to route altered section")
		}
	}
	if err := s.orders.UpdateStatus(ctx, orderItemID,
		models.OrderStatusAwaitingClientApproval, models.OrderStatusAlterationRequired); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "order item changed state concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to route order item")
	}

	sectionNotes, err := json.Marshal(notes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode alteration notes")
	}
	if err := s.recordApproval(ctx, &models.ApprovalRequest{
		OrderItemID:  orderItemID,
		Action:       models.ApprovalActionAlteration,
		Sections:     names,
		SectionNotes: sectionNotes,
		Reason:       "client requested alterations",
		RequestedBy:  actor.ID,
	}); err != nil {
		return nil, err
	}

	s.notifier.Publish(NotificationEvent{
		Type:        EventOrderAltered,
		OrderItemID: orderItemID,
		ActorID:     actor.ID,
		Details:     map[string]string{"sections": fmt.Sprintf("%v", names)},
	})
	invalidateWorkflowCache(ctx, s.cache, s.logger, orderItemID)
	return s.getOrderItem(ctx, orderItemID)
}

// StartFromScratch rejects the whole garment and restarts it at the
// inventory check. Every section reverts to round one. Existing allocations
// stay consumed; the next check allocates fresh material.
func (s *SalesService) StartFromScratch(ctx context.Context, orderItemID string, req dto.ScratchRequest, actor *models.User) (*models.OrderItem, error) {
	if !actor.Role.HasPermission(models.PermissionManageSales) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	item, err := s.getOrderItem(ctx, orderItemID)
	if err != nil {
		return nil, err
	}
	if item.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrStateConflict,
			fmt.Sprintf("order item in status %s cannot be restarted", item.Status))
	}

	if err := s.orders.ResetToInventoryCheck(ctx, orderItemID, item.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "order item changed state concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restart order item")
	}

	if err := s.recordApproval(ctx, &models.ApprovalRequest{
		OrderItemID: orderItemID,
		Action:      models.ApprovalActionScratch,
		Reason:      req.Reason,
		RequestedBy: actor.ID,
	}); err != nil {
		return nil, err
	}
	s.notifier.Publish(NotificationEvent{Type: EventOrderScratched, OrderItemID: orderItemID, ActorID: actor.ID})
	invalidateWorkflowCache(ctx, s.cache, s.logger, orderItemID)
	return s.getOrderItem(ctx, orderItemID)
}

// Cancel terminally cancels the order item on the client's behalf.
func (s *SalesService) Cancel(ctx context.Context, orderItemID string, req dto.CancelRequest, actor *models.User) (*models.OrderItem, error) {
	if !actor.Role.HasPermission(models.PermissionManageSales) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	item, err := s.transition(ctx, orderItemID, models.OrderStatusAwaitingClientApproval, models.OrderStatusCancelledByClient)
	if err != nil {
		return nil, err
	}

	if err := s.recordApproval(ctx, &models.ApprovalRequest{
		OrderItemID: orderItemID,
		Action:      models.ApprovalActionCancel,
		Reason:      req.Reason,
		RequestedBy: actor.ID,
	}); err != nil {
		return nil, err
	}
	s.notifier.Publish(NotificationEvent{Type: EventOrderCancelled, OrderItemID: orderItemID, ActorID: actor.ID})
	return item, nil
}

// RecordPayment stores one payment against the order item.
func (s *SalesService) RecordPayment(ctx context.Context, orderItemID string, req dto.PaymentRequest, actor *models.User) (*models.Payment, error) {
	if !actor.Role.HasPermission(models.PermissionManagePayments) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if _, err := s.getOrderItem(ctx, orderItemID); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		OrderItemID: orderItemID,
		Amount:      req.Amount,
		Method:      req.Method,
		Reference:   req.Reference,
		RecordedBy:  actor.ID,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}
	s.notifier.Publish(NotificationEvent{
		Type:        EventPaymentRecorded,
		OrderItemID: orderItemID,
		ActorID:     actor.ID,
		Details:     map[string]string{"amount": fmt.Sprintf("%.2f", req.Amount)},
	})
	return payment, nil
}

// Payments returns the payment history and running total for an order item.
func (s *SalesService) Payments(ctx context.Context, orderItemID string) ([]models.Payment, float64, error) {
	if _, err := s.getOrderItem(ctx, orderItemID); err != nil {
		return nil, 0, err
	}
	payments, err := s.payments.List(ctx, orderItemID)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payments")
	}
	total, err := s.payments.TotalPaid(ctx, orderItemID)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total payments")
	}
	return payments, total, nil
}

// AccountApprove releases the order item for dispatch once payments cover
// the full amount.
func (s *SalesService) AccountApprove(ctx context.Context, orderItemID string, actor *models.User) (*models.OrderItem, error) {
	if !actor.Role.HasPermission(models.PermissionManagePayments) {
		return nil, appErrors.ErrForbidden
	}

	item, err := s.getOrderItem(ctx, orderItemID)
	if err != nil {
		return nil, err
	}
	total, err := s.payments.TotalPaid(ctx, orderItemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total payments")
	}
	if total < item.TotalAmount {
		return nil, appErrors.Clone(appErrors.ErrStateConflict,
			fmt.Sprintf("payment incomplete: %.2f of %.2f received", total, item.TotalAmount))
	}

	item, err = s.transition(ctx, orderItemID, models.OrderStatusAwaitingAccountApproval, models.OrderStatusReadyForDispatch)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(NotificationEvent{Type: EventOrderDispatch, OrderItemID: orderItemID, ActorID: actor.ID})
	return item, nil
}

// Dispatch marks the garment as handed over. Terminal.
func (s *SalesService) Dispatch(ctx context.Context, orderItemID string, actor *models.User) (*models.OrderItem, error) {
	if !actor.Role.HasPermission(models.PermissionManageSales) {
		return nil, appErrors.ErrForbidden
	}
	return s.transition(ctx, orderItemID, models.OrderStatusReadyForDispatch, models.OrderStatusDispatched)
}

// Approvals returns the recorded sales decisions matching the filter.
func (s *SalesService) Approvals(ctx context.Context, filter models.ApprovalFilter) ([]models.ApprovalRequest, error) {
	requests, err := s.approvals.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approvals")
	}
	return requests, nil
}

func (s *SalesService) transition(ctx context.Context, orderItemID string, from, to models.OrderStatus) (*models.OrderItem, error) {
	item, err := s.getOrderItem(ctx, orderItemID)
	if err != nil {
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, orderItemID, from, to); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict,
				fmt.Sprintf("order item in status %s cannot move to %s", item.Status, to))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update order item")
	}
	invalidateWorkflowCache(ctx, s.cache, s.logger, orderItemID)
	return s.getOrderItem(ctx, orderItemID)
}

func (s *SalesService) getOrderItem(ctx context.Context, orderItemID string) (*models.OrderItem, error) {
	item, err := s.orders.GetByID(ctx, orderItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order item")
	}
	return item, nil
}

func (s *SalesService) recordApproval(ctx context.Context, req *models.ApprovalRequest) error {
	if err := s.approvals.Create(ctx, req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record approval")
	}
	return nil
}
