package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/stitchline/atelier-api/internal/dto"
	"github.com/stitchline/atelier-api/internal/models"
	"github.com/stitchline/atelier-api/internal/repository"
	appErrors "github.com/stitchline/atelier-api/pkg/errors"
)

// SectionOrderStore is the persistence surface the QA tracker depends on.
type SectionOrderStore interface {
	GetByID(ctx context.Context, id string) (*models.OrderItem, error)
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error
	UpdateSectionStatus(ctx context.Context, orderItemID, name string, from, to models.SectionStatus) error
	RejectSection(ctx context.Context, params repository.SectionRejectionParams) error
	ApproveSection(ctx context.Context, orderItemID, name string, orderFrom models.OrderStatus) (bool, error)
	SetSectionVideo(ctx context.Context, orderItemID, name, videoRef string, uploadedAt time.Time) error
	ListRejections(ctx context.Context, orderItemID string) ([]models.SectionRejection, error)
}

// SectionService runs per-section QA: independent approval rounds per piece,
// a fan-in barrier across all pieces, and the QA video step.
type SectionService struct {
	orders   SectionOrderStore
	media    MediaClient
	cache    WorkflowCache
	notifier Notifier
	validate *validator.Validate
	logger   *zap.Logger
}

// NewSectionService wires the section tracker.
func NewSectionService(orders SectionOrderStore, media MediaClient, cache WorkflowCache, notifier Notifier, logger *zap.Logger) *SectionService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{
		orders:   orders,
		media:    media,
		cache:    cache,
		notifier: notifier,
		validate: validator.New(),
		logger:   logger,
	}
}

// Approve passes one section through QA. When this approval leaves every
// section approved the order item advances to the video stage; the barrier is
// evaluated inside the same transaction as the approval itself.
func (s *SectionService) Approve(ctx context.Context, orderItemID, name string, actor *models.User) (*models.OrderItem, error) {
	if !actor.Role.HasPermission(models.PermissionReviewSections) {
		return nil, appErrors.ErrForbidden
	}

	barrierFired, err := s.orders.ApproveSection(ctx, orderItemID, name, models.OrderStatusReadyForQA)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict,
				fmt.Sprintf("section %s is not awaiting QA", name))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve section")
	}

	s.notifier.Publish(NotificationEvent{
		Type:        EventSectionApproved,
		OrderItemID: orderItemID,
		ActorID:     actor.ID,
		Details:     map[string]string{"section": name},
	})
	if barrierFired {
		s.notifier.Publish(NotificationEvent{
			Type:        EventOrderReadyVideo,
			OrderItemID: orderItemID,
			ActorID:     actor.ID,
		})
	}
	invalidateWorkflowCache(ctx, s.cache, s.logger, orderItemID)
	return s.getOrderItem(ctx, orderItemID)
}

// Reject sends one section back for rework and bumps its round by exactly
// one. NeedsMaterials routes the piece back through allocation and packet
// extension instead of straight to the floor.
func (s *SectionService) Reject(ctx context.Context, orderItemID, name string, req dto.RejectSectionRequest, actor *models.User) (*models.OrderItem, error) {
	if !actor.Role.HasPermission(models.PermissionReviewSections) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	err := s.orders.RejectSection(ctx, repository.SectionRejectionParams{
		OrderItemID: orderItemID,
		SectionName: name,
		From:        models.SectionStatusPendingQA,
		To:          models.SectionStatusRework,
		Stage:       models.RejectionStageQA,
		ReasonCode:  req.ReasonCode,
		Notes:       req.Notes,
		RejectedBy:  actor.ID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict,
				fmt.Sprintf("section %s is not awaiting QA", name))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject section")
	}

	sectionTarget := models.SectionStatusInProduction
	orderTarget := models.OrderStatusInProduction
	if req.NeedsMaterials {
		sectionTarget = models.SectionStatusPendingMaterials
		orderTarget = models.OrderStatusPacketing
	}
	if err := s.orders.UpdateSectionStatus(ctx, orderItemID, name, models.SectionStatusRework, sectionTarget); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to route rejected section")
	}

	// Another section's rejection may already have moved the order item out
	// of the QA stage; a missed swap here is not an error.
	if err := s.orders.UpdateStatus(ctx, orderItemID, models.OrderStatusReadyForQA, orderTarget); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to route order item")
	}

	s.notifier.Publish(NotificationEvent{
		Type:        EventSectionRejected,
		OrderItemID: orderItemID,
		ActorID:     actor.ID,
		Details: map[string]string{
			"section":        name,
			"reasonCode":     req.ReasonCode,
			"needsMaterials": fmt.Sprintf("%t", req.NeedsMaterials),
		},
	})
	invalidateWorkflowCache(ctx, s.cache, s.logger, orderItemID)
	return s.getOrderItem(ctx, orderItemID)
}

// UploadVideo streams a QA walkthrough into the media store and records the
// durable reference on the section.
func (s *SectionService) UploadVideo(ctx context.Context, orderItemID, name, filename string, r io.Reader, actor *models.User) (string, error) {
	if !actor.Role.HasPermission(models.PermissionReviewSections) {
		return "", appErrors.ErrForbidden
	}

	ref, uploadedAt, err := s.media.Store(ctx, filename, r)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status,
			"failed to store QA video")
	}
	if err := s.orders.SetSectionVideo(ctx, orderItemID, name, ref, uploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %s not found", name))
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record QA video")
	}

	invalidateWorkflowCache(ctx, s.cache, s.logger, orderItemID)
	return ref, nil
}

// AttachVideo records a reference produced by an external upload flow.
func (s *SectionService) AttachVideo(ctx context.Context, orderItemID, name string, req dto.AttachVideoRequest, actor *models.User) error {
	if !actor.Role.HasPermission(models.PermissionReviewSections) {
		return appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	if err := s.orders.SetSectionVideo(ctx, orderItemID, name, req.VideoRef, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %s not found", name))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record QA video")
	}
	invalidateWorkflowCache(ctx, s.cache, s.logger, orderItemID)
	return nil
}

// PlaybackURL returns a signed playback link for a section's QA video.
func (s *SectionService) PlaybackURL(ctx context.Context, orderItemID, name string) (string, time.Time, error) {
	item, err := s.getOrderItem(ctx, orderItemID)
	if err != nil {
		return "", time.Time{}, err
	}
	for _, section := range item.Sections {
		if section.Name != name {
			continue
		}
		if section.QAVideoRef == nil {
			return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %s has no QA video", name))
		}
		url, expiresAt, err := s.media.PlaybackURL(*section.QAVideoRef)
		if err != nil {
			return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
				"failed to sign playback URL")
		}
		return url, expiresAt, nil
	}
	return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %s not found", name))
}

// ConfirmVideos moves the order item from the video stage to client review.
// Every section needs a recorded video first.
func (s *SectionService) ConfirmVideos(ctx context.Context, orderItemID string, actor *models.User) (*models.OrderItem, error) {
	if !actor.Role.HasPermission(models.PermissionReviewSections) {
		return nil, appErrors.ErrForbidden
	}

	item, err := s.getOrderItem(ctx, orderItemID)
	if err != nil {
		return nil, err
	}
	for _, section := range item.Sections {
		if section.QAVideoRef == nil {
			return nil, appErrors.Clone(appErrors.ErrStateConflict,
				fmt.Sprintf("section %s has no QA video", section.Name))
		}
	}

	err = s.orders.UpdateStatus(ctx, orderItemID, models.OrderStatusReadyForVideo, models.OrderStatusReadyForClientApproval)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict,
				fmt.Sprintf("order item in status %s is not at the video stage", item.Status))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance order item")
	}

	invalidateWorkflowCache(ctx, s.cache, s.logger, orderItemID)
	return s.getOrderItem(ctx, orderItemID)
}

// Rejections returns the rejection history across the sections of an order
// item.
func (s *SectionService) Rejections(ctx context.Context, orderItemID string) ([]models.SectionRejection, error) {
	if _, err := s.getOrderItem(ctx, orderItemID); err != nil {
		return nil, err
	}
	rejections, err := s.orders.ListRejections(ctx, orderItemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rejections")
	}
	return rejections, nil
}

func (s *SectionService) getOrderItem(ctx context.Context, orderItemID string) (*models.OrderItem, error) {
	item, err := s.orders.GetByID(ctx, orderItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order item")
	}
	return item, nil
}
