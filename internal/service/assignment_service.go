package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/stitchline/atelier-api/internal/dto"
	"github.com/stitchline/atelier-api/internal/models"
	appErrors "github.com/stitchline/atelier-api/pkg/errors"
)

// RosterStore maintains the production-head roster and rotation cursor.
type RosterStore interface {
	AddHead(ctx context.Context, head *models.ProductionHead) error
	ListHeads(ctx context.Context) ([]models.ProductionHead, error)
	NextHead(ctx context.Context) (*models.ProductionHead, error)
}

// AssignmentService manages the round-robin production-head roster. Strict
// rotation: no load awareness, no skipping.
type AssignmentService struct {
	roster   RosterStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAssignmentService wires the roster service.
func NewAssignmentService(roster RosterStore, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		roster:   roster,
		validate: validator.New(),
		logger:   logger,
	}
}

// AddHead appends a production head to the end of the rotation.
func (s *AssignmentService) AddHead(ctx context.Context, req dto.AddHeadRequest, actor *models.User) (*models.ProductionHead, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	head := &models.ProductionHead{
		UserID:   req.UserID,
		FullName: req.FullName,
	}
	if err := s.roster.AddHead(ctx, head); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add production head")
	}
	s.logger.Info("production head added",
		zap.String("user_id", head.UserID), zap.Int("position", head.Position))
	return head, nil
}

// ListHeads returns the active roster in rotation order.
func (s *AssignmentService) ListHeads(ctx context.Context) ([]models.ProductionHead, error) {
	heads, err := s.roster.ListHeads(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return heads, nil
}

// NextHead implements HeadPicker for the packet engine.
func (s *AssignmentService) NextHead(ctx context.Context) (*models.ProductionHead, error) {
	head, err := s.roster.NextHead(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return head, nil
}
