package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stitchline/atelier-api/internal/dto"
	"github.com/stitchline/atelier-api/internal/models"
	"github.com/stitchline/atelier-api/internal/repository"
	appErrors "github.com/stitchline/atelier-api/pkg/errors"
)

type sectionOrderStub struct {
	items      map[string]*models.OrderItem
	rejections map[string][]models.SectionRejection
}

func newSectionOrderStub() *sectionOrderStub {
	return &sectionOrderStub{
		items:      make(map[string]*models.OrderItem),
		rejections: make(map[string][]models.SectionRejection),
	}
}

func (s *sectionOrderStub) GetByID(ctx context.Context, id string) (*models.OrderItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *item
	copy.Sections = append([]models.SectionState(nil), item.Sections...)
	return &copy, nil
}

func (s *sectionOrderStub) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	item, ok := s.items[id]
	if !ok || item.Status != from {
		return sql.ErrNoRows
	}
	item.Status = to
	return nil
}

func (s *sectionOrderStub) UpdateSectionStatus(ctx context.Context, orderItemID, name string, from, to models.SectionStatus) error {
	item, ok := s.items[orderItemID]
	if !ok {
		return sql.ErrNoRows
	}
	for i := range item.Sections {
		if item.Sections[i].Name == name && item.Sections[i].Status == from {
			item.Sections[i].Status = to
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *sectionOrderStub) RejectSection(ctx context.Context, params repository.SectionRejectionParams) error {
	item, ok := s.items[params.OrderItemID]
	if !ok {
		return sql.ErrNoRows
	}
	for i := range item.Sections {
		section := &item.Sections[i]
		if section.Name != params.SectionName || section.Status != params.From {
			continue
		}
		section.Status = params.To
		section.CurrentRound++
		s.rejections[params.OrderItemID] = append(s.rejections[params.OrderItemID], models.SectionRejection{
			SectionID:  section.ID,
			Round:      section.CurrentRound,
			Stage:      params.Stage,
			ReasonCode: params.ReasonCode,
			Notes:      params.Notes,
			RejectedBy: params.RejectedBy,
		})
		return nil
	}
	return sql.ErrNoRows
}

func (s *sectionOrderStub) ApproveSection(ctx context.Context, orderItemID, name string, orderFrom models.OrderStatus) (bool, error) {
	item, ok := s.items[orderItemID]
	if !ok {
		return false, sql.ErrNoRows
	}
	approved := false
	for i := range item.Sections {
		if item.Sections[i].Name == name && item.Sections[i].Status == models.SectionStatusPendingQA {
			item.Sections[i].Status = models.SectionStatusApproved
			approved = true
			break
		}
	}
	if !approved {
		return false, sql.ErrNoRows
	}
	for _, section := range item.Sections {
		if section.Status != models.SectionStatusApproved {
			return false, nil
		}
	}
	if item.Status == orderFrom {
		item.Status = models.OrderStatusReadyForVideo
		return true, nil
	}
	return false, nil
}

func (s *sectionOrderStub) SetSectionVideo(ctx context.Context, orderItemID, name, videoRef string, uploadedAt time.Time) error {
	item, ok := s.items[orderItemID]
	if !ok {
		return sql.ErrNoRows
	}
	for i := range item.Sections {
		if item.Sections[i].Name == name {
			ref := videoRef
			at := uploadedAt
			item.Sections[i].QAVideoRef = &ref
			item.Sections[i].VideoUploadedAt = &at
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *sectionOrderStub) ListRejections(ctx context.Context, orderItemID string) ([]models.SectionRejection, error) {
	return append([]models.SectionRejection(nil), s.rejections[orderItemID]...), nil
}

type mediaClientStub struct {
	stored []string
}

func (m *mediaClientStub) Store(ctx context.Context, name string, r io.Reader) (string, time.Time, error) {
	ref := "qa/" + name
	m.stored = append(m.stored, ref)
	return ref, time.Now().UTC(), nil
}

func (m *mediaClientStub) PlaybackURL(ref string) (string, time.Time, error) {
	return "https://media.local/" + ref + "?sig=test", time.Now().UTC().Add(15 * time.Minute), nil
}

func seedQASections(orders *sectionOrderStub, names ...string) *models.OrderItem {
	item := &models.OrderItem{ID: "item-1", Status: models.OrderStatusReadyForQA}
	for i, name := range names {
		item.Sections = append(item.Sections, models.SectionState{
			ID:           fmt.Sprintf("section-%d", i+1),
			OrderItemID:  item.ID,
			Name:         name,
			Status:       models.SectionStatusPendingQA,
			CurrentRound: 1,
		})
	}
	orders.items[item.ID] = item
	return item
}

func newSectionFixture(t *testing.T) (*SectionService, *sectionOrderStub, *mediaClientStub, *eventRecorder) {
	t.Helper()
	orders := newSectionOrderStub()
	media := &mediaClientStub{}
	recorder := &eventRecorder{}
	return NewSectionService(orders, media, nil, recorder, nil), orders, media, recorder
}

func TestSectionServiceApproveHoldsUntilLastSection(t *testing.T) {
	svc, orders, _, recorder := newSectionFixture(t)
	seedQASections(orders, "bodice", "sleeve")
	qa := testUser("qa-1", models.RoleQA)

	item, err := svc.Approve(context.Background(), "item-1", "bodice", qa)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusReadyForQA, item.Status)
	require.NotContains(t, recorder.types(), EventOrderReadyVideo)

	item, err = svc.Approve(context.Background(), "item-1", "sleeve", qa)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusReadyForVideo, item.Status)
	require.Contains(t, recorder.types(), EventOrderReadyVideo)
}

func TestSectionServiceApproveRequiresPendingQA(t *testing.T) {
	svc, orders, _, _ := newSectionFixture(t)
	item := seedQASections(orders, "bodice")
	item.Sections[0].Status = models.SectionStatusInProduction

	_, err := svc.Approve(context.Background(), "item-1", "bodice", testUser("qa-1", models.RoleQA))
	requireAppError(t, err, appErrors.ErrStateConflict)
}

func TestSectionServiceApproveRequiresPermission(t *testing.T) {
	svc, orders, _, _ := newSectionFixture(t)
	seedQASections(orders, "bodice")

	_, err := svc.Approve(context.Background(), "item-1", "bodice", testUser("sales-1", models.RoleSales))
	requireAppError(t, err, appErrors.ErrForbidden)
}

func TestSectionServiceRejectBumpsRoundAndRoutesToFloor(t *testing.T) {
	svc, orders, _, recorder := newSectionFixture(t)
	seedQASections(orders, "bodice", "sleeve")
	qa := testUser("qa-1", models.RoleQA)

	item, err := svc.Reject(context.Background(), "item-1", "bodice",
		dto.RejectSectionRequest{ReasonCode: "STITCH_DEFECT", Notes: "loose seam on left panel"}, qa)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusInProduction, item.Status)
	require.Equal(t, models.SectionStatusInProduction, item.Sections[0].Status)
	require.Equal(t, 2, item.Sections[0].CurrentRound)
	// The untouched sibling keeps its state and round.
	require.Equal(t, models.SectionStatusPendingQA, item.Sections[1].Status)
	require.Equal(t, 1, item.Sections[1].CurrentRound)
	require.Contains(t, recorder.types(), EventSectionRejected)

	rejections, err := svc.Rejections(context.Background(), "item-1")
	require.NoError(t, err)
	require.Len(t, rejections, 1)
	require.Equal(t, 2, rejections[0].Round)
	require.Equal(t, models.RejectionStageQA, rejections[0].Stage)
}

func TestSectionServiceRejectNeedsMaterialsRoutesToPacketing(t *testing.T) {
	svc, orders, _, _ := newSectionFixture(t)
	seedQASections(orders, "bodice")

	item, err := svc.Reject(context.Background(), "item-1", "bodice",
		dto.RejectSectionRequest{ReasonCode: "FABRIC_FLAW", Notes: "panel must be recut", NeedsMaterials: true},
		testUser("qa-1", models.RoleQA))
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPacketing, item.Status)
	require.Equal(t, models.SectionStatusPendingMaterials, item.Sections[0].Status)
}

func TestSectionServiceRejectToleratesMovedOrder(t *testing.T) {
	svc, orders, _, _ := newSectionFixture(t)
	item := seedQASections(orders, "bodice", "sleeve")
	// A sibling rejection already pulled the order item back to the floor.
	item.Status = models.OrderStatusInProduction

	got, err := svc.Reject(context.Background(), "item-1", "bodice",
		dto.RejectSectionRequest{ReasonCode: "STITCH_DEFECT", Notes: "redo hem"}, testUser("qa-1", models.RoleQA))
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusInProduction, got.Status)
}

func TestSectionServiceUploadAndPlayback(t *testing.T) {
	svc, orders, media, _ := newSectionFixture(t)
	seedQASections(orders, "bodice")
	qa := testUser("qa-1", models.RoleQA)

	ref, err := svc.UploadVideo(context.Background(), "item-1", "bodice", "bodice-walkthrough.mp4",
		strings.NewReader("video-bytes"), qa)
	require.NoError(t, err)
	require.Equal(t, "qa/bodice-walkthrough.mp4", ref)
	require.Len(t, media.stored, 1)

	url, expiresAt, err := svc.PlaybackURL(context.Background(), "item-1", "bodice")
	require.NoError(t, err)
	require.Contains(t, url, ref)
	require.True(t, expiresAt.After(time.Now()))
}

func TestSectionServicePlaybackWithoutVideoNotFound(t *testing.T) {
	svc, orders, _, _ := newSectionFixture(t)
	seedQASections(orders, "bodice")

	_, _, err := svc.PlaybackURL(context.Background(), "item-1", "bodice")
	requireAppError(t, err, appErrors.ErrNotFound)
}

func TestSectionServiceConfirmVideosRequiresEverySection(t *testing.T) {
	svc, orders, _, _ := newSectionFixture(t)
	item := seedQASections(orders, "bodice", "sleeve")
	item.Status = models.OrderStatusReadyForVideo
	for i := range item.Sections {
		item.Sections[i].Status = models.SectionStatusApproved
	}
	qa := testUser("qa-1", models.RoleQA)

	_, err := svc.UploadVideo(context.Background(), "item-1", "bodice", "bodice.mp4", strings.NewReader("v"), qa)
	require.NoError(t, err)

	_, err = svc.ConfirmVideos(context.Background(), "item-1", qa)
	requireAppError(t, err, appErrors.ErrStateConflict)

	_, err = svc.UploadVideo(context.Background(), "item-1", "sleeve", "sleeve.mp4", strings.NewReader("v"), qa)
	require.NoError(t, err)

	confirmed, err := svc.ConfirmVideos(context.Background(), "item-1", qa)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusReadyForClientApproval, confirmed.Status)
}

func TestSectionServiceAttachVideoValidatesRef(t *testing.T) {
	svc, orders, _, _ := newSectionFixture(t)
	seedQASections(orders, "bodice")
	qa := testUser("qa-1", models.RoleQA)

	err := svc.AttachVideo(context.Background(), "item-1", "bodice", dto.AttachVideoRequest{}, qa)
	requireAppError(t, err, appErrors.ErrValidation)

	err = svc.AttachVideo(context.Background(), "item-1", "bodice", dto.AttachVideoRequest{VideoRef: "qa/external.mp4"}, qa)
	require.NoError(t, err)

	item, err := orders.GetByID(context.Background(), "item-1")
	require.NoError(t, err)
	require.NotNil(t, item.Sections[0].QAVideoRef)
	require.Equal(t, "qa/external.mp4", *item.Sections[0].QAVideoRef)
}
