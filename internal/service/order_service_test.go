package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stitchline/atelier-api/internal/dto"
	"github.com/stitchline/atelier-api/internal/models"
	appErrors "github.com/stitchline/atelier-api/pkg/errors"
)

type orderStoreStub struct {
	items map[string]*models.OrderItem
	order []string
}

func newOrderStoreStub() *orderStoreStub {
	return &orderStoreStub{items: make(map[string]*models.OrderItem)}
}

func (s *orderStoreStub) Create(ctx context.Context, item *models.OrderItem, sections []models.SectionState) error {
	if item.ID == "" {
		item.ID = fmt.Sprintf("item-%d", len(s.items)+1)
	}
	for i := range sections {
		sections[i].ID = fmt.Sprintf("%s-section-%d", item.ID, i+1)
		sections[i].OrderItemID = item.ID
	}
	item.Sections = sections
	s.items[item.ID] = item
	s.order = append(s.order, item.ID)
	return nil
}

func (s *orderStoreStub) GetByID(ctx context.Context, id string) (*models.OrderItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *item
	copy.Sections = append([]models.SectionState(nil), item.Sections...)
	return &copy, nil
}

func (s *orderStoreStub) List(ctx context.Context, limit, offset int) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, *s.items[id])
	}
	return items, nil
}

func (s *orderStoreStub) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	item, ok := s.items[id]
	if !ok || item.Status != from {
		return sql.ErrNoRows
	}
	item.Status = to
	return nil
}

func (s *orderStoreStub) UpdateSectionStatus(ctx context.Context, orderItemID, name string, from, to models.SectionStatus) error {
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

type packetCreatorStub struct {
	calls   int
	passed  []string
	pending []string
	err     error
}

func (s *packetCreatorStub) CreateOrExtend(ctx context.Context, item *models.OrderItem, passed, pending []string, actorID string) (*models.Packet, error) {
	s.calls++
	s.passed = passed
	s.pending = pending
	if s.err != nil {
		return nil, s.err
	}
	return &models.Packet{
		ID:          "packet-1",
		OrderItemID: item.ID,
		Status:      models.PacketStatusPending,
		PacketRound: s.calls,
		IsPartial:   len(pending) > 0,
	}, nil
}

func newOrderFixture(t *testing.T) (*OrderService, *orderStoreStub, *packetCreatorStub) {
	t.Helper()
	orders := newOrderStoreStub()
	packets := &packetCreatorStub{}
	svc := NewOrderService(orders, packets, nil, nil, 0, 0, nil)
	return svc, orders, packets
}

func createRequest(pieces ...string) dto.CreateOrderItemRequest {
	return dto.CreateOrderItemRequest{
		OrderID:     "order-1",
		ProductID:   "product-1",
		ProductName: "Structured blazer",
		SizeCode:    "M",
		Pieces:      pieces,
		TotalAmount: 1800,
	}
}

func TestOrderServiceCreateSeedsSections(t *testing.T) {
	svc, _, _ := newOrderFixture(t)

	item, err := svc.Create(context.Background(), createRequest("bodice", "sleeve", "collar"), "sales-1")
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPendingInventoryCheck, item.Status)
	require.Len(t, item.Sections, 3)
	for _, section := range item.Sections {
		require.Equal(t, models.SectionStatusPendingMaterials, section.Status)
		require.Equal(t, 1, section.CurrentRound)
	}
}

func TestOrderServiceCreateRejectsDuplicatePieces(t *testing.T) {
	svc, _, _ := newOrderFixture(t)

	_, err := svc.Create(context.Background(), createRequest("bodice", "bodice"), "sales-1")
	requireAppError(t, err, appErrors.ErrValidation)
}

func TestOrderServiceBoardKeepsColumnOrder(t *testing.T) {
	svc, orders, _ := newOrderFixture(t)
	_, err := svc.Create(context.Background(), createRequest("bodice"), "sales-1")
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), createRequest("bodice"), "sales-1")
	require.NoError(t, err)
	orders.items[second.ID].Status = models.OrderStatusInProduction

	board, err := svc.Board(context.Background())
	require.NoError(t, err)
	require.Len(t, board.Columns, len(boardOrder))
	require.Equal(t, models.OrderStatusPendingInventoryCheck, board.Columns[0].Status)
	require.Len(t, board.Columns[0].Items, 1)
	require.Equal(t, models.OrderStatusInProduction, board.Columns[3].Status)
	require.Len(t, board.Columns[3].Items, 1)
	// Empty columns still appear so the board layout is stable.
	require.Len(t, board.Columns[11].Items, 0)
}

func TestOrderServiceInventoryCheckAdvancesToPacketing(t *testing.T) {
	svc, orders, packets := newOrderFixture(t)
	item, err := svc.Create(context.Background(), createRequest("bodice", "sleeve"), "sales-1")
	require.NoError(t, err)
	worker := testUser("inv-1", models.RoleInventory)

	packet, err := svc.RunInventoryCheck(context.Background(), item.ID,
		dto.InventoryCheckRequest{PassedSections: []string{"bodice"}, PendingSections: []string{"sleeve"}}, worker)
	require.NoError(t, err)
	require.True(t, packet.IsPartial)
	require.Equal(t, 1, packets.calls)
	require.Equal(t, []string{"bodice"}, packets.passed)
	require.Equal(t, models.OrderStatusPacketing, orders.items[item.ID].Status)
}

func TestOrderServiceInventoryCheckReworkRoundKeepsOrderStatus(t *testing.T) {
	svc, orders, packets := newOrderFixture(t)
	item, err := svc.Create(context.Background(), createRequest("bodice", "sleeve"), "sales-1")
	require.NoError(t, err)
	orders.items[item.ID].Status = models.OrderStatusPacketing
	worker := testUser("inv-1", models.RoleInventory)

	_, err = svc.RunInventoryCheck(context.Background(), item.ID,
		dto.InventoryCheckRequest{PassedSections: []string{"sleeve"}}, worker)
	require.NoError(t, err)
	require.Equal(t, 1, packets.calls)
	require.Equal(t, models.OrderStatusPacketing, orders.items[item.ID].Status)
}

func TestOrderServiceInventoryCheckRefusesWrongStage(t *testing.T) {
	svc, orders, _ := newOrderFixture(t)
	item, err := svc.Create(context.Background(), createRequest("bodice"), "sales-1")
	require.NoError(t, err)
	orders.items[item.ID].Status = models.OrderStatusInProduction

	_, err = svc.RunInventoryCheck(context.Background(), item.ID,
		dto.InventoryCheckRequest{PassedSections: []string{"bodice"}}, testUser("inv-1", models.RoleInventory))
	requireAppError(t, err, appErrors.ErrStateConflict)
}

func TestOrderServiceInventoryCheckValidatesSectionSplit(t *testing.T) {
	svc, _, _ := newOrderFixture(t)
	item, err := svc.Create(context.Background(), createRequest("bodice", "sleeve"), "sales-1")
	require.NoError(t, err)
	worker := testUser("inv-1", models.RoleInventory)

	_, err = svc.RunInventoryCheck(context.Background(), item.ID,
		dto.InventoryCheckRequest{PassedSections: []string{"collar"}}, worker)
	requireAppError(t, err, appErrors.ErrValidation)

	_, err = svc.RunInventoryCheck(context.Background(), item.ID,
		dto.InventoryCheckRequest{PassedSections: []string{"bodice"}, PendingSections: []string{"bodice"}}, worker)
	requireAppError(t, err, appErrors.ErrValidation)

	_, err = svc.RunInventoryCheck(context.Background(), item.ID, dto.InventoryCheckRequest{}, worker)
	requireAppError(t, err, appErrors.ErrValidation)
}

func TestOrderServiceCompleteProductionRoutesSectionsToQA(t *testing.T) {
	svc, orders, _ := newOrderFixture(t)
	item, err := svc.Create(context.Background(), createRequest("bodice", "sleeve"), "sales-1")
	require.NoError(t, err)
	stored := orders.items[item.ID]
	stored.Status = models.OrderStatusInProduction
	head := "head-1"
	stored.ProductionHead = &head
	stored.Sections[0].Status = models.SectionStatusInProduction
	// The sleeve is still waiting on materials and must not move.
	stored.Sections[1].Status = models.SectionStatusPendingMaterials

	got, err := svc.CompleteProduction(context.Background(), item.ID, testUser("head-1", models.RoleProductionHead))
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusReadyForQA, got.Status)
	require.Equal(t, models.SectionStatusPendingQA, got.Sections[0].Status)
	require.Equal(t, models.SectionStatusPendingMaterials, got.Sections[1].Status)
}

func TestOrderServiceCompleteProductionResumesAfterAlteration(t *testing.T) {
	svc, orders, _ := newOrderFixture(t)
	item, err := svc.Create(context.Background(), createRequest("bodice"), "sales-1")
	require.NoError(t, err)
	stored := orders.items[item.ID]
	stored.Status = models.OrderStatusAlterationRequired
	stored.Sections[0].Status = models.SectionStatusInProduction

	got, err := svc.CompleteProduction(context.Background(), item.ID, testUser("admin-1", models.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusReadyForQA, got.Status)
	require.Equal(t, models.SectionStatusPendingQA, got.Sections[0].Status)
}

func TestOrderServiceCompleteProductionGuardsAssignedHead(t *testing.T) {
	svc, orders, _ := newOrderFixture(t)
	item, err := svc.Create(context.Background(), createRequest("bodice"), "sales-1")
	require.NoError(t, err)
	stored := orders.items[item.ID]
	stored.Status = models.OrderStatusInProduction
	head := "head-1"
	stored.ProductionHead = &head

	_, err = svc.CompleteProduction(context.Background(), item.ID, testUser("head-2", models.RoleProductionHead))
	requireAppError(t, err, appErrors.ErrForbidden)
}
