package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stitchline/atelier-api/internal/dto"
	"github.com/stitchline/atelier-api/internal/models"
	"github.com/stitchline/atelier-api/internal/repository"
	appErrors "github.com/stitchline/atelier-api/pkg/errors"
)

type packetStoreStub struct {
	packets  map[string]*models.Packet
	items    map[string][]models.PickListItem
	timeline map[string][]models.TimelineEntry
	removed  map[string][]models.RemovedPickItem
}

func newPacketStoreStub() *packetStoreStub {
	return &packetStoreStub{
		packets:  make(map[string]*models.Packet),
		items:    make(map[string][]models.PickListItem),
		timeline: make(map[string][]models.TimelineEntry),
		removed:  make(map[string][]models.RemovedPickItem),
	}
}

func (s *packetStoreStub) Create(ctx context.Context, packet *models.Packet, items []models.PickListItem) error {
	if packet.ID == "" {
		packet.ID = fmt.Sprintf("packet-%d", len(s.packets)+1)
	}
	packet.TotalItems = len(items)
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = fmt.Sprintf("%s-item-%d", packet.ID, i+1)
		}
		items[i].PacketID = packet.ID
		items[i].AddedInRound = packet.PacketRound
	}
	s.packets[packet.ID] = packet
	s.items[packet.ID] = items
	packet.PickList = items
	return nil
}

func (s *packetStoreStub) GetByID(ctx context.Context, id string) (*models.Packet, error) {
	packet, ok := s.packets[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *packet
	copy.PickList = append([]models.PickListItem(nil), s.items[id]...)
	copy.Timeline = append([]models.TimelineEntry(nil), s.timeline[id]...)
	return &copy, nil
}

func (s *packetStoreStub) GetByOrderItemID(ctx context.Context, orderItemID string) (*models.Packet, error) {
	for id, packet := range s.packets {
		if packet.OrderItemID == orderItemID {
			return s.GetByID(ctx, id)
		}
	}
	return nil, sql.ErrNoRows
}

func (s *packetStoreStub) UpdateStatus(ctx context.Context, params repository.PacketStatusUpdate) error {
	packet, ok := s.packets[params.ID]
	if !ok || packet.Status != params.From {
		return sql.ErrNoRows
	}
	packet.Status = params.To
	if params.SetAssignment {
		packet.AssignedTo = params.AssignedTo
		packet.AssignedBy = params.AssignedBy
	}
	return nil
}

func (s *packetStoreStub) MarkItemPicked(ctx context.Context, packetID, itemID string, qty float64, userID string) (*models.PickListItem, error) {
	packet, ok := s.packets[packetID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	items := s.items[packetID]
	for i := range items {
		if items[i].ID != itemID {
			continue
		}
		if items[i].IsPicked {
			return nil, repository.ErrAlreadyPicked
		}
		items[i].IsPicked = true
		items[i].PickedQty = qty
		items[i].PickedBy = &userID
		packet.PickedItems++
		copy := items[i]
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *packetStoreStub) Extend(ctx context.Context, params repository.ExtendPacketParams) error {
	packet, ok := s.packets[params.PacketID]
	if !ok || packet.PacketRound != params.ExpectedRound {
		return sql.ErrNoRows
	}
	newRound := params.ExpectedRound + 1

	purge := make(map[string]struct{}, len(params.NewSections))
	for _, name := range params.NewSections {
		purge[name] = struct{}{}
	}
	kept := make([]models.PickListItem, 0)
	for _, item := range s.items[params.PacketID] {
		if _, gone := purge[item.Piece]; gone {
			s.removed[params.PacketID] = append(s.removed[params.PacketID], models.RemovedPickItem{
				PacketID:        params.PacketID,
				InventoryItemID: item.InventoryItemID,
				Piece:           item.Piece,
				WasPicked:       item.IsPicked,
				Reason:          params.PurgeReason,
				RemovedInRound:  newRound,
			})
			continue
		}
		kept = append(kept, item)
	}
	for i, item := range params.NewItems {
		item.ID = fmt.Sprintf("%s-r%d-item-%d", params.PacketID, newRound, i+1)
		item.PacketID = params.PacketID
		item.AddedInRound = newRound
		kept = append(kept, item)
	}
	s.items[params.PacketID] = kept

	unpicked := 0
	for _, item := range kept {
		if !item.IsPicked {
			unpicked++
		}
	}
	packet.Status = params.NewStatus
	packet.PacketRound = newRound
	packet.SectionsIncluded = params.SectionsIncluded
	packet.SectionsPending = params.SectionsPending
	packet.IsPartial = len(params.SectionsPending) > 0
	packet.PreviousAssignee = params.PreviousAssignee
	packet.LastExtensionSections = params.NewSections
	packet.PreviousRoundPickedItems = packet.PickedItems
	packet.PickedItems = 0
	packet.TotalItems = unpicked
	return nil
}

func (s *packetStoreStub) AppendTimeline(ctx context.Context, entry *models.TimelineEntry) error {
	s.timeline[entry.PacketID] = append(s.timeline[entry.PacketID], *entry)
	return nil
}

func (s *packetStoreStub) ListRemovedItems(ctx context.Context, packetID string) ([]models.RemovedPickItem, error) {
	return append([]models.RemovedPickItem(nil), s.removed[packetID]...), nil
}

type packetOrderStub struct {
	items map[string]*models.OrderItem
}

func newPacketOrderStub() *packetOrderStub {
	return &packetOrderStub{items: make(map[string]*models.OrderItem)}
}

func (s *packetOrderStub) GetByID(ctx context.Context, id string) (*models.OrderItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *item
	copy.Sections = append([]models.SectionState(nil), item.Sections...)
	return &copy, nil
}

func (s *packetOrderStub) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	item, ok := s.items[id]
	if !ok || item.Status != from {
		return sql.ErrNoRows
	}
	item.Status = to
	return nil
}

func (s *packetOrderStub) UpdateSectionStatus(ctx context.Context, orderItemID, name string, from, to models.SectionStatus) error {
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

func (s *packetOrderStub) SetProductionHead(ctx context.Context, orderItemID, headUserID string) error {
	item, ok := s.items[orderItemID]
	if !ok {
		return sql.ErrNoRows
	}
	item.ProductionHead = &headUserID
	return nil
}

type headPickerStub struct {
	heads []models.ProductionHead
	next  int
}

func (s *headPickerStub) NextHead(ctx context.Context) (*models.ProductionHead, error) {
	if len(s.heads) == 0 {
		return nil, sql.ErrNoRows
	}
	head := s.heads[s.next%len(s.heads)]
	s.next++
	return &head, nil
}

type inventoryStub struct{}

func (inventoryStub) Requirements(ctx context.Context, productID, sizeCode string, pieces []string) ([]models.MaterialRequirement, error) {
	requirements := make([]models.MaterialRequirement, 0, len(pieces)*2)
	for _, piece := range pieces {
		requirements = append(requirements,
			models.MaterialRequirement{InventoryItemID: "fabric-1", RequiredQty: 2.5, Unit: "m", Piece: piece},
			models.MaterialRequirement{InventoryItemID: "thread-1", RequiredQty: 1, Unit: "spool", Piece: piece},
		)
	}
	return requirements, nil
}

func (inventoryStub) ItemInfo(ctx context.Context, inventoryItemID string) (*models.InventoryItemInfo, error) {
	return &models.InventoryItemInfo{
		Name:         "Material " + inventoryItemID,
		SKU:          "SKU-" + inventoryItemID,
		Unit:         "m",
		RackLocation: "A-12",
	}, nil
}

type eventRecorder struct {
	events []NotificationEvent
}

func (r *eventRecorder) Publish(event NotificationEvent) {
	r.events = append(r.events, event)
}

func (r *eventRecorder) types() []string {
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

func requireAppError(t *testing.T, err error, want *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, want.Code, appErr.Code)
}

func testUser(id string, role models.UserRole) *models.User {
	return &models.User{ID: id, Role: role, Active: true}
}

func newPacketFixture(t *testing.T) (*PacketService, *packetStoreStub, *packetOrderStub, *headPickerStub, *eventRecorder) {
	t.Helper()
	packets := newPacketStoreStub()
	orders := newPacketOrderStub()
	heads := &headPickerStub{heads: []models.ProductionHead{{ID: "head-row-1", UserID: "head-1"}}}
	recorder := &eventRecorder{}
	svc := NewPacketService(packets, orders, inventoryStub{}, heads, nil, recorder, nil)
	return svc, packets, orders, heads, recorder
}

func seedOrderItem(orders *packetOrderStub, status models.OrderStatus, pieces ...string) *models.OrderItem {
	item := &models.OrderItem{
		ID:        "item-1",
		ProductID: "product-1",
		SizeCode:  "M",
		Status:    status,
	}
	for _, piece := range pieces {
		item.Sections = append(item.Sections, models.SectionState{
			Name:         piece,
			Status:       models.SectionStatusPendingMaterials,
			CurrentRound: 1,
		})
	}
	orders.items[item.ID] = item
	return item
}

func TestPacketServiceCreateBuildsEnrichedPickList(t *testing.T) {
	svc, _, orders, _, recorder := newPacketFixture(t)
	item := seedOrderItem(orders, models.OrderStatusPendingInventoryCheck, "bodice", "sleeve")

	packet, err := svc.CreateOrExtend(context.Background(), item, []string{"bodice", "sleeve"}, nil, "inv-1")
	require.NoError(t, err)
	require.Equal(t, models.PacketStatusPending, packet.Status)
	require.Equal(t, 1, packet.PacketRound)
	require.False(t, packet.IsPartial)
	require.Equal(t, 4, packet.TotalItems)
	require.Equal(t, 0, packet.PickedItems)
	require.Equal(t, "Material fabric-1", packet.PickList[0].Name)
	require.Equal(t, "A-12", packet.PickList[0].RackLocation)
	require.Contains(t, recorder.types(), EventPacketCreated)
}

func TestPacketServiceCreatePartialKeepsPendingSections(t *testing.T) {
	svc, _, orders, _, _ := newPacketFixture(t)
	item := seedOrderItem(orders, models.OrderStatusPendingInventoryCheck, "bodice", "sleeve")

	packet, err := svc.CreateOrExtend(context.Background(), item, []string{"bodice"}, []string{"sleeve"}, "inv-1")
	require.NoError(t, err)
	require.True(t, packet.IsPartial)
	require.Equal(t, []string{"bodice"}, []string(packet.SectionsIncluded))
	require.Equal(t, []string{"sleeve"}, []string(packet.SectionsPending))
}

func TestPacketServiceAssignRequiresPermission(t *testing.T) {
	svc, _, orders, _, _ := newPacketFixture(t)
	item := seedOrderItem(orders, models.OrderStatusPacketing, "bodice")
	packet, err := svc.CreateOrExtend(context.Background(), item, []string{"bodice"}, nil, "inv-1")
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), packet.ID, dto.AssignPacketRequest{UserID: "worker-1"}, testUser("qa-1", models.RoleQA))
	requireAppError(t, err, appErrors.ErrForbidden)
}

func TestPacketServiceAssignOnlyFromPending(t *testing.T) {
	svc, _, orders, _, _ := newPacketFixture(t)
	item := seedOrderItem(orders, models.OrderStatusPacketing, "bodice")
	packet, err := svc.CreateOrExtend(context.Background(), item, []string{"bodice"}, nil, "inv-1")
	require.NoError(t, err)

	admin := testUser("admin-1", models.RoleAdmin)
	_, err = svc.Assign(context.Background(), packet.ID, dto.AssignPacketRequest{UserID: "worker-1"}, admin)
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), packet.ID, dto.AssignPacketRequest{UserID: "worker-2"}, admin)
	requireAppError(t, err, appErrors.ErrStateConflict)
}

func startedPacket(t *testing.T, svc *PacketService, orders *packetOrderStub, pieces ...string) *models.Packet {
	t.Helper()
	item := seedOrderItem(orders, models.OrderStatusPacketing, pieces...)
	packet, err := svc.CreateOrExtend(context.Background(), item, pieces, nil, "inv-1")
	require.NoError(t, err)
	admin := testUser("admin-1", models.RoleAdmin)
	_, err = svc.Assign(context.Background(), packet.ID, dto.AssignPacketRequest{UserID: "worker-1"}, admin)
	require.NoError(t, err)
	packet, err = svc.Start(context.Background(), packet.ID, testUser("worker-1", models.RoleInventory))
	require.NoError(t, err)
	return packet
}

func TestPacketServicePickIncrementsCounterOnce(t *testing.T) {
	svc, _, orders, _, _ := newPacketFixture(t)
	packet := startedPacket(t, svc, orders, "bodice")
	worker := testUser("worker-1", models.RoleInventory)

	itemID := packet.PickList[0].ID
	picked, err := svc.PickItem(context.Background(), packet.ID, dto.PickItemRequest{ItemID: itemID, PickedQty: 2.5}, worker)
	require.NoError(t, err)
	require.True(t, picked.IsPicked)

	current, err := svc.Get(context.Background(), packet.ID)
	require.NoError(t, err)
	require.Equal(t, 1, current.PickedItems)

	// Picking the same row twice is a conflict, and the counter holds.
	_, err = svc.PickItem(context.Background(), packet.ID, dto.PickItemRequest{ItemID: itemID, PickedQty: 2.5}, worker)
	requireAppError(t, err, appErrors.ErrStateConflict)

	current, err = svc.Get(context.Background(), packet.ID)
	require.NoError(t, err)
	require.Equal(t, 1, current.PickedItems)
}

func TestPacketServicePickByNonAssigneeForbidden(t *testing.T) {
	svc, _, orders, _, _ := newPacketFixture(t)
	packet := startedPacket(t, svc, orders, "bodice")

	_, err := svc.PickItem(context.Background(), packet.ID,
		dto.PickItemRequest{ItemID: packet.PickList[0].ID, PickedQty: 1}, testUser("worker-2", models.RoleInventory))
	requireAppError(t, err, appErrors.ErrForbidden)
}

func TestPacketServiceCompleteRequiresAllPicked(t *testing.T) {
	svc, _, orders, _, _ := newPacketFixture(t)
	packet := startedPacket(t, svc, orders, "bodice")
	worker := testUser("worker-1", models.RoleInventory)

	_, err := svc.Complete(context.Background(), packet.ID, dto.CompletePacketRequest{}, worker)
	requireAppError(t, err, appErrors.ErrStateConflict)

	for _, item := range packet.PickList {
		_, err := svc.PickItem(context.Background(), packet.ID, dto.PickItemRequest{ItemID: item.ID, PickedQty: item.RequiredQty}, worker)
		require.NoError(t, err)
	}

	completed, err := svc.Complete(context.Background(), packet.ID, dto.CompletePacketRequest{}, worker)
	require.NoError(t, err)
	require.Equal(t, models.PacketStatusCompleted, completed.Status)
}

func completedPacket(t *testing.T, svc *PacketService, orders *packetOrderStub, pieces ...string) *models.Packet {
	t.Helper()
	packet := startedPacket(t, svc, orders, pieces...)
	worker := testUser("worker-1", models.RoleInventory)
	for _, item := range packet.PickList {
		_, err := svc.PickItem(context.Background(), packet.ID, dto.PickItemRequest{ItemID: item.ID, PickedQty: item.RequiredQty}, worker)
		require.NoError(t, err)
	}
	packet, err := svc.Complete(context.Background(), packet.ID, dto.CompletePacketRequest{}, worker)
	require.NoError(t, err)
	return packet
}

func TestPacketServiceApproveRoutesToProduction(t *testing.T) {
	svc, _, orders, _, _ := newPacketFixture(t)
	packet := completedPacket(t, svc, orders, "bodice", "sleeve")

	approved, err := svc.Approve(context.Background(), packet.ID, dto.ApprovePacketRequest{}, testUser("admin-1", models.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, models.PacketStatusApproved, approved.Status)

	item := orders.items["item-1"]
	require.Equal(t, models.OrderStatusInProduction, item.Status)
	require.NotNil(t, item.ProductionHead)
	require.Equal(t, "head-1", *item.ProductionHead)
	for _, section := range item.Sections {
		require.Equal(t, models.SectionStatusInProduction, section.Status)
	}
}

func TestPacketServiceApproveReadyStockSkipsProduction(t *testing.T) {
	svc, _, orders, _, _ := newPacketFixture(t)
	packet := completedPacket(t, svc, orders, "bodice")

	_, err := svc.Approve(context.Background(), packet.ID, dto.ApprovePacketRequest{IsReadyStock: true}, testUser("admin-1", models.RoleAdmin))
	require.NoError(t, err)

	item := orders.items["item-1"]
	require.Equal(t, models.OrderStatusReadyForQA, item.Status)
	require.Nil(t, item.ProductionHead)
	require.Equal(t, models.SectionStatusPendingQA, item.Sections[0].Status)
}

func TestPacketServiceApproveWithEmptyRosterConflicts(t *testing.T) {
	svc, packets, orders, heads, _ := newPacketFixture(t)
	heads.heads = nil
	packet := completedPacket(t, svc, orders, "bodice")

	_, err := svc.Approve(context.Background(), packet.ID, dto.ApprovePacketRequest{}, testUser("admin-1", models.RoleAdmin))
	requireAppError(t, err, appErrors.ErrStateConflict)
	// The packet is untouched when no head can be picked.
	require.Equal(t, models.PacketStatusCompleted, packets.packets[packet.ID].Status)
}

func TestPacketServiceRejectKeepsPickListAndRound(t *testing.T) {
	svc, packets, orders, _, _ := newPacketFixture(t)
	packet := completedPacket(t, svc, orders, "bodice")

	rejected, err := svc.Reject(context.Background(), packet.ID,
		dto.RejectPacketRequest{ReasonCode: "WRONG_SHADE", Reason: "dye lot mismatch"},
		testUser("admin-1", models.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, models.PacketStatusAssigned, rejected.Status)
	require.Equal(t, 1, rejected.PacketRound)
	require.Equal(t, rejected.TotalItems, rejected.PickedItems)

	entries := 0
	for _, entry := range packets.timeline[packet.ID] {
		if entry.Action == models.TimelineActionRejected {
			entries++
		}
	}
	require.Equal(t, 1, entries)
}

func TestPacketServiceExtendPurgesAndResetsRoundScope(t *testing.T) {
	svc, packets, orders, _, _ := newPacketFixture(t)
	packet := completedPacket(t, svc, orders, "bodice")
	admin := testUser("admin-1", models.RoleAdmin)
	_, err := svc.Approve(context.Background(), packet.ID, dto.ApprovePacketRequest{IsReadyStock: true}, admin)
	require.NoError(t, err)

	item, err := orders.GetByID(context.Background(), "item-1")
	require.NoError(t, err)

	extended, err := svc.CreateOrExtend(context.Background(), item, []string{"bodice"}, nil, "inv-1")
	require.NoError(t, err)
	require.Equal(t, 2, extended.PacketRound)
	// The previous assignee continues, so the packet skips the pool.
	require.Equal(t, models.PacketStatusAssigned, extended.Status)
	require.NotNil(t, extended.PreviousAssignee)
	require.Equal(t, "worker-1", *extended.PreviousAssignee)
	require.Equal(t, 0, extended.PickedItems)
	require.Equal(t, 2, extended.PreviousRoundPickedItems)
	require.Equal(t, 2, extended.TotalItems)
	for _, row := range extended.PickList {
		require.Equal(t, 2, row.AddedInRound)
		require.False(t, row.IsPicked)
	}

	removed, err := svc.RemovedItems(context.Background(), packet.ID)
	require.NoError(t, err)
	require.Len(t, removed, 2)
	for _, row := range removed {
		require.True(t, row.WasPicked)
	}
	require.Len(t, packets.items[packet.ID], 2)
}

func TestPacketServiceExtendUnassignedPartialStaysPending(t *testing.T) {
	svc, _, orders, _, _ := newPacketFixture(t)
	item := seedOrderItem(orders, models.OrderStatusPacketing, "bodice", "sleeve")
	packet, err := svc.CreateOrExtend(context.Background(), item, []string{"bodice"}, []string{"sleeve"}, "inv-1")
	require.NoError(t, err)
	require.Equal(t, models.PacketStatusPending, packet.Status)

	// The pending section clears a later inventory check before round 1 is
	// even assigned. The packet re-scopes in place and stays in the pool.
	extended, err := svc.CreateOrExtend(context.Background(), item, []string{"sleeve"}, nil, "inv-1")
	require.NoError(t, err)
	require.Equal(t, packet.ID, extended.ID)
	require.Equal(t, models.PacketStatusPending, extended.Status)
	require.Equal(t, 2, extended.PacketRound)
	require.False(t, extended.IsPartial)
	require.ElementsMatch(t, []string{"bodice", "sleeve"}, []string(extended.SectionsIncluded))
	require.Empty(t, []string(extended.SectionsPending))
	require.Equal(t, 4, extended.TotalItems)
	require.Nil(t, extended.PreviousAssignee)
}

func TestPacketServiceExtendAssignedPartialResumesAssignee(t *testing.T) {
	svc, packets, orders, _, _ := newPacketFixture(t)
	item := seedOrderItem(orders, models.OrderStatusPacketing, "bodice", "sleeve")
	packet, err := svc.CreateOrExtend(context.Background(), item, []string{"bodice"}, []string{"sleeve"}, "inv-1")
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), packet.ID, dto.AssignPacketRequest{UserID: "worker-1"}, testUser("admin-1", models.RoleAdmin))
	require.NoError(t, err)

	extended, err := svc.CreateOrExtend(context.Background(), item, []string{"sleeve"}, nil, "inv-1")
	require.NoError(t, err)
	require.Equal(t, models.PacketStatusAssigned, extended.Status)
	require.Equal(t, 2, extended.PacketRound)
	require.NotNil(t, extended.PreviousAssignee)
	require.Equal(t, "worker-1", *extended.PreviousAssignee)

	continued := 0
	for _, entry := range packets.timeline[packet.ID] {
		if entry.Action == models.TimelineActionAutoContinue {
			continued++
		}
	}
	require.Equal(t, 1, continued)
}

func TestPacketServiceExtendMidPickingKeepsPickedRows(t *testing.T) {
	svc, _, orders, _, _ := newPacketFixture(t)
	item := seedOrderItem(orders, models.OrderStatusPacketing, "bodice", "sleeve")
	packet, err := svc.CreateOrExtend(context.Background(), item, []string{"bodice"}, []string{"sleeve"}, "inv-1")
	require.NoError(t, err)
	admin := testUser("admin-1", models.RoleAdmin)
	_, err = svc.Assign(context.Background(), packet.ID, dto.AssignPacketRequest{UserID: "worker-1"}, admin)
	require.NoError(t, err)
	worker := testUser("worker-1", models.RoleInventory)
	packet, err = svc.Start(context.Background(), packet.ID, worker)
	require.NoError(t, err)
	_, err = svc.PickItem(context.Background(), packet.ID,
		dto.PickItemRequest{ItemID: packet.PickList[0].ID, PickedQty: 2.5}, worker)
	require.NoError(t, err)

	extended, err := svc.CreateOrExtend(context.Background(), item, []string{"sleeve"}, nil, "inv-1")
	require.NoError(t, err)
	require.Equal(t, models.PacketStatusAssigned, extended.Status)
	require.Equal(t, 2, extended.PacketRound)
	require.Equal(t, 0, extended.PickedItems)
	require.Equal(t, 1, extended.PreviousRoundPickedItems)
	require.Equal(t, 3, extended.TotalItems)

	picked := 0
	for _, row := range extended.PickList {
		if row.IsPicked {
			picked++
			require.Equal(t, "bodice", row.Piece)
		}
	}
	require.Equal(t, 1, picked)

	// No sleeve rows existed before, so nothing lands in the purge archive.
	removed, err := svc.RemovedItems(context.Background(), packet.ID)
	require.NoError(t, err)
	require.Empty(t, removed)
}
