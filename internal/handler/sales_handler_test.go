package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/stitchline/atelier-api/internal/models"
	"github.com/stitchline/atelier-api/internal/repository"
	"github.com/stitchline/atelier-api/internal/service"
)

type salesOrderMock struct {
	items map[string]*models.OrderItem
}

func (m *salesOrderMock) GetByID(ctx context.Context, id string) (*models.OrderItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *item
	return &clone, nil
}

func (m *salesOrderMock) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	item, ok := m.items[id]
	if !ok || item.Status != from {
		return sql.ErrNoRows
	}
	item.Status = to
	return nil
}

func (m *salesOrderMock) UpdateSectionStatus(ctx context.Context, orderItemID, name string, from, to models.SectionStatus) error {
	return nil
}

func (m *salesOrderMock) RejectSections(ctx context.Context, batch []repository.SectionRejectionParams) error {
	return nil
}

func (m *salesOrderMock) ResetToInventoryCheck(ctx context.Context, orderItemID string, from models.OrderStatus) error {
	item, ok := m.items[orderItemID]
	if !ok || item.Status != from {
		return sql.ErrNoRows
	}
	item.Status = models.OrderStatusPendingInventoryCheck
	return nil
}

type approvalMock struct {
	requests []models.ApprovalRequest
}

func (m *approvalMock) Create(ctx context.Context, req *models.ApprovalRequest) error {
	req.ID = fmt.Sprintf("approval-%d", len(m.requests)+1)
	m.requests = append(m.requests, *req)
	return nil
}

func (m *approvalMock) List(ctx context.Context, filter models.ApprovalFilter) ([]models.ApprovalRequest, error) {
	return m.requests, nil
}

type paymentMock struct {
	payments []models.Payment
}

func (m *paymentMock) Create(ctx context.Context, payment *models.Payment) error {
	payment.ID = fmt.Sprintf("payment-%d", len(m.payments)+1)
	m.payments = append(m.payments, *payment)
	return nil
}

func (m *paymentMock) TotalPaid(ctx context.Context, orderItemID string) (float64, error) {
	var total float64
	for _, p := range m.payments {
		if p.OrderItemID == orderItemID {
			total += p.Amount
		}
	}
	return total, nil
}

func (m *paymentMock) List(ctx context.Context, orderItemID string) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range m.payments {
		if p.OrderItemID == orderItemID {
			out = append(out, p)
		}
	}
	return out, nil
}

func newSalesHandlerFixture(t *testing.T, status models.OrderStatus) (*SalesHandler, *paymentMock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	orders := &salesOrderMock{items: map[string]*models.OrderItem{
		"item-1": {ID: "item-1", Status: status, TotalAmount: 1200},
	}}
	payments := &paymentMock{}
	svc := service.NewSalesService(orders, &approvalMock{}, payments, nil, nil, nil)
	return NewSalesHandler(svc), payments
}

func salesTestContext(t *testing.T, method string, body string, role models.UserRole) (*gin.Context, *httptest.ResponseRecorder) {
	c, w := packetTestContext(t, method, "/order-items/item-1", []byte(body), role,
		gin.Params{{Key: "id", Value: "item-1"}})
	return c, w
}

func TestSalesHandlerSendToClient(t *testing.T) {
	handler, _ := newSalesHandlerFixture(t, models.OrderStatusReadyForClientApproval)

	c, w := salesTestContext(t, http.MethodPost, "", models.RoleSales)
	handler.SendToClient(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), string(models.OrderStatusAwaitingClientApproval))

	// The videos are already with the client; a second send is a conflict.
	c, w = salesTestContext(t, http.MethodPost, "", models.RoleSales)
	handler.SendToClient(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestSalesHandlerSendToClientForbidden(t *testing.T) {
	handler, _ := newSalesHandlerFixture(t, models.OrderStatusReadyForClientApproval)

	c, w := salesTestContext(t, http.MethodPost, "", models.RoleQA)
	handler.SendToClient(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestSalesHandlerCancelRequiresReason(t *testing.T) {
	handler, _ := newSalesHandlerFixture(t, models.OrderStatusAwaitingClientApproval)

	c, w := salesTestContext(t, http.MethodPost, `{}`, models.RoleSales)
	handler.Cancel(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = salesTestContext(t, http.MethodPost, `{"reason":"client moved abroad"}`, models.RoleSales)
	handler.Cancel(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), string(models.OrderStatusCancelledByClient))
}

func TestSalesHandlerScratch(t *testing.T) {
	handler, _ := newSalesHandlerFixture(t, models.OrderStatusAwaitingClientApproval)

	c, w := salesTestContext(t, http.MethodPost, `{"reason":"wrong fabric entirely"}`, models.RoleSales)
	handler.Scratch(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), string(models.OrderStatusPendingInventoryCheck))
}

func TestSalesHandlerRecordPaymentPermissions(t *testing.T) {
	handler, payments := newSalesHandlerFixture(t, models.OrderStatusAwaitingAccountApproval)
	body := `{"amount":700,"method":"UPI","reference":"txn-1"}`

	c, w := salesTestContext(t, http.MethodPost, body, models.RoleSales)
	handler.RecordPayment(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Empty(t, payments.payments)

	c, w = salesTestContext(t, http.MethodPost, body, models.RoleAccounts)
	handler.RecordPayment(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), `"amount":700`)
	require.Len(t, payments.payments, 1)
}

func TestSalesHandlerPaymentGate(t *testing.T) {
	handler, _ := newSalesHandlerFixture(t, models.OrderStatusAwaitingAccountApproval)

	c, w := salesTestContext(t, http.MethodPost, `{"amount":700,"method":"UPI"}`, models.RoleAccounts)
	handler.RecordPayment(c)
	require.Equal(t, http.StatusCreated, w.Code)

	c, w = salesTestContext(t, http.MethodPost, "", models.RoleAccounts)
	handler.AccountApprove(c)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "payment incomplete")

	c, w = salesTestContext(t, http.MethodPost, `{"amount":500,"method":"CASH"}`, models.RoleAccounts)
	handler.RecordPayment(c)
	require.Equal(t, http.StatusCreated, w.Code)

	c, w = salesTestContext(t, http.MethodPost, "", models.RoleAccounts)
	handler.AccountApprove(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), string(models.OrderStatusReadyForDispatch))

	c, w = salesTestContext(t, http.MethodGet, "", models.RoleAccounts)
	handler.Payments(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"totalPaid":1200`)
}

func TestSalesHandlerDispatch(t *testing.T) {
	handler, _ := newSalesHandlerFixture(t, models.OrderStatusReadyForDispatch)

	c, w := salesTestContext(t, http.MethodPost, "", models.RoleSales)
	handler.Dispatch(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), string(models.OrderStatusDispatched))

	c, w = salesTestContext(t, http.MethodPost, "", models.RoleSales)
	handler.Dispatch(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestSalesHandlerAlterationValidatesPayload(t *testing.T) {
	handler, _ := newSalesHandlerFixture(t, models.OrderStatusAwaitingClientApproval)

	c, w := salesTestContext(t, http.MethodPost, `{"sections":[]}`, models.RoleSales)
	handler.Alteration(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
