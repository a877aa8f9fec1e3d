package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"pos-core/internal/logger"
	"pos-core/internal/models"
	"pos-core/internal/order"
	"pos-core/internal/order/db"
	"pos-core/internal/printer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	table        models.Table
	addReceipt   db.AddReceipt
	lastAssign   db.AssignFunc
	lastLines    []models.OrderLine
	checkoutErr  error
	checkoutDone bool
}

func (m *mockStore) GetTable(ctx context.Context, id int64) (*models.Table, error) {
	table := m.table
	return &table, nil
}

func (m *mockStore) OpenLines(ctx context.Context, tableID int64) ([]models.OrderLine, error) {
	return m.lastLines, nil
}

func (m *mockStore) AddItems(ctx context.Context, tableID int64, lines []models.OrderLine, assign db.AssignFunc) (*db.AddReceipt, error) {
	m.lastLines = lines
	m.lastAssign = assign
	if assign != nil {
		if staffID, staffName, transfer := assign(m.table); transfer {
			m.addReceipt.StaffID = staffID
			m.addReceipt.StaffName = staffName
		}
	}
	receipt := m.addReceipt
	receipt.TableID = tableID
	return &receipt, nil
}

func (m *mockStore) Checkout(ctx context.Context, params db.CheckoutParams) (*db.CheckoutReceipt, error) {
	if m.checkoutErr != nil {
		return nil, m.checkoutErr
	}
	m.checkoutDone = true
	return &db.CheckoutReceipt{
		SaleID:      1,
		TableID:     params.TableID,
		TableName:   m.table.Name,
		CheckNumber: m.table.CheckNumber,
		StaffName:   m.table.StaffName,
	}, nil
}

func (m *mockStore) ListSales(ctx context.Context, from, to *time.Time) ([]models.Sale, error) {
	return nil, nil
}

func (m *mockStore) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	return &models.Sale{ID: id}, nil
}

type mockStaff struct {
	ref *models.StaffRef
	err error
}

func (m *mockStaff) Resolve(ctx context.Context, id int64) (*models.StaffRef, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ref, nil
}

type mockPublisher struct {
	published []string
	err       error
}

func (m *mockPublisher) Publish(topic, key string, value []byte) error {
	m.published = append(m.published, topic)
	return m.err
}

type mockBus struct {
	events []string
}

func (m *mockBus) Publish(kind string, subject int64) {
	m.events = append(m.events, kind)
}

type mockDispatcher struct {
	tickets  []printer.KitchenTicket
	receipts []printer.Receipt
}

func (m *mockDispatcher) EnqueueKitchenTicket(ticket printer.KitchenTicket) {
	m.tickets = append(m.tickets, ticket)
}

func (m *mockDispatcher) EnqueueReceipt(receipt printer.Receipt) {
	m.receipts = append(m.receipts, receipt)
}

func newTestService(store *mockStore, staff *mockStaff, pub *mockPublisher, bus *mockBus, disp *mockDispatcher) *order.OrderService {
	return order.NewOrderService(store, staff, pub, bus, disp, logger.NewLogger(), order.Topics{
		OrdersUpdated:  "pos.orders.updated",
		SalesCompleted: "pos.sales.completed",
	})
}

func TestAddItemValidation(t *testing.T) {
	svc := newTestService(&mockStore{}, &mockStaff{}, &mockPublisher{}, &mockBus{}, &mockDispatcher{})

	err := svc.AddItem(context.Background(), 1, models.LineInput{Name: "", Price: 100, Quantity: 1})
	assert.ErrorIs(t, err, models.ErrValidation)

	err = svc.AddItem(context.Background(), 1, models.LineInput{Name: "Tea", Price: 100, Quantity: 0})
	assert.ErrorIs(t, err, models.ErrValidation)

	err = svc.AddItem(context.Background(), 1, models.LineInput{Name: "Tea", Price: -5, Quantity: 1})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestAddItemNeverTransfersOwnership(t *testing.T) {
	store := &mockStore{}
	bus := &mockBus{}
	svc := newTestService(store, &mockStaff{}, &mockPublisher{}, bus, &mockDispatcher{})

	err := svc.AddItem(context.Background(), 1, models.LineInput{Name: "Tea", Price: 5000, Quantity: 1})
	require.NoError(t, err)
	assert.Nil(t, store.lastAssign, "desktop path must not carry an ownership decision")
	assert.Contains(t, bus.events, "tables")
	assert.Contains(t, bus.events, "table-items")
}

func TestAddBatchArbitratesOwnership(t *testing.T) {
	store := &mockStore{table: models.Table{ID: 1, Status: models.TableFree}}
	staff := &mockStaff{ref: &models.StaffRef{ID: 3, Name: "Carol"}}
	disp := &mockDispatcher{}
	svc := newTestService(store, staff, &mockPublisher{}, &mockBus{}, disp)

	err := svc.AddBatch(context.Background(), 1, []models.LineInput{{Name: "Plov", Price: 30000, Quantity: 2}}, 3)
	require.NoError(t, err)

	require.NotNil(t, store.lastAssign)
	assert.Equal(t, int64(3), store.addReceipt.StaffID)
	assert.Equal(t, "Carol", store.addReceipt.StaffName)

	require.Len(t, disp.tickets, 1)
	assert.Equal(t, "Carol", disp.tickets[0].StaffName)
	require.Len(t, disp.tickets[0].Lines, 1)
	assert.Equal(t, "Plov", disp.tickets[0].Lines[0].Name)
	assert.Equal(t, 2, disp.tickets[0].Lines[0].Quantity)
}

func TestAddBatchKeepsExistingOwner(t *testing.T) {
	store := &mockStore{
		table:      models.Table{ID: 1, Status: models.TableOccupied, StaffID: 1, StaffName: "Alice"},
		addReceipt: db.AddReceipt{StaffID: 1, StaffName: "Alice"},
	}
	staff := &mockStaff{ref: &models.StaffRef{ID: 2, Name: "Bob"}}
	svc := newTestService(store, staff, &mockPublisher{}, &mockBus{}, &mockDispatcher{})

	err := svc.AddBatch(context.Background(), 1, []models.LineInput{{Name: "Tea", Price: 5000, Quantity: 1}}, 2)
	require.NoError(t, err, "the batch is accepted even though the owner is kept")
	assert.Equal(t, int64(1), store.addReceipt.StaffID)
	assert.Equal(t, "Alice", store.addReceipt.StaffName)
}

func TestAddBatchEmpty(t *testing.T) {
	svc := newTestService(&mockStore{}, &mockStaff{}, &mockPublisher{}, &mockBus{}, &mockDispatcher{})

	err := svc.AddBatch(context.Background(), 1, nil, 3)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCheckoutValidation(t *testing.T) {
	svc := newTestService(&mockStore{}, &mockStaff{}, &mockPublisher{}, &mockBus{}, &mockDispatcher{})
	ctx := context.Background()

	_, err := svc.Checkout(ctx, db.CheckoutParams{TableID: 1, PaymentMethod: "barter"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Checkout(ctx, db.CheckoutParams{TableID: 1, PaymentMethod: models.PayCash, Total: -1})
	assert.ErrorIs(t, err, models.ErrValidation)

	// Debt without a customer is refused before touching the store.
	_, err = svc.Checkout(ctx, db.CheckoutParams{TableID: 1, PaymentMethod: models.PayDebt, Total: 100})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCheckoutPublishesAndPrints(t *testing.T) {
	store := &mockStore{table: models.Table{ID: 1, Name: "Table 1", Status: models.TableOccupied, CheckNumber: 12, StaffName: "Alice"}}
	pub := &mockPublisher{}
	bus := &mockBus{}
	disp := &mockDispatcher{}
	svc := newTestService(store, &mockStaff{}, pub, bus, disp)

	receipt, err := svc.Checkout(context.Background(), db.CheckoutParams{
		TableID:       1,
		Total:         71500,
		Subtotal:      65000,
		PaymentMethod: models.PayCash,
		Lines:         []models.LineInput{{Name: "Plov", Price: 30000, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.True(t, store.checkoutDone)
	assert.Equal(t, int64(12), receipt.CheckNumber)

	assert.Contains(t, bus.events, "tables")
	assert.Contains(t, bus.events, "sales")
	assert.Contains(t, pub.published, "pos.sales.completed")

	require.Len(t, disp.receipts, 1)
	assert.Equal(t, float64(6500), disp.receipts[0].Service, "service charge is total minus discounted subtotal")
}

func TestKafkaErrorDoesNotFailOrder(t *testing.T) {
	store := &mockStore{}
	pub := &mockPublisher{err: errors.New("broker down")}
	svc := newTestService(store, &mockStaff{}, pub, &mockBus{}, &mockDispatcher{})

	err := svc.AddItem(context.Background(), 1, models.LineInput{Name: "Tea", Price: 5000, Quantity: 1})
	assert.NoError(t, err, "domain events are best-effort")
}
