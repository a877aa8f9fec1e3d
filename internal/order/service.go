package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pos-core/internal/eventbus"
	"pos-core/internal/logger"
	"pos-core/internal/models"
	"pos-core/internal/order/db"
	"pos-core/internal/printer"
)

type Store interface {
	GetTable(ctx context.Context, id int64) (*models.Table, error)
	OpenLines(ctx context.Context, tableID int64) ([]models.OrderLine, error)
	AddItems(ctx context.Context, tableID int64, lines []models.OrderLine, assign db.AssignFunc) (*db.AddReceipt, error)
	Checkout(ctx context.Context, params db.CheckoutParams) (*db.CheckoutReceipt, error)
	ListSales(ctx context.Context, from, to *time.Time) ([]models.Sale, error)
	GetSale(ctx context.Context, id int64) (*models.Sale, error)
}

type Publisher interface {
	Publish(topic string, key string, value []byte) error
}

type Notifier interface {
	Publish(kind string, subject int64)
}

type StaffDirectory interface {
	Resolve(ctx context.Context, id int64) (*models.StaffRef, error)
}

type TicketDispatcher interface {
	EnqueueKitchenTicket(ticket printer.KitchenTicket)
	EnqueueReceipt(receipt printer.Receipt)
}

// Topics carries the Kafka topic names the service publishes to.
type Topics struct {
	OrdersUpdated  string
	SalesCompleted string
}

type OrderService struct {
	Store      Store
	Staff      StaffDirectory
	Kafka      Publisher
	Bus        Notifier
	Dispatcher TicketDispatcher
	Logger     *logger.Logger
	Topics     Topics
}

func NewOrderService(store Store, staff StaffDirectory, kafka Publisher, bus Notifier, dispatcher TicketDispatcher, log *logger.Logger, topics Topics) *OrderService {
	return &OrderService{
		Store:      store,
		Staff:      staff,
		Kafka:      kafka,
		Bus:        bus,
		Dispatcher: dispatcher,
		Logger:     log,
		Topics:     topics,
	}
}

// GetOpenOrder returns the table's open order lines.
func (s *OrderService) GetOpenOrder(ctx context.Context, tableID int64) ([]models.OrderLine, error) {
	return s.Store.OpenLines(ctx, tableID)
}

// AddItem appends a single line from the desktop cashier. Ownership is
// never transferred on this path; the table keeps whichever staff is
// already recorded.
func (s *OrderService) AddItem(ctx context.Context, tableID int64, item models.LineInput) error {
	if err := validateLine(item); err != nil {
		return err
	}

	receipt, err := s.Store.AddItems(ctx, tableID, toOrderLines(tableID, []models.LineInput{item}), nil)
	if err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}

	s.Logger.LogOrder("ADD", tableID, fmt.Sprintf("check #%d, total %.2f", receipt.CheckNumber, receipt.Total))
	s.Bus.Publish(eventbus.KindTables, 0)
	s.Bus.Publish(eventbus.KindTableItems, tableID)
	s.publishOrderUpdated(receipt)

	return nil
}

// AddBatch appends a waiter's batch, arbitrating table ownership from the
// snapshot the transaction observes. The batch is accepted even when the
// table keeps a different owner.
func (s *OrderService) AddBatch(ctx context.Context, tableID int64, items []models.LineInput, staffID int64) error {
	if len(items) == 0 {
		return fmt.Errorf("empty batch: %w", models.ErrValidation)
	}
	for _, item := range items {
		if err := validateLine(item); err != nil {
			return err
		}
	}

	var assign db.AssignFunc
	if staffID > 0 {
		submitter, err := s.Staff.Resolve(ctx, staffID)
		if err != nil {
			return fmt.Errorf("failed to resolve staff %d: %w", staffID, err)
		}
		assign = func(snapshot models.Table) (int64, string, bool) {
			decision := ResolveOwner(snapshot, *submitter)
			return decision.StaffID, decision.StaffName, decision.Transfer
		}
	}

	lines := toOrderLines(tableID, items)
	receipt, err := s.Store.AddItems(ctx, tableID, lines, assign)
	if err != nil {
		return fmt.Errorf("failed to add batch: %w", err)
	}

	s.Logger.LogOrder("ADD_BATCH", tableID, fmt.Sprintf("%d lines, check #%d, total %.2f", len(items), receipt.CheckNumber, receipt.Total))
	s.Bus.Publish(eventbus.KindTables, 0)
	s.Bus.Publish(eventbus.KindTableItems, tableID)
	s.publishOrderUpdated(receipt)

	// Kitchen ticket goes out after commit, best-effort. A dead printer
	// never fails the order.
	s.Dispatcher.EnqueueKitchenTicket(printer.KitchenTicket{
		TableName:   receipt.TableName,
		CheckNumber: receipt.CheckNumber,
		StaffName:   receipt.StaffName,
		Lines:       toTicketLines(lines),
	})

	return nil
}

// Checkout turns the table's open order into an immutable sale and frees
// the table. Receipt printing is dispatched after commit and never
// reverses the sale.
func (s *OrderService) Checkout(ctx context.Context, params db.CheckoutParams) (*db.CheckoutReceipt, error) {
	if err := validateCheckout(params); err != nil {
		return nil, err
	}

	receipt, err := s.Store.Checkout(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("checkout failed: %w", err)
	}

	s.Logger.LogCheckout(params.TableID, receipt.CheckNumber, params.Total)
	s.Bus.Publish(eventbus.KindTables, 0)
	s.Bus.Publish(eventbus.KindSales, 0)
	if params.CustomerID != nil {
		s.Bus.Publish(eventbus.KindCustomers, *params.CustomerID)
	}
	s.publishSaleCompleted(receipt, params)

	service := params.Total - (params.Subtotal - params.Discount)
	s.Dispatcher.EnqueueReceipt(printer.Receipt{
		TableName:     receipt.TableName,
		CheckNumber:   receipt.CheckNumber,
		StaffName:     receipt.StaffName,
		Items:         params.Lines,
		Subtotal:      params.Subtotal,
		Discount:      params.Discount,
		Service:       service,
		Total:         params.Total,
		PaymentMethod: params.PaymentMethod,
	})

	return receipt, nil
}

// ListSales returns sales in the optional date range.
func (s *OrderService) ListSales(ctx context.Context, from, to *time.Time) ([]models.Sale, error) {
	return s.Store.ListSales(ctx, from, to)
}

// SaleQR renders the verification code for a completed sale as a PNG.
func (s *OrderService) SaleQR(ctx context.Context, saleID int64) ([]byte, error) {
	sale, err := s.Store.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	return printer.SaleQR(*sale)
}

func (s *OrderService) publishOrderUpdated(receipt *db.AddReceipt) {
	value, err := json.Marshal(receipt)
	if err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to marshal order event: %v", err))
		return
	}
	if err := s.Kafka.Publish(s.Topics.OrdersUpdated, fmt.Sprintf("table-%d", receipt.TableID), value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("publish error (order updated): %v", err))
	}
}

func (s *OrderService) publishSaleCompleted(receipt *db.CheckoutReceipt, params db.CheckoutParams) {
	event := struct {
		*db.CheckoutReceipt
		Total         float64 `json:"total"`
		PaymentMethod string  `json:"payment_method"`
	}{receipt, params.Total, params.PaymentMethod}

	value, err := json.Marshal(event)
	if err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to marshal sale event: %v", err))
		return
	}
	if err := s.Kafka.Publish(s.Topics.SalesCompleted, fmt.Sprintf("check-%d", receipt.CheckNumber), value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("publish error (sale completed): %v", err))
	}
}

func validateLine(item models.LineInput) error {
	if item.Name == "" {
		return fmt.Errorf("line has no product name: %w", models.ErrValidation)
	}
	if item.Quantity <= 0 {
		return fmt.Errorf("line %q has quantity %d: %w", item.Name, item.Quantity, models.ErrValidation)
	}
	if item.Price < 0 {
		return fmt.Errorf("line %q has negative price: %w", item.Name, models.ErrValidation)
	}
	return nil
}

func validateCheckout(params db.CheckoutParams) error {
	switch params.PaymentMethod {
	case models.PayCash, models.PayCard, models.PayClick, models.PayDebt:
	default:
		return fmt.Errorf("unknown payment method %q: %w", params.PaymentMethod, models.ErrValidation)
	}
	if params.Total < 0 || params.Subtotal < 0 || params.Discount < 0 {
		return fmt.Errorf("negative totals: %w", models.ErrValidation)
	}
	if params.PaymentMethod == models.PayDebt && params.CustomerID == nil {
		return fmt.Errorf("debt checkout without customer: %w", models.ErrValidation)
	}
	return nil
}

func toOrderLines(tableID int64, items []models.LineInput) []models.OrderLine {
	lines := make([]models.OrderLine, len(items))
	for i, item := range items {
		lines[i] = models.OrderLine{
			TableID:     tableID,
			ProductName: item.Name,
			Price:       item.Price,
			Quantity:    item.Quantity,
			Destination: item.Destination,
		}
	}
	return lines
}

func toTicketLines(lines []models.OrderLine) []printer.TicketLine {
	ticketLines := make([]printer.TicketLine, len(lines))
	for i, line := range lines {
		ticketLines[i] = printer.TicketLine{
			Name:        line.ProductName,
			Quantity:    line.Quantity,
			Destination: line.Destination,
		}
	}
	return ticketLines
}
