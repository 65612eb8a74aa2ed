package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"duka/internal/domain"
	"duka/internal/notify"
	"duka/internal/repos"
)

const (
	minOrderItems = 1
	maxOrderItems = 20
)

// ItemRequest is one (product, quantity) pair in an order request.
type ItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderService owns the order lifecycle: creation with stock reservation
// and price snapshotting, total recalculation, status transitions and
// cancellation with stock restoration. Every mutation runs in a single
// transaction; a failed attempt leaves no order row, no item rows and no
// stock decrement behind.
type OrderService struct {
	Orders   *repos.OrderRepo
	Products *repos.ProductRepo
	Notify   *notify.Dispatcher // optional; nil disables notifications
	TaxRate  decimal.Decimal
}

func NewOrderService(orders *repos.OrderRepo, products *repos.ProductRepo, dispatcher *notify.Dispatcher, taxRate decimal.Decimal) *OrderService {
	return &OrderService{Orders: orders, Products: products, Notify: dispatcher, TaxRate: taxRate}
}

// Create places an order for the customer. Each item is validated (product
// active, stock sufficient), then within one transaction the order header
// and items are written, product name/sku/price snapshotted, stock
// decremented through a guarded update that re-checks availability at the
// point of reservation, totals recomputed, and the order moved
// PENDING -> CONFIRMED. Notifications are dispatched after commit and never
// block or fail the order.
func (s *OrderService) Create(customerID, deliveryAddress, deliveryNotes string, items []ItemRequest) (domain.Order, []domain.OrderItem, error) {
	if len(items) < minOrderItems || len(items) > maxOrderItems {
		return domain.Order{}, nil, &domain.InvalidOrderSizeError{Count: len(items), Min: minOrderItems, Max: maxOrderItems}
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return domain.Order{}, nil, &domain.InvalidOrderSizeError{Count: it.Quantity, Min: 1, Max: maxOrderItems}
		}
	}

	tx, err := s.Orders.Begin()
	if err != nil {
		return domain.Order{}, nil, &domain.PersistenceError{Op: "order.create", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	order := domain.Order{
		ID:              uuid.NewString(),
		CustomerID:      customerID,
		Status:          domain.StatusPending,
		DeliveryAddress: deliveryAddress,
		DeliveryNotes:   deliveryNotes,
	}
	if err := s.insertWithFreshNumber(tx, &order); err != nil {
		return domain.Order{}, nil, err
	}

	var created []domain.OrderItem
	for _, req := range items {
		p, err := s.Products.GetTx(tx, req.ProductID)
		if err != nil {
			return domain.Order{}, nil, err
		}
		if !p.Active {
			return domain.Order{}, nil, &domain.ProductUnavailableError{ProductID: p.ID, Name: p.Name}
		}
		if p.StockQuantity < req.Quantity {
			return domain.Order{}, nil, &domain.InsufficientStockError{
				ProductID: p.ID, Name: p.Name,
				Requested: req.Quantity, Available: p.StockQuantity,
			}
		}

		item := domain.OrderItem{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			ProductSKU:  p.SKU,
			Quantity:    req.Quantity,
			UnitPrice:   p.Price,
			LineTotal:   p.Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
		}
		if err := s.Orders.InsertItem(tx, item); err != nil {
			return domain.Order{}, nil, &domain.PersistenceError{Op: "order.create", Err: err}
		}

		ok, err := s.Products.DecrementStock(tx, p.ID, req.Quantity)
		if err != nil {
			return domain.Order{}, nil, &domain.PersistenceError{Op: "order.create", Err: err}
		}
		if !ok {
			// Someone else took the units since the read above.
			fresh, ferr := s.Products.GetTx(tx, p.ID)
			available := 0
			if ferr == nil {
				available = fresh.StockQuantity
			}
			return domain.Order{}, nil, &domain.InsufficientStockError{
				ProductID: p.ID, Name: p.Name,
				Requested: req.Quantity, Available: available,
			}
		}
		created = append(created, item)
	}

	order.Subtotal, order.TaxAmount, order.TotalAmount, err = s.recomputeTotalsTx(tx, order.ID)
	if err != nil {
		return domain.Order{}, nil, err
	}

	if !domain.CanTransition(order.Status, domain.StatusConfirmed) {
		return domain.Order{}, nil, &domain.InvalidStatusTransitionError{From: order.Status, To: domain.StatusConfirmed}
	}
	if err := s.Orders.UpdateStatus(tx, order.ID, domain.StatusConfirmed); err != nil {
		return domain.Order{}, nil, &domain.PersistenceError{Op: "order.create", Err: err}
	}
	order.Status = domain.StatusConfirmed

	if err := tx.Commit(); err != nil {
		return domain.Order{}, nil, &domain.PersistenceError{Op: "order.create", Err: err}
	}

	if s.Notify != nil {
		go s.Notify.Dispatch(order.ID)
	}
	return order, created, nil
}

// insertWithFreshNumber generates an order number and retries a couple of
// times if the random suffix collides with an existing one.
func (s *OrderService) insertWithFreshNumber(tx *sqlx.Tx, order *domain.Order) error {
	for attempt := 0; attempt < 3; attempt++ {
		order.OrderNumber = GenerateOrderNumber()
		err := s.Orders.Insert(tx, *order)
		if err == nil {
			return nil
		}
		if !repos.IsUniqueViolation(err, "orders.order_number") {
			return &domain.PersistenceError{Op: "order.create", Err: err}
		}
	}
	return &domain.UniquenessViolationError{Entity: "order", Field: "order_number", Value: order.OrderNumber}
}

// GenerateOrderNumber builds a human-readable unique order reference:
// a fixed prefix, the date, and a short random suffix.
func GenerateOrderNumber() string {
	datePart := time.Now().Format("20060102")
	suffix := strings.ToUpper(uuid.NewString()[:4])
	return fmt.Sprintf("ORD-%s-%s", datePart, suffix)
}

// Cancel restores reserved stock for every item and marks the order
// CANCELLED, atomically. Only PENDING and CONFIRMED orders can be
// cancelled.
func (s *OrderService) Cancel(orderID string) (domain.Order, error) {
	tx, err := s.Orders.Begin()
	if err != nil {
		return domain.Order{}, &domain.PersistenceError{Op: "order.cancel", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	order, err := s.Orders.GetTx(tx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.CanBeCancelled() {
		return domain.Order{}, &domain.OrderNotCancellableError{OrderNumber: order.OrderNumber, Status: order.Status}
	}

	items, err := s.Orders.ItemsTx(tx, orderID)
	if err != nil {
		return domain.Order{}, &domain.PersistenceError{Op: "order.cancel", Err: err}
	}
	for _, it := range items {
		if err := s.Products.RestoreStock(tx, it.ProductID, it.Quantity); err != nil {
			return domain.Order{}, &domain.PersistenceError{Op: "order.cancel", Err: err}
		}
	}

	if err := s.Orders.UpdateStatus(tx, orderID, domain.StatusCancelled); err != nil {
		return domain.Order{}, &domain.PersistenceError{Op: "order.cancel", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return domain.Order{}, &domain.PersistenceError{Op: "order.cancel", Err: err}
	}

	order.Status = domain.StatusCancelled
	return order, nil
}

// UpdateStatus validates the transition against the lifecycle table and
// persists it. Cancellation is routed through Cancel so reserved stock is
// restored.
func (s *OrderService) UpdateStatus(orderID string, next domain.OrderStatus) (domain.Order, error) {
	if next == domain.StatusCancelled {
		return s.Cancel(orderID)
	}

	tx, err := s.Orders.Begin()
	if err != nil {
		return domain.Order{}, &domain.PersistenceError{Op: "order.status", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	order, err := s.Orders.GetTx(tx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !domain.CanTransition(order.Status, next) {
		return domain.Order{}, &domain.InvalidStatusTransitionError{From: order.Status, To: next}
	}
	if err := s.Orders.UpdateStatus(tx, orderID, next); err != nil {
		return domain.Order{}, &domain.PersistenceError{Op: "order.status", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return domain.Order{}, &domain.PersistenceError{Op: "order.status", Err: err}
	}

	order.Status = next
	return order, nil
}

// RecomputeTotals recalculates subtotal, tax and total from the persisted
// line items and writes them directly. Exposed for callers that mutate
// items out of band.
func (s *OrderService) RecomputeTotals(orderID string) (domain.Order, error) {
	tx, err := s.Orders.Begin()
	if err != nil {
		return domain.Order{}, &domain.PersistenceError{Op: "order.totals", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	order, err := s.Orders.GetTx(tx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Subtotal, order.TaxAmount, order.TotalAmount, err = s.recomputeTotalsTx(tx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Order{}, &domain.PersistenceError{Op: "order.totals", Err: err}
	}
	return order, nil
}

// recomputeTotalsTx sums line totals and derives tax and total:
//
//	subtotal = Σ line_total
//	tax      = subtotal × rate, rounded half-up to 2 places
//	total    = subtotal + tax
//
// The write goes straight to the money columns (repo UpdateTotals), so it
// can never recurse through an item-mutation hook.
func (s *OrderService) recomputeTotalsTx(tx *sqlx.Tx, orderID string) (subtotal, tax, total decimal.Decimal, err error) {
	items, err := s.Orders.ItemsTx(tx, orderID)
	if err != nil {
		return subtotal, tax, total, &domain.PersistenceError{Op: "order.totals", Err: err}
	}

	subtotal = decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal)
	}
	tax = subtotal.Mul(s.TaxRate).Round(2)
	total = subtotal.Add(tax)

	if err := s.Orders.UpdateTotals(tx, orderID, subtotal, tax, total); err != nil {
		return subtotal, tax, total, &domain.PersistenceError{Op: "order.totals", Err: err}
	}
	return subtotal, tax, total, nil
}

// Get returns the order header and its items.
func (s *OrderService) Get(orderID string) (domain.Order, []domain.OrderItem, error) {
	order, err := s.Orders.Get(orderID)
	if err != nil {
		return domain.Order{}, nil, err
	}
	items, err := s.Orders.Items(orderID)
	if err != nil {
		return domain.Order{}, nil, &domain.PersistenceError{Op: "order.get", Err: err}
	}
	return order, items, nil
}

func (s *OrderService) ListByCustomer(customerID string) ([]domain.Order, error) {
	return s.Orders.ListByCustomer(customerID)
}

func (s *OrderService) ListLatest(limit int) ([]domain.Order, error) {
	return s.Orders.ListLatest(limit)
}
