package domain

import "github.com/shopspring/decimal"

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusConfirmed  OrderStatus = "CONFIRMED"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// statusTransitions is the full lifecycle table. DELIVERED and CANCELLED
// are terminal.
var statusTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is the order header. Subtotal, tax and total are derived from the
// line items and recomputed whenever the items change.
type Order struct {
	ID              string          `db:"id" json:"id"`
	CustomerID      string          `db:"customer_id" json:"customer_id"`
	OrderNumber     string          `db:"order_number" json:"order_number"`
	Status          OrderStatus     `db:"status" json:"status"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxAmount       decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	DeliveryAddress string          `db:"delivery_address" json:"delivery_address"`
	DeliveryNotes   string          `db:"delivery_notes" json:"delivery_notes"`
	SMSSent         bool            `db:"sms_sent" json:"sms_sent"`
	EmailSent       bool            `db:"email_sent" json:"email_sent"`
	CreatedAt       string          `db:"created_at" json:"created_at"`
	UpdatedAt       string          `db:"updated_at" json:"updated_at"`
}

// CanBeCancelled reports whether the order may still be cancelled.
func (o Order) CanBeCancelled() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed
}

// OrderItem is one line of an order. ProductName, ProductSKU and UnitPrice
// are snapshots taken when the order was placed; they never track the live
// product again.
type OrderItem struct {
	ID          string          `db:"id" json:"id"`
	OrderID     string          `db:"order_id" json:"order_id"`
	ProductID   string          `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	ProductSKU  string          `db:"product_sku" json:"product_sku"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal   decimal.Decimal `db:"line_total" json:"line_total"`
	CreatedAt   string          `db:"created_at" json:"created_at"`
}

// ItemCount sums quantities across line items.
func ItemCount(items []OrderItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
