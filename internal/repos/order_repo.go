package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"duka/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) Begin() (*sqlx.Tx, error) { return r.db.Beginx() }

const orderCols = `id, customer_id, order_number, status, subtotal, tax_amount,
  total_amount, delivery_address, delivery_notes, sms_sent, email_sent,
  created_at, COALESCE(updated_at,'') AS updated_at`

const orderItemCols = `id, order_id, product_id, product_name, product_sku,
  quantity, unit_price, line_total, created_at`

func (r *OrderRepo) Get(id string) (domain.Order, error) {
	var o domain.Order
	err := r.db.Get(&o, `SELECT `+orderCols+` FROM orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return o, &domain.NotFoundError{Entity: "order", ID: id}
	}
	return o, err
}

func (r *OrderRepo) GetTx(tx *sqlx.Tx, id string) (domain.Order, error) {
	var o domain.Order
	err := tx.Get(&o, `SELECT `+orderCols+` FROM orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return o, &domain.NotFoundError{Entity: "order", ID: id}
	}
	return o, err
}

func (r *OrderRepo) Items(orderID string) ([]domain.OrderItem, error) {
	var out []domain.OrderItem
	err := r.db.Select(&out, `
		SELECT `+orderItemCols+` FROM order_items
		WHERE order_id = ? ORDER BY created_at, id`, orderID)
	return out, err
}

func (r *OrderRepo) ItemsTx(tx *sqlx.Tx, orderID string) ([]domain.OrderItem, error) {
	var out []domain.OrderItem
	err := tx.Select(&out, `
		SELECT `+orderItemCols+` FROM order_items
		WHERE order_id = ? ORDER BY created_at, id`, orderID)
	return out, err
}

func (r *OrderRepo) Insert(tx *sqlx.Tx, o domain.Order) error {
	_, err := tx.Exec(`
		INSERT INTO orders(id, customer_id, order_number, status,
		  delivery_address, delivery_notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.CustomerID, o.OrderNumber, o.Status, o.DeliveryAddress, o.DeliveryNotes)
	return err
}

func (r *OrderRepo) InsertItem(tx *sqlx.Tx, it domain.OrderItem) error {
	_, err := tx.Exec(`
		INSERT INTO order_items(id, order_id, product_id, product_name,
		  product_sku, quantity, unit_price, line_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.OrderID, it.ProductID, it.ProductName, it.ProductSKU,
		it.Quantity, it.UnitPrice, it.LineTotal)
	return err
}

// UpdateTotals writes the derived money columns directly. It deliberately
// does not touch anything else, so recomputation can never re-trigger
// itself through a save hook.
func (r *OrderRepo) UpdateTotals(tx *sqlx.Tx, id string, subtotal, tax, total decimal.Decimal) error {
	_, err := tx.Exec(`
		UPDATE orders
		SET subtotal = ?, tax_amount = ?, total_amount = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		subtotal.StringFixed(2), tax.StringFixed(2), total.StringFixed(2), id)
	return err
}

func (r *OrderRepo) UpdateStatus(tx *sqlx.Tx, id string, status domain.OrderStatus) error {
	_, err := tx.Exec(`
		UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id)
	return err
}

func (r *OrderRepo) ListByCustomer(customerID string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Select(&out, `
		SELECT `+orderCols+` FROM orders
		WHERE customer_id = ?
		ORDER BY datetime(created_at) DESC, id`, customerID)
	return out, err
}

func (r *OrderRepo) ListLatest(limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.Order
	err := r.db.Select(&out, `
		SELECT `+orderCols+` FROM orders
		ORDER BY datetime(created_at) DESC, id
		LIMIT ?`, limit)
	return out, err
}

// MarkSMSSent / MarkEmailSent flip the per-channel notification flags.
// Called by the notifier after a successful delivery, outside any order
// transaction.
func (r *OrderRepo) MarkSMSSent(id string) error {
	_, err := r.db.Exec(`UPDATE orders SET sms_sent = 1 WHERE id = ?`, id)
	return err
}

func (r *OrderRepo) MarkEmailSent(id string) error {
	_, err := r.db.Exec(`UPDATE orders SET email_sent = 1 WHERE id = ?`, id)
	return err
}
