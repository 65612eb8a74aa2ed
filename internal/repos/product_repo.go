package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"duka/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `id, name, description, sku, price, category_id,
  stock_quantity, is_active, created_at, COALESCE(updated_at,'') AS updated_at`

func (r *ProductRepo) Get(id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return p, &domain.NotFoundError{Entity: "product", ID: id}
	}
	return p, err
}

// GetTx reads a product inside an order mutation's transaction, so the
// stock seen here is the stock the guarded decrement will run against.
func (r *ProductRepo) GetTx(tx *sqlx.Tx, id string) (domain.Product, error) {
	var p domain.Product
	err := tx.Get(&p, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return p, &domain.NotFoundError{Entity: "product", ID: id}
	}
	return p, err
}

func (r *ProductRepo) ListByCategories(categoryIDs []string, limit, offset int) ([]domain.Product, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT `+productCols+` FROM products
		WHERE category_id IN (?) AND is_active = 1
		ORDER BY name
		LIMIT ? OFFSET ?`, categoryIDs, limit, offset)
	if err != nil {
		return nil, err
	}
	var out []domain.Product
	err = r.db.Select(&out, query, args...)
	return out, err
}

func (r *ProductRepo) Search(q, categoryID string, limit, offset int) ([]domain.Product, error) {
	where := `is_active = 1`
	args := []any{}
	if q != "" {
		where += ` AND (LOWER(name) LIKE ? OR LOWER(sku) LIKE ?)`
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	if categoryID != "" {
		where += ` AND category_id = ?`
		args = append(args, categoryID)
	}
	args = append(args, limit, offset)

	var out []domain.Product
	err := r.db.Select(&out, `
		SELECT `+productCols+` FROM products
		WHERE `+where+`
		ORDER BY name
		LIMIT ? OFFSET ?`, args...)
	return out, err
}

func (r *ProductRepo) Insert(p domain.Product) error {
	_, err := r.db.Exec(`
		INSERT INTO products(id, name, description, sku, price, category_id, stock_quantity, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.SKU, p.Price, p.CategoryID, p.StockQuantity, p.Active)
	if IsUniqueViolation(err, "products.sku") {
		return &domain.UniquenessViolationError{Entity: "product", Field: "sku", Value: p.SKU}
	}
	return err
}

func (r *ProductRepo) Update(p domain.Product) error {
	res, err := r.db.Exec(`
		UPDATE products
		SET name = ?, description = ?, price = ?, category_id = ?,
		    stock_quantity = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		p.Name, p.Description, p.Price, p.CategoryID, p.StockQuantity, p.Active, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "product", ID: p.ID}
	}
	return nil
}

// Delete is blocked while order items reference the product (RESTRICT).
func (r *ProductRepo) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "product", ID: id}
	}
	return nil
}

// DecrementStock subtracts qty only if enough stock remains. The stock_quantity
// guard in the WHERE clause is the authoritative re-check at the point of
// reservation; a false return means another request won the units between the
// upfront validation and here.
func (r *ProductRepo) DecrementStock(tx *sqlx.Tx, id string, qty int) (bool, error) {
	res, err := tx.Exec(`
		UPDATE products
		SET stock_quantity = stock_quantity - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock_quantity >= ?`, qty, id, qty)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RestoreStock adds reserved units back on cancellation.
func (r *ProductRepo) RestoreStock(tx *sqlx.Tx, id string, qty int) error {
	_, err := tx.Exec(`
		UPDATE products
		SET stock_quantity = stock_quantity + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, qty, id)
	return err
}
