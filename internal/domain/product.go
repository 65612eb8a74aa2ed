package domain

import "github.com/shopspring/decimal"

// Product belongs to exactly one category and carries a live price and
// stock count. Order items snapshot these at purchase time; the live row
// keeps changing afterwards.
type Product struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Description   string          `db:"description" json:"description"`
	SKU           string          `db:"sku" json:"sku"`
	Price         decimal.Decimal `db:"price" json:"price"`
	CategoryID    string          `db:"category_id" json:"category_id"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
	Active        bool            `db:"is_active" json:"is_active"`
	CreatedAt     string          `db:"created_at" json:"created_at"`
	UpdatedAt     string          `db:"updated_at" json:"updated_at"`
}

// InStock reports whether the product can be purchased right now.
func (p Product) InStock() bool { return p.StockQuantity > 0 && p.Active }
