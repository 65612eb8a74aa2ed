package services

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"duka/internal/domain"
	"duka/internal/repos"
)

// Availability buckets a product's stock for display.
type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty"`
}

// CatalogService is the product-browsing collaborator: listing, search,
// availability, and admin product maintenance. Stock mutation during order
// flow lives in OrderService, not here.
type CatalogService struct {
	Prods *repos.ProductRepo
	Tree  *CategoryService
}

func NewCatalogService(prods *repos.ProductRepo, tree *CategoryService) *CatalogService {
	return &CatalogService{Prods: prods, Tree: tree}
}

func (s *CatalogService) GetProduct(id string) (domain.Product, error) {
	return s.Prods.Get(id)
}

// ListByCategory pages products in a category; includeSubtree widens the
// filter to every descendant category.
func (s *CatalogService) ListByCategory(categoryID string, includeSubtree bool, page, pageSize int) ([]domain.Product, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 12
	}

	ids := []string{categoryID}
	if includeSubtree {
		descendants, err := s.Tree.Descendants(categoryID)
		if err != nil {
			return nil, err
		}
		for _, d := range descendants {
			ids = append(ids, d.ID)
		}
	}
	return s.Prods.ListByCategories(ids, pageSize, (page-1)*pageSize)
}

func (s *CatalogService) Search(q, categoryID string, page, pageSize int) ([]domain.Product, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 12
	}
	return s.Prods.Search(q, categoryID, pageSize, (page-1)*pageSize)
}

// CheckAvailability converts stock into IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *CatalogService) CheckAvailability(productID string) (Availability, error) {
	p, err := s.Prods.Get(productID)
	if err != nil {
		return Availability{}, err
	}
	if !p.InStock() {
		return Availability{Status: "OUT_OF_STOCK", Qty: 0}, nil
	}
	status := "LOW_STOCK"
	if p.StockQuantity >= 5 {
		status = "IN_STOCK"
	}
	return Availability{Status: status, Qty: p.StockQuantity}, nil
}

// CreateProduct validates price and category and inserts the product.
func (s *CatalogService) CreateProduct(name, description, sku string, price decimal.Decimal, categoryID string, stock int) (domain.Product, error) {
	if _, err := s.Tree.Cats.Get(categoryID); err != nil {
		return domain.Product{}, err
	}
	p := domain.Product{
		ID:            uuid.NewString(),
		Name:          name,
		Description:   description,
		SKU:           sku,
		Price:         price,
		CategoryID:    categoryID,
		StockQuantity: stock,
		Active:        true,
	}
	if err := s.Prods.Insert(p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *CatalogService) UpdateProduct(p domain.Product) error {
	return s.Prods.Update(p)
}

// DeleteProduct is refused by the database while any order item still
// references the product.
func (s *CatalogService) DeleteProduct(id string) error {
	return s.Prods.Delete(id)
}
