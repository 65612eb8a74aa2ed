package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	applog "duka/internal/log"
	"duka/internal/services"
	"duka/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

func (h *ProductHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid product id")
	}
	p, err := h.Catalog.GetProduct(id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(p)
}

// List pages products in a category; include_subcategories widens to the
// whole subtree.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	catID, ok := validate.ID(c.Query("category"))
	if !ok {
		return badRequest(c, "category", "invalid category id")
	}
	includeSubtree := c.QueryBool("include_subcategories", false)
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 12)

	products, err := h.Catalog.ListByCategory(catID, includeSubtree, page, pageSize)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"products": products})
}

func (h *ProductHandler) Search(c *fiber.Ctx) error {
	q := ""
	if raw := c.Query("q"); raw != "" {
		var ok bool
		q, ok = validate.Q(raw)
		if !ok {
			return badRequest(c, "q", "invalid search query")
		}
	}
	catID := ""
	if raw := c.Query("category"); raw != "" {
		var ok bool
		catID, ok = validate.ID(raw)
		if !ok {
			return badRequest(c, "category", "invalid category id")
		}
	}
	products, err := h.Catalog.Search(q, catID, c.QueryInt("page", 1), c.QueryInt("page_size", 12))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"products": products})
}

// Availability reports the stock bucket and whether a requested quantity
// (?qty=N, default 1) could be fulfilled right now.
func (h *ProductHandler) Availability(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid product id")
	}
	qty := validate.Qty(c.Query("qty", "1"))
	a, err := h.Catalog.CheckAvailability(id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"status":     a.Status,
		"qty":        a.Qty,
		"requested":  qty,
		"sufficient": a.Status != "OUT_OF_STOCK" && a.Qty >= qty,
	})
}

type createProductReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SKU         string `json:"sku"`
	Price       string `json:"price"`
	CategoryID  string `json:"category_id"`
	Stock       int    `json:"stock_quantity"`
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var req createProductReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}
	name, ok := validate.Name(req.Name)
	if !ok {
		return badRequest(c, "name", "name must be 1-100 characters")
	}
	if _, ok := validate.ID(req.SKU); !ok {
		return badRequest(c, "sku", "invalid sku")
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.LessThan(decimal.NewFromFloat(0.01)) {
		return badRequest(c, "price", "price must be a decimal of at least 0.01")
	}
	if req.Stock < 0 {
		return badRequest(c, "stock_quantity", "stock cannot be negative")
	}

	p, err := h.Catalog.CreateProduct(name, req.Description, req.SKU, price, req.CategoryID, req.Stock)
	if err != nil {
		return writeError(c, err)
	}
	applog.Audit(c, "product.create", map[string]any{"id": p.ID, "sku": p.SKU})
	return c.Status(fiber.StatusCreated).JSON(p)
}

type updateProductReq struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	Price         *string `json:"price"`
	StockQuantity *int    `json:"stock_quantity"`
	Active        *bool   `json:"is_active"`
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid product id")
	}
	p, err := h.Catalog.GetProduct(id)
	if err != nil {
		return writeError(c, err)
	}

	var req updateProductReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}
	if req.Name != nil {
		name, ok := validate.Name(*req.Name)
		if !ok {
			return badRequest(c, "name", "name must be 1-100 characters")
		}
		p.Name = name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil || price.LessThan(decimal.NewFromFloat(0.01)) {
			return badRequest(c, "price", "price must be a decimal of at least 0.01")
		}
		p.Price = price
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			return badRequest(c, "stock_quantity", "stock cannot be negative")
		}
		p.StockQuantity = *req.StockQuantity
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	if err := h.Catalog.UpdateProduct(p); err != nil {
		return writeError(c, err)
	}
	applog.Audit(c, "product.update", map[string]any{"id": p.ID})
	return c.JSON(p)
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid product id")
	}
	if err := h.Catalog.DeleteProduct(id); err != nil {
		// RESTRICT fires while order items still reference the product
		return writeError(c, err)
	}
	applog.Audit(c, "product.delete", map[string]any{"id": id})
	return c.SendStatus(fiber.StatusNoContent)
}
