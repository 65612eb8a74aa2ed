package handlers

import (
	"github.com/gofiber/fiber/v2"

	"duka/internal/domain"
	applog "duka/internal/log"
	"duka/internal/services"
	"duka/internal/validate"
)

type CategoryHandler struct {
	Tree *services.CategoryService
}

type categoryView struct {
	domain.Category
	FullPath     string            `json:"full_path"`
	IsLeaf       bool              `json:"is_leaf"`
	ProductCount int               `json:"product_count"`
	Children     []domain.Category `json:"children,omitempty"`
}

// List returns root categories with their direct children.
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	roots, err := h.Tree.Cats.Roots()
	if err != nil {
		return writeError(c, err)
	}
	out := make([]categoryView, 0, len(roots))
	for _, r := range roots {
		children, err := h.Tree.Cats.Children(r.ID)
		if err != nil {
			return writeError(c, err)
		}
		count, err := h.Tree.Cats.ProductCount(r.ID)
		if err != nil {
			return writeError(c, err)
		}
		out = append(out, categoryView{Category: r, FullPath: r.Name, IsLeaf: len(children) == 0, ProductCount: count, Children: children})
	}
	return c.JSON(fiber.Map{"categories": out})
}

func (h *CategoryHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid category id")
	}
	cat, err := h.Tree.Cats.Get(id)
	if err != nil {
		return writeError(c, err)
	}
	path, err := h.Tree.FullPath(id)
	if err != nil {
		return writeError(c, err)
	}
	leaf, err := h.Tree.IsLeaf(id)
	if err != nil {
		return writeError(c, err)
	}
	children, err := h.Tree.Cats.Children(id)
	if err != nil {
		return writeError(c, err)
	}
	count, err := h.Tree.Cats.ProductCount(id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(categoryView{Category: cat, FullPath: path, IsLeaf: leaf, ProductCount: count, Children: children})
}

// BySlug resolves a category by its URL slug.
func (h *CategoryHandler) BySlug(c *fiber.Ctx) error {
	slug, ok := validate.Slug(c.Params("slug"))
	if !ok {
		return badRequest(c, "slug", "invalid category slug")
	}
	cat, err := h.Tree.Cats.BySlug(slug)
	if err != nil {
		return writeError(c, err)
	}
	path, err := h.Tree.FullPath(cat.ID)
	if err != nil {
		return writeError(c, err)
	}
	leaf, err := h.Tree.IsLeaf(cat.ID)
	if err != nil {
		return writeError(c, err)
	}
	children, err := h.Tree.Cats.Children(cat.ID)
	if err != nil {
		return writeError(c, err)
	}
	count, err := h.Tree.Cats.ProductCount(cat.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(categoryView{Category: cat, FullPath: path, IsLeaf: leaf, ProductCount: count, Children: children})
}

func (h *CategoryHandler) Descendants(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid category id")
	}
	if _, err := h.Tree.Cats.Get(id); err != nil {
		return writeError(c, err)
	}
	descendants, err := h.Tree.Descendants(id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"descendants": descendants})
}

func (h *CategoryHandler) PriceStats(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid category id")
	}
	includeSubtree := c.QueryBool("include_subcategories", true)
	stats, err := h.Tree.PriceStats(id, includeSubtree)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(stats)
}

type createCategoryReq struct {
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	ParentID  *string `json:"parent_id"`
	SortOrder int     `json:"sort_order"`
}

func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	var req createCategoryReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}
	name, ok := validate.Name(req.Name)
	if !ok {
		return badRequest(c, "name", "name must be 1-100 characters")
	}
	if req.Slug != "" {
		if _, ok := validate.Slug(req.Slug); !ok {
			return badRequest(c, "slug", "slug must be lowercase letters, digits and hyphens")
		}
	}
	cat, err := h.Tree.Create(name, req.Slug, req.ParentID, req.SortOrder)
	if err != nil {
		return writeError(c, err)
	}
	applog.Audit(c, "category.create", map[string]any{"id": cat.ID, "slug": cat.Slug})
	return c.Status(fiber.StatusCreated).JSON(cat)
}

type updateCategoryReq struct {
	Name     *string `json:"name"`
	Slug     string  `json:"slug"`
	ParentID *string `json:"parent_id"`
	Reparent bool    `json:"reparent"`
}

// Update renames and/or reparents. Reparent is explicit so that a null
// parent_id can mean "make this a root" rather than "not provided".
func (h *CategoryHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid category id")
	}
	var req updateCategoryReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}

	if req.Name != nil {
		name, ok := validate.Name(*req.Name)
		if !ok {
			return badRequest(c, "name", "name must be 1-100 characters")
		}
		if _, err := h.Tree.Rename(id, name, req.Slug); err != nil {
			return writeError(c, err)
		}
	}
	if req.Reparent {
		if err := h.Tree.Reparent(id, req.ParentID); err != nil {
			return writeError(c, err)
		}
		applog.Audit(c, "category.reparent", map[string]any{"id": id})
	}

	cat, err := h.Tree.Cats.Get(id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(cat)
}

func (h *CategoryHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid category id")
	}
	if err := h.Tree.Delete(id); err != nil {
		return writeError(c, err)
	}
	applog.Audit(c, "category.delete", map[string]any{"id": id})
	return c.SendStatus(fiber.StatusNoContent)
}
