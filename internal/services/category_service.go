package services

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"duka/internal/domain"
	"duka/internal/repos"
	"duka/internal/validate"
)

// CategoryService owns the category hierarchy: level computation, ancestor
// path rendering, descendant enumeration and cascading level updates on
// reparent.
//
// Every traversal carries a visited set. A cyclic parent chain cannot be
// produced by the mutation paths here, but corrupted data must degrade to a
// truncated walk, never an unbounded one.
type CategoryService struct {
	Cats *repos.CategoryRepo
}

func NewCategoryService(cats *repos.CategoryRepo) *CategoryService {
	return &CategoryService{Cats: cats}
}

// Create inserts a category with level = parent.level + 1 (0 for roots).
// Slug defaults to a slugified name.
func (s *CategoryService) Create(name, slug string, parentID *string, sortOrder int) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if slug == "" {
		slug = validate.Slugify(name)
	}

	level := 0
	if parentID != nil {
		parent, err := s.Cats.Get(*parentID)
		if err != nil {
			return domain.Category{}, err
		}
		level = parent.Level + 1
	}

	// Pre-checks give callers field-level errors; the DB constraints stay
	// as the backstop.
	if taken, err := s.Cats.SlugTaken(slug); err != nil {
		return domain.Category{}, err
	} else if taken {
		return domain.Category{}, &domain.UniquenessViolationError{Entity: "category", Field: "slug", Value: slug}
	}
	if taken, err := s.Cats.SiblingNameTaken(parentID, name); err != nil {
		return domain.Category{}, err
	} else if taken {
		return domain.Category{}, &domain.UniquenessViolationError{Entity: "category", Field: "name", Value: name}
	}

	c := domain.Category{
		ID:        uuid.NewString(),
		Name:      name,
		Slug:      slug,
		ParentID:  parentID,
		Level:     level,
		SortOrder: sortOrder,
		Active:    true,
	}
	if err := s.Cats.Insert(c); err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

// Rename changes a category's name (and optionally slug) with the same
// uniqueness rules as Create.
func (s *CategoryService) Rename(id, name, slug string) (domain.Category, error) {
	c, err := s.Cats.Get(id)
	if err != nil {
		return domain.Category{}, err
	}
	name = strings.TrimSpace(name)
	if slug == "" {
		slug = validate.Slugify(name)
	}

	if slug != c.Slug {
		if taken, err := s.Cats.SlugTaken(slug); err != nil {
			return domain.Category{}, err
		} else if taken {
			return domain.Category{}, &domain.UniquenessViolationError{Entity: "category", Field: "slug", Value: slug}
		}
	}
	if name != c.Name {
		if taken, err := s.Cats.SiblingNameTaken(c.ParentID, name); err != nil {
			return domain.Category{}, err
		} else if taken {
			return domain.Category{}, &domain.UniquenessViolationError{Entity: "category", Field: "name", Value: name}
		}
	}

	if err := s.Cats.Rename(id, name, slug); err != nil {
		return domain.Category{}, err
	}
	c.Name, c.Slug = name, slug
	return c, nil
}

// Reparent moves a category under newParentID (nil makes it a root),
// recomputes its level and shifts every descendant by the same delta in one
// bulk update. Moving a node under itself or one of its descendants is
// rejected, since that would detach the subtree into a cycle.
func (s *CategoryService) Reparent(id string, newParentID *string) error {
	c, err := s.Cats.Get(id)
	if err != nil {
		return err
	}

	newLevel := 0
	if newParentID != nil {
		if *newParentID == id {
			return &domain.CategoryCycleError{ID: id, ParentID: *newParentID}
		}
		parent, err := s.Cats.Get(*newParentID)
		if err != nil {
			return err
		}
		newLevel = parent.Level + 1

		if taken, err := s.Cats.SiblingNameTaken(newParentID, c.Name); err != nil {
			return err
		} else if taken {
			return &domain.UniquenessViolationError{Entity: "category", Field: "name", Value: c.Name}
		}
	}

	descendants, err := s.Descendants(id)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(descendants))
	for _, d := range descendants {
		if newParentID != nil && d.ID == *newParentID {
			return &domain.CategoryCycleError{ID: id, ParentID: *newParentID}
		}
		ids = append(ids, d.ID)
	}

	delta := newLevel - c.Level
	return s.Cats.Reparent(id, newParentID, newLevel, ids, delta)
}

// FullPath renders the ancestor chain root-first, joined by " > ". If the
// parent chain revisits a node the walk stops and a circular marker is
// appended instead of failing.
func (s *CategoryService) FullPath(id string) (string, error) {
	c, err := s.Cats.Get(id)
	if err != nil {
		return "", err
	}

	visited := map[string]bool{}
	var segments []string
	current := &c
	for current != nil && !visited[current.ID] {
		visited[current.ID] = true
		segments = append(segments, current.Name)
		if current.IsRoot() {
			current = nil
			break
		}
		parent, err := s.Cats.Get(*current.ParentID)
		if err != nil {
			return "", err
		}
		current = &parent
	}
	if current != nil && visited[current.ID] {
		segments = append(segments, "[CIRCULAR: "+current.Name+"]")
	}

	// Walked leaf-to-root; reverse for display.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, " > "), nil
}

// Descendants returns the whole subtree below id in pre-order, children
// ordered by sort_order then name. Cycle-guarded by a visited set.
func (s *CategoryService) Descendants(id string) ([]domain.Category, error) {
	var out []domain.Category
	visited := map[string]bool{}
	if err := s.collectDescendants(id, visited, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CategoryService) collectDescendants(id string, visited map[string]bool, out *[]domain.Category) error {
	if visited[id] {
		return nil
	}
	visited[id] = true

	children, err := s.Cats.Children(id)
	if err != nil {
		return err
	}
	for _, child := range children {
		if visited[child.ID] {
			continue
		}
		*out = append(*out, child)
		if err := s.collectDescendants(child.ID, visited, out); err != nil {
			return err
		}
	}
	return nil
}

// IsLeaf reports whether the category has no children.
func (s *CategoryService) IsLeaf(id string) (bool, error) {
	if _, err := s.Cats.Get(id); err != nil {
		return false, err
	}
	hasChildren, err := s.Cats.HasChildren(id)
	if err != nil {
		return false, err
	}
	return !hasChildren, nil
}

// Delete removes a category and, via cascade, its whole subtree.
func (s *CategoryService) Delete(id string) error {
	return s.Cats.Delete(id)
}

// PriceStats aggregates active product prices for a category, optionally
// including its whole subtree. All arithmetic is decimal.
type PriceStats struct {
	CategoryID            string          `json:"category_id"`
	CategoryName          string          `json:"category_name"`
	ProductCount          int             `json:"product_count"`
	AveragePrice          decimal.Decimal `json:"average_price"`
	MinPrice              decimal.Decimal `json:"min_price"`
	MaxPrice              decimal.Decimal `json:"max_price"`
	IncludesSubcategories bool            `json:"includes_subcategories"`
}

func (s *CategoryService) PriceStats(id string, includeSubtree bool) (PriceStats, error) {
	c, err := s.Cats.Get(id)
	if err != nil {
		return PriceStats{}, err
	}

	ids := []string{id}
	if includeSubtree {
		descendants, err := s.Descendants(id)
		if err != nil {
			return PriceStats{}, err
		}
		for _, d := range descendants {
			ids = append(ids, d.ID)
		}
	}

	prices, err := s.Cats.ActivePrices(ids)
	if err != nil {
		return PriceStats{}, err
	}

	stats := PriceStats{
		CategoryID:            id,
		CategoryName:          c.Name,
		ProductCount:          len(prices),
		IncludesSubcategories: includeSubtree,
	}
	if len(prices) == 0 {
		return stats, nil
	}

	sum := decimal.Zero
	stats.MinPrice, stats.MaxPrice = prices[0], prices[0]
	for _, p := range prices {
		sum = sum.Add(p)
		if p.LessThan(stats.MinPrice) {
			stats.MinPrice = p
		}
		if p.GreaterThan(stats.MaxPrice) {
			stats.MaxPrice = p
		}
	}
	stats.AveragePrice = sum.DivRound(decimal.NewFromInt(int64(len(prices))), 2)
	return stats, nil
}
