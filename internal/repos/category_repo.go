package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"duka/internal/domain"
)

type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

const categoryCols = `id, name, slug, parent_id, level, sort_order, is_active,
  created_at, COALESCE(updated_at,'') AS updated_at`

func (r *CategoryRepo) Get(id string) (domain.Category, error) {
	var c domain.Category
	err := r.db.Get(&c, `SELECT `+categoryCols+` FROM categories WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return c, &domain.NotFoundError{Entity: "category", ID: id}
	}
	return c, err
}

func (r *CategoryRepo) BySlug(slug string) (domain.Category, error) {
	var c domain.Category
	err := r.db.Get(&c, `SELECT `+categoryCols+` FROM categories WHERE slug = ?`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return c, &domain.NotFoundError{Entity: "category", ID: slug}
	}
	return c, err
}

// Roots lists top-level categories ordered for display.
func (r *CategoryRepo) Roots() ([]domain.Category, error) {
	var out []domain.Category
	err := r.db.Select(&out, `
		SELECT `+categoryCols+` FROM categories
		WHERE parent_id IS NULL
		ORDER BY sort_order, name`)
	return out, err
}

// Children lists the direct children of a node, ordered by sort_order then
// name. Traversal routines rely on this ordering for deterministic output.
func (r *CategoryRepo) Children(id string) ([]domain.Category, error) {
	var out []domain.Category
	err := r.db.Select(&out, `
		SELECT `+categoryCols+` FROM categories
		WHERE parent_id = ?
		ORDER BY sort_order, name`, id)
	return out, err
}

func (r *CategoryRepo) HasChildren(id string) (bool, error) {
	var n int
	if err := r.db.Get(&n, `SELECT COUNT(*) FROM categories WHERE parent_id = ?`, id); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *CategoryRepo) SlugTaken(slug string) (bool, error) {
	var n int
	if err := r.db.Get(&n, `SELECT COUNT(*) FROM categories WHERE slug = ?`, slug); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SiblingNameTaken checks (parent, name) uniqueness. parentID == nil means
// root siblings; SQLite's UNIQUE(parent_id, name) does not cover that case
// because NULLs compare distinct.
func (r *CategoryRepo) SiblingNameTaken(parentID *string, name string) (bool, error) {
	var n int
	var err error
	if parentID == nil {
		err = r.db.Get(&n, `SELECT COUNT(*) FROM categories WHERE parent_id IS NULL AND name = ?`, name)
	} else {
		err = r.db.Get(&n, `SELECT COUNT(*) FROM categories WHERE parent_id = ? AND name = ?`, *parentID, name)
	}
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *CategoryRepo) Insert(c domain.Category) error {
	_, err := r.db.Exec(`
		INSERT INTO categories(id, name, slug, parent_id, level, sort_order, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Slug, c.ParentID, c.Level, c.SortOrder, c.Active)
	if IsUniqueViolation(err, "categories.slug") {
		return &domain.UniquenessViolationError{Entity: "category", Field: "slug", Value: c.Slug}
	}
	if IsUniqueViolation(err, "") {
		return &domain.UniquenessViolationError{Entity: "category", Field: "name", Value: c.Name}
	}
	return err
}

func (r *CategoryRepo) Rename(id, name, slug string) error {
	_, err := r.db.Exec(`
		UPDATE categories SET name = ?, slug = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, name, slug, id)
	if IsUniqueViolation(err, "categories.slug") {
		return &domain.UniquenessViolationError{Entity: "category", Field: "slug", Value: slug}
	}
	if IsUniqueViolation(err, "") {
		return &domain.UniquenessViolationError{Entity: "category", Field: "name", Value: name}
	}
	return err
}

// Reparent moves a node under a new parent and shifts the level of every
// descendant by the same delta, all in one transaction so the tree is never
// observable in a half-updated state.
func (r *CategoryRepo) Reparent(id string, parentID *string, newLevel int, descendantIDs []string, delta int) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		UPDATE categories SET parent_id = ?, level = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, parentID, newLevel, id); err != nil {
		return err
	}

	if delta != 0 && len(descendantIDs) > 0 {
		query, args, err := sqlx.In(
			`UPDATE categories SET level = level + ? WHERE id IN (?)`, delta, descendantIDs)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Delete removes a category; ON DELETE CASCADE takes the whole subtree.
// Deleting a category that still has products is blocked by the RESTRICT
// constraint on products.category_id.
func (r *CategoryRepo) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "category", ID: id}
	}
	return nil
}

func (r *CategoryRepo) ProductCount(id string) (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM products WHERE category_id = ? AND is_active = 1`, id)
	return n, err
}

// ActivePrices returns the prices of all active products in the given
// categories. Aggregation happens in Go with decimals; SQL AVG over the
// TEXT money columns would go through floats.
func (r *CategoryRepo) ActivePrices(categoryIDs []string) ([]decimal.Decimal, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT price FROM products WHERE category_id IN (?) AND is_active = 1`, categoryIDs)
	if err != nil {
		return nil, err
	}
	var out []decimal.Decimal
	err = r.db.Select(&out, query, args...)
	return out, err
}
