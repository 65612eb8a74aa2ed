package domain

// Category is a node in the hierarchical product taxonomy. Trees may be
// arbitrarily deep: Grocery > Produce > Fruits > Citrus > Oranges.
//
// Level is denormalized: it always equals the number of ancestors between
// this node and its root, and is recomputed on every mutation that moves
// the node.
type Category struct {
	ID        string  `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	Slug      string  `db:"slug" json:"slug"`
	ParentID  *string `db:"parent_id" json:"parent_id"`
	Level     int     `db:"level" json:"level"`
	SortOrder int     `db:"sort_order" json:"sort_order"`
	Active    bool    `db:"is_active" json:"is_active"`
	CreatedAt string  `db:"created_at" json:"created_at"`
	UpdatedAt string  `db:"updated_at" json:"updated_at"`
}

func (c Category) IsRoot() bool { return c.ParentID == nil }
