package domain

type Customer struct {
	ID           string `db:"id" json:"id"`
	Email        string `db:"email" json:"email"`
	Name         string `db:"name" json:"name"`
	Phone        string `db:"phone" json:"phone"`
	PasswordHash string `db:"password_hash" json:"-"`
	Role         string `db:"role" json:"role"` // CUSTOMER | ADMIN
	Active       bool   `db:"is_active" json:"is_active"`
	CreatedAt    string `db:"created_at" json:"created_at"`
	UpdatedAt    string `db:"updated_at" json:"updated_at"`
}
