package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"duka/internal/domain"
)

type CustomerRepo struct{ db *sqlx.DB }

func NewCustomerRepo(db *sqlx.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerCols = `id, email, name, phone, password_hash, role, is_active,
  created_at, COALESCE(updated_at,'') AS updated_at`

func (r *CustomerRepo) ByEmail(email string) (*domain.Customer, error) {
	var c domain.Customer
	err := r.db.Get(&c, `SELECT `+customerCols+` FROM customers WHERE LOWER(email) = LOWER(?)`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "customer", ID: email}
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepo) ByID(id string) (*domain.Customer, error) {
	var c domain.Customer
	err := r.db.Get(&c, `SELECT `+customerCols+` FROM customers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "customer", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepo) Insert(c domain.Customer) error {
	_, err := r.db.Exec(`
		INSERT INTO customers(id, email, name, phone, password_hash, role, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Email, c.Name, c.Phone, c.PasswordHash, c.Role, c.Active)
	if IsUniqueViolation(err, "") {
		return &domain.UniquenessViolationError{Entity: "customer", Field: "email", Value: c.Email}
	}
	return err
}

// BindSession stores a bearer token for the customer.
func (r *CustomerRepo) BindSession(token, customerID string) error {
	_, err := r.db.Exec(`
		INSERT INTO sessions(token, customer_id, last_seen)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(token) DO UPDATE SET customer_id = excluded.customer_id, last_seen = CURRENT_TIMESTAMP`,
		token, customerID)
	return err
}

// SessionCustomer resolves a bearer token to its customer.
func (r *CustomerRepo) SessionCustomer(token string) (*domain.Customer, error) {
	var c domain.Customer
	err := r.db.Get(&c, `
		SELECT c.id, c.email, c.name, c.phone, c.password_hash, c.role, c.is_active,
		       c.created_at, COALESCE(c.updated_at,'') AS updated_at
		FROM sessions s
		JOIN customers c ON c.id = s.customer_id
		WHERE s.token = ?`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "session", ID: token}
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepo) UnbindSession(token string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}
