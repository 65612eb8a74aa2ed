package services

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"duka/internal/domain"
	"duka/internal/repos"
)

var ErrBadCreds = errors.New("invalid email or password")

// AuthService issues opaque bearer tokens backed by the sessions table.
// OrderService trusts the customer identifier this resolves; it never
// re-validates identity.
type AuthService struct {
	Customers *repos.CustomerRepo
}

func NewAuthService(customers *repos.CustomerRepo) *AuthService {
	return &AuthService{Customers: customers}
}

func (s *AuthService) Register(email, name, phone, password string) (*domain.Customer, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, err
	}
	c := domain.Customer{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Phone:        phone,
		PasswordHash: string(hash),
		Role:         "CUSTOMER",
		Active:       true,
	}
	if err := s.Customers.Insert(c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Login checks credentials and returns a fresh bearer token.
func (s *AuthService) Login(email, password string) (*domain.Customer, string, error) {
	c, err := s.Customers.ByEmail(email)
	if err != nil {
		return nil, "", ErrBadCreds
	}
	if !c.Active {
		return nil, "", ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrBadCreds
	}
	token := uuid.NewString()
	if err := s.Customers.BindSession(token, c.ID); err != nil {
		return nil, "", err
	}
	return c, token, nil
}

func (s *AuthService) Logout(token string) error {
	return s.Customers.UnbindSession(token)
}

// CurrentCustomer resolves a bearer token.
func (s *AuthService) CurrentCustomer(token string) (*domain.Customer, error) {
	return s.Customers.SessionCustomer(token)
}
