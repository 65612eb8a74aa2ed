package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "duka/internal/log"
	"duka/internal/services"
	"duka/internal/validate"
)

type AuthHandler struct {
	Auth *services.AuthService
}

type registerReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}
	email, ok := validate.Email(req.Email)
	if !ok {
		return badRequest(c, "email", "invalid email")
	}
	name, ok := validate.Name(req.Name)
	if !ok {
		return badRequest(c, "name", "name must be 1-100 characters")
	}
	phone, ok := validate.Phone(req.Phone)
	if !ok {
		return badRequest(c, "phone", "invalid phone number")
	}
	if !validate.Password(req.Password) {
		return badRequest(c, "password", "password must be 8-64 characters with upper, lower, digit and symbol")
	}

	cust, err := h.Auth.Register(email, name, phone, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	applog.Audit(c, "auth.register", map[string]any{"customer": cust.ID})
	return c.Status(fiber.StatusCreated).JSON(cust)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}
	cust, token, err := h.Auth.Login(req.Email, req.Password)
	if err != nil {
		applog.Security(c, "auth.login.fail", map[string]any{"email": req.Email})
		return writeError(c, err)
	}
	applog.Audit(c, "auth.login", map[string]any{"customer": cust.ID})
	return c.JSON(fiber.Map{"token": token, "customer": cust})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := bearerToken(c); token != "" {
		if err := h.Auth.Logout(token); err != nil {
			return writeError(c, err)
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	cust := currentCustomer(c)
	if cust == nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	return c.JSON(cust)
}
