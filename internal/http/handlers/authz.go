package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"duka/internal/domain"
	applog "duka/internal/log"
	"duka/internal/services"
)

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// currentCustomer returns the authenticated customer, or nil.
func currentCustomer(c *fiber.Ctx) *domain.Customer {
	cust, _ := c.Locals("customer").(*domain.Customer)
	return cust
}

// RequireCustomer rejects requests without a valid bearer token.
func RequireCustomer(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"kind": "unauthorized", "error": "missing bearer token"})
		}
		cust, err := auth.CurrentCustomer(token)
		if err != nil || cust == nil || !cust.Active {
			applog.Security(c, "access.denied", nil)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"kind": "unauthorized", "error": "invalid bearer token"})
		}
		c.Locals("customer", cust)
		return c.Next()
	}
}

// RequireAdmin additionally checks the ADMIN role.
func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"kind": "unauthorized", "error": "missing bearer token"})
		}
		cust, err := auth.CurrentCustomer(token)
		if err != nil || cust == nil || cust.Role != "ADMIN" {
			applog.Security(c, "access.denied.admin", nil)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"kind": "forbidden", "error": "admin access required"})
		}
		c.Locals("customer", cust)
		return c.Next()
	}
}
