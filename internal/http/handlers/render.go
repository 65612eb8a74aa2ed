package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"duka/internal/domain"
	applog "duka/internal/log"
	"duka/internal/services"
)

// writeError translates the typed business errors into JSON responses with
// a stable machine-readable kind, so the core never leaks raw storage
// errors to clients.
func writeError(c *fiber.Ctx, err error) error {
	var (
		notFound    *domain.NotFoundError
		unique      *domain.UniquenessViolationError
		unavailable *domain.ProductUnavailableError
		stock       *domain.InsufficientStockError
		size        *domain.InvalidOrderSizeError
		transition  *domain.InvalidStatusTransitionError
		cancellable *domain.OrderNotCancellableError
		cycle       *domain.CategoryCycleError
		persistence *domain.PersistenceError
	)

	switch {
	case errors.As(err, &notFound):
		return fail(c, fiber.StatusNotFound, "not_found", err)
	case errors.As(err, &unique):
		return fail(c, fiber.StatusConflict, "uniqueness_violation", err)
	case errors.As(err, &unavailable):
		return fail(c, fiber.StatusBadRequest, "product_unavailable", err)
	case errors.As(err, &stock):
		return fail(c, fiber.StatusBadRequest, "insufficient_stock", err)
	case errors.As(err, &size):
		return fail(c, fiber.StatusBadRequest, "invalid_order_size", err)
	case errors.As(err, &transition):
		return fail(c, fiber.StatusConflict, "invalid_status_transition", err)
	case errors.As(err, &cancellable):
		return fail(c, fiber.StatusConflict, "order_not_cancellable", err)
	case errors.As(err, &cycle):
		return fail(c, fiber.StatusBadRequest, "category_cycle", err)
	case errors.Is(err, services.ErrBadCreds):
		return fail(c, fiber.StatusUnauthorized, "bad_credentials", err)
	case errors.As(err, &persistence):
		applog.Error(c, "persistence.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"kind":  "persistence_failure",
			"error": "operation failed, nothing was applied",
		})
	default:
		applog.Error(c, "server.error", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"kind":  "internal",
			"error": "something went wrong",
		})
	}
}

func fail(c *fiber.Ctx, status int, kind string, err error) error {
	return c.Status(status).JSON(fiber.Map{"kind": kind, "error": err.Error()})
}

func badRequest(c *fiber.Ctx, field, msg string) error {
	applog.Security(c, "validation.fail", map[string]any{"field": field})
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"kind":  "validation",
		"field": field,
		"error": msg,
	})
}
