package handlers

import (
	"github.com/gofiber/fiber/v2"

	"duka/internal/domain"
	applog "duka/internal/log"
	"duka/internal/services"
	"duka/internal/validate"
)

type OrderHandler struct {
	Orders *services.OrderService
}

type orderView struct {
	domain.Order
	Items          []domain.OrderItem `json:"items"`
	ItemCount      int                `json:"item_count"`
	CanBeCancelled bool               `json:"can_be_cancelled"`
}

type createOrderReq struct {
	DeliveryAddress string                 `json:"delivery_address"`
	DeliveryNotes   string                 `json:"delivery_notes"`
	Items           []services.ItemRequest `json:"items"`
}

// Create places an order for the authenticated customer.
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	cust := currentCustomer(c)
	if cust == nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var req createOrderReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}
	for _, it := range req.Items {
		if _, ok := validate.ID(it.ProductID); !ok {
			return badRequest(c, "items", "invalid product id")
		}
	}

	order, items, err := h.Orders.Create(cust.ID, req.DeliveryAddress, req.DeliveryNotes, req.Items)
	if err != nil {
		applog.Security(c, "order.create.fail", map[string]any{"customer": cust.ID, "error": err.Error()})
		return writeError(c, err)
	}

	applog.Audit(c, "order.create", map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount.StringFixed(2),
	})
	return c.Status(fiber.StatusCreated).JSON(orderView{
		Order:          order,
		Items:          items,
		ItemCount:      domain.ItemCount(items),
		CanBeCancelled: order.CanBeCancelled(),
	})
}

// Get returns an order; customers only see their own, admins see all.
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid order id")
	}
	cust := currentCustomer(c)
	if cust == nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	order, items, err := h.Orders.Get(id)
	if err != nil {
		return writeError(c, err)
	}
	if order.CustomerID != cust.ID && cust.Role != "ADMIN" {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": id})
		return writeError(c, &domain.NotFoundError{Entity: "order", ID: id})
	}

	return c.JSON(orderView{
		Order:          order,
		Items:          items,
		ItemCount:      domain.ItemCount(items),
		CanBeCancelled: order.CanBeCancelled(),
	})
}

// History lists the authenticated customer's orders, newest first.
func (h *OrderHandler) History(c *fiber.Ctx) error {
	cust := currentCustomer(c)
	if cust == nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	orders, err := h.Orders.ListByCustomer(cust.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"orders": orders})
}

// Cancel restores stock and marks the order CANCELLED.
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid order id")
	}
	cust := currentCustomer(c)
	if cust == nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	order, _, err := h.Orders.Get(id)
	if err != nil {
		return writeError(c, err)
	}
	if order.CustomerID != cust.ID && cust.Role != "ADMIN" {
		return writeError(c, &domain.NotFoundError{Entity: "order", ID: id})
	}

	cancelled, err := h.Orders.Cancel(id)
	if err != nil {
		return writeError(c, err)
	}
	applog.Audit(c, "order.cancel", map[string]any{"order_id": id, "order_number": cancelled.OrderNumber})
	return c.JSON(cancelled)
}

type updateStatusReq struct {
	Status domain.OrderStatus `json:"status"`
}

// UpdateStatus moves an order through its lifecycle (admin only; wired
// behind RequireAdmin).
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "invalid order id")
	}
	var req updateStatusReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid JSON body")
	}
	if req.Status == "" {
		return badRequest(c, "status", "status is required")
	}

	order, err := h.Orders.UpdateStatus(id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	applog.Audit(c, "order.status", map[string]any{"order_id": id, "status": order.Status})
	return c.JSON(order)
}

// ListLatest returns recent orders across all customers (admin only).
func (h *OrderHandler) ListLatest(c *fiber.Ctx) error {
	orders, err := h.Orders.ListLatest(c.QueryInt("limit", 100))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"orders": orders})
}
