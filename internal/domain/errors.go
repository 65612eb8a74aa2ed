package domain

import "fmt"

// Typed business errors. Handlers match on them with errors.As to pick an
// HTTP status and render field-level messages; services return them as-is.

// UniquenessViolationError reports a duplicate value on a uniquely
// constrained field (category slug, sibling name, product SKU, ...).
type UniquenessViolationError struct {
	Entity string
	Field  string
	Value  string
}

func (e *UniquenessViolationError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

// NotFoundError reports an absent entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// ProductUnavailableError reports an inactive product in an order request.
type ProductUnavailableError struct {
	ProductID string
	Name      string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s (%s) is not available", e.Name, e.ProductID)
}

// InsufficientStockError reports that a product cannot cover the requested
// quantity. Available is the stock seen at check time.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d units of %s are available (requested %d)",
		e.Available, e.Name, e.Requested)
}

// InvalidOrderSizeError reports an order with no items or too many.
type InvalidOrderSizeError struct {
	Count int
	Min   int
	Max   int
}

func (e *InvalidOrderSizeError) Error() string {
	return fmt.Sprintf("order must have between %d and %d items, got %d", e.Min, e.Max, e.Count)
}

// InvalidStatusTransitionError names the rejected source and target status.
type InvalidStatusTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

// OrderNotCancellableError reports a cancel attempt on an order that has
// moved past CONFIRMED.
type OrderNotCancellableError struct {
	OrderNumber string
	Status      OrderStatus
}

func (e *OrderNotCancellableError) Error() string {
	return fmt.Sprintf("order %s cannot be cancelled in status %s", e.OrderNumber, e.Status)
}

// CategoryCycleError reports a reparent that would make a category its own
// ancestor.
type CategoryCycleError struct {
	ID       string
	ParentID string
}

func (e *CategoryCycleError) Error() string {
	return fmt.Sprintf("category %s cannot be moved under %s: would create a cycle", e.ID, e.ParentID)
}

// PersistenceError wraps storage failures not anticipated by validation.
// The whole operation is rolled back before it is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
