package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"duka/internal/domain"
	"duka/internal/repos"
	"duka/internal/services"
)

type orderFixture struct {
	svc   *services.OrderService
	prods *repos.ProductRepo
	db    *sqlx.DB
}

// newOrderFixture seeds one customer, one category and two products:
// p-laptop (999.00, stock 10) and p-monitor (1999.00, stock 4).
func newOrderFixture(t *testing.T) orderFixture {
	t.Helper()
	db := memdb(t)

	db.MustExec(`INSERT INTO customers(id,email,name,phone,password_hash,role)
		VALUES ('cust-1','test@duka.test','Test','0712345678','x','CUSTOMER')`)
	db.MustExec(`INSERT INTO categories(id,name,slug,level) VALUES ('cat-1','Electronics','electronics',0)`)

	prods := repos.NewProductRepo(db)
	seed := []domain.Product{
		{ID: "p-laptop", Name: "Laptop 14", SKU: "SKU-LAP", Price: decimal.RequireFromString("999.00"), CategoryID: "cat-1", StockQuantity: 10, Active: true},
		{ID: "p-monitor", Name: "Monitor 27", SKU: "SKU-MON", Price: decimal.RequireFromString("1999.00"), CategoryID: "cat-1", StockQuantity: 4, Active: true},
	}
	for _, p := range seed {
		if err := prods.Insert(p); err != nil {
			t.Fatal(err)
		}
	}

	svc := services.NewOrderService(repos.NewOrderRepo(db), prods, nil, decimal.RequireFromString("0.16"))
	return orderFixture{svc: svc, prods: prods, db: db}
}

func (f orderFixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.prods.Get(productID)
	if err != nil {
		t.Fatal(err)
	}
	return p.StockQuantity
}

func (f orderFixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	if err := f.db.Get(&n, `SELECT COUNT(*) FROM `+table); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestCreateOrder(t *testing.T) {
	f := newOrderFixture(t)

	order, items, err := f.svc.Create("cust-1", "Moi Avenue, Nairobi", "", []services.ItemRequest{
		{ProductID: "p-laptop", Quantity: 2},
		{ProductID: "p-monitor", Quantity: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	// subtotal = 2*999.00 + 1999.00 = 3997.00; tax = 639.52; total = 4636.52
	if got := order.Subtotal.StringFixed(2); got != "3997.00" {
		t.Fatalf("subtotal: want 3997.00, got %s", got)
	}
	if got := order.TaxAmount.StringFixed(2); got != "639.52" {
		t.Fatalf("tax: want 639.52, got %s", got)
	}
	if got := order.TotalAmount.StringFixed(2); got != "4636.52" {
		t.Fatalf("total: want 4636.52, got %s", got)
	}
	if order.Status != domain.StatusConfirmed {
		t.Fatalf("want CONFIRMED, got %s", order.Status)
	}
	if !strings.HasPrefix(order.OrderNumber, "ORD-") || len(order.OrderNumber) != len("ORD-20260823-ABCD") {
		t.Fatalf("bad order number %q", order.OrderNumber)
	}

	if len(items) != 2 {
		t.Fatalf("want 2 items, got %d", len(items))
	}
	if items[0].ProductName != "Laptop 14" || items[0].ProductSKU != "SKU-LAP" {
		t.Fatalf("missing product snapshot: %+v", items[0])
	}
	if got := items[0].LineTotal.StringFixed(2); got != "1998.00" {
		t.Fatalf("line total: want 1998.00, got %s", got)
	}

	if got := f.stock(t, "p-laptop"); got != 8 {
		t.Fatalf("laptop stock: want 8, got %d", got)
	}
	if got := f.stock(t, "p-monitor"); got != 3 {
		t.Fatalf("monitor stock: want 3, got %d", got)
	}

	// Reload and verify the persisted row matches what was returned.
	stored, storedItems, err := f.svc.Get(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.TotalAmount.Equal(order.TotalAmount) || stored.Status != domain.StatusConfirmed {
		t.Fatalf("persisted order diverges: %+v", stored)
	}
	if len(storedItems) != 2 {
		t.Fatalf("want 2 persisted items, got %d", len(storedItems))
	}
}

func TestCreateOrderTaxRounding(t *testing.T) {
	cases := []struct {
		price   string
		wantTax string
	}{
		{"99.99", "16.00"},   // 15.9984 rounds up
		{"33.33", "5.33"},    // 5.3328 rounds down
		{"1000.01", "160.00"}, // 160.0016 rounds down
	}
	for _, tc := range cases {
		t.Run(tc.price, func(t *testing.T) {
			f := newOrderFixture(t)
			p := domain.Product{ID: "p-x", Name: "X", SKU: "SKU-X", Price: decimal.RequireFromString(tc.price), CategoryID: "cat-1", StockQuantity: 5, Active: true}
			if err := f.prods.Insert(p); err != nil {
				t.Fatal(err)
			}

			order, _, err := f.svc.Create("cust-1", "addr", "", []services.ItemRequest{{ProductID: "p-x", Quantity: 1}})
			if err != nil {
				t.Fatal(err)
			}
			if got := order.TaxAmount.StringFixed(2); got != tc.wantTax {
				t.Fatalf("tax on %s: want %s, got %s", tc.price, tc.wantTax, got)
			}
			if want := order.Subtotal.Add(order.TaxAmount); !order.TotalAmount.Equal(want) {
				t.Fatalf("total %s != subtotal+tax %s", order.TotalAmount, want)
			}
		})
	}
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	f := newOrderFixture(t)

	// First item is satisfiable, second is not; nothing may stick.
	_, _, err := f.svc.Create("cust-1", "addr", "", []services.ItemRequest{
		{ProductID: "p-laptop", Quantity: 2},
		{ProductID: "p-monitor", Quantity: 5},
	})
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}
	if stockErr.Requested != 5 || stockErr.Available != 4 {
		t.Fatalf("want requested=5 available=4, got %+v", stockErr)
	}

	if n := f.count(t, "orders"); n != 0 {
		t.Fatalf("order row leaked: %d", n)
	}
	if n := f.count(t, "order_items"); n != 0 {
		t.Fatalf("item rows leaked: %d", n)
	}
	if got := f.stock(t, "p-laptop"); got != 10 {
		t.Fatalf("laptop stock changed: %d", got)
	}
	if got := f.stock(t, "p-monitor"); got != 4 {
		t.Fatalf("monitor stock changed: %d", got)
	}
}

func TestCreateOrderInactiveProduct(t *testing.T) {
	f := newOrderFixture(t)
	f.db.MustExec(`UPDATE products SET is_active = 0 WHERE id = 'p-monitor'`)

	_, _, err := f.svc.Create("cust-1", "addr", "", []services.ItemRequest{
		{ProductID: "p-monitor", Quantity: 1},
	})
	var unavailErr *domain.ProductUnavailableError
	if !errors.As(err, &unavailErr) {
		t.Fatalf("want ProductUnavailableError, got %v", err)
	}
	if n := f.count(t, "orders"); n != 0 {
		t.Fatalf("order row leaked: %d", n)
	}
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	f := newOrderFixture(t)

	_, _, err := f.svc.Create("cust-1", "addr", "", []services.ItemRequest{
		{ProductID: "p-nope", Quantity: 1},
	})
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

func TestCreateOrderSizeLimits(t *testing.T) {
	f := newOrderFixture(t)

	var sizeErr *domain.InvalidOrderSizeError
	if _, _, err := f.svc.Create("cust-1", "addr", "", nil); !errors.As(err, &sizeErr) {
		t.Fatalf("empty order: want InvalidOrderSizeError, got %v", err)
	}

	tooMany := make([]services.ItemRequest, 21)
	for i := range tooMany {
		tooMany[i] = services.ItemRequest{ProductID: "p-laptop", Quantity: 1}
	}
	if _, _, err := f.svc.Create("cust-1", "addr", "", tooMany); !errors.As(err, &sizeErr) {
		t.Fatalf("21 items: want InvalidOrderSizeError, got %v", err)
	}

	if _, _, err := f.svc.Create("cust-1", "addr", "", []services.ItemRequest{
		{ProductID: "p-laptop", Quantity: 0},
	}); !errors.As(err, &sizeErr) {
		t.Fatalf("zero quantity: want InvalidOrderSizeError, got %v", err)
	}
}

// Two back-to-back orders competing for the same 5 units: the guarded
// decrement lets exactly one through.
func TestCreateOrderStockContention(t *testing.T) {
	f := newOrderFixture(t)
	f.db.MustExec(`UPDATE products SET stock_quantity = 5 WHERE id = 'p-laptop'`)

	req := []services.ItemRequest{{ProductID: "p-laptop", Quantity: 3}}
	_, _, err1 := f.svc.Create("cust-1", "addr", "", req)
	_, _, err2 := f.svc.Create("cust-1", "addr", "", req)

	if err1 != nil {
		t.Fatalf("first order should succeed: %v", err1)
	}
	var stockErr *domain.InsufficientStockError
	if !errors.As(err2, &stockErr) {
		t.Fatalf("second order: want InsufficientStockError, got %v", err2)
	}
	if stockErr.Available != 2 {
		t.Fatalf("want 2 units left in error, got %d", stockErr.Available)
	}
	if got := f.stock(t, "p-laptop"); got != 2 {
		t.Fatalf("final stock: want 2, got %d", got)
	}
	if n := f.count(t, "orders"); n != 1 {
		t.Fatalf("want exactly one order, got %d", n)
	}
}

func TestCancelRestoresStock(t *testing.T) {
	f := newOrderFixture(t)

	order, _, err := f.svc.Create("cust-1", "addr", "", []services.ItemRequest{
		{ProductID: "p-laptop", Quantity: 2},
		{ProductID: "p-monitor", Quantity: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	cancelled, err := f.svc.Cancel(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Fatalf("want CANCELLED, got %s", cancelled.Status)
	}
	if got := f.stock(t, "p-laptop"); got != 10 {
		t.Fatalf("laptop stock not restored: %d", got)
	}
	if got := f.stock(t, "p-monitor"); got != 4 {
		t.Fatalf("monitor stock not restored: %d", got)
	}

	// Cancelling twice is rejected; stock stays put.
	var notCancellable *domain.OrderNotCancellableError
	if _, err := f.svc.Cancel(order.ID); !errors.As(err, &notCancellable) {
		t.Fatalf("want OrderNotCancellableError on second cancel, got %v", err)
	}
	if got := f.stock(t, "p-laptop"); got != 10 {
		t.Fatalf("stock double-restored: %d", got)
	}
}

func TestCancelShippedOrder(t *testing.T) {
	f := newOrderFixture(t)

	order, _, err := f.svc.Create("cust-1", "addr", "", []services.ItemRequest{
		{ProductID: "p-laptop", Quantity: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.UpdateStatus(order.ID, domain.StatusProcessing); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.UpdateStatus(order.ID, domain.StatusShipped); err != nil {
		t.Fatal(err)
	}

	var notCancellable *domain.OrderNotCancellableError
	if _, err := f.svc.Cancel(order.ID); !errors.As(err, &notCancellable) {
		t.Fatalf("want OrderNotCancellableError, got %v", err)
	}
	got, _, err := f.svc.Get(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusShipped {
		t.Fatalf("status changed by failed cancel: %s", got.Status)
	}
	if s := f.stock(t, "p-laptop"); s != 9 {
		t.Fatalf("stock changed by failed cancel: %d", s)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newOrderFixture(t)

	order, _, err := f.svc.Create("cust-1", "addr", "", []services.ItemRequest{
		{ProductID: "p-laptop", Quantity: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Happy path: CONFIRMED -> PROCESSING -> SHIPPED -> DELIVERED
	for _, next := range []domain.OrderStatus{domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered} {
		o, err := f.svc.UpdateStatus(order.ID, next)
		if err != nil {
			t.Fatalf("to %s: %v", next, err)
		}
		if o.Status != next {
			t.Fatalf("want %s, got %s", next, o.Status)
		}
	}

	// DELIVERED is terminal.
	var transErr *domain.InvalidStatusTransitionError
	if _, err := f.svc.UpdateStatus(order.ID, domain.StatusProcessing); !errors.As(err, &transErr) {
		t.Fatalf("want InvalidStatusTransitionError from DELIVERED, got %v", err)
	}
	if transErr.From != domain.StatusDelivered || transErr.To != domain.StatusProcessing {
		t.Fatalf("wrong transition in error: %+v", transErr)
	}
}

func TestUpdateStatusBackwardsRejected(t *testing.T) {
	f := newOrderFixture(t)

	order, _, err := f.svc.Create("cust-1", "addr", "", []services.ItemRequest{
		{ProductID: "p-laptop", Quantity: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.UpdateStatus(order.ID, domain.StatusProcessing); err != nil {
		t.Fatal(err)
	}

	var transErr *domain.InvalidStatusTransitionError
	if _, err := f.svc.UpdateStatus(order.ID, domain.StatusConfirmed); !errors.As(err, &transErr) {
		t.Fatalf("want InvalidStatusTransitionError going backwards, got %v", err)
	}
	got, _, _ := f.svc.Get(order.ID)
	if got.Status != domain.StatusProcessing {
		t.Fatalf("status changed by rejected transition: %s", got.Status)
	}
}

func TestUpdateStatusCancelRoutesThroughRestore(t *testing.T) {
	f := newOrderFixture(t)

	order, _, err := f.svc.Create("cust-1", "addr", "", []services.ItemRequest{
		{ProductID: "p-monitor", Quantity: 2},
	})
	if err != nil {
		t.Fatal(err)
	}

	o, err := f.svc.UpdateStatus(order.ID, domain.StatusCancelled)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != domain.StatusCancelled {
		t.Fatalf("want CANCELLED, got %s", o.Status)
	}
	if got := f.stock(t, "p-monitor"); got != 4 {
		t.Fatalf("stock not restored via status route: %d", got)
	}
}

func TestRecomputeTotals(t *testing.T) {
	f := newOrderFixture(t)

	order, _, err := f.svc.Create("cust-1", "addr", "", []services.ItemRequest{
		{ProductID: "p-laptop", Quantity: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Zero the stored totals out of band, then recompute from the items.
	f.db.MustExec(`UPDATE orders SET subtotal='0.00', tax_amount='0.00', total_amount='0.00' WHERE id = ?`, order.ID)

	got, err := f.svc.RecomputeTotals(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Subtotal.StringFixed(2) != "999.00" {
		t.Fatalf("subtotal: want 999.00, got %s", got.Subtotal)
	}
	if got.TaxAmount.StringFixed(2) != "159.84" {
		t.Fatalf("tax: want 159.84, got %s", got.TaxAmount)
	}
	if got.TotalAmount.StringFixed(2) != "1158.84" {
		t.Fatalf("total: want 1158.84, got %s", got.TotalAmount)
	}
}

func TestOrderNumberFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		n := services.GenerateOrderNumber()
		parts := strings.Split(n, "-")
		if len(parts) != 3 || parts[0] != "ORD" || len(parts[1]) != 8 || len(parts[2]) != 4 {
			t.Fatalf("bad order number %q", n)
		}
		if parts[2] != strings.ToUpper(parts[2]) {
			t.Fatalf("suffix not uppercase: %q", n)
		}
		seen[n] = true
	}
	if len(seen) < 2 {
		t.Fatal("order numbers never vary")
	}
}

func TestListByCustomer(t *testing.T) {
	f := newOrderFixture(t)
	f.db.MustExec(`INSERT INTO customers(id,email,name,phone,password_hash,role)
		VALUES ('cust-2','other@duka.test','Other','0798765432','x','CUSTOMER')`)

	if _, _, err := f.svc.Create("cust-1", "addr", "", []services.ItemRequest{{ProductID: "p-laptop", Quantity: 1}}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.svc.Create("cust-2", "addr", "", []services.ItemRequest{{ProductID: "p-laptop", Quantity: 1}}); err != nil {
		t.Fatal(err)
	}

	mine, err := f.svc.ListByCustomer("cust-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].CustomerID != "cust-1" {
		t.Fatalf("want one own order, got %+v", mine)
	}

	all, err := f.svc.ListLatest(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("want 2 orders overall, got %d", len(all))
	}
}
