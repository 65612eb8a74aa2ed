package services_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"duka/internal/domain"
	"duka/internal/repos"
	"duka/internal/services"
)

func newCatalog(t *testing.T) (*services.CatalogService, *services.CategoryService) {
	t.Helper()
	db := memdb(t)
	tree := services.NewCategoryService(repos.NewCategoryRepo(db))
	return services.NewCatalogService(repos.NewProductRepo(db), tree), tree
}

func TestListByCategoryIncludesSubtree(t *testing.T) {
	catalog, tree := newCatalog(t)
	root, _ := tree.Create("Grocery", "", nil, 0)
	fruits, _ := tree.Create("Fruits", "", &root.ID, 0)

	if _, err := catalog.CreateProduct("Rice 2kg", "", "SKU-RICE", decimal.RequireFromString("250.00"), root.ID, 30); err != nil {
		t.Fatal(err)
	}
	if _, err := catalog.CreateProduct("Mangoes", "", "SKU-MAN", decimal.RequireFromString("120.00"), fruits.ID, 40); err != nil {
		t.Fatal(err)
	}

	all, err := catalog.ListByCategory(root.ID, true, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("subtree listing: want 2, got %d", len(all))
	}

	own, err := catalog.ListByCategory(root.ID, false, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(own) != 1 || own[0].SKU != "SKU-RICE" {
		t.Fatalf("own-only listing: %+v", own)
	}
}

func TestCreateProductUnknownCategory(t *testing.T) {
	catalog, _ := newCatalog(t)

	var notFound *domain.NotFoundError
	_, err := catalog.CreateProduct("X", "", "SKU-X", decimal.RequireFromString("10.00"), "no-such-cat", 1)
	if !errors.As(err, &notFound) {
		t.Fatalf("want NotFoundError for category, got %v", err)
	}
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	catalog, tree := newCatalog(t)
	root, _ := tree.Create("Grocery", "", nil, 0)

	if _, err := catalog.CreateProduct("A", "", "SKU-DUP", decimal.RequireFromString("10.00"), root.ID, 1); err != nil {
		t.Fatal(err)
	}
	var uniqueErr *domain.UniquenessViolationError
	if _, err := catalog.CreateProduct("B", "", "SKU-DUP", decimal.RequireFromString("20.00"), root.ID, 1); !errors.As(err, &uniqueErr) {
		t.Fatalf("want UniquenessViolation on sku, got %v", err)
	}
}

func TestCheckAvailability(t *testing.T) {
	catalog, tree := newCatalog(t)
	root, _ := tree.Create("Grocery", "", nil, 0)

	cases := []struct {
		stock  int
		active bool
		want   string
	}{
		{10, true, "IN_STOCK"},
		{5, true, "IN_STOCK"},
		{4, true, "LOW_STOCK"},
		{1, true, "LOW_STOCK"},
		{0, true, "OUT_OF_STOCK"},
		{10, false, "OUT_OF_STOCK"},
	}
	for i, tc := range cases {
		p, err := catalog.CreateProduct("P", "", "SKU-"+string(rune('A'+i)), decimal.RequireFromString("10.00"), root.ID, tc.stock)
		if err != nil {
			t.Fatal(err)
		}
		if !tc.active {
			p.Active = false
			if err := catalog.UpdateProduct(p); err != nil {
				t.Fatal(err)
			}
		}
		got, err := catalog.CheckAvailability(p.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != tc.want {
			t.Errorf("stock=%d active=%v: want %s, got %s", tc.stock, tc.active, tc.want, got.Status)
		}
	}
}

func TestSearch(t *testing.T) {
	catalog, tree := newCatalog(t)
	root, _ := tree.Create("Grocery", "", nil, 0)
	other, _ := tree.Create("Electronics", "", nil, 1)

	if _, err := catalog.CreateProduct("Fresh Oranges", "", "SKU-ORA", decimal.RequireFromString("180.00"), root.ID, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := catalog.CreateProduct("Orange Phone Case", "", "SKU-CASE", decimal.RequireFromString("500.00"), other.ID, 10); err != nil {
		t.Fatal(err)
	}

	hits, err := catalog.Search("orange", "", 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("unscoped search: want 2, got %d", len(hits))
	}

	scoped, err := catalog.Search("orange", root.ID, 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(scoped) != 1 || scoped[0].SKU != "SKU-ORA" {
		t.Fatalf("scoped search: %+v", scoped)
	}

	bySKU, err := catalog.Search("sku-case", "", 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(bySKU) != 1 {
		t.Fatalf("sku search: want 1, got %d", len(bySKU))
	}
}

func TestDeleteProductBlockedByOrders(t *testing.T) {
	f := newOrderFixture(t)

	_, _, err := f.svc.Create("cust-1", "addr", "", []services.ItemRequest{{ProductID: "p-laptop", Quantity: 1}})
	if err != nil {
		t.Fatal(err)
	}

	// RESTRICT: a referenced product cannot be removed.
	if err := f.prods.Delete("p-laptop"); err == nil {
		t.Fatal("delete of referenced product should fail")
	}
	if _, err := f.prods.Get("p-laptop"); err != nil {
		t.Fatalf("product disappeared: %v", err)
	}

	// An unreferenced one can.
	if err := f.prods.Delete("p-monitor"); err != nil {
		t.Fatal(err)
	}
}
