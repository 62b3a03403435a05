package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/homeledger/internal/apperr"
	"github.com/dukerupert/homeledger/internal/docstore"
	"github.com/dukerupert/homeledger/internal/docstore/docstoretest"
	"github.com/dukerupert/homeledger/internal/inventory"
	"github.com/dukerupert/homeledger/internal/model"
)

var now = time.Date(2024, 1, 20, 15, 0, 0, 0, time.UTC)

func setupInventoryTest(t *testing.T) (*inventory.Resolver, *inventory.Repository, docstore.Store) {
	t.Helper()
	docs := docstoretest.New(t, now)
	return inventory.NewResolver(docs, nil), inventory.NewRepository(docs), docs
}

func strPtr(s string) *string { return &s }

func commitPlan(t *testing.T, docs docstore.Store, p *inventory.Plan) {
	t.Helper()
	b := docstore.NewBatch()
	p.Stage(b, "g1")
	if err := docs.Commit(context.Background(), b); err != nil {
		t.Fatalf("commit plan: %v", err)
	}
}

func TestMatchKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Milk", "milk"},
		{"  milk ", "milk"},
		{"Whole   MILK", "whole milk"},
		{"ÁGUA Mineral", "água mineral"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := inventory.MatchKey(tt.in); got != tt.want {
			t.Errorf("MatchKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveCreatesNewRecord(t *testing.T) {
	res, repo, docs := setupInventoryTest(t)
	ctx := context.Background()

	paid := decimal.RequireFromString("12.00")
	plan, err := res.Resolve(ctx, inventory.Purchase{
		GroupID: "g1", Name: "Rice", Quantity: 2, TotalPaid: &paid, Unit: "kg", Actor: "u1", At: now,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if plan.Mode != inventory.ModeCreate {
		t.Fatalf("mode = %s, want %s", plan.Mode, inventory.ModeCreate)
	}
	commitPlan(t, docs, plan)

	item, err := repo.Get(ctx, "g1", plan.ItemID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item.Quantity != 2 {
		t.Errorf("quantity = %d, want 2", item.Quantity)
	}
	if item.Category == nil || *item.Category != inventory.DefaultCategory {
		t.Errorf("category = %v, want %q", item.Category, inventory.DefaultCategory)
	}
	if item.LastPurchaseValue == nil || !item.LastPurchaseValue.Equal(paid) {
		t.Errorf("last purchase value = %v, want %s", item.LastPurchaseValue, paid)
	}
	if item.LastPurchaseQuantity == nil || *item.LastPurchaseQuantity != 2 {
		t.Errorf("last purchase quantity = %v, want 2", item.LastPurchaseQuantity)
	}
	if item.NextPurchaseDate != nil || item.NextPurchaseValue != nil {
		t.Error("next purchase fields should be null")
	}
	if item.NameKey != "rice" {
		t.Errorf("name key = %q, want %q", item.NameKey, "rice")
	}
}

func TestResolveUpdatesExistingRecord(t *testing.T) {
	res, repo, docs := setupInventoryTest(t)
	ctx := context.Background()

	existing, err := repo.Create(ctx, "g1", "u1", model.InventoryItem{
		Name: "Coffee", Quantity: 3, Unit: "pack", Category: strPtr("Breakfast"), Store: strPtr("Market"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	plan, err := res.Resolve(ctx, inventory.Purchase{
		GroupID: "g1", Name: "  coffee ", Quantity: 2, Actor: "u2", At: now,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if plan.Mode != inventory.ModeUpdate || plan.ItemID != existing.ID {
		t.Fatalf("plan = %+v, want update of %s", plan, existing.ID)
	}
	commitPlan(t, docs, plan)

	item, _ := repo.Get(ctx, "g1", existing.ID)
	if item.Quantity != 5 {
		t.Errorf("quantity = %d, want 5", item.Quantity)
	}
	// Absent details keep what the record had.
	if item.Category == nil || *item.Category != "Breakfast" {
		t.Errorf("category = %v, want Breakfast", item.Category)
	}
	if item.Store == nil || *item.Store != "Market" {
		t.Errorf("store = %v, want Market", item.Store)
	}
	if item.Unit != "pack" {
		t.Errorf("unit = %q, want pack", item.Unit)
	}
	if item.LastUpdatedBy != "u2" {
		t.Errorf("last updated by = %q, want u2", item.LastUpdatedBy)
	}
	if item.LastPurchaseValue != nil {
		t.Errorf("last purchase value = %v, want nil for a purchase without value", item.LastPurchaseValue)
	}
}

func TestResolveCarriesSuppliedDetails(t *testing.T) {
	res, repo, docs := setupInventoryTest(t)
	ctx := context.Background()

	existing, _ := repo.Create(ctx, "g1", "u1", model.InventoryItem{Name: "Soap", Quantity: 1})
	plan, err := res.Resolve(ctx, inventory.Purchase{
		GroupID: "g1", Name: "Soap", Quantity: 1, Category: strPtr("Cleaning"), Store: strPtr("Pharmacy"), Unit: "bar", At: now,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	commitPlan(t, docs, plan)

	item, _ := repo.Get(ctx, "g1", existing.ID)
	if item.Category == nil || *item.Category != "Cleaning" {
		t.Errorf("category = %v, want Cleaning", item.Category)
	}
	if item.Store == nil || *item.Store != "Pharmacy" {
		t.Errorf("store = %v, want Pharmacy", item.Store)
	}
	if item.Unit != "bar" {
		t.Errorf("unit = %q, want bar", item.Unit)
	}
}

func TestResolveMergesDuplicates(t *testing.T) {
	res, repo, docs := setupInventoryTest(t)
	ctx := context.Background()

	// Duplicates can only come from data written outside the repository.
	coll := inventory.Collection("g1")
	seed := docstore.NewBatch().
		Create(coll, "old", docstore.Fields{"name": "Eggs", "nameKey": "eggs", "quantity": 6, "addedAt": now.Add(-time.Hour)}).
		Create(coll, "dup", docstore.Fields{"name": "eggs", "nameKey": "eggs", "quantity": 4, "addedAt": now})
	if err := docs.Commit(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	plan, err := res.Resolve(ctx, inventory.Purchase{GroupID: "g1", Name: "EGGS", Quantity: 12, At: now})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if plan.ItemID != "old" {
		t.Errorf("kept %q, want the oldest record", plan.ItemID)
	}
	if len(plan.Merged) != 1 || plan.Merged[0] != "dup" {
		t.Errorf("merged = %v, want [dup]", plan.Merged)
	}
	commitPlan(t, docs, plan)

	items, _ := repo.List(ctx, "g1")
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].Quantity != 22 {
		t.Errorf("quantity = %d, want 22", items[0].Quantity)
	}
}

func TestResolveNeverDecreasesQuantity(t *testing.T) {
	res, repo, docs := setupInventoryTest(t)
	ctx := context.Background()

	existing, _ := repo.Create(ctx, "g1", "u1", model.InventoryItem{Name: "Water", Quantity: 10})
	for i := 0; i < 3; i++ {
		plan, err := res.Resolve(ctx, inventory.Purchase{GroupID: "g1", Name: "Water", Quantity: 1, At: now})
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		commitPlan(t, docs, plan)
	}

	item, _ := repo.Get(ctx, "g1", existing.ID)
	if item.Quantity != 13 {
		t.Errorf("quantity = %d, want 13", item.Quantity)
	}
}

func TestResolveValidation(t *testing.T) {
	res, _, _ := setupInventoryTest(t)
	ctx := context.Background()

	for _, p := range []inventory.Purchase{
		{GroupID: "g1", Name: "  ", Quantity: 1},
		{GroupID: "g1", Name: "Milk", Quantity: 0},
	} {
		if _, err := res.Resolve(ctx, p); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Resolve(%+v) err = %v, want validation", p, err)
		}
	}
}

func TestResolveStoreFailure(t *testing.T) {
	docs := &docstoretest.Faulty{
		Store:    docstoretest.New(t, now),
		QueryErr: apperr.Unavailable("query documents", errors.New("offline")),
	}
	res := inventory.NewResolver(docs, nil)

	_, err := res.Resolve(context.Background(), inventory.Purchase{GroupID: "g1", Name: "Milk", Quantity: 1})
	if !errors.Is(err, apperr.ErrUnavailable) {
		t.Errorf("err = %v, want store unavailable", err)
	}
}

func TestRepositoryRejectsDuplicateName(t *testing.T) {
	_, repo, _ := setupInventoryTest(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "g1", "u1", model.InventoryItem{Name: "Milk", Quantity: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, "g1", "u1", model.InventoryItem{Name: " MILK", Quantity: 1}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
	// Other groups are unaffected.
	if _, err := repo.Create(ctx, "g2", "u1", model.InventoryItem{Name: "Milk", Quantity: 1}); err != nil {
		t.Errorf("create in g2: %v", err)
	}
}

func TestRepositorySetQuantity(t *testing.T) {
	_, repo, _ := setupInventoryTest(t)
	ctx := context.Background()

	item, _ := repo.Create(ctx, "g1", "u1", model.InventoryItem{Name: "Flour", Quantity: 4})

	if err := repo.SetQuantity(ctx, "g1", "u2", item.ID, 1); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	got, _ := repo.Get(ctx, "g1", item.ID)
	if got.Quantity != 1 || got.LastUpdatedBy != "u2" {
		t.Errorf("got quantity=%d by=%q, want 1 by u2", got.Quantity, got.LastUpdatedBy)
	}

	if err := repo.SetQuantity(ctx, "g1", "u2", item.ID, -1); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
	if err := repo.SetQuantity(ctx, "g1", "u2", "missing", 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestRepositoryDelete(t *testing.T) {
	_, repo, _ := setupInventoryTest(t)
	ctx := context.Background()

	item, _ := repo.Create(ctx, "g1", "u1", model.InventoryItem{Name: "Salt", Quantity: 1})
	if err := repo.Delete(ctx, "g1", item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "g1", item.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}
