package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/homeledger/internal/apperr"
	"github.com/dukerupert/homeledger/internal/docstore"
	"github.com/dukerupert/homeledger/internal/docstore/docstoretest"
	"github.com/dukerupert/homeledger/internal/ledger"
	"github.com/dukerupert/homeledger/internal/model"
)

var now = time.Date(2024, 1, 20, 15, 0, 0, 0, time.UTC)

func setupLedgerTest(t *testing.T) (*ledger.Ledger, docstore.Store) {
	t.Helper()
	docs := docstoretest.New(t, now)
	return ledger.New(docs), docs
}

func expense(value string, category string, date time.Time) model.Transaction {
	return model.Transaction{
		Value:    decimal.RequireFromString(value),
		Type:     model.TransactionExpense,
		Category: category,
		Date:     date,
		UserID:   "u1",
	}
}

func TestRecordAndGet(t *testing.T) {
	l, _ := setupLedgerTest(t)
	ctx := context.Background()

	desc := "Lunch"
	in := expense("42.50", "Food", time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC))
	in.Description = &desc

	tx, err := l.Record(ctx, "g1", in)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if tx.ID == "" {
		t.Fatal("expected generated id")
	}
	if !tx.CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", tx.CreatedAt, now)
	}

	got, err := l.Get(ctx, "g1", tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Value.Equal(decimal.RequireFromString("42.5")) {
		t.Errorf("value = %s, want 42.5", got.Value)
	}
	if got.Type != model.TransactionExpense {
		t.Errorf("type = %q, want %q", got.Type, model.TransactionExpense)
	}
	if got.Description == nil || *got.Description != "Lunch" {
		t.Errorf("description = %v, want Lunch", got.Description)
	}
	if got.LinkedBillID != nil {
		t.Errorf("linked bill = %v, want nil", *got.LinkedBillID)
	}
}

func TestRecordValidation(t *testing.T) {
	l, docs := setupLedgerTest(t)
	ctx := context.Background()
	billID := "b1"

	bad := []model.Transaction{
		expense("0", "Food", now),
		expense("-5", "Food", now),
		expense("10", "", now),
		{Value: decimal.NewFromInt(10), Type: "transfer", Category: "Food", Date: now, UserID: "u1"},
		{Value: decimal.NewFromInt(10), Type: model.TransactionIncome, Category: "Salary", Date: now, UserID: "u1", LinkedBillID: &billID},
	}
	for i, tx := range bad {
		if _, err := l.Record(ctx, "g1", tx); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("bad[%d]: err = %v, want validation", i, err)
		}
	}
	if n := docstoretest.Count(t, docs, ledger.Collection("g1")); n != 0 {
		t.Errorf("stored %d transactions after rejected input", n)
	}
}

func TestGetMissing(t *testing.T) {
	l, _ := setupLedgerTest(t)

	_, err := l.Get(context.Background(), "g1", "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestListRangeBoundariesInclusive(t *testing.T) {
	l, _ := setupLedgerTest(t)
	ctx := context.Background()

	r, err := ledger.MonthRange("2024-01", time.UTC)
	if err != nil {
		t.Fatalf("month range: %v", err)
	}

	dates := []time.Time{
		r.Start,
		time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		r.End,
		r.Start.Add(-time.Nanosecond),
		r.End.Add(time.Nanosecond),
	}
	for _, d := range dates {
		if _, err := l.Record(ctx, "g1", expense("10", "Food", d)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	txs, err := l.ListRange(ctx, "g1", r)
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txs))
	}
	if !txs[0].Date.Equal(r.End) || !txs[2].Date.Equal(r.Start) {
		t.Errorf("expected newest first with both boundaries, got %v .. %v", txs[0].Date, txs[2].Date)
	}
}

func TestListMonthUsesLocation(t *testing.T) {
	l, _ := setupLedgerTest(t)
	ctx := context.Background()
	loc := time.FixedZone("BRT", -3*3600)

	// 2024-02-01 01:00 UTC is still January 31st in BRT.
	l.Record(ctx, "g1", expense("10", "Food", time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC)))

	jan, err := l.ListMonth(ctx, "g1", "2024-01", loc)
	if err != nil {
		t.Fatalf("list month: %v", err)
	}
	if len(jan) != 1 {
		t.Errorf("january = %d transactions, want 1", len(jan))
	}

	if _, err := l.ListMonth(ctx, "g1", "January", loc); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestUpdate(t *testing.T) {
	l, _ := setupLedgerTest(t)
	ctx := context.Background()

	tx, _ := l.Record(ctx, "g1", expense("10", "Food", now))
	tx.Value = decimal.NewFromInt(25)
	tx.Category = "Home"
	if err := l.Update(ctx, "g1", *tx); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := l.Get(ctx, "g1", tx.ID)
	if !got.Value.Equal(decimal.NewFromInt(25)) || got.Category != "Home" {
		t.Errorf("got value=%s category=%q", got.Value, got.Category)
	}

	missing := *tx
	missing.ID = "ghost"
	if err := l.Update(ctx, "g1", missing); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestDeleteRefusesLinkedTransaction(t *testing.T) {
	l, docs := setupLedgerTest(t)
	ctx := context.Background()

	tx, _ := l.Record(ctx, "g1", expense("10", "Compras", now))
	b := docstore.NewBatch().Create(docstore.Path("g1", docstore.KindShoppingItems), "item1", docstore.Fields{
		"name":                "Milk",
		"linkedTransactionId": tx.ID,
	})
	if err := docs.Commit(ctx, b); err != nil {
		t.Fatalf("seed item: %v", err)
	}

	if err := l.Delete(ctx, "g1", tx.ID); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
	if _, err := l.Get(ctx, "g1", tx.ID); err != nil {
		t.Errorf("linked transaction should survive: %v", err)
	}

	free, _ := l.Record(ctx, "g1", expense("5", "Food", now))
	if err := l.Delete(ctx, "g1", free.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := l.Get(ctx, "g1", free.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestSubscribeRange(t *testing.T) {
	l, _ := setupLedgerTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := ledger.DayRange(now, now, time.UTC)
	ch, err := l.SubscribeRange(ctx, "g1", r)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	first := <-ch
	if len(first) != 0 {
		t.Fatalf("initial = %d, want 0", len(first))
	}

	l.Record(ctx, "g1", expense("10", "Food", now))
	select {
	case txs := <-ch:
		if len(txs) != 1 {
			t.Errorf("after record = %d, want 1", len(txs))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
}

func TestGroupsAreIsolated(t *testing.T) {
	l, _ := setupLedgerTest(t)
	ctx := context.Background()

	l.Record(ctx, "g1", expense("10", "Food", now))

	txs, err := l.ListRange(ctx, "g2", ledger.DayRange(now, now, time.UTC))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("g2 sees %d transactions of g1", len(txs))
	}
}
