package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"retail-demand-lab/internal/domain"
	"retail-demand-lab/internal/storage"
	"retail-demand-lab/internal/storage/memory"
)

func makeTxs(n int) []domain.Transaction {
	txs := make([]domain.Transaction, n)
	for i := range txs {
		cust := "17850"
		txs[i] = domain.Transaction{
			Seq:         int64(i + 1),
			StockCode:   "85123A",
			Quantity:    6,
			InvoiceDate: time.Date(2010, time.December, 1, 8, 26, 0, 0, time.UTC),
			UnitPrice:   decimal.RequireFromString("2.55"),
			CustomerID:  &cust,
		}
	}
	return txs
}

func TestInsertBatches(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTransactionStore()

	inserted, err := insertBatches(ctx, store, makeTxs(7), 3)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if inserted != 7 {
		t.Errorf("expected 7 inserted, got %d", inserted)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 7 {
		t.Errorf("expected 7 stored, got %d", count)
	}
}

func TestInsertBatches_StopsOnDuplicate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTransactionStore()

	if _, err := insertBatches(ctx, store, makeTxs(2), 0); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	inserted, err := insertBatches(ctx, store, makeTxs(4), 2)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got: %v", err)
	}
	if inserted != 0 {
		t.Errorf("expected 0 inserted, got %d", inserted)
	}
}

func TestInsertBatches_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := insertBatches(ctx, memory.NewTransactionStore(), makeTxs(3), 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
}
