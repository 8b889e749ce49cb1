package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"agrishare/internal/core"

	"github.com/shopspring/decimal"
)

func TestBatch_GaplessNumbering(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool, core.NoopSyncer{})
	batches := core.NewBatchService(pool)

	p1 := createTestProduct(t, ctx, catalog, "Oignons")
	p2 := createTestProduct(t, ctx, catalog, "Tomates")

	harvest := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	year := harvest.Year()

	// Numbers increase across products of the same farm and never repeat.
	for i, pid := range []int{p1.ID, p2.ID, p1.ID} {
		b, err := batches.CreateBatch(ctx, pid, harvest, nil, decimal.NewFromInt(50), "Hangar A", "")
		if err != nil {
			t.Fatalf("CreateBatch %d failed: %v", i+1, err)
		}
		want := fmt.Sprintf("LOT-%d-%05d", year, i+1)
		if b.BatchNumber != want {
			t.Errorf("Expected batch number %s, got %s", want, b.BatchNumber)
		}
		if !b.CurrentQty.Equal(b.InitialQty) {
			t.Errorf("New batch must start full: %s vs %s", b.CurrentQty, b.InitialQty)
		}
	}
}

func TestBatch_CreationWritesProductionMovementAndStock(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool, core.NoopSyncer{})
	batches := core.NewBatchService(pool)
	inventory := core.NewInventoryService(pool)

	p := createTestProduct(t, ctx, catalog, "Oignons")
	if _, err := batches.CreateBatch(ctx, p.ID, time.Now(), nil, decimal.NewFromInt(120), "Hangar A", ""); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	got, err := catalog.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if !got.StockQty.Equal(decimal.NewFromInt(120)) {
		t.Errorf("Expected stock 120, got %s", got.StockQty)
	}

	movements, err := inventory.GetMovements(ctx, p.ID, 10)
	if err != nil {
		t.Fatalf("GetMovements failed: %v", err)
	}
	if len(movements) != 1 || movements[0].Type != core.MovementProduction {
		t.Fatalf("Expected one production movement, got %v", movements)
	}
	if !movements[0].Quantity.Equal(decimal.NewFromInt(120)) {
		t.Errorf("Expected movement +120, got %s", movements[0].Quantity)
	}
}

func TestBatch_AdjustQuantity(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool, core.NoopSyncer{})
	batches := core.NewBatchService(pool)
	inventory := core.NewInventoryService(pool)

	p := createTestProduct(t, ctx, catalog, "Tomates")
	b, err := batches.CreateBatch(ctx, p.ID, time.Now(), nil, decimal.NewFromInt(100), "Serre 2", "")
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	adjusted, err := batches.AdjustQuantity(ctx, b.ID, decimal.NewFromInt(80), "casse au tri")
	if err != nil {
		t.Fatalf("AdjustQuantity failed: %v", err)
	}
	if !adjusted.CurrentQty.Equal(decimal.NewFromInt(80)) {
		t.Errorf("Expected 80, got %s", adjusted.CurrentQty)
	}
	if !adjusted.InitialQty.Equal(decimal.NewFromInt(100)) {
		t.Errorf("InitialQty must be immutable, got %s", adjusted.InitialQty)
	}

	movements, err := inventory.GetMovements(ctx, p.ID, 10)
	if err != nil {
		t.Fatalf("GetMovements failed: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("Expected production + adjustment, got %d movements", len(movements))
	}
	if movements[0].Type != core.MovementAdjustment || !movements[0].Quantity.Equal(decimal.NewFromInt(-20)) {
		t.Errorf("Expected adjustment -20, got %s %s", movements[0].Type, movements[0].Quantity)
	}

	got, err := catalog.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if !got.StockQty.Equal(decimal.NewFromInt(80)) {
		t.Errorf("Expected reconciled stock 80, got %s", got.StockQty)
	}

	if _, err := batches.AdjustQuantity(ctx, b.ID, decimal.NewFromInt(-5), ""); !errors.Is(err, core.ErrInvalidQuantity) {
		t.Errorf("Negative adjustment must fail with ErrInvalidQuantity, got %v", err)
	}
	if _, err := batches.AdjustQuantity(ctx, 99999, decimal.NewFromInt(5), ""); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Missing batch must fail with ErrNotFound, got %v", err)
	}
}
