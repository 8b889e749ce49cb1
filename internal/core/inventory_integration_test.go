package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"agrishare/internal/core"

	"github.com/shopspring/decimal"
)

func TestInventory_FIFOConsumption(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool, core.NoopSyncer{})
	batches := core.NewBatchService(pool)
	inventory := core.NewInventoryService(pool)

	p := createTestProduct(t, ctx, catalog, "Oignons")
	day1 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)

	older, err := batches.CreateBatch(ctx, p.ID, day1, nil, decimal.NewFromInt(50), "Hangar A", "")
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	newer, err := batches.CreateBatch(ctx, p.ID, day2, nil, decimal.NewFromInt(30), "Hangar A", "")
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	// 60 out of 80: the older batch drains fully, the newer keeps 20.
	if err := inventory.Consume(ctx, p.ID, decimal.NewFromInt(60), "CMD-0001"); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}

	remaining, err := batches.GetBatches(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetBatches failed: %v", err)
	}
	for _, b := range remaining {
		switch b.ID {
		case older.ID:
			if !b.CurrentQty.IsZero() {
				t.Errorf("Oldest batch should be empty, got %s", b.CurrentQty)
			}
		case newer.ID:
			if !b.CurrentQty.Equal(decimal.NewFromInt(20)) {
				t.Errorf("Newest batch should keep 20, got %s", b.CurrentQty)
			}
		}
	}

	got, err := catalog.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if !got.StockQty.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected stock 20, got %s", got.StockQty)
	}
	if !got.SoldQty.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Expected sold 60, got %s", got.SoldQty)
	}

	movements, err := inventory.GetMovements(ctx, p.ID, 10)
	if err != nil {
		t.Fatalf("GetMovements failed: %v", err)
	}
	var sales int
	for _, m := range movements {
		if m.Type == core.MovementSale {
			sales++
			if !m.Quantity.Equal(decimal.NewFromInt(-60)) {
				t.Errorf("Expected one sale of -60, got %s", m.Quantity)
			}
			if m.Reference != "CMD-0001" {
				t.Errorf("Sale movement must carry the order reference, got %q", m.Reference)
			}
		}
	}
	if sales != 1 {
		t.Errorf("A multi-batch consumption records exactly one sale movement, got %d", sales)
	}
}

func TestInventory_InsufficientStockIsAtomic(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool, core.NoopSyncer{})
	batches := core.NewBatchService(pool)
	inventory := core.NewInventoryService(pool)

	p := createTestProduct(t, ctx, catalog, "Tomates")
	if _, err := batches.CreateBatch(ctx, p.ID, time.Now(), nil, decimal.NewFromInt(20), "Serre", ""); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	err := inventory.Consume(ctx, p.ID, decimal.NewFromInt(1000), "CMD-0002")
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("Expected ErrInsufficientStock, got %v", err)
	}

	got, err := catalog.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if !got.StockQty.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Failed consumption must leave stock untouched, got %s", got.StockQty)
	}
	movements, err := inventory.GetMovements(ctx, p.ID, 10)
	if err != nil {
		t.Fatalf("GetMovements failed: %v", err)
	}
	for _, m := range movements {
		if m.Type == core.MovementSale {
			t.Errorf("Failed consumption must not record a sale movement")
		}
	}
}

func TestInventory_OutOfStockTransitions(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool, core.NoopSyncer{})
	batches := core.NewBatchService(pool)
	inventory := core.NewInventoryService(pool)
	media := core.NewMediaService(pool, nil)

	p := createTestProduct(t, ctx, catalog, "Gombo")
	if _, err := media.AddImage(ctx, p.ID, "https://cdn.example.com/g.jpg", ""); err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}
	b, err := batches.CreateBatch(ctx, p.ID, time.Now(), nil, decimal.NewFromInt(15), "", "")
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	if _, err := catalog.Publish(ctx, p.ID, core.ChannelB2C); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	// Drain to zero: active flips to out_of_stock.
	if err := inventory.Consume(ctx, p.ID, decimal.NewFromInt(15), "CMD-0003"); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	got, _ := catalog.GetProduct(ctx, p.ID)
	if got.Status != core.StatusOutOfStock {
		t.Errorf("Expected out_of_stock at zero, got %s", got.Status)
	}

	// Refill via adjustment: out_of_stock flips back to active.
	if _, err := batches.AdjustQuantity(ctx, b.ID, decimal.NewFromInt(10), "retour de marché"); err != nil {
		t.Fatalf("AdjustQuantity failed: %v", err)
	}
	got, _ = catalog.GetProduct(ctx, p.ID)
	if got.Status != core.StatusActive {
		t.Errorf("Expected active after refill, got %s", got.Status)
	}
}

func TestInventory_ScalarRestockOnlyWithoutBatches(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool, core.NoopSyncer{})
	batches := core.NewBatchService(pool)
	inventory := core.NewInventoryService(pool)

	scalar := createTestProduct(t, ctx, catalog, "Miel")
	got, err := inventory.Restock(ctx, scalar.ID, decimal.NewFromInt(40), "nouvelle extraction")
	if err != nil {
		t.Fatalf("Restock failed: %v", err)
	}
	if !got.StockQty.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected stock 40, got %s", got.StockQty)
	}

	// Scalar consumption works without batches too.
	if err := inventory.Consume(ctx, scalar.ID, decimal.NewFromInt(10), "CMD-0004"); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	got, _ = catalog.GetProduct(ctx, scalar.ID)
	if !got.StockQty.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Expected stock 30, got %s", got.StockQty)
	}

	batched := createTestProduct(t, ctx, catalog, "Oignons")
	if _, err := batches.CreateBatch(ctx, batched.ID, time.Now(), nil, decimal.NewFromInt(10), "", ""); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	if _, err := inventory.Restock(ctx, batched.ID, decimal.NewFromInt(5), ""); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Restock on a batch-tracked product must fail with ErrInvalidState, got %v", err)
	}
}

func TestInventory_RecordLossAndSummary(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool, core.NoopSyncer{})
	batches := core.NewBatchService(pool)
	inventory := core.NewInventoryService(pool)

	p := createTestProduct(t, ctx, catalog, "Tomates")
	if _, err := batches.CreateBatch(ctx, p.ID, time.Now(), nil, decimal.NewFromInt(100), "", ""); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	if err := inventory.RecordLoss(ctx, p.ID, decimal.NewFromInt(25), "pourriture"); err != nil {
		t.Fatalf("RecordLoss failed: %v", err)
	}

	movements, err := inventory.GetMovements(ctx, p.ID, 10)
	if err != nil {
		t.Fatalf("GetMovements failed: %v", err)
	}
	if movements[0].Type != core.MovementLoss || !movements[0].Quantity.Equal(decimal.NewFromInt(-25)) {
		t.Errorf("Expected loss -25 first, got %s %s", movements[0].Type, movements[0].Quantity)
	}

	got, _ := catalog.GetProduct(ctx, p.ID)
	if !got.SoldQty.IsZero() {
		t.Errorf("Losses must not count as sales, sold=%s", got.SoldQty)
	}

	summary, err := inventory.GetStockSummary(ctx, "NIAYES")
	if err != nil {
		t.Fatalf("GetStockSummary failed: %v", err)
	}
	if summary.RecentMovements != 2 {
		t.Errorf("Expected 2 recent movements, got %d", summary.RecentMovements)
	}
	// 75 kg at the 600 B2C price.
	if !summary.TotalStockValue.Equal(decimal.NewFromInt(45000)) {
		t.Errorf("Expected stock value 45000, got %s", summary.TotalStockValue)
	}
}
