package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"agrishare/internal/core"

	"github.com/shopspring/decimal"
)

// seedFulfillmentFixture seeds one batched product and a pending order for it.
func seedFulfillmentFixture(t *testing.T, ctx context.Context, catalog core.CatalogService, batches core.BatchService, fulfillment core.FulfillmentService, name string, stock, orderQty int64) (*core.Product, *core.Order) {
	t.Helper()
	prod := createTestProduct(t, ctx, catalog, name)
	if stock > 0 {
		if _, err := batches.CreateBatch(ctx, prod.ID, time.Now(), nil, decimal.NewFromInt(stock), "", ""); err != nil {
			t.Fatalf("CreateBatch failed: %v", err)
		}
	}
	order, err := fulfillment.CreateOrder(ctx, "NIAYES", "CMD-"+name, "Fatou Ndiaye", "Dakar",
		[]core.OrderItemInput{{ProductID: prod.ID, Quantity: decimal.NewFromInt(orderQty), UnitPrice: decimal.NewFromInt(600)}})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	return prod, order
}

func TestFulfillment_FullWizard(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool, core.NoopSyncer{})
	batches := core.NewBatchService(pool)
	inventory := core.NewInventoryService(pool)
	fulfillment := core.NewFulfillmentService(pool)

	prod, order := seedFulfillmentFixture(t, ctx, catalog, batches, fulfillment, "A", 50, 12)
	if order.Status != core.OrderPending {
		t.Fatalf("Expected pending, got %s", order.Status)
	}
	if !order.Total.Equal(decimal.NewFromInt(7200)) {
		t.Errorf("Expected total 7200, got %s", order.Total)
	}

	job, err := fulfillment.StartFulfillment(ctx, order.ID)
	if err != nil {
		t.Fatalf("StartFulfillment failed: %v", err)
	}
	if job.Stage != core.StageVerifyContents {
		t.Errorf("Expected stage 1, got %d", job.Stage)
	}

	// Starting twice is illegal; so is starting a non-pending order later.
	if _, err := fulfillment.StartFulfillment(ctx, order.ID); err == nil {
		t.Error("Second StartFulfillment must fail")
	}

	// Stage 1 → 2: contents verified, order moves to preparing.
	job, err = fulfillment.AdvanceFulfillment(ctx, order.ID, "")
	if err != nil {
		t.Fatalf("Advance to stage 2 failed: %v", err)
	}
	if job.Stage != core.StageSelectCarrier {
		t.Errorf("Expected stage 2, got %d", job.Stage)
	}
	got, _ := fulfillment.GetOrder(ctx, order.ID)
	if got.Status != core.OrderPreparing {
		t.Errorf("Expected preparing, got %s", got.Status)
	}

	// Stage 2 → 3 requires a carrier.
	if _, err := fulfillment.AdvanceFulfillment(ctx, order.ID, ""); !errors.Is(err, core.ErrInvalidState) {
		t.Fatalf("Carrier-less advance must fail with ErrInvalidState, got %v", err)
	}
	job, err = fulfillment.AdvanceFulfillment(ctx, order.ID, "Yobanté Express")
	if err != nil {
		t.Fatalf("Advance to stage 3 failed: %v", err)
	}
	if job.Stage != core.StageConfirm || job.Carrier != "Yobanté Express" {
		t.Errorf("Expected stage 3 with carrier, got %d %q", job.Stage, job.Carrier)
	}
	got, _ = fulfillment.GetOrder(ctx, order.ID)
	if got.Status != core.OrderReadyToShip {
		t.Errorf("Expected ready_to_ship, got %s", got.Status)
	}

	// Final confirm: stock consumed, order shipping, job completed.
	job, err = fulfillment.AdvanceFulfillment(ctx, order.ID, "")
	if err != nil {
		t.Fatalf("Final confirm failed: %v", err)
	}
	if job.CompletedAt == nil {
		t.Error("Completed job must carry a completion time")
	}
	got, _ = fulfillment.GetOrder(ctx, order.ID)
	if got.Status != core.OrderShipping || got.TrackingNumber == "" {
		t.Errorf("Expected shipping with tracking, got %s %q", got.Status, got.TrackingNumber)
	}

	stocked, _ := catalog.GetProduct(ctx, prod.ID)
	if !stocked.StockQty.Equal(decimal.NewFromInt(38)) {
		t.Errorf("Expected stock 38 after confirm, got %s", stocked.StockQty)
	}
	movements, _ := inventory.GetMovements(ctx, prod.ID, 10)
	if movements[0].Type != core.MovementSale || movements[0].Reference != got.OrderNumber {
		t.Errorf("Sale movement must reference the order number, got %s %q", movements[0].Type, movements[0].Reference)
	}

	// Delivery closes the order.
	delivered, err := fulfillment.ConfirmDelivery(ctx, order.ID)
	if err != nil {
		t.Fatalf("ConfirmDelivery failed: %v", err)
	}
	if delivered.Status != core.OrderDelivered || delivered.DeliveredAt == nil {
		t.Errorf("Expected delivered with timestamp, got %s", delivered.Status)
	}
	if _, err := fulfillment.ConfirmDelivery(ctx, order.ID); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Double delivery must fail with ErrInvalidState, got %v", err)
	}
}

func TestFulfillment_ConfirmIsAtomicAcrossLines(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool, core.NoopSyncer{})
	batches := core.NewBatchService(pool)
	fulfillment := core.NewFulfillmentService(pool)

	stocked := createTestProduct(t, ctx, catalog, "Oignons")
	if _, err := batches.CreateBatch(ctx, stocked.ID, time.Now(), nil, decimal.NewFromInt(100), "", ""); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	short := createTestProduct(t, ctx, catalog, "Tomates")
	if _, err := batches.CreateBatch(ctx, short.ID, time.Now(), nil, decimal.NewFromInt(2), "", ""); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	order, err := fulfillment.CreateOrder(ctx, "NIAYES", "CMD-MIX", "Moussa Diop", "Thiès",
		[]core.OrderItemInput{
			{ProductID: stocked.ID, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(600)},
			{ProductID: short.ID, Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(800)},
		})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if _, err := fulfillment.StartFulfillment(ctx, order.ID); err != nil {
		t.Fatalf("StartFulfillment failed: %v", err)
	}
	if _, err := fulfillment.AdvanceFulfillment(ctx, order.ID, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if _, err := fulfillment.AdvanceFulfillment(ctx, order.ID, "DHL"); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	// The second line cannot be covered, so nothing may move.
	if _, err := fulfillment.AdvanceFulfillment(ctx, order.ID, ""); !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("Expected ErrInsufficientStock, got %v", err)
	}

	p1, _ := catalog.GetProduct(ctx, stocked.ID)
	p2, _ := catalog.GetProduct(ctx, short.ID)
	if !p1.StockQty.Equal(decimal.NewFromInt(100)) || !p2.StockQty.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Failed confirm must leave all stock untouched, got %s and %s", p1.StockQty, p2.StockQty)
	}
	got, _ := fulfillment.GetOrder(ctx, order.ID)
	if got.Status != core.OrderReadyToShip {
		t.Errorf("Order must stay ready_to_ship after a failed confirm, got %s", got.Status)
	}
}

func TestFulfillment_OrderValidation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	fulfillment := core.NewFulfillmentService(pool)

	if _, err := fulfillment.CreateOrder(ctx, "NIAYES", "CMD-EMPTY", "X", "", nil); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("Empty order must fail with ErrInvalidState, got %v", err)
	}
	if _, err := fulfillment.StartFulfillment(ctx, 99999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing order, got %v", err)
	}
	if _, err := fulfillment.AdvanceFulfillment(ctx, 99999, ""); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing wizard, got %v", err)
	}
}
