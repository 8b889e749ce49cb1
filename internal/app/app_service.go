package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"agrishare/internal/ai"
	"agrishare/internal/core"
)

type appService struct {
	pool        *pgxpool.Pool
	catalog     core.CatalogService
	batches     core.BatchService
	inventory   core.InventoryService
	media       core.MediaService
	fulfillment core.FulfillmentService
	production  core.ProductionService
	advisor     ai.AdvisorService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	pool *pgxpool.Pool,
	catalog core.CatalogService,
	batches core.BatchService,
	inventory core.InventoryService,
	media core.MediaService,
	fulfillment core.FulfillmentService,
	production core.ProductionService,
	advisor ai.AdvisorService,
) ApplicationService {
	return &appService{
		pool:        pool,
		catalog:     catalog,
		batches:     batches,
		inventory:   inventory,
		media:       media,
		fulfillment: fulfillment,
		production:  production,
		advisor:     advisor,
	}
}

// ── Catalog ──────────────────────────────────────────────────────────────────

func (s *appService) ListProducts(ctx context.Context, farmCode string, status *core.ProductStatus) (*ProductListResult, error) {
	products, err := s.catalog.GetProducts(ctx, farmCode, status)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products, FarmCode: farmCode}, nil
}

func (s *appService) GetProduct(ctx context.Context, productID int) (*ProductResult, error) {
	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &ProductResult{Product: p}, nil
}

func (s *appService) CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductResult, error) {
	p, err := s.catalog.CreateProduct(ctx, req.FarmCode, req.Name, req.Category, req.Unit,
		req.Description, req.Channels, req.Specs, req.Pricing, req.MinStockThreshold)
	if err != nil {
		return nil, err
	}
	return &ProductResult{Product: p}, nil
}

func (s *appService) UpdateProduct(ctx context.Context, productID int, req UpdateProductRequest) (*ProductResult, error) {
	p, err := s.catalog.UpdateProduct(ctx, productID, req)
	if err != nil {
		return nil, err
	}
	return &ProductResult{Product: p}, nil
}

func (s *appService) PublishProduct(ctx context.Context, productID int, channel string) (*ProductResult, error) {
	p, err := s.catalog.Publish(ctx, productID, core.NormalizeChannel(channel))
	if err != nil {
		return nil, err
	}
	return &ProductResult{Product: p}, nil
}

func (s *appService) UnpublishProduct(ctx context.Context, productID int, channel string) (*ProductResult, error) {
	p, err := s.catalog.Unpublish(ctx, productID, core.NormalizeChannel(channel))
	if err != nil {
		return nil, err
	}
	return &ProductResult{Product: p}, nil
}

func (s *appService) ArchiveProduct(ctx context.Context, productID int) (*ProductResult, error) {
	p, err := s.catalog.ArchiveProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &ProductResult{Product: p}, nil
}

func (s *appService) RecordView(ctx context.Context, productID int) error {
	return s.catalog.RecordView(ctx, productID)
}

func (s *appService) ListLowStockProducts(ctx context.Context, farmCode string) (*ProductListResult, error) {
	products, err := s.catalog.GetLowStockProducts(ctx, farmCode)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products, FarmCode: farmCode}, nil
}

// ── Media ────────────────────────────────────────────────────────────────────

func (s *appService) AddImage(ctx context.Context, req AddImageRequest) (*ImageResult, error) {
	img, err := s.media.AddImage(ctx, req.ProductID, req.URL, req.Type)
	if err != nil {
		return nil, err
	}
	return &ImageResult{Image: img}, nil
}

func (s *appService) SetPrimaryImage(ctx context.Context, imageID int) error {
	return s.media.SetPrimary(ctx, imageID)
}

func (s *appService) RemoveImage(ctx context.Context, imageID int) error {
	return s.media.RemoveImage(ctx, imageID)
}

func (s *appService) ScoreImage(ctx context.Context, imageID int) error {
	return s.media.RequestScore(ctx, imageID)
}

// ── Batches and stock ────────────────────────────────────────────────────────

func (s *appService) CreateBatch(ctx context.Context, req CreateBatchRequest) (*BatchResult, error) {
	b, err := s.batches.CreateBatch(ctx, req.ProductID, req.HarvestDate, req.ExpiryDate,
		req.InitialQty, req.Location, req.Notes)
	if err != nil {
		return nil, err
	}
	return &BatchResult{Batch: b}, nil
}

func (s *appService) AdjustBatch(ctx context.Context, batchID int, req AdjustBatchRequest) (*BatchResult, error) {
	b, err := s.batches.AdjustQuantity(ctx, batchID, req.NewQty, req.Reason)
	if err != nil {
		return nil, err
	}
	return &BatchResult{Batch: b}, nil
}

func (s *appService) RestockProduct(ctx context.Context, productID int, req RestockRequest) (*ProductResult, error) {
	p, err := s.inventory.Restock(ctx, productID, req.Quantity, req.Reason)
	if err != nil {
		return nil, err
	}
	return &ProductResult{Product: p}, nil
}

func (s *appService) RecordLoss(ctx context.Context, productID int, req LossRequest) error {
	return s.inventory.RecordLoss(ctx, productID, req.Quantity, req.Reason)
}

func (s *appService) ListMovements(ctx context.Context, productID int, limit int) (*MovementListResult, error) {
	movements, err := s.inventory.GetMovements(ctx, productID, limit)
	if err != nil {
		return nil, err
	}
	return &MovementListResult{Movements: movements, ProductID: productID}, nil
}

func (s *appService) GetStockSummary(ctx context.Context, farmCode string) (*core.StockSummary, error) {
	return s.inventory.GetStockSummary(ctx, farmCode)
}

// ── Orders and fulfillment ───────────────────────────────────────────────────

func (s *appService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	o, err := s.fulfillment.CreateOrder(ctx, req.FarmCode, req.OrderNumber, req.CustomerName,
		req.DeliveryAddress, req.Items)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: o}, nil
}

func (s *appService) ListOrders(ctx context.Context, farmCode string, status *core.OrderStatus) (*OrderListResult, error) {
	orders, err := s.fulfillment.GetOrders(ctx, farmCode, status)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders, FarmCode: farmCode}, nil
}

func (s *appService) GetOrder(ctx context.Context, orderID int) (*OrderResult, error) {
	o, err := s.fulfillment.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: o}, nil
}

func (s *appService) StartFulfillment(ctx context.Context, orderID int) (*FulfillmentResult, error) {
	j, err := s.fulfillment.StartFulfillment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o, err := s.fulfillment.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &FulfillmentResult{Job: j, Order: o}, nil
}

func (s *appService) AdvanceFulfillment(ctx context.Context, orderID int, carrier string) (*FulfillmentResult, error) {
	j, err := s.fulfillment.AdvanceFulfillment(ctx, orderID, carrier)
	if err != nil {
		return nil, err
	}
	o, err := s.fulfillment.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &FulfillmentResult{Job: j, Order: o}, nil
}

func (s *appService) ConfirmDelivery(ctx context.Context, orderID int) (*OrderResult, error) {
	o, err := s.fulfillment.ConfirmDelivery(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: o}, nil
}

// ── Production ───────────────────────────────────────────────────────────────

func (s *appService) ListCrops(ctx context.Context, farmCode string) (*CropListResult, error) {
	crops, err := s.production.GetCrops(ctx, farmCode)
	if err != nil {
		return nil, err
	}
	return &CropListResult{Crops: crops, FarmCode: farmCode}, nil
}

func (s *appService) CreateCrop(ctx context.Context, req CreateCropRequest) (*CropResult, error) {
	c, err := s.production.CreateCrop(ctx, req.FarmCode, req.Name, req.Stage,
		req.PlantedOn, req.HarvestOn, req.Health, req.EstimatedYield)
	if err != nil {
		return nil, err
	}
	return &CropResult{Crop: c}, nil
}

func (s *appService) UpdateCropProgress(ctx context.Context, cropID int, req ProgressRequest) (*CropResult, error) {
	c, err := s.production.UpdateProgress(ctx, cropID, req.Progress, req.Health)
	if err != nil {
		return nil, err
	}
	return &CropResult{Crop: c}, nil
}

func (s *appService) AdvanceCropStage(ctx context.Context, cropID int) (*CropResult, error) {
	c, err := s.production.AdvanceStage(ctx, cropID)
	if err != nil {
		return nil, err
	}
	return &CropResult{Crop: c}, nil
}

func (s *appService) HarvestCrop(ctx context.Context, cropID int, req HarvestRequest) (*ProductResult, error) {
	p, err := s.production.Harvest(ctx, cropID, req.Category, req.Unit)
	if err != nil {
		return nil, err
	}
	return &ProductResult{Product: p}, nil
}

// ── Advisory ─────────────────────────────────────────────────────────────────

// GetAdvice assembles a compact farm snapshot and hands it to the advisor
// with the seller's question.
func (s *appService) GetAdvice(ctx context.Context, farmCode, question string) (*AdviceResult, error) {
	summary, err := s.inventory.GetStockSummary(ctx, farmCode)
	if err != nil {
		return nil, err
	}
	products, err := s.catalog.GetProducts(ctx, farmCode, nil)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Produits actifs: %d, en rupture: %d, stock bas: %d, valeur du stock: %s\n",
		summary.ActiveProducts, summary.OutOfStock, summary.LowStock, summary.TotalStockValue)
	for _, p := range products {
		fmt.Fprintf(&b, "- %s (%s): %s %s en stock, statut %s, vues %d\n",
			p.Name, p.Category, p.StockQty, p.Unit, p.Status, p.Views)
	}

	advice := s.advisor.Advise(ctx, question, b.String())
	return &AdviceResult{Advice: advice}, nil
}
