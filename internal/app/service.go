package app

import (
	"context"

	"agrishare/internal/core"
)

// ApplicationService is the single interface all UI adapters call. It
// decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// ── Catalog ──

	// ListProducts returns a farm's products, optionally filtered by status.
	ListProducts(ctx context.Context, farmCode string, status *core.ProductStatus) (*ProductListResult, error)

	// GetProduct returns one product with its media gallery and batches.
	GetProduct(ctx context.Context, productID int) (*ProductResult, error)

	// CreateProduct creates a draft product.
	CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductResult, error)

	// UpdateProduct applies a partial update. Listing-visible edits on a live
	// product flip its synced channels back to pending.
	UpdateProduct(ctx context.Context, productID int, req UpdateProductRequest) (*ProductResult, error)

	// PublishProduct validates and pushes the listing to a channel.
	PublishProduct(ctx context.Context, productID int, channel string) (*ProductResult, error)

	// UnpublishProduct takes the listing down from a channel.
	UnpublishProduct(ctx context.Context, productID int, channel string) (*ProductResult, error)

	// ArchiveProduct retires the product permanently.
	ArchiveProduct(ctx context.Context, productID int) (*ProductResult, error)

	// RecordView increments the product's view counter.
	RecordView(ctx context.Context, productID int) error

	// ListLowStockProducts returns non-archived products at or below their
	// minimum stock threshold.
	ListLowStockProducts(ctx context.Context, farmCode string) (*ProductListResult, error)

	// ── Media ──

	// AddImage appends a photo to the product gallery. The first photo
	// becomes the primary.
	AddImage(ctx context.Context, req AddImageRequest) (*ImageResult, error)

	// SetPrimaryImage makes the image the product's primary photo.
	SetPrimaryImage(ctx context.Context, imageID int) error

	// RemoveImage deletes a photo from the gallery.
	RemoveImage(ctx context.Context, imageID int) error

	// ScoreImage schedules asynchronous quality scoring for the photo.
	ScoreImage(ctx context.Context, imageID int) error

	// ── Batches and stock ──

	// CreateBatch registers a new harvest lot with a gapless batch number.
	CreateBatch(ctx context.Context, req CreateBatchRequest) (*BatchResult, error)

	// AdjustBatch sets a batch to a new quantity, recording the delta.
	AdjustBatch(ctx context.Context, batchID int, req AdjustBatchRequest) (*BatchResult, error)

	// RestockProduct adds scalar stock to a batch-less product.
	RestockProduct(ctx context.Context, productID int, req RestockRequest) (*ProductResult, error)

	// RecordLoss writes off stock as a loss movement.
	RecordLoss(ctx context.Context, productID int, req LossRequest) error

	// ListMovements returns the product's stock ledger, newest first.
	ListMovements(ctx context.Context, productID int, limit int) (*MovementListResult, error)

	// GetStockSummary aggregates a farm's stock position.
	GetStockSummary(ctx context.Context, farmCode string) (*core.StockSummary, error)

	// ── Orders and fulfillment ──

	// CreateOrder ingests a marketplace order in pending state.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error)

	// ListOrders returns a farm's orders, optionally filtered by status.
	ListOrders(ctx context.Context, farmCode string, status *core.OrderStatus) (*OrderListResult, error)

	// GetOrder returns one order with its lines.
	GetOrder(ctx context.Context, orderID int) (*OrderResult, error)

	// StartFulfillment opens the shipping wizard for a pending order.
	StartFulfillment(ctx context.Context, orderID int) (*FulfillmentResult, error)

	// AdvanceFulfillment moves the wizard one stage; the final advance
	// consumes stock and hands the order to the carrier.
	AdvanceFulfillment(ctx context.Context, orderID int, carrier string) (*FulfillmentResult, error)

	// ConfirmDelivery closes a shipping order as delivered.
	ConfirmDelivery(ctx context.Context, orderID int) (*OrderResult, error)

	// ── Production ──

	// ListCrops returns a farm's tracked plantings.
	ListCrops(ctx context.Context, farmCode string) (*CropListResult, error)

	// CreateCrop registers a new planting.
	CreateCrop(ctx context.Context, req CreateCropRequest) (*CropResult, error)

	// UpdateCropProgress moves a crop's progress forward.
	UpdateCropProgress(ctx context.Context, cropID int, req ProgressRequest) (*CropResult, error)

	// AdvanceCropStage moves a crop one growth stage forward.
	AdvanceCropStage(ctx context.Context, cropID int) (*CropResult, error)

	// HarvestCrop closes the crop and creates a draft product with its
	// first batch.
	HarvestCrop(ctx context.Context, cropID int, req HarvestRequest) (*ProductResult, error)

	// ── Advisory ──

	// GetAdvice answers a seller question with farm context. Degraded
	// configurations produce fixed fallback text, never an error.
	GetAdvice(ctx context.Context, farmCode, question string) (*AdviceResult, error)
}
