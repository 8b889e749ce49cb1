package app

import (
	"time"

	"github.com/shopspring/decimal"

	"agrishare/internal/core"
)

// CreateProductRequest is the input for creating a draft product.
type CreateProductRequest struct {
	FarmCode          string
	Name              string
	Category          string
	Unit              string
	Description       string
	Channels          core.SalesChannel // empty means B2C
	Specs             core.ProductSpecs
	Pricing           core.ProductPricing
	MinStockThreshold decimal.Decimal
}

// UpdateProductRequest is a partial product update; nil fields are untouched.
type UpdateProductRequest = core.ProductUpdate

// AddImageRequest is the input for appending a gallery photo.
type AddImageRequest struct {
	ProductID int
	URL       string
	Type      core.ImageType // empty means gallery
}

// CreateBatchRequest is the input for registering a harvest lot.
type CreateBatchRequest struct {
	ProductID   int
	HarvestDate time.Time
	ExpiryDate  *time.Time
	InitialQty  decimal.Decimal
	Location    string
	Notes       string
}

// AdjustBatchRequest sets a batch to an absolute new quantity.
type AdjustBatchRequest struct {
	NewQty decimal.Decimal
	Reason string
}

// RestockRequest adds scalar stock to a batch-less product.
type RestockRequest struct {
	Quantity decimal.Decimal
	Reason   string
}

// LossRequest writes off stock.
type LossRequest struct {
	Quantity decimal.Decimal
	Reason   string
}

// CreateOrderRequest is the input for ingesting a marketplace order.
type CreateOrderRequest struct {
	FarmCode        string
	OrderNumber     string
	CustomerName    string
	DeliveryAddress string
	Items           []core.OrderItemInput
}

// CreateCropRequest is the input for registering a planting.
type CreateCropRequest struct {
	FarmCode       string
	Name           string
	Stage          core.CropStage // empty means Semis
	PlantedOn      *time.Time
	HarvestOn      *time.Time
	Health         string // empty means Bon
	EstimatedYield *decimal.Decimal
}

// ProgressRequest moves a crop's progress forward.
type ProgressRequest struct {
	Progress int
	Health   string // empty keeps the current health
}

// HarvestRequest names the catalog placement of a harvested crop.
type HarvestRequest struct {
	Category string // empty means Légumes
	Unit     string // empty means kg
}
