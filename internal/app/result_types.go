package app

import "agrishare/internal/core"

// ProductResult is returned by product lifecycle operations.
type ProductResult struct {
	Product *core.Product
}

// ProductListResult is returned by ListProducts and ListLowStockProducts.
type ProductListResult struct {
	Products []core.Product
	FarmCode string
}

// ImageResult is returned by AddImage.
type ImageResult struct {
	Image *core.ProductImage
}

// BatchResult is returned by batch operations.
type BatchResult struct {
	Batch *core.ProductBatch
}

// MovementListResult is returned by ListMovements.
type MovementListResult struct {
	Movements []core.StockMovement
	ProductID int
}

// OrderResult is returned by order operations.
type OrderResult struct {
	Order *core.Order
}

// OrderListResult is returned by ListOrders.
type OrderListResult struct {
	Orders   []core.Order
	FarmCode string
}

// FulfillmentResult is returned by the shipping wizard operations.
type FulfillmentResult struct {
	Job   *core.FulfillmentJob
	Order *core.Order
}

// CropResult is returned by crop operations.
type CropResult struct {
	Crop *core.Crop
}

// CropListResult is returned by ListCrops.
type CropListResult struct {
	Crops    []core.Crop
	FarmCode string
}

// AdviceResult is returned by GetAdvice.
type AdviceResult struct {
	Advice string
}
