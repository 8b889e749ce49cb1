package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Farm scopes every catalog entity. All lookups resolve a farm_code to the
// internal farm id first, mirroring how customers address the API.
type Farm struct {
	ID        int       `json:"id"`
	FarmCode  string    `json:"farm_code"`
	Name      string    `json:"name"`
	Region    string    `json:"region"`
	CreatedAt time.Time `json:"created_at"`
}

type ProductStatus string

const (
	StatusDraft      ProductStatus = "draft"
	StatusActive     ProductStatus = "active"
	StatusArchived   ProductStatus = "archived"
	StatusOutOfStock ProductStatus = "out_of_stock"
)

// SalesChannel is a publication destination. BOTH widens the scope of a
// listing; sync state is always tracked per concrete channel (B2C, B2B).
type SalesChannel string

const (
	ChannelB2C  SalesChannel = "B2C"
	ChannelB2B  SalesChannel = "B2B"
	ChannelBoth SalesChannel = "BOTH"
)

type SyncStatus string

const (
	SyncSynced  SyncStatus = "synced"
	SyncPending SyncStatus = "pending"
	SyncError   SyncStatus = "error"
)

// ProductSpecs holds the agronomic description of a catalog entry.
type ProductSpecs struct {
	Variety        string     `json:"variety"`
	ProductionMode string     `json:"production_mode"` // Bio, Conventionnel, Raisonné, Permaculture
	Certifications []string   `json:"certifications"`
	HarvestDate    *time.Time `json:"harvest_date,omitempty"`
	Origin         string     `json:"origin"`
	Quality        string     `json:"quality"` // Premium, Standard, Industrie
}

// ProductPricing carries both channel price lists. A channel price of zero
// means "not priced for this channel" and blocks publication there.
type ProductPricing struct {
	B2CPrice        decimal.Decimal `json:"b2c_price"`
	B2CMinQty       decimal.Decimal `json:"b2c_min_qty"`
	B2BPrice        decimal.Decimal `json:"b2b_price"`
	B2BMinQty       decimal.Decimal `json:"b2b_min_qty"`
	B2BPaymentTerms string          `json:"b2b_payment_terms,omitempty"`
}

// ChannelSync is the per-channel publication state of a product.
type ChannelSync struct {
	B2C SyncStatus `json:"b2c"`
	B2B SyncStatus `json:"b2b"`
}

// Product is the catalog aggregate root. StockQty is authoritative: it equals
// the sum of batch current quantities whenever the product has batches, and is
// an independently tracked scalar otherwise. All mutation paths go through the
// services in this package, which reconcile it inside the same transaction.
type Product struct {
	ID                int             `json:"id"`
	FarmID            int             `json:"farm_id"`
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Unit              string          `json:"unit"`
	Description       string          `json:"description"`
	Status            ProductStatus   `json:"status"`
	Channels          SalesChannel    `json:"channels"`
	Specs             ProductSpecs    `json:"specs"`
	Pricing           ProductPricing  `json:"pricing"`
	StockQty          decimal.Decimal `json:"stock_qty"`
	MinStockThreshold decimal.Decimal `json:"min_stock_threshold"`
	SoldQty           decimal.Decimal `json:"sold_qty"`
	Views             int             `json:"views"`
	Sync              ChannelSync     `json:"sync_status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Media   []ProductImage `json:"media,omitempty"`
	Batches []ProductBatch `json:"batches,omitempty"`
}

type ImageType string

const (
	ImageMain          ImageType = "main"
	ImageGallery       ImageType = "gallery"
	ImageCertification ImageType = "certification"
	ImageFarm          ImageType = "farm"
)

// ProductImage is one entry in a product's media gallery. QualityScore and
// Tags are filled in asynchronously by the scoring collaborator and may
// never arrive.
type ProductImage struct {
	ID           int       `json:"id"`
	ProductID    int       `json:"product_id"`
	URL          string    `json:"url"`
	Type         ImageType `json:"type"`
	IsPrimary    bool      `json:"is_primary"`
	QualityScore *int      `json:"quality_score,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProductBatch is a traceable lot. InitialQty is immutable after creation;
// CurrentQty moves only through AdjustQuantity and FIFO consumption, each of
// which appends a StockMovement. Batches are never deleted, only driven to
// zero, so the trace survives the stock.
type ProductBatch struct {
	ID          int             `json:"id"`
	ProductID   int             `json:"product_id"`
	BatchNumber string          `json:"batch_number"`
	HarvestDate time.Time       `json:"harvest_date"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	InitialQty  decimal.Decimal `json:"initial_qty"`
	CurrentQty  decimal.Decimal `json:"current_qty"`
	Location    string          `json:"location"`
	Notes       string          `json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
}

type MovementType string

const (
	MovementProduction MovementType = "production"
	MovementSale       MovementType = "sale"
	MovementLoss       MovementType = "loss"
	MovementAdjustment MovementType = "adjustment"
	MovementRestock    MovementType = "restock"
)

// StockMovement is one append-only ledger entry. Quantity is signed: receipts
// are positive, sales and losses negative. The sum of movements for a product
// reconciles to its current stock minus its seeded stock.
type StockMovement struct {
	ID        int             `json:"id"`
	ProductID int             `json:"product_id"`
	BatchID   *int            `json:"batch_id,omitempty"`
	Type      MovementType    `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reason    string          `json:"reason,omitempty"`
	Reference string          `json:"reference,omitempty"`
	MovedAt   time.Time       `json:"moved_at"`
}

// StockSummary aggregates a farm's stock position for the dashboard.
type StockSummary struct {
	FarmCode        string          `json:"farm_code"`
	ActiveProducts  int             `json:"active_products"`
	OutOfStock      int             `json:"out_of_stock"`
	LowStock        int             `json:"low_stock"`
	TotalStockValue decimal.Decimal `json:"total_stock_value"` // Σ stock_qty × b2c_price
	RecentMovements int             `json:"recent_movements"`  // last 7 days
}
