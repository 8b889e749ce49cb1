package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ChannelSyncer pushes listings to an external marketplace channel. Push and
// Remove are called outside the catalog transaction; the caller records the
// resulting sync state afterwards.
type ChannelSyncer interface {
	Push(ctx context.Context, p *Product, channel SalesChannel) error
	Remove(ctx context.Context, productID int, channel SalesChannel) error
}

// NoopSyncer accepts every push. It stands in when no marketplace backend is
// configured.
type NoopSyncer struct{}

func (NoopSyncer) Push(ctx context.Context, p *Product, channel SalesChannel) error {
	return nil
}

func (NoopSyncer) Remove(ctx context.Context, productID int, channel SalesChannel) error {
	return nil
}

// ProductUpdate is a partial update; nil fields are left untouched.
type ProductUpdate struct {
	Name              *string
	Category          *string
	Unit              *string
	Description       *string
	Channels          *SalesChannel
	Variety           *string
	ProductionMode    *string
	Certifications    *[]string
	HarvestDate       *time.Time
	Origin            *string
	Quality           *string
	B2CPrice          *decimal.Decimal
	B2CMinQty         *decimal.Decimal
	B2BPrice          *decimal.Decimal
	B2BMinQty         *decimal.Decimal
	B2BPaymentTerms   *string
	MinStockThreshold *decimal.Decimal
}

// CatalogService manages the product lifecycle: draft, publication per
// channel, archival, and the sync state shown to the seller.
type CatalogService interface {
	CreateProduct(ctx context.Context, farmCode, name, category, unit, description string, channels SalesChannel, specs ProductSpecs, pricing ProductPricing, minStockThreshold decimal.Decimal) (*Product, error)
	GetProduct(ctx context.Context, productID int) (*Product, error)
	GetProducts(ctx context.Context, farmCode string, status *ProductStatus) ([]Product, error)
	UpdateProduct(ctx context.Context, productID int, upd ProductUpdate) (*Product, error)
	// Publish validates listing completeness, pushes to the channel, and
	// records the resulting sync state. A successful publish activates a draft.
	Publish(ctx context.Context, productID int, channel SalesChannel) (*Product, error)
	// Unpublish removes the listing from the channel and resets its sync
	// state to pending. An active product with no synced channel left
	// reverts to draft.
	Unpublish(ctx context.Context, productID int, channel SalesChannel) (*Product, error)
	ArchiveProduct(ctx context.Context, productID int) (*Product, error)
	RecordView(ctx context.Context, productID int) error
	GetLowStockProducts(ctx context.Context, farmCode string) ([]Product, error)
}

type catalogService struct {
	pool   *pgxpool.Pool
	syncer ChannelSyncer
}

func NewCatalogService(pool *pgxpool.Pool, syncer ChannelSyncer) CatalogService {
	return &catalogService{pool: pool, syncer: syncer}
}

// resolveFarmID looks up the internal farm ID from a farm code.
func resolveFarmID(ctx context.Context, q pgxQuerier, farmCode string) (int, error) {
	var id int
	err := q.QueryRow(ctx, "SELECT id FROM farms WHERE farm_code = $1", farmCode).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: farm code %s", ErrNotFound, farmCode)
		}
		return 0, fmt.Errorf("failed to resolve farm %s: %w", farmCode, err)
	}
	return id, nil
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxRowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx (for Query).
type pgxRowQuerier interface {
	pgxQuerier
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const productColumns = `
	id, farm_id, name, category, unit, description, status, channels,
	variety, production_mode, certifications, spec_harvest_date, origin, quality,
	b2c_price, b2c_min_qty, b2b_price, b2b_min_qty, b2b_payment_terms,
	stock_qty, min_stock_threshold, sold_qty, views, sync_b2c, sync_b2b,
	created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.FarmID, &p.Name, &p.Category, &p.Unit, &p.Description, &p.Status, &p.Channels,
		&p.Specs.Variety, &p.Specs.ProductionMode, &p.Specs.Certifications, &p.Specs.HarvestDate, &p.Specs.Origin, &p.Specs.Quality,
		&p.Pricing.B2CPrice, &p.Pricing.B2CMinQty, &p.Pricing.B2BPrice, &p.Pricing.B2BMinQty, &p.Pricing.B2BPaymentTerms,
		&p.StockQty, &p.MinStockThreshold, &p.SoldQty, &p.Views, &p.Sync.B2C, &p.Sync.B2B,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// fetchProductQ loads a single product without its media or batches.
func fetchProductQ(ctx context.Context, q pgxQuerier, productID int) (*Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, "SELECT"+productColumns+" FROM products WHERE id = $1", productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, productID)
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}
	return p, nil
}

func fetchProductImagesQ(ctx context.Context, q pgxRowQuerier, productID int) ([]ProductImage, error) {
	rows, err := q.Query(ctx, `
		SELECT id, product_id, url, image_type, is_primary, quality_score, tags, created_at
		FROM product_images
		WHERE product_id = $1
		ORDER BY is_primary DESC, id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query product images: %w", err)
	}
	defer rows.Close()

	var images []ProductImage
	for rows.Next() {
		var img ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.Type, &img.IsPrimary,
			&img.QualityScore, &img.Tags, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product image: %w", err)
		}
		images = append(images, img)
	}
	return images, nil
}

func fetchProductBatchesQ(ctx context.Context, q pgxRowQuerier, productID int) ([]ProductBatch, error) {
	rows, err := q.Query(ctx, `
		SELECT id, product_id, batch_number, harvest_date, expiry_date, initial_qty, current_qty, location, notes, created_at
		FROM product_batches
		WHERE product_id = $1
		ORDER BY harvest_date, id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query product batches: %w", err)
	}
	defer rows.Close()

	var batches []ProductBatch
	for rows.Next() {
		var b ProductBatch
		if err := rows.Scan(&b.ID, &b.ProductID, &b.BatchNumber, &b.HarvestDate, &b.ExpiryDate,
			&b.InitialQty, &b.CurrentQty, &b.Location, &b.Notes, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func (s *catalogService) CreateProduct(ctx context.Context, farmCode, name, category, unit, description string, channels SalesChannel, specs ProductSpecs, pricing ProductPricing, minStockThreshold decimal.Decimal) (*Product, error) {
	farmID, err := resolveFarmID(ctx, s.pool, farmCode)
	if err != nil {
		return nil, err
	}
	if channels == "" {
		channels = ChannelB2C
	}
	if channels != ChannelB2C && channels != ChannelB2B && channels != ChannelBoth {
		return nil, fmt.Errorf("%w: unknown channel scope %q", ErrInvalidState, channels)
	}
	if minStockThreshold.IsNegative() {
		return nil, fmt.Errorf("%w: min stock threshold must not be negative", ErrInvalidQuantity)
	}

	p, err := scanProduct(s.pool.QueryRow(ctx, `
		INSERT INTO products (farm_id, name, category, unit, description, status, channels,
			variety, production_mode, certifications, spec_harvest_date, origin, quality,
			b2c_price, b2c_min_qty, b2b_price, b2b_min_qty, b2b_payment_terms,
			min_stock_threshold)
		VALUES ($1, $2, $3, $4, $5, 'draft', $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING`+productColumns,
		farmID, name, category, unit, description, channels,
		specs.Variety, specs.ProductionMode, specs.Certifications, specs.HarvestDate, specs.Origin, specs.Quality,
		pricing.B2CPrice, pricing.B2CMinQty, pricing.B2BPrice, pricing.B2BMinQty, pricing.B2BPaymentTerms,
		minStockThreshold,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID int) (*Product, error) {
	p, err := fetchProductQ(ctx, s.pool, productID)
	if err != nil {
		return nil, err
	}
	if p.Media, err = fetchProductImagesQ(ctx, s.pool, productID); err != nil {
		return nil, err
	}
	if p.Batches, err = fetchProductBatchesQ(ctx, s.pool, productID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *catalogService) GetProducts(ctx context.Context, farmCode string, status *ProductStatus) ([]Product, error) {
	farmID, err := resolveFarmID(ctx, s.pool, farmCode)
	if err != nil {
		return nil, err
	}

	query := "SELECT" + productColumns + " FROM products WHERE farm_id = $1"
	args := []any{farmID}
	if status != nil {
		query += " AND status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY name, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, nil
}

// staleness reports whether an update touches fields a marketplace listing
// renders, requiring a re-sync of already-synced channels.
func (upd ProductUpdate) staleness() bool {
	return upd.Name != nil || upd.Category != nil || upd.Unit != nil || upd.Description != nil ||
		upd.Variety != nil || upd.ProductionMode != nil || upd.Certifications != nil ||
		upd.HarvestDate != nil || upd.Origin != nil || upd.Quality != nil ||
		upd.B2CPrice != nil || upd.B2CMinQty != nil || upd.B2BPrice != nil ||
		upd.B2BMinQty != nil || upd.B2BPaymentTerms != nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, productID int, upd ProductUpdate) (*Product, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanProduct(tx.QueryRow(ctx, "SELECT"+productColumns+" FROM products WHERE id = $1 FOR UPDATE", productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, productID)
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}
	if p.Status == StatusArchived {
		return nil, fmt.Errorf("%w: product %d is archived", ErrInvalidState, productID)
	}

	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.Unit != nil {
		p.Unit = *upd.Unit
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Channels != nil {
		if *upd.Channels != ChannelB2C && *upd.Channels != ChannelB2B && *upd.Channels != ChannelBoth {
			return nil, fmt.Errorf("%w: unknown channel scope %q", ErrInvalidState, *upd.Channels)
		}
		p.Channels = *upd.Channels
	}
	if upd.Variety != nil {
		p.Specs.Variety = *upd.Variety
	}
	if upd.ProductionMode != nil {
		p.Specs.ProductionMode = *upd.ProductionMode
	}
	if upd.Certifications != nil {
		p.Specs.Certifications = *upd.Certifications
	}
	if upd.HarvestDate != nil {
		p.Specs.HarvestDate = upd.HarvestDate
	}
	if upd.Origin != nil {
		p.Specs.Origin = *upd.Origin
	}
	if upd.Quality != nil {
		p.Specs.Quality = *upd.Quality
	}
	if upd.B2CPrice != nil {
		if upd.B2CPrice.IsNegative() {
			return nil, fmt.Errorf("%w: b2c price must not be negative", ErrInvalidQuantity)
		}
		p.Pricing.B2CPrice = *upd.B2CPrice
	}
	if upd.B2CMinQty != nil {
		p.Pricing.B2CMinQty = *upd.B2CMinQty
	}
	if upd.B2BPrice != nil {
		if upd.B2BPrice.IsNegative() {
			return nil, fmt.Errorf("%w: b2b price must not be negative", ErrInvalidQuantity)
		}
		p.Pricing.B2BPrice = *upd.B2BPrice
	}
	if upd.B2BMinQty != nil {
		p.Pricing.B2BMinQty = *upd.B2BMinQty
	}
	if upd.B2BPaymentTerms != nil {
		p.Pricing.B2BPaymentTerms = *upd.B2BPaymentTerms
	}
	if upd.MinStockThreshold != nil {
		if upd.MinStockThreshold.IsNegative() {
			return nil, fmt.Errorf("%w: min stock threshold must not be negative", ErrInvalidQuantity)
		}
		p.MinStockThreshold = *upd.MinStockThreshold
	}

	// Listing-visible edits on a live product invalidate its synced channels;
	// the seller re-publishes to push the new content out.
	if upd.staleness() && (p.Status == StatusActive || p.Status == StatusOutOfStock) {
		if p.Sync.B2C == SyncSynced {
			p.Sync.B2C = SyncPending
		}
		if p.Sync.B2B == SyncSynced {
			p.Sync.B2B = SyncPending
		}
	}

	p, err = scanProduct(tx.QueryRow(ctx, `
		UPDATE products SET
			name = $2, category = $3, unit = $4, description = $5, channels = $6,
			variety = $7, production_mode = $8, certifications = $9, spec_harvest_date = $10,
			origin = $11, quality = $12,
			b2c_price = $13, b2c_min_qty = $14, b2b_price = $15, b2b_min_qty = $16, b2b_payment_terms = $17,
			min_stock_threshold = $18, sync_b2c = $19, sync_b2b = $20, updated_at = NOW()
		WHERE id = $1
		RETURNING`+productColumns,
		productID, p.Name, p.Category, p.Unit, p.Description, p.Channels,
		p.Specs.Variety, p.Specs.ProductionMode, p.Specs.Certifications, p.Specs.HarvestDate,
		p.Specs.Origin, p.Specs.Quality,
		p.Pricing.B2CPrice, p.Pricing.B2CMinQty, p.Pricing.B2BPrice, p.Pricing.B2BMinQty, p.Pricing.B2BPaymentTerms,
		p.MinStockThreshold, p.Sync.B2C, p.Sync.B2B,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", productID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return p, nil
}

// ── Publication ──────────────────────────────────────────────────────────────

func (s *catalogService) Publish(ctx context.Context, productID int, channel SalesChannel) (*Product, error) {
	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Status == StatusArchived {
		return nil, fmt.Errorf("%w: cannot publish archived product %d", ErrInvalidState, productID)
	}
	if err := ValidateListing(p, channel); err != nil {
		return nil, err
	}

	// Mark pending before pushing so a crash mid-push leaves an honest state.
	if err := s.setSyncStatus(ctx, productID, channel, SyncPending); err != nil {
		return nil, err
	}

	pushErr := s.syncer.Push(ctx, p, channel)
	result := SyncSynced
	if pushErr != nil {
		result = SyncError
	}
	if err := s.setSyncStatus(ctx, productID, channel, result); err != nil {
		return nil, err
	}
	if pushErr != nil {
		return nil, fmt.Errorf("failed to push product %d to %s: %w", productID, channel, pushErr)
	}

	if p.Status == StatusDraft {
		if _, err := s.pool.Exec(ctx,
			"UPDATE products SET status = 'active', updated_at = NOW() WHERE id = $1 AND status = 'draft'",
			productID); err != nil {
			return nil, fmt.Errorf("failed to activate product %d: %w", productID, err)
		}
	}
	return s.GetProduct(ctx, productID)
}

func (s *catalogService) Unpublish(ctx context.Context, productID int, channel SalesChannel) (*Product, error) {
	if channel != ChannelB2C && channel != ChannelB2B {
		return nil, fmt.Errorf("%w: unknown channel %q", ErrInvalidState, channel)
	}
	p, err := fetchProductQ(ctx, s.pool, productID)
	if err != nil {
		return nil, err
	}

	if err := s.syncer.Remove(ctx, productID, channel); err != nil {
		return nil, fmt.Errorf("failed to remove product %d from %s: %w", productID, channel, err)
	}
	if err := s.setSyncStatus(ctx, productID, channel, SyncPending); err != nil {
		return nil, err
	}

	// An active product with nothing left on any channel goes back to draft.
	other := p.Sync.B2B
	if channel == ChannelB2B {
		other = p.Sync.B2C
	}
	if (p.Status == StatusActive || p.Status == StatusOutOfStock) && other != SyncSynced {
		if _, err := s.pool.Exec(ctx,
			"UPDATE products SET status = 'draft', updated_at = NOW() WHERE id = $1 AND status IN ('active', 'out_of_stock')",
			productID); err != nil {
			return nil, fmt.Errorf("failed to revert product %d to draft: %w", productID, err)
		}
	}
	return s.GetProduct(ctx, productID)
}

func (s *catalogService) setSyncStatus(ctx context.Context, productID int, channel SalesChannel, status SyncStatus) error {
	col := "sync_b2c"
	if channel == ChannelB2B {
		col = "sync_b2b"
	}
	tag, err := s.pool.Exec(ctx,
		"UPDATE products SET "+col+" = $2, updated_at = NOW() WHERE id = $1",
		productID, status)
	if err != nil {
		return fmt.Errorf("failed to set %s sync status: %w", channel, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", ErrNotFound, productID)
	}
	return nil
}

func (s *catalogService) ArchiveProduct(ctx context.Context, productID int) (*Product, error) {
	p, err := fetchProductQ(ctx, s.pool, productID)
	if err != nil {
		return nil, err
	}
	if p.Status == StatusArchived {
		return p, nil
	}

	// Synced listings come down before the archive lands.
	for ch, st := range map[SalesChannel]SyncStatus{ChannelB2C: p.Sync.B2C, ChannelB2B: p.Sync.B2B} {
		if st != SyncSynced {
			continue
		}
		if err := s.syncer.Remove(ctx, productID, ch); err != nil {
			return nil, fmt.Errorf("failed to remove product %d from %s: %w", productID, ch, err)
		}
	}

	p, err = scanProduct(s.pool.QueryRow(ctx, `
		UPDATE products
		SET status = 'archived', sync_b2c = 'pending', sync_b2b = 'pending', updated_at = NOW()
		WHERE id = $1
		RETURNING`+productColumns, productID))
	if err != nil {
		return nil, fmt.Errorf("failed to archive product %d: %w", productID, err)
	}
	return p, nil
}

func (s *catalogService) RecordView(ctx context.Context, productID int) error {
	tag, err := s.pool.Exec(ctx, "UPDATE products SET views = views + 1 WHERE id = $1", productID)
	if err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", ErrNotFound, productID)
	}
	return nil
}

func (s *catalogService) GetLowStockProducts(ctx context.Context, farmCode string) ([]Product, error) {
	farmID, err := resolveFarmID(ctx, s.pool, farmCode)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, "SELECT"+productColumns+`
		FROM products
		WHERE farm_id = $1 AND status != 'archived' AND stock_qty <= min_stock_threshold
		ORDER BY stock_qty, name
	`, farmID)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, nil
}
