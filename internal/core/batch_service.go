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

// BatchService manages traceable harvest lots. Batch numbers are gapless per
// farm and year; batches are never deleted, their quantities only move through
// recorded adjustments and consumption.
type BatchService interface {
	CreateBatch(ctx context.Context, productID int, harvestDate time.Time, expiryDate *time.Time, initialQty decimal.Decimal, location, notes string) (*ProductBatch, error)
	GetBatches(ctx context.Context, productID int) ([]ProductBatch, error)
	// AdjustQuantity sets the batch to newQty and records the signed delta as
	// an adjustment movement. newQty must not be negative.
	AdjustQuantity(ctx context.Context, batchID int, newQty decimal.Decimal, reason string) (*ProductBatch, error)
}

type batchService struct {
	pool *pgxpool.Pool
}

func NewBatchService(pool *pgxpool.Pool) BatchService {
	return &batchService{pool: pool}
}

// nextBatchNumberTx allocates the next gapless lot number for the farm and
// harvest year. The sequence row is upserted under the transaction's lock, so
// concurrent creators serialize here.
func nextBatchNumberTx(ctx context.Context, tx pgx.Tx, farmID int, year int) (string, error) {
	var n int
	err := tx.QueryRow(ctx, `
		INSERT INTO batch_sequences (farm_id, year, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (farm_id, year)
		DO UPDATE SET last_number = batch_sequences.last_number + 1
		RETURNING last_number
	`, farmID, year).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("failed to allocate batch number: %w", err)
	}
	return fmt.Sprintf("LOT-%d-%05d", year, n), nil
}

// createBatchTx inserts the batch and its production movement inside the
// caller's transaction. The product row must already be locked.
func createBatchTx(ctx context.Context, tx pgx.Tx, p *Product, harvestDate time.Time, expiryDate *time.Time, initialQty decimal.Decimal, location, notes string) (*ProductBatch, error) {
	if initialQty.IsNegative() {
		return nil, fmt.Errorf("%w: initial quantity must not be negative", ErrInvalidQuantity)
	}
	if expiryDate != nil && !expiryDate.After(harvestDate) {
		return nil, fmt.Errorf("%w: expiry date must follow harvest date", ErrInvalidQuantity)
	}

	number, err := nextBatchNumberTx(ctx, tx, p.FarmID, harvestDate.Year())
	if err != nil {
		return nil, err
	}

	var b ProductBatch
	err = tx.QueryRow(ctx, `
		INSERT INTO product_batches (product_id, batch_number, harvest_date, expiry_date, initial_qty, current_qty, location, notes)
		VALUES ($1, $2, $3, $4, $5, $5, $6, $7)
		RETURNING id, product_id, batch_number, harvest_date, expiry_date, initial_qty, current_qty, location, notes, created_at
	`, p.ID, number, harvestDate, expiryDate, initialQty, location, notes).Scan(
		&b.ID, &b.ProductID, &b.BatchNumber, &b.HarvestDate, &b.ExpiryDate,
		&b.InitialQty, &b.CurrentQty, &b.Location, &b.Notes, &b.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	if initialQty.IsPositive() {
		if err := recordMovementTx(ctx, tx, p.ID, &b.ID, MovementProduction, initialQty, "", number); err != nil {
			return nil, err
		}
	}
	if err := recomputeStockTx(ctx, tx, p.ID); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *batchService) CreateBatch(ctx context.Context, productID int, harvestDate time.Time, expiryDate *time.Time, initialQty decimal.Decimal, location, notes string) (*ProductBatch, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := lockProductTx(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	if p.Status == StatusArchived {
		return nil, fmt.Errorf("%w: cannot add batches to archived product %d", ErrInvalidState, productID)
	}

	b, err := createBatchTx(ctx, tx, p, harvestDate, expiryDate, initialQty, location, notes)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return b, nil
}

func (s *batchService) GetBatches(ctx context.Context, productID int) ([]ProductBatch, error) {
	if _, err := fetchProductQ(ctx, s.pool, productID); err != nil {
		return nil, err
	}
	return fetchProductBatchesQ(ctx, s.pool, productID)
}

func (s *batchService) AdjustQuantity(ctx context.Context, batchID int, newQty decimal.Decimal, reason string) (*ProductBatch, error) {
	if newQty.IsNegative() {
		return nil, fmt.Errorf("%w: batch quantity must not be negative", ErrInvalidQuantity)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var productID int
	err = tx.QueryRow(ctx, "SELECT product_id FROM product_batches WHERE id = $1", batchID).Scan(&productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: batch %d", ErrNotFound, batchID)
		}
		return nil, fmt.Errorf("failed to fetch batch %d: %w", batchID, err)
	}
	if _, err := lockProductTx(ctx, tx, productID); err != nil {
		return nil, err
	}

	var prev decimal.Decimal
	err = tx.QueryRow(ctx, "SELECT current_qty FROM product_batches WHERE id = $1", batchID).Scan(&prev)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch batch %d quantity: %w", batchID, err)
	}

	var b ProductBatch
	err = tx.QueryRow(ctx, `
		UPDATE product_batches SET current_qty = $2
		WHERE id = $1
		RETURNING id, product_id, batch_number, harvest_date, expiry_date, initial_qty, current_qty, location, notes, created_at
	`, batchID, newQty).Scan(
		&b.ID, &b.ProductID, &b.BatchNumber, &b.HarvestDate, &b.ExpiryDate,
		&b.InitialQty, &b.CurrentQty, &b.Location, &b.Notes, &b.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust batch %d: %w", batchID, err)
	}

	delta := newQty.Sub(prev)
	if !delta.IsZero() {
		if err := recordMovementTx(ctx, tx, productID, &batchID, MovementAdjustment, delta, reason, b.BatchNumber); err != nil {
			return nil, err
		}
	}

	if err := recomputeStockTx(ctx, tx, productID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &b, nil
}
