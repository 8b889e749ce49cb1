package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// InventoryService owns stock reconciliation: FIFO consumption across
// batches, scalar restock for batch-less products, and the movement ledger.
type InventoryService interface {
	// Consume depletes qty from the product's batches oldest harvest first,
	// all or nothing, and appends one sale movement tagged with reference.
	Consume(ctx context.Context, productID int, qty decimal.Decimal, reference string) error
	// RecordLoss writes off qty the same way Consume does, as a loss movement.
	RecordLoss(ctx context.Context, productID int, qty decimal.Decimal, reason string) error
	// Restock adds qty to a product that tracks stock as a scalar. Products
	// with batches must receive stock through a new batch instead.
	Restock(ctx context.Context, productID int, qty decimal.Decimal, reason string) (*Product, error)
	GetMovements(ctx context.Context, productID int, limit int) ([]StockMovement, error)
	GetStockSummary(ctx context.Context, farmCode string) (*StockSummary, error)
}

type inventoryService struct {
	pool *pgxpool.Pool
}

func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

// lockProductTx locks the product row for the duration of the transaction,
// serializing all stock mutations per product.
func lockProductTx(ctx context.Context, tx pgx.Tx, productID int) (*Product, error) {
	p, err := scanProduct(tx.QueryRow(ctx, "SELECT"+productColumns+" FROM products WHERE id = $1 FOR UPDATE", productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, productID)
		}
		return nil, fmt.Errorf("failed to lock product %d: %w", productID, err)
	}
	return p, nil
}

// recomputeStockTx reconciles the product's stock with its batches inside the
// caller's transaction. Products with at least one batch get stock_qty = Σ
// current_qty; scalar products keep their stock_qty. Status flips between
// active and out_of_stock at the zero boundary either way.
func recomputeStockTx(ctx context.Context, tx pgx.Tx, productID int) error {
	var batchCount int
	var batchTotal decimal.Decimal
	err := tx.QueryRow(ctx,
		"SELECT COUNT(*), COALESCE(SUM(current_qty), 0) FROM product_batches WHERE product_id = $1",
		productID).Scan(&batchCount, &batchTotal)
	if err != nil {
		return fmt.Errorf("failed to total batches for product %d: %w", productID, err)
	}

	if batchCount > 0 {
		if _, err := tx.Exec(ctx,
			"UPDATE products SET stock_qty = $2, updated_at = NOW() WHERE id = $1",
			productID, batchTotal); err != nil {
			return fmt.Errorf("failed to reconcile stock for product %d: %w", productID, err)
		}
	} else {
		if _, err := tx.Exec(ctx,
			"UPDATE products SET updated_at = NOW() WHERE id = $1", productID); err != nil {
			return fmt.Errorf("failed to touch product %d: %w", productID, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE products SET status = CASE
			WHEN status = 'active' AND stock_qty <= 0 THEN 'out_of_stock'
			WHEN status = 'out_of_stock' AND stock_qty > 0 THEN 'active'
			ELSE status
		END
		WHERE id = $1
	`, productID); err != nil {
		return fmt.Errorf("failed to update stock status for product %d: %w", productID, err)
	}
	return nil
}

// recordMovementTx appends one ledger entry.
func recordMovementTx(ctx context.Context, tx pgx.Tx, productID int, batchID *int, mt MovementType, qty decimal.Decimal, reason, reference string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO stock_movements (product_id, batch_id, movement_type, quantity, reason, reference)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, productID, batchID, mt, qty, reason, reference)
	if err != nil {
		return fmt.Errorf("failed to record %s movement: %w", mt, err)
	}
	return nil
}

// consumeTx runs FIFO depletion inside the caller's transaction so order
// fulfillment can consume several products atomically. The caller must have
// locked the product row already.
func consumeTx(ctx context.Context, tx pgx.Tx, p *Product, qty decimal.Decimal, mt MovementType, reason, reference string) error {
	if !qty.IsPositive() {
		return fmt.Errorf("%w: consumption quantity must be positive", ErrInvalidQuantity)
	}
	if qty.GreaterThan(p.StockQty) {
		return fmt.Errorf("%w: product %d has %s, requested %s", ErrInsufficientStock, p.ID, p.StockQty, qty)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, current_qty FROM product_batches
		WHERE product_id = $1 AND current_qty > 0
		ORDER BY harvest_date, id
		FOR UPDATE
	`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to lock batches for product %d: %w", p.ID, err)
	}
	type lot struct {
		id  int
		qty decimal.Decimal
	}
	var lots []lot
	for rows.Next() {
		var l lot
		if err := rows.Scan(&l.id, &l.qty); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan batch: %w", err)
		}
		lots = append(lots, l)
	}
	rows.Close()

	remaining := qty
	for _, l := range lots {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(l.qty, remaining)
		if _, err := tx.Exec(ctx,
			"UPDATE product_batches SET current_qty = current_qty - $2 WHERE id = $1",
			l.id, take); err != nil {
			return fmt.Errorf("failed to deplete batch %d: %w", l.id, err)
		}
		remaining = remaining.Sub(take)
	}
	if len(lots) == 0 {
		// Scalar product: stock lives on the product row itself.
		if _, err := tx.Exec(ctx,
			"UPDATE products SET stock_qty = stock_qty - $2 WHERE id = $1",
			p.ID, qty); err != nil {
			return fmt.Errorf("failed to deduct stock for product %d: %w", p.ID, err)
		}
	} else if remaining.IsPositive() {
		return fmt.Errorf("%w: product %d batches cover less than requested", ErrInsufficientStock, p.ID)
	}

	if err := recordMovementTx(ctx, tx, p.ID, nil, mt, qty.Neg(), reason, reference); err != nil {
		return err
	}
	if mt == MovementSale {
		if _, err := tx.Exec(ctx,
			"UPDATE products SET sold_qty = sold_qty + $2 WHERE id = $1",
			p.ID, qty); err != nil {
			return fmt.Errorf("failed to update sold quantity for product %d: %w", p.ID, err)
		}
	}
	return recomputeStockTx(ctx, tx, p.ID)
}

func (s *inventoryService) Consume(ctx context.Context, productID int, qty decimal.Decimal, reference string) error {
	return s.withProductTx(ctx, productID, func(tx pgx.Tx, p *Product) error {
		return consumeTx(ctx, tx, p, qty, MovementSale, "", reference)
	})
}

func (s *inventoryService) RecordLoss(ctx context.Context, productID int, qty decimal.Decimal, reason string) error {
	return s.withProductTx(ctx, productID, func(tx pgx.Tx, p *Product) error {
		return consumeTx(ctx, tx, p, qty, MovementLoss, reason, "")
	})
}

// withProductTx runs fn with the product locked, committing on success.
func (s *inventoryService) withProductTx(ctx context.Context, productID int, fn func(tx pgx.Tx, p *Product) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := lockProductTx(ctx, tx, productID)
	if err != nil {
		return err
	}
	if err := fn(tx, p); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *inventoryService) Restock(ctx context.Context, productID int, qty decimal.Decimal, reason string) (*Product, error) {
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: restock quantity must be positive", ErrInvalidQuantity)
	}

	err := s.withProductTx(ctx, productID, func(tx pgx.Tx, p *Product) error {
		var batchCount int
		if err := tx.QueryRow(ctx,
			"SELECT COUNT(*) FROM product_batches WHERE product_id = $1", productID).Scan(&batchCount); err != nil {
			return fmt.Errorf("failed to count batches for product %d: %w", productID, err)
		}
		if batchCount > 0 {
			return fmt.Errorf("%w: product %d tracks stock by batch, create a batch instead", ErrInvalidState, productID)
		}
		if _, err := tx.Exec(ctx,
			"UPDATE products SET stock_qty = stock_qty + $2 WHERE id = $1",
			productID, qty); err != nil {
			return fmt.Errorf("failed to restock product %d: %w", productID, err)
		}
		if err := recordMovementTx(ctx, tx, productID, nil, MovementRestock, qty, reason, ""); err != nil {
			return err
		}
		return recomputeStockTx(ctx, tx, productID)
	})
	if err != nil {
		return nil, err
	}
	return fetchProductQ(ctx, s.pool, productID)
}

func (s *inventoryService) GetMovements(ctx context.Context, productID int, limit int) ([]StockMovement, error) {
	if _, err := fetchProductQ(ctx, s.pool, productID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, batch_id, movement_type, quantity, reason, reference, moved_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY moved_at DESC, id DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.BatchID, &m.Type, &m.Quantity,
			&m.Reason, &m.Reference, &m.MovedAt); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, nil
}

func (s *inventoryService) GetStockSummary(ctx context.Context, farmCode string) (*StockSummary, error) {
	farmID, err := resolveFarmID(ctx, s.pool, farmCode)
	if err != nil {
		return nil, err
	}

	sum := &StockSummary{FarmCode: farmCode}
	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'out_of_stock'),
			COUNT(*) FILTER (WHERE status != 'archived' AND stock_qty <= min_stock_threshold),
			COALESCE(SUM(stock_qty * b2c_price) FILTER (WHERE status != 'archived'), 0)
		FROM products
		WHERE farm_id = $1
	`, farmID).Scan(&sum.ActiveProducts, &sum.OutOfStock, &sum.LowStock, &sum.TotalStockValue)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stock summary: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM stock_movements m
		JOIN products p ON p.id = m.product_id
		WHERE p.farm_id = $1 AND m.moved_at > NOW() - INTERVAL '7 days'
	`, farmID).Scan(&sum.RecentMovements)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent movements: %w", err)
	}
	return sum, nil
}
