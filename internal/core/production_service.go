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

// defaultHarvestQty seeds the first batch when a crop has no yield estimate.
var defaultHarvestQty = decimal.NewFromInt(100)

// ProductionService tracks plantings from seed to harvest. Harvesting a crop
// bridges into the catalog: it creates a draft product and its first batch.
type ProductionService interface {
	CreateCrop(ctx context.Context, farmCode, name string, stage CropStage, plantedOn, harvestOn *time.Time, health string, estimatedYield *decimal.Decimal) (*Crop, error)
	GetCrops(ctx context.Context, farmCode string) ([]Crop, error)
	GetCrop(ctx context.Context, cropID int) (*Crop, error)
	// UpdateProgress moves progress forward. Progress never decreases and
	// tops out at 100.
	UpdateProgress(ctx context.Context, cropID int, progress int, health string) (*Crop, error)
	// AdvanceStage moves the crop one stage forward. The harvest stage is
	// reached only through Harvest.
	AdvanceStage(ctx context.Context, cropID int) (*Crop, error)
	// Harvest closes the crop and creates a draft catalog product seeded with
	// one batch sized from the yield estimate. Returns the new product.
	Harvest(ctx context.Context, cropID int, category, unit string) (*Product, error)
}

type productionService struct {
	pool *pgxpool.Pool
}

func NewProductionService(pool *pgxpool.Pool) ProductionService {
	return &productionService{pool: pool}
}

const cropColumns = `
	id, farm_id, name, stage, planted_on, harvest_on, progress, health,
	estimated_yield, product_id, created_at`

func scanCrop(row pgx.Row) (*Crop, error) {
	var c Crop
	err := row.Scan(
		&c.ID, &c.FarmID, &c.Name, &c.Stage, &c.PlantedOn, &c.HarvestOn,
		&c.Progress, &c.Health, &c.EstimatedYield, &c.ProductID, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func validHealth(h string) bool {
	switch h {
	case "Excellent", "Bon", "Surveillance", "Critique":
		return true
	}
	return false
}

func (s *productionService) CreateCrop(ctx context.Context, farmCode, name string, stage CropStage, plantedOn, harvestOn *time.Time, health string, estimatedYield *decimal.Decimal) (*Crop, error) {
	farmID, err := resolveFarmID(ctx, s.pool, farmCode)
	if err != nil {
		return nil, err
	}
	if stage == "" {
		stage = StageSemis
	}
	if stage == StageRecolte {
		return nil, fmt.Errorf("%w: crops cannot start at stage %s", ErrInvalidState, StageRecolte)
	}
	if _, ok := NextStage(stage); !ok {
		return nil, fmt.Errorf("%w: unknown crop stage %q", ErrInvalidState, stage)
	}
	if health == "" {
		health = "Bon"
	}
	if !validHealth(health) {
		return nil, fmt.Errorf("%w: unknown health status %q", ErrInvalidState, health)
	}
	if estimatedYield != nil && estimatedYield.IsNegative() {
		return nil, fmt.Errorf("%w: estimated yield must not be negative", ErrInvalidQuantity)
	}

	c, err := scanCrop(s.pool.QueryRow(ctx, `
		INSERT INTO crops (farm_id, name, stage, planted_on, harvest_on, health, estimated_yield)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING`+cropColumns,
		farmID, name, stage, plantedOn, harvestOn, health, estimatedYield))
	if err != nil {
		return nil, fmt.Errorf("failed to create crop: %w", err)
	}
	return c, nil
}

func (s *productionService) GetCrops(ctx context.Context, farmCode string) ([]Crop, error) {
	farmID, err := resolveFarmID(ctx, s.pool, farmCode)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, "SELECT"+cropColumns+" FROM crops WHERE farm_id = $1 ORDER BY created_at DESC, id DESC", farmID)
	if err != nil {
		return nil, fmt.Errorf("failed to query crops: %w", err)
	}
	defer rows.Close()

	var crops []Crop
	for rows.Next() {
		c, err := scanCrop(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crop: %w", err)
		}
		crops = append(crops, *c)
	}
	return crops, nil
}

func (s *productionService) GetCrop(ctx context.Context, cropID int) (*Crop, error) {
	c, err := scanCrop(s.pool.QueryRow(ctx, "SELECT"+cropColumns+" FROM crops WHERE id = $1", cropID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: crop %d", ErrNotFound, cropID)
		}
		return nil, fmt.Errorf("failed to fetch crop %d: %w", cropID, err)
	}
	return c, nil
}

// lockCropTx locks the crop row for the duration of the transaction.
func lockCropTx(ctx context.Context, tx pgx.Tx, cropID int) (*Crop, error) {
	c, err := scanCrop(tx.QueryRow(ctx, "SELECT"+cropColumns+" FROM crops WHERE id = $1 FOR UPDATE", cropID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: crop %d", ErrNotFound, cropID)
		}
		return nil, fmt.Errorf("failed to lock crop %d: %w", cropID, err)
	}
	return c, nil
}

func (s *productionService) UpdateProgress(ctx context.Context, cropID int, progress int, health string) (*Crop, error) {
	if progress < 0 || progress > 100 {
		return nil, fmt.Errorf("%w: progress must be between 0 and 100", ErrInvalidQuantity)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := lockCropTx(ctx, tx, cropID)
	if err != nil {
		return nil, err
	}
	if c.Stage == StageRecolte {
		return nil, fmt.Errorf("%w: crop %d is already harvested", ErrInvalidState, cropID)
	}
	if progress < c.Progress {
		return nil, fmt.Errorf("%w: progress cannot decrease from %d to %d", ErrInvalidState, c.Progress, progress)
	}
	if health == "" {
		health = c.Health
	}
	if !validHealth(health) {
		return nil, fmt.Errorf("%w: unknown health status %q", ErrInvalidState, health)
	}

	c, err = scanCrop(tx.QueryRow(ctx, `
		UPDATE crops SET progress = $2, health = $3 WHERE id = $1
		RETURNING`+cropColumns, cropID, progress, health))
	if err != nil {
		return nil, fmt.Errorf("failed to update crop %d: %w", cropID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return c, nil
}

func (s *productionService) AdvanceStage(ctx context.Context, cropID int) (*Crop, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := lockCropTx(ctx, tx, cropID)
	if err != nil {
		return nil, err
	}
	if c.Stage == StageRecolte {
		return nil, fmt.Errorf("%w: crop %d is already harvested", ErrInvalidState, cropID)
	}
	next, ok := NextStage(c.Stage)
	if !ok {
		return nil, fmt.Errorf("%w: crop %d has no next stage", ErrInvalidState, cropID)
	}
	if next == StageRecolte {
		return nil, fmt.Errorf("%w: crop %d reaches %s only through harvest", ErrInvalidState, cropID, StageRecolte)
	}

	c, err = scanCrop(tx.QueryRow(ctx, `
		UPDATE crops SET stage = $2 WHERE id = $1
		RETURNING`+cropColumns, cropID, next))
	if err != nil {
		return nil, fmt.Errorf("failed to advance crop %d: %w", cropID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return c, nil
}

func (s *productionService) Harvest(ctx context.Context, cropID int, category, unit string) (*Product, error) {
	if category == "" {
		category = "Légumes"
	}
	if unit == "" {
		unit = "kg"
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := lockCropTx(ctx, tx, cropID)
	if err != nil {
		return nil, err
	}
	if c.Stage == StageRecolte {
		return nil, fmt.Errorf("%w: crop %d is already harvested", ErrInvalidState, cropID)
	}

	harvestDate := time.Now()
	p, err := scanProduct(tx.QueryRow(ctx, `
		INSERT INTO products (farm_id, name, category, unit, description, status, channels, spec_harvest_date)
		VALUES ($1, $2, $3, $4, $5, 'draft', 'B2C', $6)
		RETURNING`+productColumns,
		c.FarmID, c.Name, category, unit,
		fmt.Sprintf("Récolte de %s", c.Name), harvestDate))
	if err != nil {
		return nil, fmt.Errorf("failed to create product for crop %d: %w", cropID, err)
	}

	qty := defaultHarvestQty
	if c.EstimatedYield != nil && c.EstimatedYield.IsPositive() {
		qty = *c.EstimatedYield
	}
	if _, err := createBatchTx(ctx, tx, p, harvestDate, nil, qty, "", fmt.Sprintf("Récolte %s", c.Name)); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE crops SET stage = $2, progress = 100, product_id = $3 WHERE id = $1
	`, cropID, StageRecolte, p.ID); err != nil {
		return nil, fmt.Errorf("failed to close crop %d: %w", cropID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	p, err = fetchProductQ(ctx, s.pool, p.ID)
	if err != nil {
		return nil, err
	}
	p.Batches, err = fetchProductBatchesQ(ctx, s.pool, p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}
