package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ImageScorer rates a product photo. Implementations call out to a vision
// model; scores land asynchronously and may never arrive.
type ImageScorer interface {
	ScoreImage(ctx context.Context, url string) (score int, tags []string, err error)
}

// MediaService manages a product's image gallery. The first image becomes the
// primary automatically; afterwards primacy only moves by explicit request.
type MediaService interface {
	AddImage(ctx context.Context, productID int, url string, imageType ImageType) (*ProductImage, error)
	GetImages(ctx context.Context, productID int) ([]ProductImage, error)
	SetPrimary(ctx context.Context, imageID int) error
	// RemoveImage deletes the image. Removing the primary leaves the gallery
	// without one until the seller picks a replacement.
	RemoveImage(ctx context.Context, imageID int) error
	// RequestScore schedules asynchronous quality scoring for the image and
	// returns immediately. Results are written back when the scorer answers;
	// an image deleted in the meantime is silently skipped.
	RequestScore(ctx context.Context, imageID int) error
}

type mediaService struct {
	pool   *pgxpool.Pool
	scorer ImageScorer
}

func NewMediaService(pool *pgxpool.Pool, scorer ImageScorer) MediaService {
	return &mediaService{pool: pool, scorer: scorer}
}

func validImageType(t ImageType) bool {
	switch t {
	case ImageMain, ImageGallery, ImageCertification, ImageFarm:
		return true
	}
	return false
}

func (s *mediaService) AddImage(ctx context.Context, productID int, url string, imageType ImageType) (*ProductImage, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: image url is required", ErrInvalidState)
	}
	if imageType == "" {
		imageType = ImageGallery
	}
	if !validImageType(imageType) {
		return nil, fmt.Errorf("%w: unknown image type %q", ErrInvalidState, imageType)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := lockProductTx(ctx, tx, productID); err != nil {
		return nil, err
	}

	var existing int
	if err := tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM product_images WHERE product_id = $1", productID).Scan(&existing); err != nil {
		return nil, fmt.Errorf("failed to count images: %w", err)
	}

	// The first image anchors the listing: it becomes the primary and is
	// typed main regardless of what was requested.
	isPrimary := existing == 0
	if isPrimary {
		imageType = ImageMain
	}

	var img ProductImage
	err = tx.QueryRow(ctx, `
		INSERT INTO product_images (product_id, url, image_type, is_primary)
		VALUES ($1, $2, $3, $4)
		RETURNING id, product_id, url, image_type, is_primary, quality_score, tags, created_at
	`, productID, url, imageType, isPrimary).Scan(
		&img.ID, &img.ProductID, &img.URL, &img.Type, &img.IsPrimary,
		&img.QualityScore, &img.Tags, &img.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add image: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &img, nil
}

func (s *mediaService) GetImages(ctx context.Context, productID int) ([]ProductImage, error) {
	if _, err := fetchProductQ(ctx, s.pool, productID); err != nil {
		return nil, err
	}
	return fetchProductImagesQ(ctx, s.pool, productID)
}

func (s *mediaService) SetPrimary(ctx context.Context, imageID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var productID int
	err = tx.QueryRow(ctx, "SELECT product_id FROM product_images WHERE id = $1", imageID).Scan(&productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: image %d", ErrNotFound, imageID)
		}
		return fmt.Errorf("failed to fetch image %d: %w", imageID, err)
	}

	// Clear before set: a partial unique index allows one primary per product.
	if _, err := tx.Exec(ctx,
		"UPDATE product_images SET is_primary = false WHERE product_id = $1 AND is_primary", productID); err != nil {
		return fmt.Errorf("failed to clear primary image: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE product_images SET is_primary = true WHERE id = $1", imageID); err != nil {
		return fmt.Errorf("failed to set primary image: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *mediaService) RemoveImage(ctx context.Context, imageID int) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM product_images WHERE id = $1", imageID)
	if err != nil {
		return fmt.Errorf("failed to remove image %d: %w", imageID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: image %d", ErrNotFound, imageID)
	}
	return nil
}

// scoreTimeout bounds one background scoring call.
const scoreTimeout = 45 * time.Second

func (s *mediaService) RequestScore(ctx context.Context, imageID int) error {
	var url string
	err := s.pool.QueryRow(ctx, "SELECT url FROM product_images WHERE id = $1", imageID).Scan(&url)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: image %d", ErrNotFound, imageID)
		}
		return fmt.Errorf("failed to fetch image %d: %w", imageID, err)
	}

	go func() {
		sctx, cancel := context.WithTimeout(context.Background(), scoreTimeout)
		defer cancel()

		score, tags, err := s.scorer.ScoreImage(sctx, url)
		if err != nil {
			log.Printf("image %d scoring failed: %v", imageID, err)
			return
		}
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}

		// Zero rows means the image was deleted while scoring ran.
		tag, err := s.pool.Exec(sctx,
			"UPDATE product_images SET quality_score = $2, tags = $3 WHERE id = $1",
			imageID, score, tags)
		if err != nil {
			log.Printf("image %d score write failed: %v", imageID, err)
			return
		}
		if tag.RowsAffected() == 0 {
			log.Printf("image %d deleted before score arrived, dropping result", imageID)
		}
	}()
	return nil
}
