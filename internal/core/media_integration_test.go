package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"agrishare/internal/core"
)

// stubScorer returns a fixed assessment and signals when it has been called.
type stubScorer struct {
	score  int
	tags   []string
	called chan struct{}
}

func (s *stubScorer) ScoreImage(ctx context.Context, url string) (int, []string, error) {
	defer close(s.called)
	return s.score, s.tags, nil
}

func TestMedia_FirstImageBecomesPrimaryMain(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool, core.NoopSyncer{})
	media := core.NewMediaService(pool, nil)

	p := createTestProduct(t, ctx, catalog, "Oignons")

	first, err := media.AddImage(ctx, p.ID, "https://cdn.example.com/1.jpg", core.ImageGallery)
	if err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}
	if !first.IsPrimary || first.Type != core.ImageMain {
		t.Errorf("First image must be primary main, got primary=%v type=%s", first.IsPrimary, first.Type)
	}

	second, err := media.AddImage(ctx, p.ID, "https://cdn.example.com/2.jpg", "")
	if err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}
	if second.IsPrimary || second.Type != core.ImageGallery {
		t.Errorf("Later images default to non-primary gallery, got primary=%v type=%s", second.IsPrimary, second.Type)
	}
}

func TestMedia_SetPrimaryIsExclusive(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool, core.NoopSyncer{})
	media := core.NewMediaService(pool, nil)

	p := createTestProduct(t, ctx, catalog, "Tomates")
	first, _ := media.AddImage(ctx, p.ID, "https://cdn.example.com/1.jpg", "")
	second, _ := media.AddImage(ctx, p.ID, "https://cdn.example.com/2.jpg", "")

	if err := media.SetPrimary(ctx, second.ID); err != nil {
		t.Fatalf("SetPrimary failed: %v", err)
	}

	images, err := media.GetImages(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetImages failed: %v", err)
	}
	var primaries int
	for _, img := range images {
		if img.IsPrimary {
			primaries++
			if img.ID != second.ID {
				t.Errorf("Expected image %d primary, got %d", second.ID, img.ID)
			}
		}
	}
	if primaries != 1 {
		t.Errorf("Exactly one primary expected, got %d", primaries)
	}
	_ = first

	if err := media.SetPrimary(ctx, 99999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMedia_RemovePrimaryDoesNotPromote(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool, core.NoopSyncer{})
	media := core.NewMediaService(pool, nil)

	p := createTestProduct(t, ctx, catalog, "Piments")
	first, _ := media.AddImage(ctx, p.ID, "https://cdn.example.com/1.jpg", "")
	if _, err := media.AddImage(ctx, p.ID, "https://cdn.example.com/2.jpg", ""); err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}

	if err := media.RemoveImage(ctx, first.ID); err != nil {
		t.Fatalf("RemoveImage failed: %v", err)
	}
	images, err := media.GetImages(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetImages failed: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("Expected one remaining image, got %d", len(images))
	}
	if images[0].IsPrimary {
		t.Errorf("Removing the primary leaves the gallery without one, no auto-promotion")
	}

	if err := media.RemoveImage(ctx, first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Double remove must fail with ErrNotFound, got %v", err)
	}
}

func TestMedia_AsyncScoreLandsOnImage(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool, core.NoopSyncer{})
	scorer := &stubScorer{score: 87, tags: []string{"oignons", "plein champ"}, called: make(chan struct{})}
	media := core.NewMediaService(pool, scorer)

	p := createTestProduct(t, ctx, catalog, "Oignons")
	img, _ := media.AddImage(ctx, p.ID, "https://cdn.example.com/1.jpg", "")

	if err := media.RequestScore(ctx, img.ID); err != nil {
		t.Fatalf("RequestScore failed: %v", err)
	}

	select {
	case <-scorer.called:
	case <-time.After(5 * time.Second):
		t.Fatal("scorer was never invoked")
	}

	// The write happens after the scorer returns; poll briefly.
	deadline := time.Now().Add(5 * time.Second)
	for {
		images, err := media.GetImages(ctx, p.ID)
		if err != nil {
			t.Fatalf("GetImages failed: %v", err)
		}
		if images[0].QualityScore != nil {
			if *images[0].QualityScore != 87 || len(images[0].Tags) != 2 {
				t.Errorf("Unexpected score result: %v %v", *images[0].QualityScore, images[0].Tags)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("score never landed on the image")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestMedia_ScoreRequestForMissingImage(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	media := core.NewMediaService(pool, &stubScorer{called: make(chan struct{})})

	if err := media.RequestScore(ctx, 99999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
