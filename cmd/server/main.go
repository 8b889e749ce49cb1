package main

import (
	"context"
	"log"
	"net/http"
	"os"

	webAdapter "agrishare/internal/adapters/web"
	"agrishare/internal/ai"
	"agrishare/internal/app"
	"agrishare/internal/core"
	"agrishare/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Println("Warning: OPENAI_API_KEY is not set, advisory and image scoring run degraded")
	}
	advisor := ai.NewAdvisor(apiKey)
	scorer := ai.NewScorer(apiKey)

	catalogService := core.NewCatalogService(pool, core.NoopSyncer{})
	batchService := core.NewBatchService(pool)
	inventoryService := core.NewInventoryService(pool)
	mediaService := core.NewMediaService(pool, scorer)
	fulfillmentService := core.NewFulfillmentService(pool)
	productionService := core.NewProductionService(pool)

	svc := app.NewAppService(pool, catalogService, batchService, inventoryService,
		mediaService, fulfillmentService, productionService, advisor)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
