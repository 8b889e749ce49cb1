package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"agrishare/internal/app"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(1 << 20)) // 1 MB

	r.Get("/api/health", h.health)

	// ── Farm-scoped collections ──────────────────────────────────────────────
	r.Route("/api/farms/{farmCode}", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Post("/products", h.createProduct)
		r.Get("/products/low-stock", h.listLowStockProducts)
		r.Get("/stock-summary", h.stockSummary)
		r.Get("/orders", h.listOrders)
		r.Post("/orders", h.createOrder)
		r.Get("/crops", h.listCrops)
		r.Post("/crops", h.createCrop)
		r.Post("/advice", h.advice)
	})

	// ── Products ─────────────────────────────────────────────────────────────
	r.Route("/api/products/{id}", func(r chi.Router) {
		r.Get("/", h.getProduct)
		r.Patch("/", h.updateProduct)
		r.Post("/publish", h.publishProduct)
		r.Post("/unpublish", h.unpublishProduct)
		r.Post("/archive", h.archiveProduct)
		r.Post("/view", h.recordView)
		r.Post("/images", h.addImage)
		r.Post("/batches", h.createBatch)
		r.Post("/restock", h.restockProduct)
		r.Post("/loss", h.recordLoss)
		r.Get("/movements", h.listMovements)
	})

	// ── Images and batches ───────────────────────────────────────────────────
	r.Post("/api/images/{id}/primary", h.setPrimaryImage)
	r.Delete("/api/images/{id}", h.removeImage)
	r.Post("/api/images/{id}/score", h.scoreImage)
	r.Post("/api/batches/{id}/adjust", h.adjustBatch)

	// ── Fulfillment ──────────────────────────────────────────────────────────
	r.Route("/api/orders/{id}", func(r chi.Router) {
		r.Get("/", h.getOrder)
		r.Post("/fulfillment", h.startFulfillment)
		r.Post("/fulfillment/advance", h.advanceFulfillment)
		r.Post("/delivered", h.confirmDelivery)
	})

	// ── Production ───────────────────────────────────────────────────────────
	r.Route("/api/crops/{id}", func(r chi.Router) {
		r.Post("/progress", h.updateCropProgress)
		r.Post("/advance", h.advanceCropStage)
		r.Post("/harvest", h.harvestCrop)
	})

	h.router = r
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// urlID parses the {id} URL parameter. The second return is false when the
// parameter is not a positive integer; the error response is already written.
func urlID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
