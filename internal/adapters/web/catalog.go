package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"agrishare/internal/app"
	"agrishare/internal/core"
)

type createProductPayload struct {
	Name              string               `json:"name"`
	Category          string               `json:"category"`
	Unit              string               `json:"unit"`
	Description       string               `json:"description"`
	Channels          string               `json:"channels"`
	Specs             core.ProductSpecs    `json:"specs"`
	Pricing           core.ProductPricing  `json:"pricing"`
	MinStockThreshold decimal.Decimal      `json:"min_stock_threshold"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var payload createProductPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.CreateProduct(r.Context(), app.CreateProductRequest{
		FarmCode:          chi.URLParam(r, "farmCode"),
		Name:              payload.Name,
		Category:          payload.Category,
		Unit:              payload.Unit,
		Description:       payload.Description,
		Channels:          core.NormalizeChannel(payload.Channels),
		Specs:             payload.Specs,
		Pricing:           payload.Pricing,
		MinStockThreshold: payload.MinStockThreshold,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Product)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var status *core.ProductStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := core.ProductStatus(s)
		status = &st
	}

	result, err := h.svc.ListProducts(r.Context(), chi.URLParam(r, "farmCode"), status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Products)
}

func (h *Handler) listLowStockProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListLowStockProducts(r.Context(), chi.URLParam(r, "farmCode"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Product)
}

type updateProductPayload struct {
	Name              *string          `json:"name"`
	Category          *string          `json:"category"`
	Unit              *string          `json:"unit"`
	Description       *string          `json:"description"`
	Channels          *string          `json:"channels"`
	Variety           *string          `json:"variety"`
	ProductionMode    *string          `json:"production_mode"`
	Certifications    *[]string        `json:"certifications"`
	HarvestDate       *time.Time       `json:"harvest_date"`
	Origin            *string          `json:"origin"`
	Quality           *string          `json:"quality"`
	B2CPrice          *decimal.Decimal `json:"b2c_price"`
	B2CMinQty         *decimal.Decimal `json:"b2c_min_qty"`
	B2BPrice          *decimal.Decimal `json:"b2b_price"`
	B2BMinQty         *decimal.Decimal `json:"b2b_min_qty"`
	B2BPaymentTerms   *string          `json:"b2b_payment_terms"`
	MinStockThreshold *decimal.Decimal `json:"min_stock_threshold"`
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var payload updateProductPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	upd := core.ProductUpdate{
		Name:              payload.Name,
		Category:          payload.Category,
		Unit:              payload.Unit,
		Description:       payload.Description,
		Variety:           payload.Variety,
		ProductionMode:    payload.ProductionMode,
		Certifications:    payload.Certifications,
		HarvestDate:       payload.HarvestDate,
		Origin:            payload.Origin,
		Quality:           payload.Quality,
		B2CPrice:          payload.B2CPrice,
		B2CMinQty:         payload.B2CMinQty,
		B2BPrice:          payload.B2BPrice,
		B2BMinQty:         payload.B2BMinQty,
		B2BPaymentTerms:   payload.B2BPaymentTerms,
		MinStockThreshold: payload.MinStockThreshold,
	}
	if payload.Channels != nil {
		ch := core.NormalizeChannel(*payload.Channels)
		upd.Channels = &ch
	}

	result, err := h.svc.UpdateProduct(r.Context(), id, upd)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Product)
}

type channelPayload struct {
	Channel string `json:"channel"`
}

func (h *Handler) publishProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var payload channelPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.PublishProduct(r.Context(), id, payload.Channel)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Product)
}

func (h *Handler) unpublishProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var payload channelPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.UnpublishProduct(r.Context(), id, payload.Channel)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Product)
}

func (h *Handler) archiveProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ArchiveProduct(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Product)
}

func (h *Handler) recordView(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.svc.RecordView(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// ── Media ────────────────────────────────────────────────────────────────────

type addImagePayload struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

func (h *Handler) addImage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var payload addImagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.AddImage(r.Context(), app.AddImageRequest{
		ProductID: id,
		URL:       payload.URL,
		Type:      core.ImageType(payload.Type),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Image)
}

func (h *Handler) setPrimaryImage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.svc.SetPrimaryImage(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handler) removeImage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.svc.RemoveImage(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handler) scoreImage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.svc.ScoreImage(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "scoring scheduled"})
}
