package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"agrishare/internal/app"
)

type createBatchPayload struct {
	HarvestDate time.Time       `json:"harvest_date"`
	ExpiryDate  *time.Time      `json:"expiry_date"`
	InitialQty  decimal.Decimal `json:"initial_qty"`
	Location    string          `json:"location"`
	Notes       string          `json:"notes"`
}

func (h *Handler) createBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var payload createBatchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.CreateBatch(r.Context(), app.CreateBatchRequest{
		ProductID:   id,
		HarvestDate: payload.HarvestDate,
		ExpiryDate:  payload.ExpiryDate,
		InitialQty:  payload.InitialQty,
		Location:    payload.Location,
		Notes:       payload.Notes,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Batch)
}

type adjustBatchPayload struct {
	NewQty decimal.Decimal `json:"new_qty"`
	Reason string          `json:"reason"`
}

func (h *Handler) adjustBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var payload adjustBatchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.AdjustBatch(r.Context(), id, app.AdjustBatchRequest{
		NewQty: payload.NewQty,
		Reason: payload.Reason,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Batch)
}

type quantityPayload struct {
	Quantity decimal.Decimal `json:"quantity"`
	Reason   string          `json:"reason"`
}

func (h *Handler) restockProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var payload quantityPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.RestockProduct(r.Context(), id, app.RestockRequest{
		Quantity: payload.Quantity,
		Reason:   payload.Reason,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Product)
}

func (h *Handler) recordLoss(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var payload quantityPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if err := h.svc.RecordLoss(r.Context(), id, app.LossRequest{
		Quantity: payload.Quantity,
		Reason:   payload.Reason,
	}); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}
	result, err := h.svc.ListMovements(r.Context(), id, limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Movements)
}

func (h *Handler) stockSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.GetStockSummary(r.Context(), chi.URLParam(r, "farmCode"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, summary)
}
