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

type createCropPayload struct {
	Name           string           `json:"name"`
	Stage          string           `json:"stage"`
	PlantedOn      *time.Time       `json:"planted_on"`
	HarvestOn      *time.Time       `json:"harvest_on"`
	Health         string           `json:"health"`
	EstimatedYield *decimal.Decimal `json:"estimated_yield"`
}

func (h *Handler) createCrop(w http.ResponseWriter, r *http.Request) {
	var payload createCropPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.CreateCrop(r.Context(), app.CreateCropRequest{
		FarmCode:       chi.URLParam(r, "farmCode"),
		Name:           payload.Name,
		Stage:          core.CropStage(payload.Stage),
		PlantedOn:      payload.PlantedOn,
		HarvestOn:      payload.HarvestOn,
		Health:         payload.Health,
		EstimatedYield: payload.EstimatedYield,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Crop)
}

func (h *Handler) listCrops(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCrops(r.Context(), chi.URLParam(r, "farmCode"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Crops)
}

type progressPayload struct {
	Progress int    `json:"progress"`
	Health   string `json:"health"`
}

func (h *Handler) updateCropProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var payload progressPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.UpdateCropProgress(r.Context(), id, app.ProgressRequest{
		Progress: payload.Progress,
		Health:   payload.Health,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Crop)
}

func (h *Handler) advanceCropStage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.AdvanceCropStage(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Crop)
}

type harvestPayload struct {
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

func (h *Handler) harvestCrop(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var payload harvestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.HarvestCrop(r.Context(), id, app.HarvestRequest{
		Category: payload.Category,
		Unit:     payload.Unit,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Product)
}
