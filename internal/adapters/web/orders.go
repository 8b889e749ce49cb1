package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agrishare/internal/app"
	"agrishare/internal/core"
)

type createOrderPayload struct {
	OrderNumber     string                `json:"order_number"`
	CustomerName    string                `json:"customer_name"`
	DeliveryAddress string                `json:"delivery_address"`
	Items           []core.OrderItemInput `json:"items"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var payload createOrderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.CreateOrder(r.Context(), app.CreateOrderRequest{
		FarmCode:        chi.URLParam(r, "farmCode"),
		OrderNumber:     payload.OrderNumber,
		CustomerName:    payload.CustomerName,
		DeliveryAddress: payload.DeliveryAddress,
		Items:           payload.Items,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var status *core.OrderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := core.OrderStatus(s)
		status = &st
	}
	result, err := h.svc.ListOrders(r.Context(), chi.URLParam(r, "farmCode"), status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

func (h *Handler) startFulfillment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.StartFulfillment(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

type advancePayload struct {
	Carrier string `json:"carrier"`
}

func (h *Handler) advanceFulfillment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var payload advancePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.AdvanceFulfillment(r.Context(), id, payload.Carrier)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) confirmDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ConfirmDelivery(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}
