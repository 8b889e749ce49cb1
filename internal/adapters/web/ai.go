package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type advicePayload struct {
	Question string `json:"question"`
}

// advice handles POST /api/farms/{farmCode}/advice. The advisor degrades to
// fixed messages rather than failing, so only context assembly can error here.
func (h *Handler) advice(w http.ResponseWriter, r *http.Request) {
	var payload advicePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, "invalid JSON body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Question) == "" {
		writeError(w, r, "question is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.GetAdvice(r.Context(), chi.URLParam(r, "farmCode"), payload.Question)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}
