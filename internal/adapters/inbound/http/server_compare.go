package http

import (
	"encoding/json"
	"net/http"

	"github.com/edibleworks/gift-concierge/internal/domain"
	"github.com/edibleworks/gift-concierge/internal/usecases"
)

type compareRequest struct {
	Products []domain.Product        `json:"products"`
	Context  usecases.CompareContext `json:"context"`
}

type compareResponse struct {
	Analysis string `json:"analysis"`
}

func (api *ConciergeServer) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	analysis, err := api.CompareProductsUseCase.Execute(r.Context(), req.Products, req.Context)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, compareResponse{Analysis: analysis})
}
