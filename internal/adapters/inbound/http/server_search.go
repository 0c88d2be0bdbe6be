package http

import (
	"encoding/json"
	"net/http"

	"github.com/edibleworks/gift-concierge/internal/domain"
)

type searchRequest struct {
	Keyword string `json:"keyword"`
	ZipCode string `json:"zipCode"`
}

type searchResponse struct {
	Products []domain.Product `json:"products"`
	Count    int              `json:"count"`
}

func (api *ConciergeServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if req.Keyword == "" {
		respondBadRequest(w, "keyword must not be empty")
		return
	}

	products, err := api.SearchClient.Search(r.Context(), req.Keyword, req.ZipCode)
	if err != nil {
		respondError(w, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	respondJSON(w, http.StatusOK, searchResponse{Products: products, Count: len(products)})
}
