package http

import (
	"net/http"

	"github.com/edibleworks/gift-concierge/internal/usecases"
)

type healthResponse struct {
	Status          string `json:"status"`
	PromptVersion   string `json:"promptVersion"`
	IndexedProducts int    `json:"indexedProducts"`
}

func (api *ConciergeServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		PromptVersion: usecases.SystemPromptVersion,
	}

	count, err := api.ProductIndex.Count(r.Context())
	if err != nil {
		api.Logger.Printf("handleHealth: failed to count indexed products: %v", err)
		resp.Status = "degraded"
	} else {
		resp.IndexedProducts = count
	}

	respondJSON(w, http.StatusOK, resp)
}
