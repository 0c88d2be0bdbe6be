package http

import (
	"encoding/json"
	"net/http"
)

type ingestRequest struct {
	Keywords []string `json:"keywords"`
}

func (api *ConciergeServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	report, err := api.IngestProductsUseCase.Execute(r.Context(), req.Keywords)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}
