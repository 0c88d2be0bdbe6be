package http

import (
	"encoding/json"
	"net/http"

	"github.com/edibleworks/gift-concierge/internal/domain"
)

type chatRequest struct {
	Messages []domain.ClientMessage `json:"messages"`
}

func (api *ConciergeServer) handleChat(w http.ResponseWriter, r *http.Request) {
	if !api.limiter.Allow(clientAddr(r)) {
		respondError(w, domain.NewRateLimitedErr("too many requests, slow down a little"))
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		respondBadRequest(w, "messages must not be empty")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, domain.NewValidationErr("streaming not supported"))
		return
	}

	encoder := newStreamEncoder(w, flusher)
	err := api.StreamChatUseCase.Execute(r.Context(), req.Messages, encoder.WriteEvent)
	if err != nil {
		// Once frames are on the wire the stream cannot carry a JSON error
		// anymore, the client sees the missing terminator instead.
		api.Logger.Printf("handleChat: error during streaming: %v", err)
		if !encoder.Started() {
			respondError(w, err)
		}
		return
	}

	if err := encoder.Close(); err != nil {
		api.Logger.Printf("handleChat: error writing terminator: %v", err)
	}
}
