package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/edibleworks/gift-concierge/internal/domain"
)

// streamEncoder writes stream events as AI SDK UI message stream frames.
// Every frame is an SSE data line with a JSON payload; the stream ends with a
// literal [DONE] frame.
type streamEncoder struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newStreamEncoder(w http.ResponseWriter, flusher http.Flusher) *streamEncoder {
	return &streamEncoder{w: w, flusher: flusher}
}

// writeHeaders sends the SSE headers, including the protocol version marker
// the AI SDK client looks for and the directive that keeps reverse proxies
// from buffering the stream.
func (e *streamEncoder) writeHeaders() {
	h := e.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("x-vercel-ai-ui-message-stream", "v1")
	h.Set("X-Accel-Buffering", "no")
	e.w.WriteHeader(http.StatusOK)
	e.started = true
}

// WriteEvent encodes one protocol event as an SSE frame and flushes it.
func (e *streamEncoder) WriteEvent(event domain.StreamEvent) error {
	if !e.started {
		e.writeHeaders()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

// Close writes the terminator frame.
func (e *streamEncoder) Close() error {
	if !e.started {
		e.writeHeaders()
	}
	if _, err := fmt.Fprint(e.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

// Started reports whether any frame or header has been written.
func (e *streamEncoder) Started() bool {
	return e.started
}
