// Package http exposes the concierge over a JSON/SSE REST API.
package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/edibleworks/gift-concierge/internal/domain"
	"github.com/edibleworks/gift-concierge/internal/telemetry"
	"github.com/edibleworks/gift-concierge/internal/usecases"
)

// ConciergeServer is the HTTP server for the gift concierge API.
type ConciergeServer struct {
	Port                   int                        `config:"HTTP_PORT" default:"8080"`
	RateLimitPerMinute     int                        `config:"CHAT_RATE_LIMIT" default:"20"`
	Logger                 *log.Logger                `resolve:""`
	StreamChatUseCase      usecases.StreamChat        `resolve:""`
	CompareProductsUseCase usecases.CompareProducts   `resolve:""`
	IngestProductsUseCase  usecases.IngestProducts    `resolve:""`
	SearchClient           domain.SearchClient        `resolve:""`
	ProductIndex           domain.ProductIndex        `resolve:""`
	TimeProvider           domain.CurrentTimeProvider `resolve:""`

	limiter *rateLimiter
}

// Run starts the HTTP server for the ConciergeServer.
func (api *ConciergeServer) Run(ctx context.Context) error {
	api.limiter = newRateLimiter(api.RateLimitPerMinute, time.Minute, api.TimeProvider)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", api.handleChat)
	mux.HandleFunc("POST /api/compare", api.handleCompare)
	mux.HandleFunc("POST /api/search", api.handleSearch)
	mux.HandleFunc("POST /api/ingest", api.handleIngest)
	mux.HandleFunc("GET /health", api.handleHealth)
	mux.HandleFunc("GET /introspect", IntrospectHandler)

	h := telemetry.Middleware("concierge-api")(mux)

	// Apply CORS at the top-level so preflight requests hit it, too.
	h = cors.AllowAll().Handler(h)

	s := &http.Server{
		Handler: h,
		Addr:    fmt.Sprintf(":%d", api.Port),
	}

	errCh := make(chan error, 1)
	go func() {
		api.Logger.Printf("ConciergeServer: Listening on port %d", api.Port)
		errCh <- s.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.Shutdown(shutdownCtx)
		if err != nil {
			api.Logger.Printf("ConciergeServer: error during shutdown: %v", err)
		} else {
			api.Logger.Println("ConciergeServer: stopped")
		}
		return err
	case err := <-errCh:
		return err
	}
}

// IsReady checks if the ConciergeServer is ready by performing a health check.
func (api *ConciergeServer) IsReady(ctx context.Context) error {
	resp, err := http.Get(fmt.Sprintf("http://:%d/health", api.Port))
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
