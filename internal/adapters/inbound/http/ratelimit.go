package http

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/edibleworks/gift-concierge/internal/domain"
)

type rateWindow struct {
	startedAt time.Time
	count     int
}

// rateLimiter is a fixed-window per-client request limiter.
type rateLimiter struct {
	limit  int
	window time.Duration
	clock  domain.CurrentTimeProvider

	mu      sync.Mutex
	windows map[string]*rateWindow
}

func newRateLimiter(limit int, window time.Duration, clock domain.CurrentTimeProvider) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		windows: make(map[string]*rateWindow),
	}
}

// Allow reports whether the client may make another request in the current
// window.
func (rl *rateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	w, ok := rl.windows[clientID]
	if !ok || now.Sub(w.startedAt) >= rl.window {
		rl.windows[clientID] = &rateWindow{startedAt: now, count: 1}
		return true
	}

	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

// clientAddr identifies the caller for rate limiting. Behind a proxy the
// first X-Forwarded-For hop is the original client.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
