package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Limiter allows a fixed number of requests per client per window.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	start    time.Time
	requests int
}

type Config struct {
	RequestsPerMinute int
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60}
}

func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg = DefaultConfig()
	}
	return &Limiter{
		clients: make(map[string]*window),
		limit:   cfg.RequestsPerMinute,
		period:  time.Minute,
		now:     time.Now,
	}
}

// Allow counts a request from key and reports whether it is within the limit.
// When it is not, the returned duration is the time until the window resets.
func (rl *Limiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[key]
	if !ok || now.Sub(w.start) >= rl.period {
		rl.clients[key] = &window{start: now, requests: 1}
		return true, 0
	}
	w.requests++
	if w.requests <= rl.limit {
		return true, 0
	}
	return false, rl.period - now.Sub(w.start)
}

// Run drops idle clients every interval until ctx is done.
func (rl *Limiter) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			removed := rl.sweep()
			slog.DebugContext(ctx, "Rate limiter swept idle clients",
				"removed", removed,
				"active_clients", rl.ActiveClients())
		case <-ctx.Done():
			return nil
		}
	}
}

func (rl *Limiter) sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-2 * rl.period)
	removed := 0
	for key, w := range rl.clients {
		if w.start.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// ActiveClients is the number of clients with a tracked window.
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (rl *Limiter) Middleware(extractKey func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := rl.Allow(extractKey(r))
			if !ok {
				secs := int(retry.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
