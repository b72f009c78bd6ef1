package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loantracker/internal/log"
	"loantracker/internal/metrics"
	"loantracker/internal/middleware/ratelimit"
	"loantracker/internal/middleware/security"
	"loantracker/internal/middleware/trace"
	"loantracker/internal/services"
)

// Deps are the services the handlers call.
type Deps struct {
	Ledger *services.LedgerService
	Shares *services.ShareService
	// Ready reports backend reachability for /readyz. Nil means always ready.
	Ready    func(ctx context.Context) error
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

type Options struct {
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	ClientIP           *security.ClientIP
	Logger             *log.Logger
}

type Server struct {
	http.Server
	deps    Deps
	limiter *ratelimit.Limiter
	now     func() time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) (*Server, error) {
	if opts.ClientIP == nil {
		ip, err := security.NewClientIP()
		if err != nil {
			return nil, fmt.Errorf("client ip extractor: %w", err)
		}
		opts.ClientIP = ip
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	if len(opts.CORSAllowedOrigins) == 0 {
		opts.CORSAllowedOrigins = []string{"*"}
	}

	s := &Server{
		deps:    deps,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		now:     time.Now,
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(trace.RequestID)
	r.Use(log.Middleware(opts.Logger))
	r.Use(log.RequestIDMiddleware(trace.GetRequestID))
	r.Use(trace.Observe(deps.Metrics, opts.ClientIP.Extract))
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Share-Password", trace.RequestIDHeader},
		ExposedHeaders: []string{trace.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	limited := s.limiter.Middleware(opts.ClientIP.Extract, s.handleRateLimited)

	r.Route("/api", func(r chi.Router) {
		r.Use(limited)

		r.Route("/people", func(r chi.Router) {
			r.Get("/", s.handleListPeople)
			r.Post("/", s.handleAddPerson)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handlePersonDetail)
				r.Delete("/", s.handleDeletePerson)
				r.Get("/transactions", s.handleListTransactions)
				r.Post("/transactions", s.handleRecordTransaction)
				r.Delete("/transactions/{txID}", s.handleDeleteTransaction)
				r.Get("/upcoming", s.handleUpcoming)
			})
		})

		r.Get("/summary", s.handleSummary)
		r.Get("/export", s.handleExport)

		r.Route("/links", func(r chi.Router) {
			r.Get("/", s.handleListLinks)
			r.Post("/", s.handleCreateLink)
			r.Delete("/{id}", s.handleDeleteLink)
		})
	})

	r.Route("/s/{token}", func(r chi.Router) {
		r.Use(limited, security.NoStore)
		r.Get("/", s.handleResolve)
		r.Post("/", s.handleResolve)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Limiter exposes the rate limiter so its sweeper can run alongside the server.
func (s *Server) Limiter() *ratelimit.Limiter {
	return s.limiter
}

// Run serves until ctx is cancelled, then shuts it down gracefully.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("HTTP server shutting down")
	if err := s.Shutdown(sctx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded", "path", r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
}
