package main

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"loantracker/internal/amqp"
	"loantracker/internal/backend"
	"loantracker/internal/cache"
	"loantracker/internal/cli"
	"loantracker/internal/core"
	apphttp "loantracker/internal/http"
	"loantracker/internal/log"
	"loantracker/internal/metrics"
	"loantracker/internal/middleware/security"
	"loantracker/internal/services"
	"loantracker/internal/share"
	"loantracker/internal/store/memory"
)

func main() {
	cfg, logger := cli.MustLoad(log.ComponentApp)
	logger.Info("Starting loantracker", "backend", cfg.DataBackend, "port", cfg.Port)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger.Logger).Create(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	signer, err := share.NewSigner([]byte(cfg.ShareSigningKey))
	if err != nil {
		logger.Error("Invalid share signing key", "error", err)
		os.Exit(1)
	}

	portfolio := cache.NewLRUCache[core.Portfolio](1, time.Minute)
	ledgerOpts := []services.LedgerOption{
		services.WithLedgerMetrics(m),
		services.WithPortfolioCache(portfolio),
	}

	// AMQP is optional for the API; without it the sheet mirror only sees the
	// nightly export.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger events disabled", "error", err)
		} else {
			defer amqpClient.Close()
			ledgerOpts = append(ledgerOpts, services.WithPublisher(amqpClient))
			logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange)
		}
	}

	ledger := services.NewLedgerService(be.Repository, ledgerOpts...)

	shareOpts := []services.ShareOption{services.WithShareMetrics(m)}
	if cfg.SeedSampleData {
		shareOpts = append(shareOpts, services.WithSampleFallback(memory.NewSeeded()))
	}
	shares := services.NewShareService(be.Repository, signer, services.ShareConfig{
		BaseURL:    cfg.ShareBaseURL,
		DefaultTTL: cfg.ShareDefaultTTL,
		HashCost:   cfg.ShareHashCost,
	}, shareOpts...)

	clientIP, err := security.NewClientIP()
	if err != nil {
		logger.Error("Invalid trusted proxy configuration", "error", err)
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:   ledger,
		Shares:   shares,
		Ready:    be.Ping,
		Metrics:  m,
		Gatherer: reg,
	}, apphttp.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ClientIP:           clientIP,
		Logger:             logger.WithComponent(log.ComponentHTTP),
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, 30*time.Second) })
	g.Go(func() error { return srv.Limiter().Run(gctx, 5*time.Minute) })
	g.Go(func() error { return cache.NewJanitor(portfolio).Run(gctx, 10*time.Minute) })

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
