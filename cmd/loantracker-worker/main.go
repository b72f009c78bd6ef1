package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"loantracker/internal/amqp"
	"loantracker/internal/backend"
	"loantracker/internal/cli"
	"loantracker/internal/log"
	"loantracker/internal/metrics"
	"loantracker/internal/services"
	gsheet "loantracker/internal/sheets/google"
	"loantracker/internal/worker"
)

func main() {
	cfg, logger := cli.MustLoad(log.ComponentWorker)
	logger.Info("Starting loantracker-worker", "backend", cfg.DataBackend)

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
	m := metrics.New(reg)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	}

	scheduler := worker.NewScheduler(logger.WithComponent(log.ComponentWorker).Logger, m)

	window, err := services.GetReminderWindow(cfg.ReminderWindow)
	if err != nil {
		logger.Error("Invalid reminder window", "error", err)
		os.Exit(1)
	}
	var reminderPub services.ReminderPublisher = worker.LogReminderPublisher{}
	if amqpClient != nil {
		reminderPub = amqpClient
	}
	reminders := services.NewReminderProcessor(be.Repository, reminderPub, window)
	if err := scheduler.Add("reminders", cfg.ReminderSchedule, func(ctx context.Context) error {
		_, err := reminders.ProcessDue(ctx, time.Now())
		return err
	}); err != nil {
		logger.Error("Failed to schedule reminders", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.SheetsEnabled() {
		mirror, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		sync := services.NewSyncProcessor(be.Repository, mirror)

		if err := scheduler.Add("export", cfg.ExportSchedule, func(ctx context.Context) error {
			_, err := sync.FullSync(ctx)
			return err
		}); err != nil {
			logger.Error("Failed to schedule export", "error", err)
			os.Exit(1)
		}
		// Bring the sheet up to date before consuming incremental events.
		if err := scheduler.RunNow(ctx, "export"); err != nil {
			logger.Warn("Startup export failed", "error", err)
		}

		if amqpClient != nil {
			sw := worker.NewSyncWorker(amqpClient, sync)
			g.Go(func() error { return sw.Run(gctx) })
		} else {
			logger.Warn("AMQP_URL not set, sheet mirror updates only on the export schedule")
		}
	} else {
		logger.Info("Google Sheets not configured, export disabled")
	}

	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return serveMetrics(gctx, ":"+cfg.WorkerMetricsPort, reg) })

	if err := g.Wait(); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

// serveMetrics exposes /metrics and /healthz for the worker.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
