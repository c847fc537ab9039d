package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/folio/internal"
	"github.com/DukeRupert/folio/internal/billing"
	"github.com/DukeRupert/folio/internal/delivery"
	"github.com/DukeRupert/folio/internal/email"
	"github.com/DukeRupert/folio/internal/handler"
	"github.com/DukeRupert/folio/internal/idempotency"
	"github.com/DukeRupert/folio/internal/metrics"
	"github.com/DukeRupert/folio/internal/middleware"
	"github.com/DukeRupert/folio/internal/observability"
	"github.com/DukeRupert/folio/internal/report"
	"github.com/DukeRupert/folio/internal/repository"
	"github.com/DukeRupert/folio/internal/service"
	"github.com/DukeRupert/folio/internal/storage"
	"github.com/DukeRupert/folio/internal/worker"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	repo := repository.New(db)

	store, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	claims, closeClaims, err := newClaimStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("idempotency store initialization failed: %w", err)
	}
	defer closeClaims()

	// ==========================================================================
	// Failure reporting runs on the background worker
	// ==========================================================================

	workerCfg := worker.DefaultConfig()
	workerCfg.Concurrency = cfg.ReportWorkers
	workerCfg.QueueSize = cfg.ReportQueueSize
	reports, err := worker.New(workerCfg, logger)
	if err != nil {
		return fmt.Errorf("worker initialization failed: %w", err)
	}
	reports.Register(observability.NewReportHandler(observability.MultiSink{
		observability.NewLogSink(logger),
		observability.NewStoreSink(repo),
	}))
	reports.Start(ctx)
	defer reports.Stop()

	// ==========================================================================
	// Delivery
	// ==========================================================================

	orchestrator := delivery.NewOrchestrator(delivery.Config{
		Saver:   delivery.NewStorageSaver(store, cfg.LinkExpiry),
		Links:   delivery.NewLinkBuilder(store).WithInlineLimit(int(cfg.LinkInlineThreshold)).WithExpiry(cfg.LinkExpiry),
		Fetcher: delivery.NewHTTPFetcher(&http.Client{Timeout: cfg.DeliveryTimeout}).WithAllowedHosts(storageHosts(cfg)...),
		Sink:    observability.NewAsyncSink(reports),
		Logger:  logger,
	})

	deliveryDefaults := delivery.DefaultOptions()
	deliveryDefaults.MaxRetries = cfg.DeliveryMaxRetries
	deliveryDefaults.RetryDelay = cfg.DeliveryRetryDelay
	deliveryDefaults.Timeout = cfg.DeliveryTimeout

	// ==========================================================================
	// Services
	// ==========================================================================

	var billingService billing.Service
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	}

	var ledger service.PaymentLedger = service.NewPaymentLogLedger(repo)
	if cfg.PaymentLedger == "stripe" {
		ledger = billingService
	}
	logger.Info("Payment ledger configured", "ledger", cfg.PaymentLedger)

	accounts := service.NewAccountStore(repo)
	renderer := report.NewPDFRenderer()
	plans := service.NewPlanService(accounts, ledger, logger)
	usage := service.NewUsageLedger(service.NewUsageStore(db, repo), claims, logger)
	downloads := service.NewDownloadService(plans, usage, renderer, orchestrator, logger)
	payments := service.NewPaymentService(service.NewPaymentStore(db, repo), logger)

	var emails service.EmailService
	if cfg.EmailEnabled() {
		dispatcher, err := email.NewSMTPDispatcher(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}, logger)
		if err != nil {
			return fmt.Errorf("email initialization failed: %w", err)
		}
		emails = service.NewEmailService(accounts, plans, renderer, dispatcher, logger)
	} else {
		logger.Warn("SMTP_HOST not set, email delivery disabled")
	}

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", metrics.Handler(cfg.MetricsUsername, cfg.MetricsPassword))

	if cfg.StorageProvider == "local" {
		files := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", files))
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer limiter.Stop()

	// Account routes are rate limited per account; webhooks are not.
	accountMux := http.NewServeMux()
	handler.NewAccountHandler(plans, downloads, emails, logger).
		WithDeliveryDefaults(deliveryDefaults).
		RegisterRoutes(accountMux)
	mux.Handle("/accounts/", middleware.NewRateLimitMiddleware(limiter, middleware.ByAccount, logger).Limit(accountMux))

	handler.NewWebhookHandler(billingService, payments, logger).RegisterRoutes(mux)

	var h http.Handler = mux
	h = metrics.Middleware(h)
	h = middleware.NewRequestLoggingMiddleware(logger).Handler(h)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.StorageProvider == "r2" {
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	}
	return storage.NewLocalStorage(storage.LocalConfig{
		BasePath: cfg.LocalStoragePath,
		BaseURL:  cfg.LocalStorageURL,
	}, logger)
}

// storageHosts lists the hosts artifacts are served from. URL sources are
// only fetched from these.
func storageHosts(cfg *internal.Config) []string {
	var hosts []string
	for _, raw := range []string{cfg.LocalStorageURL, cfg.R2PublicURL} {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	if cfg.R2AccountID != "" {
		hosts = append(hosts, cfg.R2AccountID+".r2.cloudflarestorage.com")
	}
	return hosts
}

// newClaimStore returns the Redis store when REDIS_URL is set and an
// in-process store otherwise.
func newClaimStore(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (idempotency.Store, func(), error) {
	if cfg.RedisURL == "" {
		return idempotency.NewMemoryStore(idempotency.DefaultTTL), func() {}, nil
	}

	redisCfg, err := idempotency.ParseRedisURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client, err := idempotency.Connect(ctx, redisCfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Redis connected", "addr", redisCfg.Addr)
	return idempotency.NewRedisStore(client, idempotency.DefaultTTL), func() { client.Close() }, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
