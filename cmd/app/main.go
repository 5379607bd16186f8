// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pos-license-platform/internal/config"
	"pos-license-platform/internal/domain/ports/adapter"
	"pos-license-platform/internal/infra/api/apiv1"
	"pos-license-platform/internal/infra/audit"
	pg "pos-license-platform/internal/infra/db/postgres"
	"pos-license-platform/internal/infra/logging"
	"pos-license-platform/internal/infra/metrics"
	red "pos-license-platform/internal/infra/redis"
	"pos-license-platform/internal/infra/scheduler"
	"pos-license-platform/internal/infra/storage"
	"pos-license-platform/internal/usecase"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func reportPoolStats(ctx context.Context, pool *pgxpool.Pool) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := pool.Stat()
			metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
		}
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed checks)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	txm := pg.NewTxManager(pool)
	go reportPoolStats(ctx, pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	merchantRepo := pg.NewMerchantRepo(pool)
	planRepo := red.NewCachedPlanRepository(pg.NewPlanRepo(pool), redisClient, cfg.Redis.TTL)
	deviceRepo := pg.NewDeviceRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	invoiceRepo := pg.NewInvoiceRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	confirmationRepo := pg.NewPaymentConfirmationRepo(pool)
	tokenRepo := pg.NewLicenseTokenRepo(pool)

	// ---- Adapters ----
	evidenceStore, err := storage.NewLocalEvidenceStore(cfg.Evidence.Dir)
	if err != nil {
		log.Fatalf("evidence store: %v", err)
	}
	auditSink := audit.NewLogSink(logger)
	clock := adapter.SystemClock{}

	// ---- Use cases ----
	licenseUC, err := usecase.NewLicenseUseCase(
		merchantRepo, deviceRepo, subRepo, tokenRepo, planRepo, txm, clock, auditSink,
		cfg.License.Issuer, cfg.License.Secret, cfg.License.MaxTokenDays, logger)
	if err != nil {
		log.Fatalf("license use case: %v", err)
	}
	trialUC := usecase.NewTrialUseCase(
		merchantRepo, deviceRepo, subRepo, planRepo, licenseUC, txm, clock, auditSink,
		cfg.Trial.FallbackDays, logger)
	checkoutUC := usecase.NewCheckoutUseCase(
		merchantRepo, planRepo, deviceRepo, subRepo, invoiceRepo, txm, clock, auditSink,
		cfg.Payment, logger)
	paymentUC := usecase.NewPaymentUseCase(
		merchantRepo, planRepo, deviceRepo, subRepo, invoiceRepo, paymentRepo,
		confirmationRepo, licenseUC, evidenceStore, txm, clock, auditSink, logger)
	renewalUC := usecase.NewRenewalUseCase(
		merchantRepo, planRepo, subRepo, invoiceRepo, tokenRepo, txm, clock, auditSink, logger)
	subsUC := usecase.NewSubscriptionUseCase(
		merchantRepo, planRepo, deviceRepo, subRepo, invoiceRepo, tokenRepo, clock, logger)

	// ---- Scheduler ----
	sched := scheduler.NewScheduler(locker, logger)
	for _, job := range scheduler.Jobs(cfg.Scheduler, renewalUC, trialUC, licenseUC) {
		if err := sched.Register(job); err != nil {
			log.Fatalf("scheduler: register %s: %v", job.Name, err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// ---- HTTP ----
	router := chi.NewRouter()
	apiSrv := apiv1.NewServer(licenseUC, trialUC, checkoutUC, paymentUC, renewalUC, subsUC,
		cfg.Server.AdminAPIKey, logger)
	apiv1.RegisterAPIV1(router, apiSrv)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	cancel()
}
