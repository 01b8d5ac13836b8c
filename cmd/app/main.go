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

	"edu-entitlement-engine/internal/config"
	"edu-entitlement-engine/internal/domain/model"
	"edu-entitlement-engine/internal/domain/ports/adapter"
	pg "edu-entitlement-engine/internal/infra/db/postgres"
	"edu-entitlement-engine/internal/infra/logging"
	"edu-entitlement-engine/internal/infra/metrics"
	"edu-entitlement-engine/internal/infra/notify"
	pay "edu-entitlement-engine/internal/infra/payment"
	red "edu-entitlement-engine/internal/infra/redis"
	"edu-entitlement-engine/internal/infra/sched"
	"edu-entitlement-engine/internal/infra/web"
	"edu-entitlement-engine/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	limiter := red.NewRateLimiter(redisClient)
	audit := red.NewWebhookAuditRepo(redisClient, cfg.Redis.AuditTTL)

	// ---- Repositories ----
	entitlementRepo := pg.NewEntitlementRepo(pool)
	manualRepo := pg.NewManualRequestRepo(pool)
	attemptRepo := pg.NewGatewayAttemptRepo(pool)
	catalogRepo := pg.NewCatalogRepo(pool)

	// ---- Adapters ----
	cardGW, err := pay.NewCardGateway(cfg.Payment.Card.RedirectBase)
	if err != nil {
		logger.Fatal().Err(err).Msg("card gateway")
	}
	voucherGW, err := pay.NewVoucherGateway(cfg.Payment.Voucher.VoucherWindow)
	if err != nil {
		logger.Fatal().Err(err).Msg("voucher gateway")
	}
	notifier := notify.NewLogNotifier(logger)

	// ---- Use cases ----
	entUC := usecase.NewEntitlementUseCase(entitlementRepo, logger)
	manualUC := usecase.NewManualPaymentUseCase(manualRepo, catalogRepo, entUC, notifier, tm, logger)
	checkoutUC := usecase.NewCheckoutUseCase(attemptRepo, catalogRepo, entUC, []adapter.PaymentGateway{cardGW, voucherGW}, logger)
	reconcileUC := usecase.NewReconcileUseCase(attemptRepo, catalogRepo, audit, entUC, notifier, tm, logger)
	accessUC := usecase.NewAccessUseCase(catalogRepo, entUC)
	historyUC := usecase.NewHistoryUseCase(entitlementRepo, manualRepo, attemptRepo)

	// ---- HTTP server ----
	secrets := web.ProviderSecrets{
		model.ProviderCardGateway:    cfg.Payment.Card.WebhookSecret,
		model.ProviderVoucherGateway: cfg.Payment.Voucher.WebhookSecret,
	}
	srv := web.NewServer(manualUC, checkoutUC, reconcileUC, accessUC, historyUC, secrets, []byte(cfg.Web.ReviewerJWTKey), limiter, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Expiry sweeper ----
	sweeper := sched.NewExpirySweeper(cfg.Sweep.Interval, cfg.Sweep.BatchSize, attemptRepo, entitlementRepo, notifier, logger)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}
