package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gebeya-labs/wallet-backend/internal/api"
	"github.com/gebeya-labs/wallet-backend/internal/auth"
	"github.com/gebeya-labs/wallet-backend/internal/cache"
	"github.com/gebeya-labs/wallet-backend/internal/chapa"
	"github.com/gebeya-labs/wallet-backend/internal/config"
	"github.com/gebeya-labs/wallet-backend/internal/db"
	"github.com/gebeya-labs/wallet-backend/internal/logger"
	"github.com/gebeya-labs/wallet-backend/internal/metrics"
	"github.com/gebeya-labs/wallet-backend/internal/repository/postgres"
	"github.com/gebeya-labs/wallet-backend/internal/services"
	"github.com/gebeya-labs/wallet-backend/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	locks := cache.New(cfg.RedisAddr, cfg.RedisPass)
	if locks != nil {
		if err := locks.Ping(ctx); err != nil {
			log.Warn("redis unavailable, verify lock disabled", "err", err)
		}
		defer locks.Close()
	}

	repos := postgres.NewRepositories(pool)
	gateway := chapa.NewClient(cfg.ChapaBaseURL, cfg.ChapaSecretKey, cfg.ChapaPublicKey)
	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)

	userSvc := services.NewUserService(repos.Users, tm)
	walletSvc := services.NewWalletService(repos.Wallets, repos.Transactions)
	depositSvc := services.NewDepositService(
		repos.Transactions, repos.Wallets, repos.Ledger,
		repos.FailedTransactions, repos.AuditLogs,
		gateway, locks,
		services.DepositConfig{
			AppBaseURL:      cfg.AppBaseURL,
			StalePendingAge: cfg.StalePendingAge,
			SweepBatchSize:  cfg.SweepBatchSize,
		},
	)
	withdrawalSvc := services.NewWithdrawalService(repos.Withdrawals, repos.Transactions, repos.Ledger, repos.AuditLogs)

	metrics.Init()

	wp := worker.NewPool(cfg.WorkerPoolSize)
	defer wp.Stop()

	// Background sweep: re-verify pending deposits whose user never came
	// back from the payment page.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				wp.Submit(func() {
					n, err := depositSvc.SweepStalePending(context.Background())
					if err != nil {
						log.Error("sweep stale pending", "err", err)
						return
					}
					if n > 0 {
						log.Info("sweep stale pending", "handled", n)
					}
				})
			}
		}
	}()

	r := api.NewRouter(api.RouterDeps{
		Cfg:           cfg,
		TokenManager:  tm,
		UserSvc:       userSvc,
		WalletSvc:     walletSvc,
		DepositSvc:    depositSvc,
		WithdrawalSvc: withdrawalSvc,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
