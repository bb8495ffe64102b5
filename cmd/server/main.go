package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/richardliu001/org-wallet/internal/access"
	"github.com/richardliu001/org-wallet/internal/config"
	"github.com/richardliu001/org-wallet/internal/eligibility"
	"github.com/richardliu001/org-wallet/internal/logger"
	"github.com/richardliu001/org-wallet/internal/reference"
	"github.com/richardliu001/org-wallet/internal/repo"
	"github.com/richardliu001/org-wallet/internal/service"
	httptransport "github.com/richardliu001/org-wallet/internal/transport/http"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// 1. load config
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. postgres; membership and location tables belong to the platform
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true, TranslateError: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatalf("postgres pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)

	// 4. redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	// 5. repo & service
	repository := repo.NewRepository(gdb, rdb, cfg.Redis.BalanceTTL, log)
	if err := repository.AutoMigrate(); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}
	svc := service.NewWalletService(
		repository,
		access.NewPolicy(access.NewGormDirectory(gdb), log),
		eligibility.NewResolver(gdb, log),
		reference.New(),
		service.Options{BulkItemTimeout: cfg.Wallet.BulkItemTimeout, MaxBulkRecipients: cfg.Wallet.MaxBulkRecipients, Currency: cfg.Wallet.Currency},
		log,
	)

	// 6. gin router
	router := httptransport.NewRouter(svc, cfg, rdb, log)

	// 7. serve
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Infof("org-wallet server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	_ = rdb.Close()
	log.Info("org-wallet server stopped")
}
