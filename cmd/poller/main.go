package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/richardliu001/org-wallet/internal/config"
	"github.com/richardliu001/org-wallet/internal/logger"
	"github.com/richardliu001/org-wallet/internal/relay"
	"github.com/richardliu001/org-wallet/internal/repo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/segmentio/kafka-go"
)

func main() {
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true, TranslateError: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	kw := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	defer kw.Close()

	// the relay never touches the balance cache
	repository := repo.NewRepository(gdb, nil, cfg.Redis.BalanceTTL, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := relay.New(repository, kw, cfg.Poller.Interval, cfg.Poller.BatchSize, log)
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("relay: %v", err)
	}
}
