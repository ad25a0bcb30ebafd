package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/bizledger/cmd/bizctl/cli"
	"github.com/odyssey-erp/bizledger/internal/app"
	jobmetrics "github.com/odyssey-erp/bizledger/internal/jobs"
	"github.com/odyssey-erp/bizledger/internal/platform/db"
	"github.com/odyssey-erp/bizledger/jobs"
	"github.com/odyssey-erp/bizledger/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(bootstrap)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bizctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func bootstrap(ctx context.Context) (*cli.Runtime, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg).With(slog.String("component", "bizctl"))

	pool, err := db.New(ctx, cfg.PGDSN, 4)
	if err != nil {
		return nil, nil, err
	}
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	queue, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, nil, err
	}

	services := app.NewServices(cfg, pool, redisClient, nil, logger)
	release := func() {
		_ = queue.Close()
		_ = redisClient.Close()
		pool.Close()
	}
	return &cli.Runtime{
		Location:  cfg.Location(),
		Numbers:   services.Sequences,
		Ledger:    services.Ledger,
		Integrity: jobs.NewBalanceIntegrityJob(services.Invoices, logger, jobmetrics.NewMetrics(nil)),
		Queue:     queue,
		Migrate: func(ctx context.Context) ([]string, error) {
			return migrations.Apply(ctx, pool, logger)
		},
	}, release, nil
}
