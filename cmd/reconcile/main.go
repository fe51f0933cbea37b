// Package main runs one reconcile pass: every audited submission whose email
// is in the purchase records is registered with the webinar provider.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/everweb-bridge/backend/config"
	"github.com/everweb-bridge/backend/internal/bootstrap"
	"github.com/everweb-bridge/backend/internal/reconcile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap.NewLogger("").Fatal("load config", zap.Error(err))
	}
	logger := bootstrap.NewLogger(cfg.Log.Level)
	defer logger.Sync()
	if missing := bootstrap.LogRequired(cfg, logger); len(missing) > 0 {
		logger.Fatal("reconcile needs every credential", zap.Strings("missing", missing))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy := bootstrap.RetryPolicy(cfg, logger).Named("reconcile")
	r := reconcile.NewReconciler(
		bootstrap.NewWorkbook(ctx, cfg, logger),
		bootstrap.NewProvider(cfg, logger),
		bootstrap.SheetIDs(cfg),
		policy,
		logger,
	)

	sum, err := r.Run(ctx)
	if err != nil {
		logger.Error("reconcile failed", zap.Error(err), zap.Any("summary", sum))
		os.Exit(1)
	}
	if sum.Failed > 0 {
		os.Exit(2)
	}
}
