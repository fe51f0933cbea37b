// Package main runs the registration bridge HTTP server with keep-alive and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/everweb-bridge/backend/config"
	"github.com/everweb-bridge/backend/internal/bootstrap"
	"github.com/everweb-bridge/backend/internal/keepalive"
	"github.com/everweb-bridge/backend/internal/schedules"
	"github.com/everweb-bridge/backend/internal/server"
	"github.com/everweb-bridge/backend/internal/submissions"
	"github.com/everweb-bridge/backend/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap.NewLogger("").Fatal("load config", zap.Error(err))
	}
	logger := bootstrap.NewLogger(cfg.Log.Level)
	defer logger.Sync()
	bootstrap.LogRequired(cfg, logger)

	ctx := context.Background()
	provider := bootstrap.NewProvider(cfg, logger)
	workbook := bootstrap.NewWorkbook(ctx, cfg, logger)
	policy := bootstrap.RetryPolicy(cfg, logger)

	scheduleHandler := schedules.NewHandler(
		schedules.NewService(provider, policy.Named("everwebinar.list"), logger),
		logger,
	)
	submissionHandler := submissions.NewHandler(
		submissions.NewService(workbook, provider, bootstrap.SheetIDs(cfg), policy.Named("everwebinar.register"), logger),
		logger,
	)

	router := server.NewRouter(server.Deps{
		Schedules:          scheduleHandler,
		Submissions:        submissionHandler,
		Assets:             web.Assets(),
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Logger:             logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	pingCtx, pingCancel := context.WithCancel(context.Background())
	defer pingCancel()

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	if cfg.KeepAlive.Enabled {
		pinger := keepalive.NewPinger(cfg.KeepAlive.URL, cfg.KeepAlive.Interval, nil, logger)
		go pinger.Run(pingCtx)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	pingCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
