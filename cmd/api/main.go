package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-chat-orders/internal/app"
	"github.com/ariefcatur/go-chat-orders/internal/config"
	"github.com/ariefcatur/go-chat-orders/internal/httpx"
	"github.com/ariefcatur/go-chat-orders/internal/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.New(logger.Config{IsDevelopment: cfg.App.IsDevelopment(), Level: cfg.Log.Level})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	deps := httpx.Deps{
		Dispatcher:        a.Dispatcher,
		Guard:             a.Guard,
		Catalog:           a.Catalog,
		Ledger:            a.Ledger,
		Metrics:           a.Metrics,
		Log:               log.Named("http"),
		CORSOrigins:       strings.Split(cfg.Server.CORSOrigins, ","),
		LowStockThreshold: cfg.Orders.LowStockThreshold,
	}
	if a.Transcript != nil {
		deps.Transcript = a.Transcript
	}
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      httpx.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", zap.String("addr", cfg.Server.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return a.Background(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", zap.Error(err))
	}
	a.Close()
}
