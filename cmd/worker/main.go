package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-chat-orders/internal/app"
	"github.com/ariefcatur/go-chat-orders/internal/config"
	kafkax "github.com/ariefcatur/go-chat-orders/internal/kafka"
	"github.com/ariefcatur/go-chat-orders/internal/logger"
	"github.com/ariefcatur/go-chat-orders/internal/worker"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.New(logger.Config{IsDevelopment: cfg.App.IsDevelopment(), Level: cfg.Log.Level})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if !cfg.Kafka.Enabled() {
		log.Fatal("KAFKA_BROKERS is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	svc := &worker.Service{
		Dispatcher:    a.Dispatcher,
		Guard:         a.Guard,
		Out:           a.Producer,
		OutboundTopic: cfg.Kafka.OutboundTopic,
		Log:           log.Named("worker"),
	}
	cons := kafkax.NewConsumer(cfg.Kafka.BrokerList(), cfg.Kafka.GroupID, cfg.Kafka.InboundTopic, cfg.Kafka.Workers, log.Named("consumer"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("consumer started",
			zap.String("group", cfg.Kafka.GroupID),
			zap.String("topic", cfg.Kafka.InboundTopic),
			zap.Int("workers", cfg.Kafka.Workers))
		return cons.Start(gctx, svc.Handle)
	})
	g.Go(func() error { return a.Background(gctx) })

	if err := g.Wait(); err != nil {
		log.Error("consumer stopped", zap.Error(err))
	}
	a.Close()
}
