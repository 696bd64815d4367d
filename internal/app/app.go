// Package app assembles the order desk from configuration. Both binaries
// build on it.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-chat-orders/internal/catalog"
	"github.com/ariefcatur/go-chat-orders/internal/config"
	"github.com/ariefcatur/go-chat-orders/internal/conversation"
	"github.com/ariefcatur/go-chat-orders/internal/dedup"
	"github.com/ariefcatur/go-chat-orders/internal/handler"
	"github.com/ariefcatur/go-chat-orders/internal/intent"
	kafkax "github.com/ariefcatur/go-chat-orders/internal/kafka"
	"github.com/ariefcatur/go-chat-orders/internal/metrics"
	"github.com/ariefcatur/go-chat-orders/internal/orders"
	"github.com/ariefcatur/go-chat-orders/internal/postgres"
	"github.com/ariefcatur/go-chat-orders/internal/redisx"
	"github.com/ariefcatur/go-chat-orders/internal/routing"
	"github.com/ariefcatur/go-chat-orders/internal/transcript"
)

const sweepInterval = time.Minute

type App struct {
	Config     *config.Config
	Log        *zap.Logger
	Catalog    catalog.Store
	Ledger     *orders.Ledger
	Router     *routing.Router
	Dispatcher *routing.Dispatcher
	Guard      dedup.Guard
	Transcript *transcript.Log
	Metrics    *metrics.Registry
	Producer   *kafkax.Producer

	sweepers []func()
	closers  []func()
}

// Build connects every configured backend. On error the backends opened so
// far are closed.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Log: log, Metrics: metrics.NewRegistry()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var repo orders.Repository
	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.Storage.PostgresDSN, cfg.Storage.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if cfg.Storage.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				return nil, err
			}
		}
		a.Catalog = &catalog.PostgresStore{DB: pool}
		repo = &orders.PostgresRepository{DB: pool}
	default:
		a.Catalog = catalog.NewMemoryStore()
		repo = orders.NewMemoryRepository()
	}
	if cfg.Catalog.SeedPath != "" {
		products, err := catalog.LoadSeed(cfg.Catalog.SeedPath)
		if err != nil {
			return nil, err
		}
		if err := catalog.Seed(ctx, a.Catalog, products); err != nil {
			return nil, err
		}
		log.Info("catalog seeded", zap.Int("products", len(products)), zap.String("path", cfg.Catalog.SeedPath))
	}

	var contexts conversation.Store
	if cfg.Redis.Addr != "" {
		rdb := redisx.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		if err := redisx.Ping(ctx, rdb); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		contexts = conversation.NewRedisStore(rdb, cfg.Routing.ContextTTL)
		a.Guard = &dedup.Redis{RDB: rdb}
	} else {
		mem := conversation.NewMemoryStore(cfg.Routing.ContextTTL)
		guard := dedup.NewMemory()
		contexts, a.Guard = mem, guard
		a.sweepers = append(a.sweepers, func() { mem.Sweep() }, func() { guard.Sweep() })
	}

	var pub orders.Publisher = orders.NopPublisher{}
	if cfg.Kafka.Enabled() {
		a.Producer = kafkax.NewProducer(cfg.Kafka.BrokerList(), cfg.Kafka.Buffer, log.Named("kafka"))
		a.Producer.Start(ctx)
		a.closers = append(a.closers, func() {
			a.Producer.Close()
			a.Producer.WaitClosed()
		})
		pub = orders.KafkaPublisher{P: a.Producer}
	}

	var rec routing.Recorder
	if cfg.Transcript.Driver != "none" {
		a.Transcript, err = transcript.Open(ctx, cfg.Transcript.Driver, cfg.Transcript.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = a.Transcript.Close() })
		rec = a.Transcript
	}

	a.Ledger = orders.NewLedger(a.Catalog, repo, pub, log.Named("ledger"), cfg.Orders.EditWindow)
	handlers := routing.Handlers{
		Stock:    handler.Stock{Catalog: a.Catalog},
		Order:    handler.Order{Catalog: a.Catalog, Ledger: a.Ledger, MinQty: cfg.Orders.MinQty},
		Modify:   handler.Modify{Catalog: a.Catalog, Ledger: a.Ledger, MinQty: cfg.Orders.MinQty},
		Advisory: handler.Advisory{Catalog: a.Catalog, LowStockThreshold: cfg.Orders.LowStockThreshold},
		Fallback: handler.Fallback{},
	}
	classifier := intent.WithTimeout(intent.KeywordClassifier{}, cfg.Routing.ClassifierTimeout)
	a.Router = routing.NewRouter(classifier, contexts, handlers, cfg.Routing.Threshold, log.Named("router")).
		WithObserver(a.Metrics)
	a.Dispatcher = routing.NewDispatcher(a.Router, rec)
	return a, nil
}

// Background sweeps expired in-memory state until ctx ends.
func (a *App) Background(ctx context.Context) error {
	if len(a.sweepers) == 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			for _, sweep := range a.sweepers {
				sweep()
			}
			a.Metrics.Inflight.Set(float64(a.Dispatcher.Active()))
		}
	}
}

// Close drains the dispatcher, then closes backends in reverse order.
func (a *App) Close() {
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
