package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	pkgcache "github.com/kumbhanChoksi/Signals-Backend/pkg/cache"
	pkgch "github.com/kumbhanChoksi/Signals-Backend/pkg/clickhouse"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/config"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/database"
	xhttp "github.com/kumbhanChoksi/Signals-Backend/pkg/http"
	pkgkafka "github.com/kumbhanChoksi/Signals-Backend/pkg/kafka"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/queue"

	"github.com/redis/go-redis/v9"
)

// Components are the long-lived resources the App starts and closes.
// Optional ones are nil when the role or config does not use them.
type Components struct {
	DB         *database.Client
	Redis      *redis.Client
	Cache      pkgcache.Service
	Queue      *queue.RedisQueue
	Producer   *pkgkafka.Producer
	Consumer   *pkgkafka.Consumer
	ClickHouse *pkgch.Client
	HTTP       *xhttp.Server
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	l   *logger.Logger
	c   Components
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *logger.Logger, c Components) *App {
	return &App{cfg: cfg, l: l, c: c}
}

// Start brings up queue workers, the Kafka consumer and the HTTP server in
// that order, so the API never accepts work nothing can drain.
func (a *App) Start() error {
	if a.cfg.RunsWorker() && a.c.Queue != nil {
		if err := a.c.Queue.Start(); err != nil {
			return fmt.Errorf("start queue: %w", err)
		}
	}

	if a.c.Consumer != nil {
		if err := a.c.Consumer.Start(); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
		a.l.Info("kafka consumer started")
	}

	if a.c.HTTP != nil {
		if err := a.c.HTTP.Start(); err != nil {
			return fmt.Errorf("start http server: %w", err)
		}
	}

	a.l.Info("application started",
		logger.String("role", a.cfg.App.Role),
		logger.String("environment", a.cfg.Environment))
	return nil
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(); err != nil {
		a.l.Error("startup failed", logger.Error(err))
		_ = a.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Shutdown stops everything in reverse start order within the configured
// shutdown timeout. Jobs interrupted mid-run stay RUNNING and are reclaimed
// by a later delivery once the claim timeout passes.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	step := func(name string, fn func() error) {
		if err := fn(); err != nil {
			a.l.Warn(name+" shutdown error", logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if a.c.HTTP != nil {
		step("http", func() error { return a.c.HTTP.Stop(ctx) })
	}
	if a.c.Queue != nil {
		step("queue", func() error { return a.c.Queue.Stop(ctx) })
	}
	if a.c.Consumer != nil {
		step("kafka consumer", func() error { return a.c.Consumer.Stop(ctx) })
	}
	a.l.RemoveCollector()
	if a.c.Producer != nil {
		step("kafka producer", a.c.Producer.Close)
	}
	if a.c.ClickHouse != nil {
		step("clickhouse", a.c.ClickHouse.Close)
	}
	if closer, ok := a.c.Cache.(io.Closer); ok {
		step("cache", closer.Close)
	}
	if a.c.Redis != nil {
		step("redis", a.c.Redis.Close)
	}
	if a.c.DB != nil {
		step("database", a.c.DB.Close)
	}

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}
