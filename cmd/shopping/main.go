package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/shopping/internal/cart"
	"github.com/fjod/go_cart/shopping/internal/catalog"
	"github.com/fjod/go_cart/shopping/internal/config"
	"github.com/fjod/go_cart/shopping/internal/health"
	h "github.com/fjod/go_cart/shopping/internal/http"
	"github.com/fjod/go_cart/shopping/internal/notify"
	"github.com/fjod/go_cart/shopping/internal/poller"
	"github.com/fjod/go_cart/shopping/internal/storage"
	"github.com/fjod/go_cart/shopping/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.LoadEnv()

	zl, err := logger.New(logger.Config{
		Development:       cfg.IsDevelopment(),
		Level:             cfg.Logger.Level,
		Encoding:          cfg.Logger.Encoding,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("shopping service failed", zap.Error(err))
	}
	zl.Info("shopping service stopped")
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	adapter, closeStorage, err := openStorage(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer closeStorage()

	if cfg.Storage.Backend != config.StorageMemory {
		adapter = storage.WithBreaker(adapter, storage.BreakerConfig{
			Name:             cfg.Storage.Backend,
			FailureThreshold: uint32(cfg.Storage.BreakerFailureThreshold),
			OpenTimeout:      cfg.Storage.BreakerOpenTimeout,
			HalfOpenRequests: 1,
		}, zl)
	}

	products := catalog.New(adapter, zl)
	if cfg.Catalog.SeedPath != "" {
		seed, err := catalog.LoadFile(cfg.Catalog.SeedPath)
		if err != nil {
			return err
		}
		if err := products.Seed(ctx, seed); err != nil {
			return err
		}
		zl.Info("catalog seeded", zap.Int("products", len(seed)), zap.String("path", cfg.Catalog.SeedPath))
	}

	sinks := []notify.Sink{notify.NewLogSink(zl)}
	if cfg.Kafka.Enabled() {
		kafkaSink := notify.NewKafkaSink(zl, cfg.Kafka.NotificationTopic, cfg.Kafka.Brokers...)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	carts := cart.NewRegistry(adapter, notify.Multi(sinks...), zl,
		cart.WithIdleTimeout(idleTimeout(cfg)),
	)

	router := h.NewRouter(h.RouterConfig{
		Carts:          h.NewCartHandler(carts, products, zl, cfg.Server.RequestTimeout),
		Products:       h.NewProductHandler(products, zl, cfg.Server.RequestTimeout),
		Health:         func(ctx context.Context) error { return storage.Ping(ctx, adapter) },
		Logger:         zl,
		RequestTimeout: cfg.Server.RequestTimeout,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	healthSrv := health.NewServer(func(ctx context.Context) error {
		return storage.Ping(ctx, adapter)
	}, cfg.Server.HealthInterval, zl)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zl.Info("http server listening", zap.String("port", cfg.Server.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return healthSrv.Serve(cfg.Server.GRPCPort)
	})

	g.Go(func() error {
		healthSrv.Watch(ctx)
		return nil
	})

	g.Go(func() error {
		carts.Run(ctx, cfg.Cart.EvictInterval)
		return nil
	})

	if cfg.Kafka.Enabled() {
		p := poller.NewPoller(carts, zl, cfg.Kafka.CheckoutTopic, cfg.Kafka.CheckoutGroupID, cfg.Kafka.Brokers...)
		g.Go(func() error {
			defer p.Close()
			p.Run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		zl.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		healthSrv.Stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// idleTimeout keeps an in-memory cart from outliving its expiring redis copy.
func idleTimeout(cfg *config.Config) time.Duration {
	idle := cfg.Cart.IdleTimeout
	if cfg.Storage.Backend == config.StorageRedis && cfg.Redis.TTL > 0 && cfg.Redis.TTL < idle {
		return cfg.Redis.TTL
	}
	return idle
}

// openStorage connects the configured backend. The returned func releases it.
func openStorage(ctx context.Context, cfg *config.Config, zl *zap.Logger) (storage.Adapter, func(), error) {
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		zl.Info("using in-memory storage")
		return storage.NewMemoryStore(), func() {}, nil

	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		zl.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
		store := storage.NewRedisStore(client,
			storage.WithKeyPrefix(cfg.Redis.KeyPrefix),
			storage.WithTTL(cfg.Redis.TTL),
		)
		return store, func() { client.Close() }, nil

	case config.StorageSQLite, config.StoragePostgres:
		driver, dsn := storage.DriverSQLite, cfg.SQLite.Path
		if cfg.Storage.Backend == config.StoragePostgres {
			driver, dsn = storage.DriverPostgres, cfg.Postgres.DSN
		}
		store, err := storage.NewSQLStore(driver, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := store.RunMigrations(); err != nil {
			store.Close()
			return nil, nil, err
		}
		zl.Info("connected to sql storage", zap.String("driver", driver))
		return store, func() { store.Close() }, nil

	case config.StorageMongo:
		db, err := storage.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, err
		}
		zl.Info("connected to mongodb", zap.String("database", cfg.Mongo.Database))
		store := storage.NewMongoStore(db)
		return store, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			store.Disconnect(ctx)
		}, nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
