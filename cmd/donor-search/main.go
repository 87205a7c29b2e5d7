// Command donor-search runs the blood-donor search engine: the round-queue
// worker pool, the request-event consumer (when Kafka is enabled), and the
// ops/intake HTTP API.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/donor-search/internal/config"
	"github.com/tbourn/donor-search/internal/donorcache"
	"github.com/tbourn/donor-search/internal/events"
	httpapi "github.com/tbourn/donor-search/internal/http"
	"github.com/tbourn/donor-search/internal/notify"
	"github.com/tbourn/donor-search/internal/observability"
	"github.com/tbourn/donor-search/internal/repo"
	"github.com/tbourn/donor-search/internal/search"
	"github.com/tbourn/donor-search/internal/sysutil"
	"github.com/tbourn/donor-search/internal/worker"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("donor-search exited")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Error().Err(err).Msg("otel shutdown")
		}
	}()

	// Persistence
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := repo.EnableTracing(db); err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	store := repo.NewStore(db)
	queue := repo.NewRoundQueue(db, cfg.Queue.VisibilityTimeout, cfg.Search.MaxEnqueueDelay, cfg.Search.MaxVisibilityDelay)

	// Donor-location cache
	var cacheStore donorcache.Store
	switch cfg.Cache.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		cacheStore = donorcache.NewRedisStore(rdb, cfg.Redis.Prefix, cfg.Cache.TTL, cfg.Cache.MaxBytes)
	default:
		mem, err := donorcache.NewMemoryStore(cfg.Cache.MaxEntries, cfg.Cache.MaxBytes, cfg.Cache.TTL)
		if err != nil {
			return err
		}
		cacheStore = mem
	}
	donors := donorcache.New(cacheStore, store, cfg.Cache.GeohashLength, cfg.Cache.QueryPageLimit)

	// Notifications
	var sender notify.Sender = notify.LogDispatcher{}
	if cfg.Kafka.Enabled {
		kd := notify.NewKafkaDispatcher(
			notify.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic),
			cfg.Kafka.NotificationsTopic,
			cfg.Notify,
		)
		defer kd.Close()
		sender = kd
	}
	dispatcher := notify.NewDeduplicator(sender, store)

	orch := search.NewOrchestrator(store, donors, queue, dispatcher, cfg.Search)
	initiator := search.NewInitiator(store, queue, cfg.Search)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.NewPool(queue, orch, cfg.Queue).Run(ctx)
	}()

	if cfg.Kafka.Enabled {
		reader := events.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.RequestEventsTopic, cfg.Kafka.GroupID)
		defer reader.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := events.NewConsumer(reader, initiator).Run(ctx); err != nil {
				log.Error().Err(err).Msg("request event consumer failed")
			}
		}()
	}

	// HTTP
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{DB: db, Events: initiator, Queue: queue}, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err = <-errCh:
		log.Error().Err(err).Msg("http server failed")
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(sctx); serr != nil {
		log.Error().Err(serr).Msg("http shutdown")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info().Msg("workers drained")
	case <-time.After(cfg.ShutdownTimeout):
		log.Warn().Dur("timeout", cfg.ShutdownTimeout).Msg("workers still running at shutdown deadline")
	}
	return err
}
