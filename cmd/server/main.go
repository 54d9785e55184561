package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	identityhandler "pitchside/internal/identity/handler"
	identityservice "pitchside/internal/identity/service"
	identitystore "pitchside/internal/identity/store"
	"pitchside/internal/live"
	"pitchside/internal/platform/config"
	"pitchside/internal/platform/httpserver"
	"pitchside/internal/platform/logger"
	"pitchside/internal/platform/metrics"
	"pitchside/internal/platform/middleware"
	platformredis "pitchside/internal/platform/redis"
	"pitchside/internal/platform/stream"
	"pitchside/internal/storage"
	"pitchside/internal/token"
	"pitchside/internal/tournament/cache"
	tournamenthandler "pitchside/internal/tournament/handler"
	tournamentservice "pitchside/internal/tournament/service"
	tournamentstore "pitchside/internal/tournament/store"
	"pitchside/internal/transport"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	m := metrics.NewDefault()

	tokens, err := token.NewService(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)
	if err != nil {
		return err
	}

	var (
		userStore  identitystore.UserStore
		matchStore tournamentstore.Store
		health     transport.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := applySchema(ctx, pool); err != nil {
			return err
		}
		userStore = identitystore.NewPostgresUserStore(pool)
		matchStore = tournamentstore.NewPostgresStore(pool)
		health = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		userStore = identitystore.NewInMemoryUserStore()
		matchStore = tournamentstore.NewInMemoryStore()
		health = func() error { return nil }
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var snapshots *cache.SnapshotCache
	if redisClient != nil {
		defer redisClient.Close()
		snapshots = cache.NewSnapshotCache(redisClient.Client, log)
	} else {
		snapshots = cache.NewSnapshotCache(nil, log)
	}

	registry := live.NewRegistry(log, live.WithConnectionGauge(m.LiveConnections))

	dispatcherOpts := []live.DispatcherOption{
		live.WithDispatcherMetrics(m.EventsEmitted, m.EventsDropped),
	}
	sink, err := stream.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaEventTopic, log)
	if err != nil {
		return err
	}
	if sink != nil {
		dispatcherOpts = append(dispatcherOpts, live.WithEventSink(sink))
	}
	dispatcher := live.NewDispatcher(registry, log, dispatcherOpts...)

	retryOpts := append(
		storage.FromConfig(cfg.Retry),
		storage.WithLogger(log),
		storage.WithRetryCounter(m.StorageRetries),
	)

	identities := identityservice.New(userStore, tokens, log, retryOpts...)
	tournaments := tournamentservice.New(matchStore, snapshots, dispatcher, log, retryOpts...)

	requireAuth := middleware.RequireAuth(tokens, identities, log)
	optionalAuth := middleware.OptionalAuth(tokens, identities, log)

	router := transport.NewRouter(log,
		live.NewHandler(registry, optionalAuth, log),
		health,
		identityhandler.New(identities, requireAuth, log),
		tournamenthandler.New(tournaments, requireAuth, log),
	)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		registry.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if sink != nil {
			if err := sink.Close(shutdownCtx); err != nil {
				log.Warn("event sink close failed", "error", err.Error())
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range []string{identitystore.Schema, tournamentstore.Schema} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}
