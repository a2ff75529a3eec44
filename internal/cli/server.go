package cli

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"

	"wedding-pool-service/internal/accesscode"
	"wedding-pool-service/internal/app"
	"wedding-pool-service/internal/config"
	memorystore "wedding-pool-service/internal/infra/memory"
	pgstore "wedding-pool-service/internal/infra/postgres"
	redisinfra "wedding-pool-service/internal/infra/redis"
	"wedding-pool-service/internal/logger"
	"wedding-pool-service/internal/metrics"
	transport "wedding-pool-service/internal/transport/http"
	"wedding-pool-service/internal/workers"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the wedding pool server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New("wedding-pool-service", cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := resolvePort(portFlag, cfg.Server.Port)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	// Write side: bun over Postgres, or the in-memory store for local runs.
	var store app.Store
	var totals app.TotalsSource
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bundb := bun.NewDB(sqldb, pgdialect.New())
		defer bundb.Close()
		store = pgstore.NewStore(bundb)

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		totals = pgstore.NewTotalsReader(pool)
	} else {
		mem := memorystore.NewStore()
		store = mem
		totals = mem
		log.Warn("postgres url not configured, using in-memory store")
	}

	// Read side: cache the global-leaderboard aggregate.
	leaderboardTTL := config.Duration(cfg.Leaderboard.TTL, time.Minute)
	var invalidate func(*http.Request)
	if redisClient != nil {
		cache := redisinfra.NewTotalsCache(redisClient, totals, leaderboardTTL)
		totals = cache
		invalidate = func(r *http.Request) { _ = cache.Invalidate(r.Context()) }
	} else {
		cache := memorystore.NewTotalsCache(totals, leaderboardTTL)
		totals = cache
		invalidate = func(r *http.Request) { _ = cache.Invalidate(r.Context()) }
	}

	events := app.NewEventService(store, accesscode.NewGenerator())
	leaderboard := app.NewLeaderboardService(store, totals)
	handler := transport.NewHandler(events, leaderboard, log).WithTotalsInvalidation(invalidate)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	metricsSrv := metrics.StartServer(cfgMetricsPort(cfg), func(ctx context.Context) error {
		if redisClient != nil {
			return redisClient.Ping(ctx).Err()
		}
		return nil
	})

	reconcile := workers.NewReconcileWorker(events, config.Duration(cfg.Reconcile.Interval, 10*time.Minute), log)
	if err := reconcile.Start(); err != nil {
		return err
	}
	defer reconcile.Stop()

	go func() {
		log.Info("starting wedding pool service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	return server.Shutdown(shutdownCtx)
}

// resolvePort picks the listen port: --port flag (or PORT env via the flag
// default), then the config file's server.port, then 8080.
func resolvePort(flagValue, cfgPort string) string {
	if flagValue != "" {
		return flagValue
	}
	if cfgPort != "" {
		return cfgPort
	}
	return "8080"
}

func cfgMetricsPort(cfg config.Config) string {
	if cfg.Metrics.Port != "" {
		return cfg.Metrics.Port
	}
	return "9090"
}
