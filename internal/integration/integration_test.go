package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"wedding-pool-service/internal/accesscode"
	"wedding-pool-service/internal/app"
	"wedding-pool-service/internal/domain"
	pgstore "wedding-pool-service/internal/infra/postgres"
	pgmigrations "wedding-pool-service/internal/infra/postgres/migrations"
	infraredis "wedding-pool-service/internal/infra/redis"
)

func TestSettlementEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(t, ctx, pgURL)
	defer db.Close()

	store := pgstore.NewStore(db)
	events := app.NewEventService(store, accesscode.NewGenerator())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	cache := infraredis.NewTotalsCache(redisClient, pgstore.NewTotalsReader(pool), time.Minute)
	leaderboard := app.NewLeaderboardService(store, cache)

	organizer := domain.Session{UserID: "organizer", Email: "organizer@example.com"}
	alice := domain.Session{UserID: "alice", Email: "alice@example.com"}
	bob := domain.Session{UserID: "bob", Email: "bob@example.com"}

	event, err := events.CreateEvent(ctx, organizer, app.CreateEventInput{
		Title: "Smith Wedding",
		Date:  time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC),
		Categories: []domain.CategorySeed{
			{Title: "Who Will Cry First?", Options: []string{"Bride", "Groom"}, Points: 15},
		},
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	if _, _, already, err := events.JoinByCode(ctx, alice, event.AccessCode); err != nil || already {
		t.Fatalf("alice join: already=%v err=%v", already, err)
	}
	if _, _, already, err := events.JoinByCode(ctx, bob, strings.ToLower(event.AccessCode)); err != nil || already {
		t.Fatalf("bob join: already=%v err=%v", already, err)
	}
	if _, _, already, err := events.JoinByCode(ctx, alice, event.AccessCode); err != nil || !already {
		t.Fatalf("expected idempotent rejoin, already=%v err=%v", already, err)
	}

	detail, err := events.EventDetail(ctx, organizer, event.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	category := detail.Categories[0]

	if _, err := events.PlaceBet(ctx, alice, category.ID, "Bride"); err != nil {
		t.Fatalf("alice bet: %v", err)
	}
	if _, err := events.PlaceBet(ctx, bob, category.ID, "Groom"); err != nil {
		t.Fatalf("bob bet: %v", err)
	}
	// Re-placing overwrites rather than duplicating.
	if _, err := events.PlaceBet(ctx, bob, category.ID, "Bride"); err != nil {
		t.Fatalf("bob re-bet: %v", err)
	}

	if _, err := events.SetCategoryStatus(ctx, organizer, category.ID, domain.CategoryClosed); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := events.PlaceBet(ctx, alice, category.ID, "Groom"); err != domain.ErrCategoryNotOpen {
		t.Fatalf("expected closed gate, got %v", err)
	}

	result, err := events.Settle(ctx, organizer, category.ID, "Bride")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if result.BetsScored != 2 || result.Winners != 2 || result.PointsAwarded != 30 {
		t.Fatalf("unexpected settlement: %+v", result)
	}
	if _, err := events.Settle(ctx, organizer, category.ID, "Groom"); err != domain.ErrCategorySettled {
		t.Fatalf("expected settled on second settle, got %v", err)
	}

	entries, err := leaderboard.ForEvent(ctx, alice, event.ID)
	if err != nil {
		t.Fatalf("event leaderboard: %v", err)
	}
	points := map[string]int{}
	for _, e := range entries {
		points[e.UserID] = e.TotalPoints
	}
	if points["alice"] != 15 || points["bob"] != 15 || points["organizer"] != 0 {
		t.Fatalf("unexpected event standings: %v", points)
	}

	global, err := leaderboard.Global(ctx, alice)
	if err != nil {
		t.Fatalf("global leaderboard: %v", err)
	}
	if global[0].TotalPoints != 15 {
		t.Fatalf("expected 15 points at the top, got %+v", global[0])
	}

	// Totals stayed consistent, so reconcile reports nothing to fix.
	corrected, err := events.ReconcileTotals(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if corrected != 0 {
		t.Fatalf("expected no drift, got %d corrections", corrected)
	}
}

func TestAccessCodeUniqueAcrossEvents(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, cleanup := startPostgres(t, ctx)
	defer cleanup()
	db := openBun(t, ctx, pgURL)
	defer db.Close()

	store := pgstore.NewStore(db)
	organizer := domain.Session{UserID: "organizer"}

	// Same deterministic seed forces the second create onto a taken code and
	// through the retry loop.
	first := app.NewEventService(store, accesscode.NewGeneratorWithSeed(99))
	second := app.NewEventService(store, accesscode.NewGeneratorWithSeed(99))

	a, err := first.CreateEvent(ctx, organizer, app.CreateEventInput{
		Title:      "First",
		Date:       time.Now(),
		Categories: []domain.CategorySeed{{Title: "x", Options: []string{"a"}, Points: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := second.CreateEvent(ctx, organizer, app.CreateEventInput{
		Title:      "Second",
		Date:       time.Now(),
		Categories: []domain.CategorySeed{{Title: "x", Options: []string{"a"}, Points: 1}},
	})
	if err != nil {
		t.Fatalf("create after collision: %v", err)
	}
	if a.AccessCode == b.AccessCode {
		t.Fatalf("expected distinct codes, both %q", a.AccessCode)
	}
}

func openBun(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "pool", "POSTGRES_PASSWORD": "poolpass", "POSTGRES_DB": "pooldb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://pool:poolpass@%s:%s/pooldb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
