package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/marwanAmeen/beeline-server/internal/core/gateway"
	"github.com/marwanAmeen/beeline-server/internal/core/ports"
	"github.com/marwanAmeen/beeline-server/internal/core/promotion"
	"github.com/marwanAmeen/beeline-server/internal/core/routepass"
	"github.com/marwanAmeen/beeline-server/internal/core/workflows"
	"github.com/marwanAmeen/beeline-server/internal/platform/authz"
	"github.com/marwanAmeen/beeline-server/internal/platform/config"
	"github.com/marwanAmeen/beeline-server/internal/platform/lock"
	"github.com/marwanAmeen/beeline-server/internal/platform/logging"
	"github.com/marwanAmeen/beeline-server/internal/platform/outbox"
	"github.com/marwanAmeen/beeline-server/internal/platform/reconcile"
	"github.com/marwanAmeen/beeline-server/internal/repositories/pgsql"
)

// engine groups the workflow constructors and the gateway handle this
// process exposes as its programmatic API. There is no HTTP surface here
// (routing/auth are out of scope); a caller embeds this process as a
// library or drives it over whatever transport sits in front of it.
// SellTicket/PurchaseRoutePass charge the gateway and record the outcome
// themselves once their booking transaction has committed; a caller only
// needs the returned Transaction and undo function to unwind a later
// failure.
type engine struct {
	Sale       *workflows.SaleWorkflow
	RoutePass  *workflows.RoutePassPurchaseWorkflow
	Refund     *workflows.RefundWorkflow
	CancelSale *workflows.CancelSaleWorkflow
	Gateway    gateway.Gateway
	Reporting  ports.ReportingRepository
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	ctx := logging.WithLogger(context.Background(), logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	pool, err := newPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to initialize database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connection pool established")

	if err := runMigrations(logger, cfg.DatabaseURL); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	redisClient := lock.NewClient(cfg.RedisAddr)
	defer redisClient.Close()

	publisher, err := outbox.NewSaramaPublisher(cfg.KafkaBrokers)
	if err != nil {
		logger.Error("failed to initialize kafka publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	outboxRepo := outbox.NewRepository(pool)
	reconciler := reconcile.New(outboxRepo, publisher, cfg.ReconcileInterval, cfg.ReconcileBatchSize, cfg.OutboxMaxRetries)
	reconcilerCtx, stopReconciler := context.WithCancel(ctx)
	go reconciler.Run(reconcilerCtx)
	defer stopReconciler()

	eng := buildEngine(cfg, pool, redisClient)
	_ = eng // constructed here as this process's API surface; a transport layer outside this module drives it.

	logger.Info("ledger engine ready", "port", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	reconciler.Stop()
}

func buildEngine(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client) *engine {
	repos := pgsql.NewRepositoryProvider(pool)

	idempotencyCache := lock.NewIdempotencyCache(redisClient, cfg.LockTTL)
	httpGateway := gateway.NewHTTPAdapter(gateway.HTTPConfig{
		BaseURL:             cfg.StripeBaseURL,
		APIKey:              cfg.StripeAPIKey,
		ClientMerchantID:    cfg.ClientMerchantID,
		SandboxMerchantID:   cfg.SandboxMerchantID,
		StripeIsLive:        cfg.StripeMode == config.StripeModeLive,
		MinChargeCents:      cfg.GatewayMinChargeCents,
		MicroThresholdCents: cfg.GatewayMicroThresholdCents,
	})
	gw := lock.NewCachingGateway(httpGateway, idempotencyCache)

	promo := promotion.New(authz.NewNoPromoEngine())
	pass := routepass.New()
	auth := authz.New()

	redisLocker := lock.NewRedisLocker(redisClient, cfg.LockTTL)
	outboxWriter := outbox.NewRepository(pool)
	live := cfg.StripeMode == config.StripeModeLive

	return &engine{
		Sale:       workflows.NewSaleWorkflow(repos, promo, pass, cfg.GatewayMinChargeCents, gw, redisLocker, outboxWriter, cfg.TestIdempotency, live),
		RoutePass:  workflows.NewRoutePassPurchaseWorkflow(repos, promo, gw, redisLocker, outboxWriter, cfg.TestIdempotency, live),
		Refund:     workflows.NewRefundWorkflow(repos, auth, gw, cfg.TestIdempotency, redisLocker, outboxWriter),
		CancelSale: workflows.NewCancelSaleWorkflow(repos),
		Gateway:    gw,
		Reporting:  repos.Reporting,
	}
}

func newPgxPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func runMigrations(logger *slog.Logger, databaseURL string) error {
	logger.Info("running database migrations")

	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer migrationDB.Close()

	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	logger.Info("database migrations applied")
	return nil
}
