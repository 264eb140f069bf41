package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	appservice "github.com/turtacn/keygate/internal/application/service"
	"github.com/turtacn/keygate/internal/config"
	domainsvc "github.com/turtacn/keygate/internal/domain/service"
	"github.com/turtacn/keygate/internal/infrastructure/audit"
	"github.com/turtacn/keygate/internal/infrastructure/monitoring"
	"github.com/turtacn/keygate/internal/infrastructure/persistence/postgres"
	redisinfra "github.com/turtacn/keygate/internal/infrastructure/persistence/redis"
	httpiface "github.com/turtacn/keygate/internal/interfaces/http"
	"github.com/turtacn/keygate/internal/interfaces/http/handlers"
	"github.com/turtacn/keygate/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "directory containing config.yaml")
	flag.Parse()

	ctx := context.Background()

	// The plain JSON logger carries startup until the configured zap logger
	// replaces it as the global instance.
	startupLogger := logger.NewDefaultLogger()

	cfg, err := config.LoadConfig(*configPath, startupLogger)
	if err != nil {
		startupLogger.Fatal(ctx, "failed to load config", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		startupLogger.Fatal(ctx, "failed to create logger", err)
	}
	logger.SetGlobalLogger(appLogger)

	tracing, err := monitoring.NewTracingManager(&cfg.Tracing, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to initialize tracing", err)
	}

	db, appErr := postgres.NewDBConnection(ctx, &cfg.Database, appLogger)
	if appErr != nil {
		appLogger.Fatal(ctx, "failed to connect to database", appErr)
	}
	defer db.Close()

	if appErr := db.Migrate(ctx); appErr != nil {
		appLogger.Fatal(ctx, "failed to run migrations", appErr)
	}

	cache, redisConn := buildCache(ctx, cfg, appLogger)
	if redisConn != nil {
		defer redisConn.Close()
	}

	auditSvc := buildAudit(cfg, appLogger)
	defer auditSvc.Close()

	metrics := monitoring.NewDefaultMetrics()
	clock := domainsvc.NewSystemClock()

	uow := postgres.NewUnitOfWork(db.DB())
	serviceRepo := postgres.NewServiceRepository(db.DB())
	keyRepo := postgres.NewKeyRepository(db.DB())

	registry := appservice.NewRegistryAppService(uow, serviceRepo, cache, auditSvc, clock, appLogger)
	ledger := appservice.NewLedgerAppService(uow, keyRepo, cache, auditSvc, clock, appLogger)

	checkers := map[string]handlers.HealthChecker{
		"postgres": handlers.HealthCheckerFunc(func(ctx context.Context) (map[string]interface{}, error) {
			info, appErr := db.HealthCheck(ctx)
			if appErr != nil {
				return nil, appErr
			}
			return info, nil
		}),
	}
	if redisConn != nil {
		checkers["redis"] = redisConn
	}

	router := httpiface.NewRouter(
		cfg,
		appLogger,
		handlers.NewServiceHandler(registry),
		handlers.NewKeyHandler(ledger, metrics),
		handlers.NewHealthHandler(checkers),
		tracing.Tracer(),
		metrics,
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return router.Start()
	})

	group.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			appLogger.Info(groupCtx, "shutdown signal received", logger.String("signal", sig.String()))
		case <-groupCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()

		if err := router.Stop(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "http server shutdown failed", err)
		}
		return tracing.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		appLogger.Fatal(ctx, "server exited with error", err)
	}
	appLogger.Info(ctx, "server stopped")
}

func buildCache(ctx context.Context, cfg *config.Config, log logger.Logger) (domainsvc.RecordCache, *redisinfra.Connection) {
	if !cfg.Redis.Enabled() {
		log.Info(ctx, "redis not configured, using in-process cache only")
		return redisinfra.NewRecordCache(nil, cfg.Cache.TTLDuration(), cfg.Cache.LocalTTLDuration(), log), nil
	}

	conn, appErr := redisinfra.NewConnection(ctx, &cfg.Redis, log)
	if appErr != nil {
		log.Fatal(ctx, "failed to connect to redis", appErr)
	}
	return redisinfra.NewRecordCache(conn.Client(), cfg.Cache.TTLDuration(), cfg.Cache.LocalTTLDuration(), log), conn
}

func buildAudit(cfg *config.Config, log logger.Logger) domainsvc.AuditService {
	if cfg.Kafka.Enabled() {
		return audit.NewKafkaProducer(&cfg.Kafka, log)
	}
	return audit.NewLogOnlyAudit(log)
}
