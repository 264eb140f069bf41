// Package postgres provides the PostgreSQL implementation of the repository
// interfaces. Connections go through the pgx driver with GORM layered on top
// for record mapping and transactions.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/keygate/internal/config"
	"github.com/turtacn/keygate/internal/domain/models"
	"github.com/turtacn/keygate/pkg/errors"
	"github.com/turtacn/keygate/pkg/logger"
)

// DBConnection manages the PostgreSQL connection pool lifecycle.
type DBConnection struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	config *config.DatabaseConfig
	logger logger.Logger
}

// NewDBConnection opens the connection pool and performs an initial health
// check. The pgx config is parsed from the DSN so pool parameters from the
// service configuration apply.
func NewDBConnection(ctx context.Context, cfg *config.DatabaseConfig, log logger.Logger) (*DBConnection, *errors.AppError) {
	log = log.WithComponent("postgres")
	log.Info(ctx, "initializing postgresql connection pool",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("database", cfg.Database),
		logger.Int("max_open_conns", cfg.MaxOpenConns),
	)

	connector, err := pgx.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, errors.ErrDatabaseOperation.WithError(err)
	}
	sqlDB := stdlib.OpenDB(*connector)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, errors.ErrDatabaseOperation.WithError(err)
	}

	conn := &DBConnection{db: db, sqlDB: sqlDB, config: cfg, logger: log}

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.ConnTimeout)*time.Second)
	defer cancel()
	if appErr := conn.Ping(pingCtx); appErr != nil {
		_ = sqlDB.Close()
		return nil, appErr
	}

	log.Info(ctx, "postgresql connection pool ready")
	return conn, nil
}

// DB returns the GORM handle used by the repository implementations.
func (c *DBConnection) DB() *gorm.DB {
	return c.db
}

// Ping verifies database connectivity.
func (c *DBConnection) Ping(ctx context.Context) *errors.AppError {
	start := time.Now()
	if err := c.sqlDB.PingContext(ctx); err != nil {
		c.logger.Error(ctx, "database ping failed", err)
		return errors.ErrDatabaseOperation.WithError(err)
	}

	latency := time.Since(start)
	if latency > 100*time.Millisecond {
		c.logger.Warn(ctx, "high database latency",
			logger.Duration("latency", latency),
		)
	}
	return nil
}

// HealthCheck reports pool statistics for the health endpoint.
func (c *DBConnection) HealthCheck(ctx context.Context) (map[string]interface{}, *errors.AppError) {
	if appErr := c.Ping(ctx); appErr != nil {
		return nil, appErr
	}

	stats := c.sqlDB.Stats()
	return map[string]interface{}{
		"status":           "healthy",
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"max_open":         stats.MaxOpenConnections,
		"wait_count":       stats.WaitCount,
		"wait_duration_ms": stats.WaitDuration.Milliseconds(),
	}, nil
}

// Migrate creates or updates the ledger tables.
func (c *DBConnection) Migrate(ctx context.Context) *errors.AppError {
	if err := c.db.WithContext(ctx).AutoMigrate(&models.Service{}, &models.APIKey{}); err != nil {
		return errors.ErrDatabaseOperation.WithError(err)
	}
	return nil
}

// Close shuts down the connection pool. Call during application shutdown.
func (c *DBConnection) Close() error {
	c.logger.Info(context.Background(), "closing postgresql connection pool")
	return c.sqlDB.Close()
}
