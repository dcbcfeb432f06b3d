// Package infrastructure provides database and connection pool setup.
//
// A single pgxpool backs everything: gorm talks to it through the *sql.DB
// returned by stdlib.OpenDBFromPool, and readiness probes ping the pool.
package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"servicecatalog.io/catalog/internal/config"
	"servicecatalog.io/catalog/internal/model"
	"servicecatalog.io/catalog/internal/pkg/logger"
	"servicecatalog.io/catalog/internal/pkg/observability"
)

// DatabaseClients contains all database-related clients.
// All clients share a single pgxpool connection pool.
//
// Do not create separate sql.Open() and pgxpool.New() handles; that doubles connections.
type DatabaseClients struct {
	// Pool is the shared connection pool.
	Pool *pgxpool.Pool

	// DB is the *sql.DB wrapper around Pool, created via stdlib.OpenDBFromPool.
	DB *sql.DB

	// Gorm is the ORM handle backed by DB.
	Gorm *gorm.DB
}

// NewDatabaseClients creates database clients with a shared connection pool.
func NewDatabaseClients(ctx context.Context, cfg config.DatabaseConfig) (*DatabaseClients, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = time.Minute

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET timezone = 'UTC'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)

	gormDB, err := OpenGorm(db, NewGormLogger(logger.Named("gorm"), slowQueryThreshold))
	if err != nil {
		_ = db.Close()
		pool.Close()
		return nil, err
	}

	logger.Info("Database connection pool created",
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Int32("min_conns", cfg.MinConns),
	)

	return &DatabaseClients{
		Pool: pool,
		DB:   db,
		Gorm: gormDB,
	}, nil
}

// OpenGorm wraps an existing PostgreSQL *sql.DB in a gorm handle.
// Driver errors are translated so gorm.ErrForeignKeyViolated can be matched.
func OpenGorm(db *sql.DB, l gormlogger.Interface) (*gorm.DB, error) {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger:         l,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	if err := observability.RegisterGORMCallbacks(gormDB, observability.NewTracer(nil)); err != nil {
		return nil, fmt.Errorf("register gorm callbacks: %w", err)
	}
	return gormDB, nil
}

// Migrate creates the catalog tables and their foreign-key constraints.
// It is idempotent and only ever adds missing tables, columns and constraints.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto-migrate catalog schema: %w", err)
	}
	return nil
}

// AutoMigrate runs Migrate against the shared pool and logs the outcome.
func (c *DatabaseClients) AutoMigrate(ctx context.Context) error {
	logger.Info("Running catalog schema auto-migration...")
	if err := Migrate(ctx, c.Gorm); err != nil {
		return err
	}
	logger.Info("Catalog schema auto-migration completed")
	return nil
}

// Ping checks that the database is reachable.
func (c *DatabaseClients) Ping(ctx context.Context) error {
	return c.Pool.Ping(ctx)
}

// Close closes all connection pools gracefully.
func (c *DatabaseClients) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
