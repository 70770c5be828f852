package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"github.com/upb/coffee-shop/config"
)

// DB wraps the sql.DB connection pool together with its driver
type DB struct {
	*sql.DB
	driver Driver
	logger *zap.Logger
}

// NewDB opens and verifies a connection pool for the configured database
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()
	driver := DetectDriver(dsn)
	if driver == SQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	switch driver {
	case SQLite:
		// a single writer avoids SQLITE_BUSY and keeps :memory: databases shared
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	default:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("driver", string(driver)),
		zap.String("connection", cfg.LogString()))

	return Wrap(db, driver, logger), nil
}

// Wrap adopts an already opened pool
func Wrap(db *sql.DB, driver Driver, logger *zap.Logger) *DB {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DB{DB: db, driver: driver, logger: logger}
}

// Driver returns the driver the pool was opened with
func (db *DB) Driver() Driver {
	return db.driver
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS drinks (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(80) NOT NULL UNIQUE,
		recipe TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS drinks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title VARCHAR(80) NOT NULL UNIQUE,
		recipe TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

// InitSchema creates the drinks table if it does not exist
func (db *DB) InitSchema(ctx context.Context) error {
	schema := postgresSchema
	if db.driver == SQLite {
		schema = sqliteSchema
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized", zap.String("driver", string(db.driver)))
	return nil
}

// ResetSchema drops the drinks table and recreates it empty
func (db *DB) ResetSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS drinks`); err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	db.logger.Warn("drinks table dropped")
	return db.InitSchema(ctx)
}
