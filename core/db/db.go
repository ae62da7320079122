package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB wraps a pgxpool.Pool and the gorm handle layered on top of it.
// It serves as the main entry point for database operations.
type DB struct {
	pool  *pgxpool.Pool
	sqlDB *sql.DB
	orm   *gorm.DB
}

type Config struct {
	DSN string

	// With PgBouncer, this can be relatively low per replica.
	MaxConns int32

	MinConns int32
}

// New creates a new DB instance with the given configuration.
func New(ctx context.Context, cfg Config) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	} else {
		poolCfg.MaxConns = 10
	}

	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	orm, err := Open(sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return nil, err
	}

	return &DB{pool: pool, sqlDB: sqlDB, orm: orm}, nil
}

// Open layers gorm over an existing *sql.DB. Tests use it with sqlmock.
func Open(conn *sql.DB) (*gorm.DB, error) {
	orm, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 conn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 NewLogger(200 * time.Millisecond),
		NowFunc:                func() time.Time { return time.Now().UTC() },
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening gorm: %w", err)
	}
	return orm, nil
}

func (db *DB) Close() {
	_ = db.sqlDB.Close()
	db.pool.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// ORM returns a context-bound gorm handle for non-transactional operations.
func (db *DB) ORM(ctx context.Context) *gorm.DB {
	return db.orm.WithContext(ctx)
}

// WithTx executes the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
//
// Usage:
//
//	err := db.WithTx(ctx, func(tx *gorm.DB) error {
//	    if err := tx.Create(&snapshot).Error; err != nil { return err }
//	    return tx.Create(&eventLog).Error
//	})
func (db *DB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return WithTx(ctx, db.orm, fn)
}

// WithTx runs fn inside a transaction opened on orm.
func WithTx(ctx context.Context, orm *gorm.DB, fn func(tx *gorm.DB) error) error {
	tx := orm.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("beginning transaction: %w", tx.Error)
	}

	// Rollback after commit is a no-op
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
