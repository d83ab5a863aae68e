package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/face-login/internal/config"
	"github.com/kozaktomas/face-login/internal/database"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	connMaxLifetime = time.Hour
	connMaxIdleTime = 10 * time.Minute
	pingTimeout     = 10 * time.Second
)

// Pool wraps the PostgreSQL connection pool shared by the repositories.
type Pool struct {
	db     *sql.DB
	logger *zap.Logger
}

var (
	globalPool *Pool
	poolMu     sync.RWMutex
)

// NewPool opens the database described by cfg and verifies it is reachable.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*Pool, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to postgres",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)
	return &Pool{db: db, logger: logger}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("closing database connection: %w", err)
	}
	return nil
}

// QueryRow executes a query that returns a single row.
func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return rows, nil
}

// Exec executes a statement that returns no rows.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	return result, nil
}

func setGlobalPool(p *Pool) {
	poolMu.Lock()
	defer poolMu.Unlock()
	globalPool = p
}

// GetGlobalPool returns the pool opened by Initialize, or nil.
func GetGlobalPool() *Pool {
	poolMu.RLock()
	defer poolMu.RUnlock()
	return globalPool
}

// Initialize connects, applies pending migrations and installs PostgreSQL
// as the active storage backend.
func Initialize(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) error {
	pool, err := NewPool(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	setGlobalPool(pool)
	Register(pool)
	return nil
}

// Register installs repositories backed by pool as the active database backend.
func Register(pool *Pool) {
	fps := NewFingerprintRepository(pool)
	msgs := NewMessageRepository(pool)
	database.RegisterBackend("postgres",
		func() database.FingerprintStore { return fps },
		func() database.MessageStore { return msgs },
	)
}
