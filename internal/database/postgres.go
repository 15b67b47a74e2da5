package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HammerMeetNail/widgetshare/internal/config"
)

const applicationName = "widgetshare"

// ErrDocumentsTableMissing means the pool is up but migrations have not run.
var ErrDocumentsTableMissing = errors.New("documents table missing; run migrations")

// PostgresDB owns the pool behind the postgres document store.
type PostgresDB struct {
	Pool *pgxpool.Pool
}

var (
	parsePGConfig = pgxpool.ParseConfig
	newPGPool     = pgxpool.NewWithConfig
	pingPGPool    = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
	closePGPool = func(pool *pgxpool.Pool) {
		pool.Close()
	}
	documentsTableExists = func(ctx context.Context, pool *pgxpool.Pool) (bool, error) {
		var ok bool
		err := pool.QueryRow(ctx, `SELECT to_regclass('public.documents') IS NOT NULL`).Scan(&ok)
		return ok, err
	}
)

// NewPostgresDB opens a pool sized from cfg and waits for the first ping.
// Zero-valued limits keep the pgxpool defaults.
func NewPostgresDB(cfg config.DatabaseConfig) (*PostgresDB, error) {
	poolCfg, err := parsePGConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	applyPoolSettings(poolCfg, cfg)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := newPGPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pingPGPool(ctx, pool); err != nil {
		closePGPool(pool)
		return nil, fmt.Errorf("pinging database %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &PostgresDB{Pool: pool}, nil
}

func applyPoolSettings(poolCfg *pgxpool.Config, cfg config.DatabaseConfig) {
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolCfg.HealthCheckPeriod = time.Minute

	if poolCfg.ConnConfig == nil {
		return
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if poolCfg.ConnConfig.RuntimeParams == nil {
		poolCfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
}

func (db *PostgresDB) Close() {
	if db.Pool != nil {
		closePGPool(db.Pool)
	}
}

// Health backs the documents readiness check: the server must answer and
// the documents table must exist.
func (db *PostgresDB) Health(ctx context.Context) error {
	if err := pingPGPool(ctx, db.Pool); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	ok, err := documentsTableExists(ctx, db.Pool)
	if err != nil {
		return fmt.Errorf("checking documents table: %w", err)
	}
	if !ok {
		return ErrDocumentsTableMissing
	}
	return nil
}
