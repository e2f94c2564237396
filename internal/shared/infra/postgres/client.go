package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSchemaMissing is returned by Health when the event_data table does not
// exist yet.
var ErrSchemaMissing = errors.New("event_data table is missing, run the migrate command")

// Client owns the pgx pool shared by the repository and health checks.
type Client struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// PoolConfig sizes the connection pool. Zero values take the defaults.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
	// StatementTimeout caps every statement run through the pool.
	StatementTimeout time.Duration
	// ApplicationName shows up in pg_stat_activity; defaults to "commerce-events".
	ApplicationName string
}

// NewClient connects and pings. It fails when the database is unreachable.
func NewClient(ctx context.Context, databaseURL string, poolCfg PoolConfig, logger *slog.Logger) (*Client, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	if poolCfg.MaxConns > 0 {
		config.MaxConns = poolCfg.MaxConns
	}
	config.MinConns = min(2, config.MaxConns)
	if poolCfg.MinConns > 0 {
		config.MinConns = min(poolCfg.MinConns, config.MaxConns)
	}
	config.MaxConnIdleTime = 30 * time.Minute

	params := config.ConnConfig.RuntimeParams
	params["application_name"] = poolCfg.ApplicationName
	if params["application_name"] == "" {
		params["application_name"] = "commerce-events"
	}
	if poolCfg.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(poolCfg.StatementTimeout.Milliseconds(), 10)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger = logger.With("component", "postgres")
	logger.Info("connected to PostgreSQL",
		"max_conns", config.MaxConns,
		"application_name", params["application_name"],
	)

	return &Client{pool: pool, logger: logger}, nil
}

// Pool returns the underlying connection pool.
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// Close closes the connection pool.
func (c *Client) Close() {
	c.pool.Close()
	c.logger.Info("PostgreSQL connection pool closed")
}

// Health reports whether the database answers and holds the event_data
// table.
func (c *Client) Health(ctx context.Context) error {
	var exists bool
	if err := c.pool.QueryRow(ctx, `SELECT to_regclass('public.event_data') IS NOT NULL`).Scan(&exists); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if !exists {
		return ErrSchemaMissing
	}
	return nil
}
