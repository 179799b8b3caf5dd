package storage

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS %s (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Querier is the part of *pgxpool.Pool the store uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Postgres keeps values in a JSONB column.
type Postgres struct {
	q     Querier
	table string
	close func()
}

// NewPostgres wraps an existing connection. The caller owns q.
func NewPostgres(q Querier, table string) *Postgres {
	return &Postgres{q: q, table: table, close: func() {}}
}

// OpenPostgres connects to dsn, pings and creates the table if missing.
func OpenPostgres(ctx context.Context, dsn, table string) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse database DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping database: %w", err)
	}

	s := &Postgres{q: pool, table: table, close: pool.Close}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// EnsureSchema creates the table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, fmt.Sprintf(postgresSchema, s.table)); err != nil {
		return fmt.Errorf("storage: apply postgres schema: %w", err)
	}

	return nil
}

func (s *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := psql.Select("value").From(s.table).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("storage: build get: %w", err)
	}

	var value []byte
	if err := s.q.QueryRow(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(key)
		}

		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}

	return value, nil
}

func (s *Postgres) Put(ctx context.Context, key string, value []byte) error {
	query, args, err := psql.Insert(s.table).
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()").
		ToSql()
	if err != nil {
		return fmt.Errorf("storage: build put: %w", err)
	}

	if _, err := s.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("storage: put %s: %w", key, err)
	}

	return nil
}

func (s *Postgres) Delete(ctx context.Context, key string) error {
	query, args, err := psql.Delete(s.table).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("storage: build delete: %w", err)
	}

	if _, err := s.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}

	return nil
}

func (s *Postgres) Keys(ctx context.Context, prefix string) ([]string, error) {
	query, args, err := psql.Select("key").From(s.table).
		Where(sq.Expr("starts_with(key, ?)", prefix)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("storage: build keys: %w", err)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list keys: %w", err)
	}

	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("storage: scan keys: %w", err)
	}

	return keys, nil
}

func (s *Postgres) Name() string { return "cache-postgres" }

func (s *Postgres) Check(ctx context.Context) error {
	return s.q.Ping(ctx)
}

func (s *Postgres) Close() error {
	s.close()
	return nil
}
