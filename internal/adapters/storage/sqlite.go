package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS %s (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// SQLite keeps values in a single table of a local database file.
type SQLite struct {
	db    *sql.DB
	table string
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// table must be a plain identifier; configuration validates it.
func OpenSQLite(ctx context.Context, path, table string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf(sqliteSchema, table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: apply sqlite schema: %w", err)
	}

	return &SQLite{db: db, table: table}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := sq.Select("value").From(s.table).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("storage: build get: %w", err)
	}

	var value []byte
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(key)
		}

		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}

	return value, nil
}

func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	query, args, err := sq.Insert(s.table).
		Columns("key", "value", "updated_at").
		Values(key, value, sq.Expr("CURRENT_TIMESTAMP")).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("storage: build put: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("storage: put %s: %w", key, err)
	}

	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	query, args, err := sq.Delete(s.table).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("storage: build delete: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}

	return nil
}

func (s *SQLite) Keys(ctx context.Context, prefix string) ([]string, error) {
	query, args, err := sq.Select("key").From(s.table).
		Where(sq.Expr("instr(key, ?) = 1", prefix)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("storage: build keys: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list keys: %w", err)
	}
	defer rows.Close()

	var keys []string

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("storage: scan key: %w", err)
		}

		keys = append(keys, key)
	}

	return keys, rows.Err()
}

func (s *SQLite) Name() string { return "cache-sqlite" }

func (s *SQLite) Check(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
