package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Supported SQL dialects, named after their database/sql driver.
const (
	DialectSQLite = "sqlite3"
	DialectMySQL  = "mysql"
)

var schemas = map[string]string{
	DialectSQLite: `CREATE TABLE IF NOT EXISTS vocab_cache (
		cache_key  TEXT PRIMARY KEY,
		payload    BLOB NOT NULL,
		provider   TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	)`,
	DialectMySQL: `CREATE TABLE IF NOT EXISTS vocab_cache (
		cache_key  VARCHAR(191) NOT NULL PRIMARY KEY,
		payload    MEDIUMBLOB NOT NULL,
		provider   VARCHAR(64) NOT NULL,
		created_at BIGINT NOT NULL,
		expires_at BIGINT NOT NULL,
		INDEX idx_vocab_cache_expires_at (expires_at)
	)`,
}

var upserts = map[string]string{
	DialectSQLite: `INSERT INTO vocab_cache (cache_key, payload, provider, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload, provider = excluded.provider,
		created_at = excluded.created_at, expires_at = excluded.expires_at`,
	DialectMySQL: `INSERT INTO vocab_cache (cache_key, payload, provider, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE payload = VALUES(payload), provider = VALUES(provider),
		created_at = VALUES(created_at), expires_at = VALUES(expires_at)`,
}

// sqlEntry is the row shape; timestamps are unix milliseconds so both
// dialects compare them as plain integers.
type sqlEntry struct {
	Key       string `db:"cache_key"`
	Payload   []byte `db:"payload"`
	Provider  string `db:"provider"`
	CreatedAt int64  `db:"created_at"`
	ExpiresAt int64  `db:"expires_at"`
}

// SQLBackend stores entries in a single vocab_cache table.
type SQLBackend struct {
	db      *sqlx.DB
	dialect string
}

// OpenSQL opens a database with the given driver and ensures the schema exists.
func OpenSQL(ctx context.Context, dialect, dsn string) (*SQLBackend, error) {
	db, err := sqlx.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open(%s) > %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	b, err := NewSQLBackend(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := b.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// NewSQLBackend wraps an open database. Call Migrate before first use on a fresh database.
func NewSQLBackend(db *sqlx.DB, dialect string) (*SQLBackend, error) {
	if _, ok := schemas[dialect]; !ok {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	return &SQLBackend{db: db, dialect: dialect}, nil
}

// Migrate creates the cache table if it does not exist.
func (b *SQLBackend) Migrate(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, schemas[b.dialect]); err != nil {
		return fmt.Errorf("db.ExecContext(create vocab_cache) > %w", err)
	}
	return nil
}

// Load implements Backend.
func (b *SQLBackend) Load(ctx context.Context, key string) (*Entry, error) {
	var row sqlEntry
	err := b.db.GetContext(ctx, &row,
		"SELECT cache_key, payload, provider, created_at, expires_at FROM vocab_cache WHERE cache_key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(vocab_cache) > %w", err)
	}

	return &Entry{
		Key:       row.Key,
		Payload:   row.Payload,
		Provider:  row.Provider,
		CreatedAt: time.UnixMilli(row.CreatedAt),
		ExpiresAt: time.UnixMilli(row.ExpiresAt),
	}, nil
}

// Save implements Backend.
func (b *SQLBackend) Save(ctx context.Context, entry *Entry) error {
	_, err := b.db.ExecContext(ctx, upserts[b.dialect],
		entry.Key, []byte(entry.Payload), entry.Provider,
		entry.CreatedAt.UnixMilli(), entry.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("db.ExecContext(upsert vocab_cache) > %w", err)
	}
	return nil
}

// PurgeExpired implements Backend.
func (b *SQLBackend) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := b.db.ExecContext(ctx, "DELETE FROM vocab_cache WHERE expires_at <= ?", now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("db.ExecContext(purge vocab_cache) > %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("result.RowsAffected() > %w", err)
	}
	return int(n), nil
}

// Close implements Backend.
func (b *SQLBackend) Close() error {
	return b.db.Close()
}
