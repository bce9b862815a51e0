package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	// writerConns is 1 so concurrent writes queue instead of failing with
	// "database is locked".
	writerConns = 1
	readerConns = 4
)

var pragmas = []string{
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
	"cache_size(-64000)",
}

// DB holds separate writer and reader pools over one database.
type DB struct {
	Writer *sql.DB
	Reader *sql.DB
	path   string
}

// NewDB opens the database file at dbPath in WAL mode.
func NewDB(dbPath string) (*DB, error) {
	return openPools(buildDSN(dbPath, false), dbPath)
}

// openMemory opens a migrated shared-cache in-memory database. Pools opened
// with the same name share data for as long as one connection stays open.
func openMemory(name string) (*DB, error) {
	db, err := openPools(buildDSN(url.PathEscape(name), true), name)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// buildDSN renders a modernc file URI. WAL does not apply to in-memory
// databases, which use a shared cache instead.
func buildDSN(target string, memory bool) string {
	params := make([]string, 0, len(pragmas)+2)
	if memory {
		params = append(params, "mode=memory", "cache=shared")
	} else {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	return "file:" + target + "?" + strings.Join(params, "&")
}

func openPools(dsn, label string) (*DB, error) {
	writer, err := openPool(dsn, writerConns)
	if err != nil {
		return nil, fmt.Errorf("writer: %w", err)
	}
	reader, err := openPool(dsn, readerConns)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("reader: %w", err)
	}
	return &DB{Writer: writer, Reader: reader, path: label}, nil
}

func openPool(dsn string, maxConns int) (*sql.DB, error) {
	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	pool.SetMaxOpenConns(maxConns)
	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Ping checks that the database answers reads. It backs the health check.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.Reader.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", db.path, err)
	}
	return nil
}

// Close closes both pools and returns the first error.
func (db *DB) Close() error {
	rerr := db.Reader.Close()
	werr := db.Writer.Close()
	if rerr != nil {
		return fmt.Errorf("close reader: %w", rerr)
	}
	if werr != nil {
		return fmt.Errorf("close writer: %w", werr)
	}
	return nil
}
