package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrStale is returned when an update's expected version no longer
	// matches the stored row.
	ErrStale = errors.New("store: stale version")

	// ErrOutOfRange is returned for an interval whose instants do not fit
	// the int64 nanosecond columns.
	ErrOutOfRange = errors.New("store: interval out of range")
)

// pragmas are applied on every Open.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// migration upgrades a database whose user_version is below version.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations run in order after schema.sql. schema.sql always describes the
// newest layout, so every statement must be safe to re-run on it.
var migrations = []migration{
	{
		version: 1,
		name:    "index challenger records by state",
		stmt:    `CREATE INDEX IF NOT EXISTS idx_displacements_challenger ON displacements(challenger_id, state)`,
	},
}

// currentSchemaVersion is the user_version after all migrations.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store provides durable storage for reservations, displacement records,
// idempotency keys and the audit log.
type Store struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at path, applies pragmas and
// brings the schema up to date. Opening an existing database is safe.
//
// Transactions are opened with BEGIN IMMEDIATE so a transaction holds the
// write lock before it reads the conflict set.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", withTxLock(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// One connection: SQLite has a single writer, and :memory: databases
	// are private to their connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// withTxLock appends the driver option that makes BeginTx issue
// BEGIN IMMEDIATE.
func withTxLock(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_txlock=immediate"
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InTx runs fn inside a single transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
//
// Do not call non-transactional Store methods from inside fn: the pool holds
// a single connection and the call would wait on the open transaction.
func (s *Store) InTx(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// migrate applies schema.sql, then every migration newer than the stored
// user_version.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
	}

	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}
