// Package store provides the relational store the simulator persists orders,
// order lines and inventory into. The engine only sees the narrow Store
// interface; SQLStore implements it over SQLite (embedded, default) or
// PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// Store is the query/execute boundary consumed by the simulator.
// Queries use '?' placeholders regardless of backend.
//
// All statements run inside the current transaction. Writes become durable
// only once Commit returns; Commit then opens the next transaction.
type Store interface {
	// QueryOne scans the first row into dest. found is false when no row matched.
	QueryOne(ctx context.Context, dest any, query string, args ...any) (found bool, err error)
	// QueryAll scans every row into dest, which must point to a slice.
	QueryAll(ctx context.Context, dest any, query string, args ...any) error
	// Execute runs a statement that returns no rows.
	Execute(ctx context.Context, query string, args ...any) error
	// Commit makes all writes since the previous commit durable.
	Commit(ctx context.Context) error
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultSQLitePath is used when no path is configured.
const DefaultSQLitePath = "supplychain.db"

// Config selects and locates the backing database.
type Config struct {
	Driver string // "sqlite" (default) or "postgres"
	DSN    string // file path or ":memory:" for sqlite; connection URL for postgres
}

// Compile-time contract assertion.
var _ Store = (*SQLStore)(nil)

func init() {
	// sqlx only knows "sqlite3"; teach it the modernc driver name.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLStore is a Store over database/sql with one long-lived transaction.
// Not safe for concurrent use; the simulator drives it from a single goroutine.
type SQLStore struct {
	db     *sqlx.DB
	tx     *sqlx.Tx
	driver string
	// savepoints wraps every statement in its own savepoint. PostgreSQL
	// aborts the whole transaction on a failed statement; SQLite only undoes
	// the statement.
	savepoints bool
}

// Open connects to the configured database and begins the first transaction.
// A failure here is fatal for a simulation run.
func Open(ctx context.Context, cfg Config) (*SQLStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	var driverName, dsn string
	switch driver {
	case DriverSQLite:
		driverName = "sqlite"
		path := cfg.DSN
		if path == "" {
			path = DefaultSQLitePath
		}
		// Fixed text layout keeps TIMESTAMP columns ordered and parseable.
		dsn = path + "?_time_format=sqlite"
	case DriverPostgres:
		driverName = "pgx"
		dsn = cfg.DSN
		if dsn == "" {
			return nil, fmt.Errorf("store: postgres requires a DSN")
		}
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// A single connection: ":memory:" databases are per-connection, and
		// the open transaction must own it.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	logrus.Debugf("store: opened %s database", driver)
	return &SQLStore{db: db, tx: tx, driver: driver, savepoints: driver == DriverPostgres}, nil
}

// Driver returns the configured backend name.
func (s *SQLStore) Driver() string { return s.driver }

func (s *SQLStore) QueryOne(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	found := true
	err := s.statement(ctx, func() error {
		err := s.tx.GetContext(ctx, dest, s.tx.Rebind(query), args...)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		return false, fmt.Errorf("query one: %w", err)
	}
	return found, nil
}

func (s *SQLStore) QueryAll(ctx context.Context, dest any, query string, args ...any) error {
	err := s.statement(ctx, func() error {
		return s.tx.SelectContext(ctx, dest, s.tx.Rebind(query), args...)
	})
	if err != nil {
		return fmt.Errorf("query all: %w", err)
	}
	return nil
}

func (s *SQLStore) Execute(ctx context.Context, query string, args ...any) error {
	err := s.statement(ctx, func() error {
		_, err := s.tx.ExecContext(ctx, s.tx.Rebind(query), args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	return nil
}

// statement runs fn so that a failure undoes only fn's own effects and leaves
// the transaction usable for the next statement.
func (s *SQLStore) statement(ctx context.Context, fn func() error) error {
	if !s.savepoints {
		return fn()
	}
	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT stmt"); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := fn(); err != nil {
		if _, rerr := s.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT stmt"); rerr != nil {
			return errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rerr))
		}
		return err
	}
	if _, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT stmt"); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// Commit commits the current transaction and opens a new one. The new
// transaction is opened even when the commit fails so the caller can keep
// going; the commit error is still returned.
func (s *SQLStore) Commit(ctx context.Context) error {
	commitErr := s.tx.Commit()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Join(commitErr, fmt.Errorf("begin transaction: %w", err))
	}
	s.tx = tx
	if commitErr != nil {
		return fmt.Errorf("commit: %w", commitErr)
	}
	return nil
}

// Close discards any uncommitted writes and closes the database.
func (s *SQLStore) Close() error {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}
