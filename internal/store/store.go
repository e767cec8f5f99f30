// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/verte-zerg/tafel/internal/logging"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Sentinel errors for the store package.
var (
	ErrCorruptRecord   = errors.New("store: corrupt record")
	ErrProfileNotFound = errors.New("store: profile not found")
)

// Store wraps SQLite access for profiles, fact stats and test results.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report skipped records.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.log = logging.OrNop(l)
	}
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string, opts ...Option) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return open(path, opts...)
}

// OpenMemory opens a private in-memory database. Nothing survives Close.
func OpenMemory(opts ...Option) (*Store, error) {
	return open(":memory:", opts...)
}

func open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)
	store := &Store{db: db, log: zap.NewNop()}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT '',
			coins INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS fact_stats (
			profile_id TEXT NOT NULL,
			table_num INTEGER NOT NULL,
			factor INTEGER NOT NULL,
			attempts INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			avg_latency_ns INTEGER NOT NULL,
			last_seen TEXT NOT NULL,
			PRIMARY KEY (profile_id, table_num, factor)
		);`,
		`CREATE TABLE IF NOT EXISTS test_results (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			profile_id TEXT NOT NULL,
			profile_name TEXT NOT NULL,
			ts TEXT NOT NULL,
			tables TEXT NOT NULL,
			question_count INTEGER NOT NULL,
			answered INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			time_limit TEXT NOT NULL,
			duration TEXT NOT NULL,
			speed TEXT NOT NULL,
			coins_earned INTEGER NOT NULL,
			table_stats TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_test_results_profile ON test_results(profile_id, seq);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func closeRows(rows *sql.Rows) {
	if cerr := rows.Close(); cerr != nil {
		// Best-effort rows close.
		_ = cerr
	}
}

func rollback(tx *sql.Tx) {
	if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
		// Best-effort rollback.
		_ = rerr
	}
}

// ResetProgress removes a profile's fact stats and test results.
func (s *Store) ResetProgress(ctx context.Context, profileID string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			rollback(tx)
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM fact_stats WHERE profile_id = ?`, profileID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM test_results WHERE profile_id = ?`, profileID); err != nil {
		return err
	}
	return tx.Commit()
}
