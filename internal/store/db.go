package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sqlx.DB
}

// Open opens (or creates) the library database. If the database opens but
// the expected tables are missing or unreadable (a corrupted or stale
// store), the file is destroyed and recreated from scratch exactly once,
// then the open is retried. Failure after that retry is fatal to the
// caller.
func Open(dsn string) (*DB, error) {
	db, err := open(dsn)
	if err == nil {
		return db, nil
	}

	if !isFileDSN(dsn) {
		return nil, err
	}

	// Self-heal: wipe and retry once.
	for _, suffix := range []string{"", "-wal", "-shm"} {
		os.Remove(dsn + suffix)
	}
	db, retryErr := open(dsn)
	if retryErr != nil {
		return nil, fmt.Errorf("failed to open db even after recreate (original error: %v): %w", err, retryErr)
	}
	return db, nil
}

func open(dsn string) (*DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// Set pragmas for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	if err := verifyTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// verifyTables checks that every collection the application relies on came
// back from schema initialization.
func verifyTables(db *sqlx.DB) error {
	for _, table := range []string{"tracks", "playlists", "settings", "jobs"} {
		var n int
		err := db.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		if err != nil {
			return fmt.Errorf("failed to inspect schema: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("missing table %q after schema init", table)
		}
	}
	return nil
}

func isFileDSN(dsn string) bool {
	return dsn != "" && dsn != ":memory:" && !strings.Contains(dsn, "mode=memory")
}

func (db *DB) Close() error {
	return db.DB.Close()
}
