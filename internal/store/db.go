package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("not found")

// DB wraps the SQLite database that holds contacts, chats, messages and the
// sync ledger. All writes go through its upsert methods, either directly or
// inside InTx.
type DB struct {
	*sql.DB
	writes

	mu    sync.RWMutex
	stmts map[stmtKey]*sql.Stmt
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{DB: db}
	d.writes = writes{exec: d.execStmt}
	return d, nil
}

// Prepare compiles the upsert statements. It must run after Migrate; until
// it does, writes fall back to unprepared execution.
func (db *DB) Prepare(ctx context.Context) error {
	stmts := make(map[stmtKey]*sql.Stmt, len(writeSQL))
	for key, query := range writeSQL {
		stmt, err := db.PrepareContext(ctx, query)
		if err != nil {
			for _, s := range stmts {
				_ = s.Close()
			}
			return fmt.Errorf("prepare %s: %w", key, err)
		}
		stmts[key] = stmt
	}
	db.mu.Lock()
	db.stmts = stmts
	db.mu.Unlock()
	return nil
}

// Close releases prepared statements and the underlying connection pool.
func (db *DB) Close() error {
	db.mu.Lock()
	for _, s := range db.stmts {
		_ = s.Close()
	}
	db.stmts = nil
	db.mu.Unlock()
	return db.DB.Close()
}

func (db *DB) stmt(key stmtKey) *sql.Stmt {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.stmts[key]
}

func (db *DB) execStmt(ctx context.Context, key stmtKey, args ...any) error {
	var err error
	if s := db.stmt(key); s != nil {
		_, err = s.ExecContext(ctx, args...)
	} else {
		_, err = db.ExecContext(ctx, writeSQL[key], args...)
	}
	return err
}

// Tx exposes the upsert operations bound to one transaction.
type Tx struct {
	writes
}

// InTx runs fn inside a single transaction. The transaction commits only if
// fn returns nil; any error rolls back every write made through the Tx.
func (db *DB) InTx(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	tx := &Tx{writes: writes{exec: func(ctx context.Context, key stmtKey, args ...any) error {
		var err error
		if s := db.stmt(key); s != nil {
			_, err = sqlTx.StmtContext(ctx, s).ExecContext(ctx, args...)
		} else {
			_, err = sqlTx.ExecContext(ctx, writeSQL[key], args...)
		}
		return err
	}}}

	if err := fn(tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Checkpoint folds the write-ahead log back into the main database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `PRAGMA wal_checkpoint(RESTART)`); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
