package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/travel-journal/backend/internal/domain"
)

// db is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx. Begin on a pgx.Tx
// opens a savepoint, so integration tests can pass a transaction that is
// rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore keeps values in the journal_documents table as jsonb.
// Update holds a transaction-scoped advisory lock on the key, so concurrent
// writers in other processes serialize as well.
type PostgresStore struct {
	db db
}

// NewPostgresStore constructs a PostgresStore. In production pass
// *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPostgresStore(db db) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, s.db, key, "store.PostgresStore.Get")
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	return set(ctx, s.db, key, value, "store.PostgresStore.Set")
}

// Delete removes key. Deleting a missing key is not an error. It takes the
// same advisory lock as Update, so an in-flight Update cannot write the key
// back after it is gone.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM journal_documents WHERE key = @key`

	return s.withKeyLock(ctx, key, "store.PostgresStore.Delete", func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, q, pgx.NamedArgs{"key": key}); err != nil {
			return storageErr("store.PostgresStore.Delete", err)
		}
		return nil
	})
}

func (s *PostgresStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	const op = "store.PostgresStore.Update"

	return s.withKeyLock(ctx, key, op, func(tx pgx.Tx) error {
		current, err := get(ctx, tx, key, op)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		next, err := fn(current)
		if err != nil || next == nil {
			return err
		}
		return set(ctx, tx, key, next, op)
	})
}

// withKeyLock runs fn in a transaction holding a transaction-scoped advisory
// lock on key and commits when fn succeeds.
func (s *PostgresStore) withKeyLock(ctx context.Context, key, op string, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return storageErr(op+": begin", err)
	}
	// Rollback after a successful commit is a no-op returning ErrTxClosed.
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.WarnContext(ctx, "journal store rollback failed", "key", key, "error", err)
		}
	}()

	const lock = `SELECT pg_advisory_xact_lock(hashtext(@key))`
	if _, err := tx.Exec(ctx, lock, pgx.NamedArgs{"key": key}); err != nil {
		return storageErr(op+": lock", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr(op+": commit", err)
	}
	return nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func get(ctx context.Context, q querier, key, op string) ([]byte, error) {
	const sql = `SELECT value::text FROM journal_documents WHERE key = @key`

	var value string
	if err := q.QueryRow(ctx, sql, pgx.NamedArgs{"key": key}).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %q: %w", op, key, domain.ErrNotFound)
		}
		return nil, storageErr(op, err)
	}
	return []byte(value), nil
}

func set(ctx context.Context, q querier, key string, value []byte, op string) error {
	const sql = `
		INSERT INTO journal_documents (key, value)
		VALUES (@key, @value::jsonb)
		ON CONFLICT (key) DO UPDATE
		SET value      = EXCLUDED.value,
		    updated_at = now()`

	if _, err := q.Exec(ctx, sql, pgx.NamedArgs{"key": key, "value": string(value)}); err != nil {
		return storageErr(op, err)
	}
	return nil
}
