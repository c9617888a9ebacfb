package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Sentinel errors returned by store methods. Services translate these into
// their own error taxonomy.
var (
	// ErrNotFound indicates the requested row does not exist
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates the store detected a deadlock or lock timeout
	// while acquiring a row lock
	ErrConflict = errors.New("repository: concurrent lock conflict")
)

// Postgres error codes surfaced as ErrConflict
const (
	pgDeadlockDetected = "40P01"
	pgLockNotAvailable = "55P03"
)

// Tx is a handle to an open transaction. The Postgres store passes *sql.Tx;
// test doubles supply their own implementation.
type Tx interface {
	Commit() error
	Rollback() error
}

// Store provides database operations
type Store struct {
	db *sql.DB
}

// NewStore initializes a new store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// WithinTx runs fn inside a transaction. The transaction is committed when
// fn returns nil and rolled back otherwise; every exit path ends the
// transaction and releases any row locks it holds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(sqlTx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return mapPQError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func sqlTxOf(tx Tx) (*sql.Tx, error) {
	sqlTx, ok := tx.(*sql.Tx)
	if !ok {
		return nil, fmt.Errorf("unsupported transaction handle %T", tx)
	}
	return sqlTx, nil
}

// mapPQError converts driver-level deadlock and lock-timeout failures into
// ErrConflict, leaving other errors untouched.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgDeadlockDetected, pgLockNotAvailable:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}
