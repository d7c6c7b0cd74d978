package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	libdb "parkflow/backend/libs/db"
)

var (
	// ErrNotFound represents missing rows.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicateOpenSession means the plate already has an open session.
	ErrDuplicateOpenSession = errors.New("repository: plate already has an open session")
	// ErrDuplicatePlate means the plate is already registered as a frequent client.
	ErrDuplicatePlate = errors.New("repository: plate already registered")
	// ErrLockContention wraps lock timeouts, deadlocks and serialization failures.
	ErrLockContention = errors.New("repository: lock contention")
)

const (
	constraintOneOpenPerPlate = "parking_sessions_one_open_per_plate"
	constraintFrequentPlate   = "frequent_clients_plate_key"
)

// Queries runs parking statements against a pool or an open transaction.
type Queries struct {
	q libdb.Querier
}

// Store owns the pool and hands out transactional Queries.
type Store struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// NewStore returns store. lockTimeout bounds row-lock waits inside RunInTx.
func NewStore(db *sql.DB, lockTimeout time.Duration) *Store {
	return &Store{db: db, lockTimeout: lockTimeout}
}

// RunInTx executes fn in a read-committed transaction. Lock contention surfaces as
// ErrLockContention.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, q *Queries) error) error {
	err := libdb.RunInTx(ctx, s.db, libdb.TxOptions{
		Isolation:   sql.LevelReadCommitted,
		LockTimeout: s.lockTimeout,
	}, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &Queries{q: tx})
	})
	return mapError(err)
}

// Queries returns non-transactional queries over the pool.
func (s *Store) Queries() *Queries {
	return &Queries{q: s.db}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	class, constraint := libdb.Classify(err)
	switch class {
	case libdb.ClassContention:
		return errors.Join(ErrLockContention, err)
	case libdb.ClassUniqueViolation:
		switch constraint {
		case constraintOneOpenPerPlate:
			return ErrDuplicateOpenSession
		case constraintFrequentPlate:
			return ErrDuplicatePlate
		}
	}
	return err
}

func nullableInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	out := v.Int64
	return &out
}

func nullableTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	out := v.Time
	return &out
}
