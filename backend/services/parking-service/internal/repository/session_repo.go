package repository

import (
	"context"
	"database/sql"
	"time"

	"parkflow/backend/services/parking-service/internal/models"
)

const sessionColumns = `id, plate, tenant_id, opened_by, closed_by, start_time, end_time,
	fee, amount_paid, balance_owed, frequent_client_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s                                      models.Session
		closedBy, fee, paid, balance, frequent sql.NullInt64
		endTime                                sql.NullTime
	)
	if err := row.Scan(
		&s.ID,
		&s.Plate,
		&s.TenantID,
		&s.OpenedBy,
		&closedBy,
		&s.StartTime,
		&endTime,
		&fee,
		&paid,
		&balance,
		&frequent,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	s.ClosedBy = nullableInt64(closedBy)
	s.EndTime = nullableTime(endTime)
	s.Fee = nullableInt64(fee)
	s.AmountPaid = nullableInt64(paid)
	s.BalanceOwed = nullableInt64(balance)
	s.FrequentClientID = nullableInt64(frequent)
	return &s, nil
}

// LockPlate takes a transaction-scoped advisory lock serializing every open/close on plate.
func (q *Queries) LockPlate(ctx context.Context, plate string) error {
	_, err := q.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, plate)
	return mapError(err)
}

// OpenSessionByPlate returns the open session for plate across all tenants, locking the row.
func (q *Queries) OpenSessionByPlate(ctx context.Context, plate string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE plate = $1 AND end_time IS NULL
		LIMIT 1
		FOR UPDATE`
	return scanSession(q.q.QueryRowContext(ctx, query, plate))
}

// LatestOutstandingByPlate returns the most recently closed session of plate with a
// positive balance, skipping excludeID, and locks it. The lookup is not tenant scoped.
func (q *Queries) LatestOutstandingByPlate(ctx context.Context, plate string, excludeID int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE plate = $1
		  AND id <> $2
		  AND end_time IS NOT NULL
		  AND balance_owed > 0
		ORDER BY end_time DESC, id DESC
		LIMIT 1
		FOR UPDATE`
	return scanSession(q.q.QueryRowContext(ctx, query, plate, excludeID))
}

// InsertSession creates an open session and fills generated columns.
func (q *Queries) InsertSession(ctx context.Context, s *models.Session) error {
	const query = `
		INSERT INTO parking_sessions (plate, tenant_id, opened_by, start_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := q.q.QueryRowContext(ctx, query, s.Plate, s.TenantID, s.OpenedBy, s.StartTime).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return mapError(err)
}

// CloseSession writes the exit time and every financial field of an open session at once.
func (q *Queries) CloseSession(ctx context.Context, s *models.Session) error {
	const query = `
		UPDATE parking_sessions
		SET end_time = $2,
		    closed_by = $3,
		    fee = $4,
		    amount_paid = $5,
		    balance_owed = $6,
		    frequent_client_id = $7,
		    updated_at = NOW()
		WHERE id = $1 AND end_time IS NULL
	`
	result, err := q.q.ExecContext(ctx, query,
		s.ID,
		s.EndTime,
		s.ClosedBy,
		s.Fee,
		s.AmountPaid,
		s.BalanceOwed,
		s.FrequentClientID,
	)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

// UpdateSettlement rewrites the paid amount and balance of an already closed session.
func (q *Queries) UpdateSettlement(ctx context.Context, id, amountPaid, balanceOwed int64) error {
	const query = `
		UPDATE parking_sessions
		SET amount_paid = $2,
		    balance_owed = $3,
		    updated_at = NOW()
		WHERE id = $1 AND end_time IS NOT NULL
	`
	result, err := q.q.ExecContext(ctx, query, id, amountPaid, balanceOwed)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SessionRepository serves read-only listings outside the lifecycle transaction.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// ListOpenForTenant returns the tenant's open sessions started in [from, to), each with
// the balance of the plate's latest outstanding session.
func (r *SessionRepository) ListOpenForTenant(ctx context.Context, tenantID int64, from, to time.Time) ([]models.OpenSessionSummary, error) {
	const query = `
		SELECT s.id, s.plate, s.start_time, s.opened_by,
		       COALESCE(fc.billing_mode, ''),
		       COALESCE((
		           SELECT p.balance_owed
		           FROM parking_sessions p
		           WHERE p.plate = s.plate
		             AND p.id <> s.id
		             AND p.end_time IS NOT NULL
		             AND p.balance_owed > 0
		           ORDER BY p.end_time DESC, p.id DESC
		           LIMIT 1
		       ), 0)
		FROM parking_sessions s
		LEFT JOIN frequent_clients fc ON fc.plate = s.plate
		WHERE s.tenant_id = $1
		  AND s.end_time IS NULL
		  AND s.start_time >= $2
		  AND s.start_time < $3
		ORDER BY s.start_time DESC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.OpenSessionSummary, 0)
	for rows.Next() {
		var s models.OpenSessionSummary
		if err := rows.Scan(
			&s.ID,
			&s.Plate,
			&s.StartTime,
			&s.OpenedBy,
			&s.FrequentClientMode,
			&s.PendingBalance,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListClosedForTenant returns the tenant's sessions closed in [from, to).
func (r *SessionRepository) ListClosedForTenant(ctx context.Context, tenantID int64, from, to time.Time) ([]models.ClosedSessionSummary, error) {
	const query = `
		SELECT id, plate, start_time, end_time, fee, amount_paid, balance_owed, opened_by, closed_by
		FROM parking_sessions
		WHERE tenant_id = $1
		  AND end_time IS NOT NULL
		  AND end_time >= $2
		  AND end_time < $3
		ORDER BY end_time DESC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.ClosedSessionSummary, 0)
	for rows.Next() {
		var (
			s        models.ClosedSessionSummary
			closedBy sql.NullInt64
		)
		if err := rows.Scan(
			&s.ID,
			&s.Plate,
			&s.StartTime,
			&s.EndTime,
			&s.Fee,
			&s.AmountPaid,
			&s.BalanceOwed,
			&s.OpenedBy,
			&closedBy,
		); err != nil {
			return nil, err
		}
		s.ClosedBy = nullableInt64(closedBy)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetOpenByPlate returns the open session of plate without locking.
func (r *SessionRepository) GetOpenByPlate(ctx context.Context, plate string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE plate = $1 AND end_time IS NULL
		LIMIT 1`
	return scanSession(r.db.QueryRowContext(ctx, query, plate))
}
