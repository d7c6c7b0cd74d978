package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorClass groups Postgres failures the services react to.
type ErrorClass int

const (
	ClassOther ErrorClass = iota
	// ClassUniqueViolation is SQLSTATE 23505.
	ClassUniqueViolation
	// ClassContention covers serialization failures, deadlocks and lock timeouts.
	ClassContention
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// Classify inspects err for a *pgconn.PgError and reports its class along with the
// violated constraint name (empty when not applicable).
func Classify(err error) (ErrorClass, string) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ClassOther, ""
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return ClassUniqueViolation, pgErr.ConstraintName
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return ClassContention, ""
	default:
		return ClassOther, ""
	}
}
