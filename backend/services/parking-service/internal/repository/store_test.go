package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapError(t *testing.T) {
	plain := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "no rows", err: fmt.Errorf("scan: %w", sql.ErrNoRows), want: ErrNotFound},
		{
			name: "open session unique index",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: constraintOneOpenPerPlate},
			want: ErrDuplicateOpenSession,
		},
		{
			name: "frequent client plate key",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: constraintFrequentPlate},
			want: ErrDuplicatePlate,
		},
		{name: "lock timeout", err: &pgconn.PgError{Code: "55P03"}, want: ErrLockContention},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, want: ErrLockContention},
		{name: "passthrough", err: plain, want: plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMapErrorKeepsContentionCause(t *testing.T) {
	cause := &pgconn.PgError{Code: "40001"}
	got := mapError(cause)

	var pgErr *pgconn.PgError
	if !errors.As(got, &pgErr) || pgErr.Code != "40001" {
		t.Fatalf("expected pg error to stay reachable, got %v", got)
	}
}

func TestUnknownUniqueViolationPassesThrough(t *testing.T) {
	cause := &pgconn.PgError{Code: "23505", ConstraintName: "tenants_pkey"}
	got := mapError(cause)
	if errors.Is(got, ErrDuplicateOpenSession) || errors.Is(got, ErrDuplicatePlate) {
		t.Fatalf("unexpected mapping for %v", got)
	}
}
