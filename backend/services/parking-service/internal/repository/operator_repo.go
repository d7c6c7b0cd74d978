package repository

import (
	"context"
	"database/sql"

	"parkflow/backend/services/parking-service/internal/models"
)

// OperatorRepository resolves operators together with their tenant state.
type OperatorRepository struct {
	db *sql.DB
}

// NewOperatorRepository returns repository.
func NewOperatorRepository(db *sql.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

// GetByID returns the operator joined with its tenant status and timezone.
func (r *OperatorRepository) GetByID(ctx context.Context, id int64) (*models.Operator, error) {
	const query = `
		SELECT o.id, o.tenant_id, o.name, o.active, t.status, t.timezone
		FROM operators o
		JOIN tenants t ON t.id = o.tenant_id
		WHERE o.id = $1
	`
	var op models.Operator
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&op.ID,
		&op.TenantID,
		&op.Name,
		&op.Active,
		&op.TenantStatus,
		&op.TenantTimezone,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &op, nil
}

// TenantRepository reads tenant settings.
type TenantRepository struct {
	db *sql.DB
}

// NewTenantRepository returns repository.
func NewTenantRepository(db *sql.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Timezone returns the IANA zone configured for tenantID, empty when unset.
func (r *TenantRepository) Timezone(ctx context.Context, tenantID int64) (string, error) {
	var zone string
	err := r.db.QueryRowContext(ctx, `SELECT timezone FROM tenants WHERE id = $1`, tenantID).Scan(&zone)
	if err != nil {
		return "", mapError(err)
	}
	return zone, nil
}
