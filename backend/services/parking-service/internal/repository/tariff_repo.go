package repository

import (
	"context"
	"database/sql"

	libdb "parkflow/backend/libs/db"
	"parkflow/backend/services/parking-service/internal/models"
)

const tariffColumns = `tenant_id, amount_per_interval, interval_minutes, minimum_amount, minimum_minutes, updated_at`

func getTariff(ctx context.Context, q libdb.Querier, tenantID int64) (*models.TariffParameters, error) {
	const query = `SELECT ` + tariffColumns + ` FROM tariff_parameters WHERE tenant_id = $1`
	var (
		p                     models.TariffParameters
		minAmount, minMinutes sql.NullInt64
	)
	err := q.QueryRowContext(ctx, query, tenantID).Scan(
		&p.TenantID,
		&p.AmountPerInterval,
		&p.IntervalMinutes,
		&minAmount,
		&minMinutes,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	p.MinimumAmount = nullableInt64(minAmount)
	p.MinimumMinutes = nullableInt64(minMinutes)
	return &p, nil
}

// TariffForTenant returns the tenant schedule or ErrNotFound.
func (q *Queries) TariffForTenant(ctx context.Context, tenantID int64) (*models.TariffParameters, error) {
	return getTariff(ctx, q.q, tenantID)
}

// TariffRepository manages tenant billing schedules.
type TariffRepository struct {
	db *sql.DB
}

// NewTariffRepository returns repository.
func NewTariffRepository(db *sql.DB) *TariffRepository {
	return &TariffRepository{db: db}
}

// Get returns the schedule for tenantID.
func (r *TariffRepository) Get(ctx context.Context, tenantID int64) (*models.TariffParameters, error) {
	return getTariff(ctx, r.db, tenantID)
}

// Upsert replaces the schedule of p.TenantID.
func (r *TariffRepository) Upsert(ctx context.Context, p *models.TariffParameters) error {
	const query = `
		INSERT INTO tariff_parameters (tenant_id, amount_per_interval, interval_minutes, minimum_amount, minimum_minutes, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET
			amount_per_interval = EXCLUDED.amount_per_interval,
			interval_minutes = EXCLUDED.interval_minutes,
			minimum_amount = EXCLUDED.minimum_amount,
			minimum_minutes = EXCLUDED.minimum_minutes,
			updated_at = NOW()
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		p.TenantID,
		p.AmountPerInterval,
		p.IntervalMinutes,
		p.MinimumAmount,
		p.MinimumMinutes,
	).Scan(&p.UpdatedAt)
	return mapError(err)
}
