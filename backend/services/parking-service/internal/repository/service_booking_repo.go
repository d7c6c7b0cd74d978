package repository

import (
	"context"
	"database/sql"
	"time"

	"parkflow/backend/services/parking-service/internal/models"
)

const bookingSelect = `
	SELECT b.id, b.tenant_id, b.plate, b.catalog_service_id,
	       COALESCE(c.name, ''), c.value, c.duration_minutes,
	       b.custom_value, b.custom_duration_minutes, b.scheduled_at,
	       b.deposit, b.paid_in_full, b.finished, b.created_by, b.created_at, b.updated_at
	FROM service_bookings b
	LEFT JOIN service_catalog c ON c.id = b.catalog_service_id`

func scanBooking(row rowScanner) (*models.ServiceBooking, error) {
	var (
		b                                        models.ServiceBooking
		catalogID, catalogValue, catalogDuration sql.NullInt64
		customValue, customDuration, deposit     sql.NullInt64
	)
	if err := row.Scan(
		&b.ID,
		&b.TenantID,
		&b.Plate,
		&catalogID,
		&b.ServiceName,
		&catalogValue,
		&catalogDuration,
		&customValue,
		&customDuration,
		&b.ScheduledAt,
		&deposit,
		&b.PaidInFull,
		&b.Finished,
		&b.CreatedBy,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	b.CatalogServiceID = nullableInt64(catalogID)
	b.CatalogValue = nullableInt64(catalogValue)
	b.CatalogDurationMinutes = nullableInt64(catalogDuration)
	b.CustomValue = nullableInt64(customValue)
	b.CustomDurationMinutes = nullableInt64(customDuration)
	b.Deposit = nullableInt64(deposit)
	return &b, nil
}

// ServiceBookingRepository manages ancillary service bookings and reads the catalog.
type ServiceBookingRepository struct {
	db *sql.DB
}

// NewServiceBookingRepository returns repository.
func NewServiceBookingRepository(db *sql.DB) *ServiceBookingRepository {
	return &ServiceBookingRepository{db: db}
}

// CatalogEntry returns catalog service id if it is shared or owned by tenantID.
func (r *ServiceBookingRepository) CatalogEntry(ctx context.Context, tenantID, id int64) (*models.CatalogService, error) {
	const query = `
		SELECT id, tenant_id, name, value, duration_minutes
		FROM service_catalog
		WHERE id = $1 AND (tenant_id IS NULL OR tenant_id = $2)
	`
	var (
		c      models.CatalogService
		tenant sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(&c.ID, &tenant, &c.Name, &c.Value, &c.DurationMinutes)
	if err != nil {
		return nil, mapError(err)
	}
	c.TenantID = nullableInt64(tenant)
	return &c, nil
}

// Get returns the tenant's booking id.
func (r *ServiceBookingRepository) Get(ctx context.Context, tenantID, id int64) (*models.ServiceBooking, error) {
	query := bookingSelect + ` WHERE b.id = $1 AND b.tenant_id = $2`
	return scanBooking(r.db.QueryRowContext(ctx, query, id, tenantID))
}

// ListByTenant returns the tenant's bookings scheduled in [from, to), latest first. A zero
// bound leaves that side open.
func (r *ServiceBookingRepository) ListByTenant(ctx context.Context, tenantID int64, from, to time.Time) ([]models.ServiceBooking, error) {
	query := bookingSelect + `
		WHERE b.tenant_id = $1
		  AND ($2::timestamptz IS NULL OR b.scheduled_at >= $2)
		  AND ($3::timestamptz IS NULL OR b.scheduled_at < $3)
		ORDER BY b.scheduled_at DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, query, tenantID, optionalTime(from), optionalTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.ServiceBooking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

// Create stores b and fills generated columns.
func (r *ServiceBookingRepository) Create(ctx context.Context, b *models.ServiceBooking) error {
	const query = `
		INSERT INTO service_bookings (
			tenant_id, plate, catalog_service_id, custom_value, custom_duration_minutes,
			scheduled_at, deposit, paid_in_full, finished, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		b.TenantID,
		b.Plate,
		b.CatalogServiceID,
		b.CustomValue,
		b.CustomDurationMinutes,
		b.ScheduledAt,
		b.Deposit,
		b.PaidInFull,
		b.Finished,
		b.CreatedBy,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	return mapError(err)
}

// Update rewrites the mutable fields of b within its tenant.
func (r *ServiceBookingRepository) Update(ctx context.Context, b *models.ServiceBooking) error {
	const query = `
		UPDATE service_bookings
		SET custom_value = $3,
		    custom_duration_minutes = $4,
		    scheduled_at = $5,
		    deposit = $6,
		    paid_in_full = $7,
		    finished = $8,
		    updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		b.ID,
		b.TenantID,
		b.CustomValue,
		b.CustomDurationMinutes,
		b.ScheduledAt,
		b.Deposit,
		b.PaidInFull,
		b.Finished,
	).Scan(&b.UpdatedAt)
	return mapError(err)
}

// Delete removes the tenant's booking id.
func (r *ServiceBookingRepository) Delete(ctx context.Context, tenantID, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM service_bookings WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

func optionalTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
