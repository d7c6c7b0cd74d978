package repository

import (
	"context"
	"database/sql"

	"parkflow/backend/services/parking-service/internal/models"
)

const frequentClientColumns = `id, tenant_id, plate, client_name, billing_mode, flat_amount, billable, created_at`

func scanFrequentClient(row rowScanner) (*models.FrequentClient, error) {
	var c models.FrequentClient
	if err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.Plate,
		&c.ClientName,
		&c.BillingMode,
		&c.FlatAmount,
		&c.Billable,
		&c.CreatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// FrequentClientByPlate returns the registration of plate in any tenant.
func (q *Queries) FrequentClientByPlate(ctx context.Context, plate string) (*models.FrequentClient, error) {
	const query = `SELECT ` + frequentClientColumns + ` FROM frequent_clients WHERE plate = $1`
	return scanFrequentClient(q.q.QueryRowContext(ctx, query, plate))
}

// FrequentClientRepository manages frequent client registrations.
type FrequentClientRepository struct {
	db *sql.DB
}

// NewFrequentClientRepository returns repository.
func NewFrequentClientRepository(db *sql.DB) *FrequentClientRepository {
	return &FrequentClientRepository{db: db}
}

// ListByTenant returns the tenant's registrations ordered by plate.
func (r *FrequentClientRepository) ListByTenant(ctx context.Context, tenantID int64) ([]models.FrequentClient, error) {
	const query = `SELECT ` + frequentClientColumns + `
		FROM frequent_clients
		WHERE tenant_id = $1
		ORDER BY plate`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := make([]models.FrequentClient, 0)
	for rows.Next() {
		c, err := scanFrequentClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return clients, nil
}

// Create registers c. A plate registered in any tenant yields ErrDuplicatePlate.
func (r *FrequentClientRepository) Create(ctx context.Context, c *models.FrequentClient) error {
	const query = `
		INSERT INTO frequent_clients (tenant_id, plate, client_name, billing_mode, flat_amount, billable, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.TenantID,
		c.Plate,
		c.ClientName,
		c.BillingMode,
		c.FlatAmount,
		c.Billable,
	).Scan(&c.ID, &c.CreatedAt)
	return mapError(err)
}

// DeleteByPlate removes the tenant's registration of plate.
func (r *FrequentClientRepository) DeleteByPlate(ctx context.Context, tenantID int64, plate string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM frequent_clients WHERE tenant_id = $1 AND plate = $2`, tenantID, plate)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}
