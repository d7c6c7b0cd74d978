package models

import "time"

// CatalogService is a priced ancillary service (washing, waxing) offered by a tenant.
// Entries with a nil TenantID are shared by every tenant.
type CatalogService struct {
	ID              int64  `db:"id" json:"id"`
	TenantID        *int64 `db:"tenant_id" json:"tenant_id,omitempty"`
	Name            string `db:"name" json:"name"`
	Value           int64  `db:"value" json:"value"`
	DurationMinutes int64  `db:"duration_minutes" json:"duration_minutes"`
}

// ServiceBooking is an ancillary service scheduled for a vehicle. Custom value and
// duration override the catalog entry.
type ServiceBooking struct {
	ID                     int64     `db:"id" json:"id"`
	TenantID               int64     `db:"tenant_id" json:"tenant_id"`
	Plate                  string    `db:"plate" json:"plate"`
	CatalogServiceID       *int64    `db:"catalog_service_id" json:"catalog_service_id,omitempty"`
	ServiceName            string    `db:"service_name" json:"service_name,omitempty"`
	CatalogValue           *int64    `db:"catalog_value" json:"catalog_value,omitempty"`
	CatalogDurationMinutes *int64    `db:"catalog_duration_minutes" json:"catalog_duration_minutes,omitempty"`
	CustomValue            *int64    `db:"custom_value" json:"custom_value,omitempty"`
	CustomDurationMinutes  *int64    `db:"custom_duration_minutes" json:"custom_duration_minutes,omitempty"`
	ScheduledAt            time.Time `db:"scheduled_at" json:"scheduled_at"`
	Deposit                *int64    `db:"deposit" json:"deposit,omitempty"`
	PaidInFull             bool      `db:"paid_in_full" json:"paid_in_full"`
	Finished               bool      `db:"finished" json:"finished"`
	CreatedBy              int64     `db:"created_by" json:"created_by"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}

// FinalValue is the custom value when set, else the catalog value, else zero.
func (b *ServiceBooking) FinalValue() int64 {
	switch {
	case b.CustomValue != nil:
		return *b.CustomValue
	case b.CatalogValue != nil:
		return *b.CatalogValue
	}
	return 0
}

// FinalDurationMinutes is the custom duration when set, else the catalog duration.
func (b *ServiceBooking) FinalDurationMinutes() *int64 {
	if b.CustomDurationMinutes != nil {
		return b.CustomDurationMinutes
	}
	return b.CatalogDurationMinutes
}

// PendingBalance is what remains after the deposit, zero once paid in full.
func (b *ServiceBooking) PendingBalance() int64 {
	if b.PaidInFull {
		return 0
	}
	var deposit int64
	if b.Deposit != nil {
		deposit = *b.Deposit
	}
	return max(0, b.FinalValue()-deposit)
}
