package models

import "time"

// TariffParameters is the per-tenant billing schedule.
type TariffParameters struct {
	TenantID          int64     `db:"tenant_id" json:"tenant_id"`
	AmountPerInterval int64     `db:"amount_per_interval" json:"amount_per_interval"`
	IntervalMinutes   int64     `db:"interval_minutes" json:"interval_minutes"`
	MinimumAmount     *int64    `db:"minimum_amount" json:"minimum_amount,omitempty"`
	MinimumMinutes    *int64    `db:"minimum_minutes" json:"minimum_minutes,omitempty"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
