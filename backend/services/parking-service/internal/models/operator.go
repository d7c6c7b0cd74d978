package models

// Tenant status values.
const (
	TenantActive    = "ACTIVE"
	TenantTrial     = "TRIAL"
	TenantSuspended = "SUSPENDED"
)

// Operator is the identity that registers entries and exits, joined with its tenant.
type Operator struct {
	ID             int64  `db:"id" json:"id"`
	TenantID       int64  `db:"tenant_id" json:"tenant_id"`
	Name           string `db:"name" json:"name"`
	Active         bool   `db:"active" json:"active"`
	TenantStatus   string `db:"tenant_status" json:"tenant_status"`
	TenantTimezone string `db:"tenant_timezone" json:"tenant_timezone"`
}

// CanOperate reports whether the operator and its tenant may register vehicles.
func (o *Operator) CanOperate() bool {
	return o.Active && o.TenantStatus != TenantSuspended
}
