package models

import "time"

// BillingMode is the contractual arrangement of a frequent client.
type BillingMode string

const (
	BillingDaily   BillingMode = "DAILY"
	BillingWeekly  BillingMode = "WEEKLY"
	BillingMonthly BillingMode = "MONTHLY"
)

// Valid reports whether m is a known billing mode.
func (m BillingMode) Valid() bool {
	switch m {
	case BillingDaily, BillingWeekly, BillingMonthly:
		return true
	}
	return false
}

// FrequentClient is a plate under a flat-rate or exempt arrangement.
// Billable=false plates never produce sessions.
type FrequentClient struct {
	ID          int64       `db:"id" json:"id"`
	TenantID    int64       `db:"tenant_id" json:"tenant_id"`
	Plate       string      `db:"plate" json:"plate"`
	ClientName  string      `db:"client_name" json:"client_name"`
	BillingMode BillingMode `db:"billing_mode" json:"billing_mode"`
	FlatAmount  int64       `db:"flat_amount" json:"flat_amount"`
	Billable    bool        `db:"billable" json:"billable"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}
