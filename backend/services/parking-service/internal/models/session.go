package models

import "time"

// Session is one continuous parking visit of a vehicle, from entry to exit.
// Fee, AmountPaid and BalanceOwed stay nil while the session is open.
type Session struct {
	ID               int64      `db:"id" json:"id"`
	Plate            string     `db:"plate" json:"plate"`
	TenantID         int64      `db:"tenant_id" json:"tenant_id"`
	OpenedBy         int64      `db:"opened_by" json:"opened_by"`
	ClosedBy         *int64     `db:"closed_by" json:"closed_by,omitempty"`
	StartTime        time.Time  `db:"start_time" json:"start_time"`
	EndTime          *time.Time `db:"end_time" json:"end_time,omitempty"`
	Fee              *int64     `db:"fee" json:"fee,omitempty"`
	AmountPaid       *int64     `db:"amount_paid" json:"amount_paid,omitempty"`
	BalanceOwed      *int64     `db:"balance_owed" json:"balance_owed,omitempty"`
	FrequentClientID *int64     `db:"frequent_client_id" json:"frequent_client_id,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Outstanding returns the unpaid remainder, zero for open or settled sessions.
func (s *Session) Outstanding() int64 {
	if s.BalanceOwed == nil || *s.BalanceOwed < 0 {
		return 0
	}
	return *s.BalanceOwed
}

// OpenSessionSummary is a row of the open-sessions listing.
type OpenSessionSummary struct {
	ID                 int64     `json:"id"`
	Plate              string    `json:"plate"`
	StartTime          time.Time `json:"start_time"`
	OpenedBy           int64     `json:"opened_by"`
	FrequentClientMode string    `json:"frequent_client_mode,omitempty"`
	PendingBalance     int64     `json:"pending_balance"`
}

// ClosedSessionSummary is a row of the closed-sessions history.
type ClosedSessionSummary struct {
	ID          int64     `json:"id"`
	Plate       string    `json:"plate"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Fee         int64     `json:"fee"`
	AmountPaid  int64     `json:"amount_paid"`
	BalanceOwed int64     `json:"balance_owed"`
	OpenedBy    int64     `json:"opened_by"`
	ClosedBy    *int64    `json:"closed_by,omitempty"`
}
