package models

import "time"

// WagePolicy grants a periodic payout to holders of an entitlement role.
// At most one policy exists per role id; setting a policy for a configured
// role replaces it.
type WagePolicy struct {
	RoleID       string    `json:"role_id" db:"role_id"`
	Amount       int64     `json:"amount" db:"amount"`
	IntervalDays int       `json:"interval_days" db:"interval_days"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
