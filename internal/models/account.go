package models

import (
	"time"
)

// Account holds the durable balance for a single user. Rows are created
// lazily on the first balance mutation and are never deleted.
type Account struct {
	UserID             string     `json:"user_id" db:"user_id"`
	Balance            int64      `json:"balance" db:"balance"` // currency units, may go negative
	LastWageCollection *time.Time `json:"last_wage_collection" db:"last_wage_collection"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

type LedgerEntry struct {
	ID          int       `json:"id" db:"id"`
	ReferenceID string    `json:"reference_id" db:"reference_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Delta       int64     `json:"delta" db:"delta"`
	Reason      string    `json:"reason" db:"reason"` // WAGE, WAGER, PURCHASE, ADJUSTMENT
	Balance     int64     `json:"balance" db:"balance"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
