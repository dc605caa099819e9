package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/guildpay/economy/internal/audit"
)

// LedgerService owns account balances. Every mutation in the engine routes
// through AdjustBalance/AdjustBalanceTx, and every applied delta is mirrored
// into ledger_entries so the balance stays auditable as a sum of deltas.
type LedgerService struct {
	db    *sql.DB
	audit *audit.Logger
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{
		db:    db,
		audit: audit.NewLogger(),
	}
}

// GetBalance returns 0 for unknown users without creating a row.
func (s *LedgerService) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE user_id = $1`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// AdjustBalance applies delta in its own transaction and returns the new
// durable balance.
func (s *LedgerService) AdjustBalance(ctx context.Context, userID string, delta int64, reason string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	newBalance, err := s.AdjustBalanceTx(ctx, tx, userID, delta, reason)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// AdjustBalanceTx applies delta inside a caller-owned transaction. The account
// row stays locked for the remainder of the transaction, which serializes all
// balance mutations for the same user. The account is created lazily with
// delta as its initial balance. No floor is applied: a negative delta may take
// the balance below zero.
func (s *LedgerService) AdjustBalanceTx(ctx context.Context, tx *sql.Tx, userID string, delta int64, reason string) (int64, error) {
	var balance int64
	err := tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&balance)
	switch {
	case err == sql.ErrNoRows:
		balance = delta
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (user_id, balance, created_at, updated_at)
			VALUES ($1, $2, $3, $3)`,
			userID, balance, time.Now()); err != nil {
			return 0, err
		}
	case err != nil:
		return 0, err
	default:
		balance += delta
		if _, err := tx.ExecContext(ctx, `
			UPDATE accounts SET balance = $1, updated_at = $2 WHERE user_id = $3`,
			balance, time.Now(), userID); err != nil {
			return 0, err
		}
	}

	referenceID := uuid.New().String()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (reference_id, user_id, delta, reason, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		referenceID, userID, delta, reason, balance, time.Now()); err != nil {
		return 0, err
	}

	s.audit.LogAdjustment(referenceID, userID, reason, delta, balance)
	return balance, nil
}
