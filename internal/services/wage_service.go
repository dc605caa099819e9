package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/guildpay/economy/internal/config"
	"github.com/lib/pq"
)

// WageService holds the wage schedule registry and the per-account cooldown
// tracker. Payout and cooldown update are committed as one transaction so a
// crash between them can never allow re-collection.
type WageService struct {
	db     *sql.DB
	ledger *LedgerService
	config *config.EconomyConfig
}

func NewWageService(db *sql.DB, ledger *LedgerService, cfg *config.EconomyConfig) *WageService {
	return &WageService{
		db:     db,
		ledger: ledger,
		config: cfg,
	}
}

// SetPolicy upserts the wage policy for a role. Only holders of the wage
// administration entitlement may call it.
func (s *WageService) SetPolicy(ctx context.Context, roleID string, amount int64, intervalDays int, actorEntitlements []string) error {
	if !s.config.CanManageWages(actorEntitlements) {
		return ErrNotAuthorized
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wage_policies (role_id, amount, interval_days, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (role_id) DO UPDATE
		SET amount = EXCLUDED.amount, interval_days = EXCLUDED.interval_days, updated_at = EXCLUDED.updated_at`,
		roleID, amount, intervalDays, time.Now())
	if err != nil {
		log.Printf("[WAGE] Failed to upsert policy for role %s: %v", roleID, err)
		return err
	}

	log.Printf("[WAGE] Policy configured: role=%s amount=%d interval=%dd", roleID, amount, intervalDays)
	return nil
}

// Collect pays the acting user's wage if a policy matches one of their
// entitlements and the cooldown has elapsed. When several policies match,
// the highest amount wins, with the lowest role id as tie-break.
func (s *WageService) Collect(ctx context.Context, userID string, userEntitlements []string) (int64, error) {
	if len(userEntitlements) == 0 {
		return 0, ErrNoEligibleWage
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var amount int64
	var intervalDays int
	err = tx.QueryRowContext(ctx, `
		SELECT amount, interval_days FROM wage_policies
		WHERE role_id = ANY($1)
		ORDER BY amount DESC, role_id ASC
		LIMIT 1`,
		pq.Array(userEntitlements)).Scan(&amount, &intervalDays)
	if err == sql.ErrNoRows {
		return 0, ErrNoEligibleWage
	}
	if err != nil {
		return 0, err
	}

	now := time.Now()

	// Lock the account row so concurrent collections serialize; a missing row
	// means the user has never collected (nor held a balance).
	var lastCollection *time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT last_wage_collection FROM accounts WHERE user_id = $1 FOR UPDATE`,
		userID).Scan(&lastCollection)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}

	if lastCollection != nil {
		eligibleAt := lastCollection.Add(time.Duration(intervalDays) * 24 * time.Hour)
		if now.Before(eligibleAt) {
			remaining := int(eligibleAt.Sub(now).Hours() / 24)
			return 0, &CooldownError{RemainingDays: remaining}
		}
	}

	if _, err := s.ledger.AdjustBalanceTx(ctx, tx, userID, amount, "WAGE"); err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE accounts SET last_wage_collection = $1, updated_at = $1 WHERE user_id = $2`,
		now, userID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	log.Printf("[WAGE] Collected: user=%s amount=%d", userID, amount)
	return amount, nil
}
