package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/guildpay/economy/internal/config"
)

func testEconomyConfig() *config.EconomyConfig {
	return &config.EconomyConfig{
		WageAdminEntitlement: "economy-admin",
		ShopAdminEntitlement: "economy-admin",
		RevokeEntitlements:   []string{"economy-admin", "moderator"},
		MaxWagersPerUser:     30,
		WagerRateWindow:      time.Hour,
	}
}

func TestWageService_SetPolicy(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWageService(db, NewLedgerService(db), testEconomyConfig())

	t.Run("requires the wage administration entitlement", func(t *testing.T) {
		err := service.SetPolicy(context.Background(), "role-police", 500, 7, []string{"citizen"})
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("upserts the policy", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO wage_policies").
			WithArgs("role-police", int64(500), 7, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := service.SetPolicy(context.Background(), "role-police", 500, 7, []string{"economy-admin"})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("setting the same role twice replaces the prior policy", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO wage_policies").
			WithArgs("role-police", int64(800), 3, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.SetPolicy(context.Background(), "role-police", 800, 3, []string{"economy-admin"})
		assert.NoError(t, err)
	})
}

func TestWageService_Collect(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWageService(db, NewLedgerService(db), testEconomyConfig())

	t.Run("no entitlements", func(t *testing.T) {
		_, err := service.Collect(context.Background(), "user1", nil)
		assert.ErrorIs(t, err, ErrNoEligibleWage)
	})

	t.Run("no matching policy", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT amount, interval_days FROM wage_policies").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := service.Collect(context.Background(), "user1", []string{"citizen"})
		assert.ErrorIs(t, err, ErrNoEligibleWage)
	})

	t.Run("first collection pays out and stamps the cooldown atomically", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT amount, interval_days FROM wage_policies").
			WillReturnRows(sqlmock.NewRows([]string{"amount", "interval_days"}).AddRow(500, 7))
		mock.ExpectQuery("SELECT last_wage_collection FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT balance FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec("INSERT INTO accounts").
			WithArgs("user1", int64(500), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(sqlmock.AnyArg(), "user1", int64(500), "WAGE", int64(500), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE accounts SET last_wage_collection = \\$1").
			WithArgs(sqlmock.AnyArg(), "user1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		amount, err := service.Collect(context.Background(), "user1", []string{"role-police"})
		assert.NoError(t, err)
		assert.Equal(t, int64(500), amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("immediate re-collection hits the cooldown", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT amount, interval_days FROM wage_policies").
			WillReturnRows(sqlmock.NewRows([]string{"amount", "interval_days"}).AddRow(500, 7))
		mock.ExpectQuery("SELECT last_wage_collection FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"last_wage_collection"}).AddRow(time.Now()))
		mock.ExpectRollback()

		_, err := service.Collect(context.Background(), "user1", []string{"role-police"})

		var cooldown *CooldownError
		assert.True(t, errors.As(err, &cooldown))
		// Remaining days truncate, so just under 7 days reports 6.
		assert.Equal(t, 6, cooldown.RemainingDays)
	})

	t.Run("collection after the interval elapsed pays out again", func(t *testing.T) {
		last := time.Now().Add(-8 * 24 * time.Hour)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT amount, interval_days FROM wage_policies").
			WillReturnRows(sqlmock.NewRows([]string{"amount", "interval_days"}).AddRow(500, 7))
		mock.ExpectQuery("SELECT last_wage_collection FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"last_wage_collection"}).AddRow(last))
		mock.ExpectQuery("SELECT balance FROM accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(500))
		mock.ExpectExec("UPDATE accounts SET balance = \\$1").
			WithArgs(int64(1000), sqlmock.AnyArg(), "user1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(sqlmock.AnyArg(), "user1", int64(500), "WAGE", int64(1000), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE accounts SET last_wage_collection = \\$1").
			WithArgs(sqlmock.AnyArg(), "user1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		amount, err := service.Collect(context.Background(), "user1", []string{"role-police"})
		assert.NoError(t, err)
		assert.Equal(t, int64(500), amount)
	})
}
