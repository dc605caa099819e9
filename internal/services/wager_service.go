package services

import (
	"context"
	"database/sql"
	"log"
	"math/rand"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/guildpay/economy/internal/config"
)

// WagerService evaluates roulette bets. The outcome generator is injected so
// tests can force a spin; the default draws uniformly from [0,36].
type WagerService struct {
	db     *sql.DB
	redis  *redis.Client
	ledger *LedgerService
	config *config.EconomyConfig
	spin   func() int
}

// WagerResult reports a settled bet. Delta is the net ledger adjustment: the
// stake is never held in escrow, so a color win credits +amount and an exact
// number win credits +9x amount.
type WagerResult struct {
	Number     int    `json:"number"`
	Color      string `json:"color"`
	Delta      int64  `json:"delta"`
	NewBalance int64  `json:"newBalance"`
}

func NewWagerService(db *sql.DB, redisClient *redis.Client, ledger *LedgerService, cfg *config.EconomyConfig) *WagerService {
	return &WagerService{
		db:     db,
		redis:  redisClient,
		ledger: ledger,
		config: cfg,
		spin:   func() int { return rand.Intn(37) },
	}
}

// Play validates in order: amount, balance, bet token. The balance check and
// the settlement run under one row lock so concurrent wagers from the same
// account serialize.
func (s *WagerService) Play(ctx context.Context, userID string, amount int64, bet string) (*WagerResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if err := s.checkRateLimit(ctx, userID); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if balance < amount {
		return nil, ErrInsufficientFunds
	}

	bet = strings.ToLower(strings.TrimSpace(bet))
	if !isValidBet(bet) {
		return nil, ErrInvalidBet
	}

	number := s.spin()
	color := colorFor(number)

	var delta int64
	switch {
	case bet == color:
		delta = amount
	case bet == strconv.Itoa(number):
		delta = 9 * amount
	default:
		delta = -amount
	}

	newBalance, err := s.ledger.AdjustBalanceTx(ctx, tx, userID, delta, "WAGER")
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.incrementRateLimit(ctx, userID)

	log.Printf("[WAGER] user=%s bet=%s amount=%d outcome=%d(%s) delta=%d", userID, bet, amount, number, color, delta)
	return &WagerResult{
		Number:     number,
		Color:      color,
		Delta:      delta,
		NewBalance: newBalance,
	}, nil
}

func isValidBet(bet string) bool {
	if bet == "red" || bet == "black" {
		return true
	}
	n, err := strconv.Atoi(bet)
	return err == nil && n >= 0 && n <= 36 && bet == strconv.Itoa(n)
}

// colorFor is parity-based, not a real wheel layout: zero is green and
// even/odd decides red/black for everything else. A color bet never matches
// green.
func colorFor(n int) string {
	if n == 0 {
		return "green"
	}
	if n%2 == 0 {
		return "red"
	}
	return "black"
}

func (s *WagerService) checkRateLimit(ctx context.Context, userID string) error {
	if s.redis == nil {
		return nil
	}

	count, err := s.redis.Get(ctx, wagerRateKey(userID)).Int()
	if err != nil && err != redis.Nil {
		log.Printf("[WAGER] Rate limit check failed for user %s: %v", userID, err)
		return nil
	}

	if count >= s.config.MaxWagersPerUser {
		return ErrWagerRateLimited
	}
	return nil
}

func (s *WagerService) incrementRateLimit(ctx context.Context, userID string) {
	if s.redis == nil {
		return
	}

	key := wagerRateKey(userID)
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("[WAGER] Rate limit increment failed for user %s: %v", userID, err)
		return
	}
	if count == 1 {
		s.redis.Expire(ctx, key, s.config.WagerRateWindow)
	}
}

func wagerRateKey(userID string) string {
	return "wager_rate:" + userID
}
