package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthorized      = errors.New("not authorized")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidAmount      = errors.New("amount must be greater than 0")
	ErrInvalidBet         = errors.New("invalid bet: use red, black or a number between 0 and 36")
	ErrNoEligibleWage     = errors.New("no wage policy configured for your roles")
	ErrItemNotFound       = errors.New("item not found")
	ErrEntitlementNotHeld = errors.New("user does not hold that entitlement")
	ErrDirectoryGrant     = errors.New("entitlement grant failed")
	ErrWagerRateLimited   = errors.New("too many wagers, slow down")
)

// CooldownError reports how long until the next wage collection becomes
// eligible. RemainingDays is the floor of the remaining duration in whole
// days.
type CooldownError struct {
	RemainingDays int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("wage cooldown active: %d day(s) remaining", e.RemainingDays)
}
