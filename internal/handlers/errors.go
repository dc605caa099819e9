package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/guildpay/economy/internal/services"
)

// respondServiceError maps the service error taxonomy onto HTTP codes. All of
// these are user-correctable and surfaced verbatim; anything unrecognized is
// a storage or internal failure and stays opaque.
func respondServiceError(w http.ResponseWriter, err error) {
	var cooldown *services.CooldownError
	if errors.As(err, &cooldown) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":         cooldown.Error(),
			"remainingDays": cooldown.RemainingDays,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrNotAuthorized):
		services.SendErrorResponse(w, err.Error(), http.StatusForbidden, nil)
	case errors.Is(err, services.ErrItemNotFound):
		services.SendErrorResponse(w, err.Error(), http.StatusNotFound, nil)
	case errors.Is(err, services.ErrWagerRateLimited):
		services.SendErrorResponse(w, err.Error(), http.StatusTooManyRequests, nil)
	case errors.Is(err, services.ErrDirectoryGrant):
		services.SendErrorResponse(w, err.Error(), http.StatusBadGateway, nil)
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidBet),
		errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrNoEligibleWage),
		errors.Is(err, services.ErrEntitlementNotHeld):
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	default:
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}

// actingUser pulls the authenticated user and entitlement set injected by the
// auth middleware.
func actingUser(r *http.Request) (string, []string, bool) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		return "", nil, false
	}
	entitlements, _ := r.Context().Value("entitlements").([]string)
	return userID, entitlements, true
}
