package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/guildpay/economy/internal/services"
)

type EconomyHandler struct {
	ledger    *services.LedgerService
	wages     *services.WageService
	wagers    *services.WagerService
	validator *services.ValidationHelper
}

func NewEconomyHandler(ledger *services.LedgerService, wages *services.WageService, wagers *services.WagerService) *EconomyHandler {
	return &EconomyHandler{
		ledger:    ledger,
		wages:     wages,
		wagers:    wagers,
		validator: services.NewValidationHelper(),
	}
}

// GetBalance returns the acting user's current balance
// @Summary Get balance
// @Description Current ledger balance for the authenticated user
// @Tags economy
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{userId=string,balance=int64}
// @Failure 401 {object} services.ErrorResponse
// @Router /accounts/balance [get]
func (h *EconomyHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := actingUser(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	balance, err := h.ledger.GetBalance(r.Context(), userID)
	if err != nil {
		log.Printf("[BALANCE] Lookup failed for user %s: %v", userID, err)
		services.SendErrorResponse(w, "Failed to fetch balance", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"userId":  userID,
		"balance": balance,
	})
}

// SetWagePolicy configures the wage for an entitlement role
// @Summary Set wage policy
// @Description Upsert the (amount, interval) wage policy for a role; requires the wage administration entitlement
// @Tags wages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param policy body object{roleId=string,amount=int64,intervalDays=int} true "Wage policy"
// @Success 200 {object} object{roleId=string,amount=int64,intervalDays=int}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /wages/policies [post]
func (h *EconomyHandler) SetWagePolicy(w http.ResponseWriter, r *http.Request) {
	_, entitlements, ok := actingUser(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		RoleID       string `json:"roleId" validate:"required"`
		Amount       int64  `json:"amount" validate:"required,gt=0"`
		IntervalDays int    `json:"intervalDays" validate:"required,gt=0"`
	}

	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.wages.SetPolicy(r.Context(), req.RoleID, req.Amount, req.IntervalDays, entitlements); err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"roleId":       req.RoleID,
		"amount":       req.Amount,
		"intervalDays": req.IntervalDays,
	})
}

// CollectWage pays out the acting user's wage
// @Summary Collect wage
// @Description Pay out the wage for the user's highest-paying eligible role, gated by the per-account cooldown
// @Tags wages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{amount=int64}
// @Failure 400 {object} services.ErrorResponse
// @Failure 429 {object} services.ErrorResponse
// @Router /wages/collect [post]
func (h *EconomyHandler) CollectWage(w http.ResponseWriter, r *http.Request) {
	userID, entitlements, ok := actingUser(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	amount, err := h.wages.Collect(r.Context(), userID, entitlements)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"amount": amount,
	})
}

// PlaceWager settles a roulette bet
// @Summary Place roulette wager
// @Description Bet on red, black or an exact number between 0 and 36
// @Tags wagers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param wager body object{amount=int64,bet=string} true "Wager"
// @Success 200 {object} services.WagerResult
// @Failure 400 {object} services.ErrorResponse
// @Router /wagers/roulette [post]
func (h *EconomyHandler) PlaceWager(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := actingUser(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Amount int64  `json:"amount"`
		Bet    string `json:"bet" validate:"required"`
	}

	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.wagers.Play(r.Context(), userID, req.Amount, req.Bet)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// decodeBody applies the shared request-body hygiene: size cap, unknown-field
// rejection, single-object enforcement.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	return true
}
