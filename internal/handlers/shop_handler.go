package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/guildpay/economy/internal/services"
)

type ShopHandler struct {
	shop      *services.ShopService
	validator *services.ValidationHelper
}

func NewShopHandler(shop *services.ShopService) *ShopHandler {
	return &ShopHandler{
		shop:      shop,
		validator: services.NewValidationHelper(),
	}
}

// AddItem appends an item to the shop catalog
// @Summary Add shop item
// @Description Add a purchasable item bound to an entitlement role; requires the shop management entitlement
// @Tags shop
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body object{name=string,price=int64,roleId=string} true "Shop item"
// @Success 201 {object} object{itemId=int64}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /shop/items [post]
func (h *ShopHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	_, entitlements, ok := actingUser(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Name   string `json:"name" validate:"required,max=100"`
		Price  int64  `json:"price" validate:"gte=0"`
		RoleID string `json:"roleId" validate:"required"`
	}

	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	itemID, err := h.shop.AddItem(r.Context(), req.Name, req.Price, req.RoleID, entitlements)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"itemId": itemID,
	})
}

// ListItems returns the catalog in insertion order
// @Summary List shop items
// @Tags shop
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{items=[]models.ShopItem,count=int}
// @Router /shop/items [get]
func (h *ShopHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.shop.ListItems(r.Context())
	if err != nil {
		log.Printf("[SHOP] List failed: %v", err)
		services.SendErrorResponse(w, "Failed to fetch items", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// PurchaseItem buys an item for the acting user
// @Summary Purchase item
// @Description Debit the item price, record the purchase and grant the bound entitlement as one unit
// @Tags shop
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param purchase body object{itemId=int64} true "Purchase"
// @Success 200 {object} services.PurchaseReceipt
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 502 {object} services.ErrorResponse
// @Router /shop/purchase [post]
func (h *ShopHandler) PurchaseItem(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := actingUser(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		ItemID int64 `json:"itemId" validate:"required,gt=0"`
	}

	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	receipt, err := h.shop.Purchase(r.Context(), userID, req.ItemID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(receipt)
}

// RevokeEntitlement removes a purchased role from a user
// @Summary Revoke entitlement
// @Description Remove a purchased entitlement from a user; the actor must hold an allow-listed management entitlement
// @Tags shop
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param revoke body object{userId=string,roleId=string} true "Revocation"
// @Success 200 {object} object{itemName=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /shop/revoke [post]
func (h *ShopHandler) RevokeEntitlement(w http.ResponseWriter, r *http.Request) {
	_, entitlements, ok := actingUser(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		UserID string `json:"userId" validate:"required"`
		RoleID string `json:"roleId" validate:"required"`
	}

	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	itemName, err := h.shop.Revoke(r.Context(), req.UserID, req.RoleID, entitlements)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"itemName": itemName,
	})
}
