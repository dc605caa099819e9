package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/guildpay/economy/internal/audit"
	"github.com/guildpay/economy/internal/config"
	"github.com/guildpay/economy/internal/directory"
	"github.com/guildpay/economy/internal/models"
)

// ShopService owns the item catalog and the purchase flow. A purchase debits
// the ledger, records the inventory row and grants the item's entitlement as
// one unit: the grant is invoked before the database transaction commits, and
// a failed grant rolls the whole purchase back.
type ShopService struct {
	db         *sql.DB
	ledger     *LedgerService
	directory  directory.Directory
	reconciler *GrantReconciler
	config     *config.EconomyConfig
	audit      *audit.Logger
}

// PurchaseReceipt reports a completed purchase back to the dispatch layer.
type PurchaseReceipt struct {
	ItemID      int64  `json:"itemId"`
	ItemName    string `json:"itemName"`
	Price       int64  `json:"price"`
	GrantedRole string `json:"grantedRole"`
	NewBalance  int64  `json:"newBalance"`
}

func NewShopService(db *sql.DB, redisClient *redis.Client, ledger *LedgerService, dir directory.Directory, cfg *config.EconomyConfig) *ShopService {
	return &ShopService{
		db:         db,
		ledger:     ledger,
		directory:  dir,
		reconciler: NewGrantReconciler(redisClient, dir),
		config:     cfg,
		audit:      audit.NewLogger(),
	}
}

// AddItem appends a new catalog entry. Item ids are assigned by the database
// and never reused; there is no duplicate-name check.
func (s *ShopService) AddItem(ctx context.Context, name string, price int64, roleID string, actorEntitlements []string) (int64, error) {
	if !s.config.CanManageShop(actorEntitlements) {
		return 0, ErrNotAuthorized
	}

	var itemID int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO shop_items (name, price, role_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		name, price, roleID, time.Now()).Scan(&itemID)
	if err != nil {
		log.Printf("[SHOP] Failed to add item %q: %v", name, err)
		return 0, err
	}

	log.Printf("[SHOP] Item added: id=%d name=%q price=%d role=%s", itemID, name, price, roleID)
	return itemID, nil
}

// ListItems returns the catalog in insertion order.
func (s *ShopService) ListItems(ctx context.Context) ([]models.ShopItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, role_id, created_at FROM shop_items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.ShopItem{}
	for rows.Next() {
		var item models.ShopItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.RoleID, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Purchase executes the debit-record-grant sequence for one item. Concurrent
// purchases from the same account serialize on the account row lock, so a
// balance that covers only one of two parallel purchases fails the second
// with ErrInsufficientFunds.
func (s *ShopService) Purchase(ctx context.Context, userID string, itemID int64) (*PurchaseReceipt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var item models.ShopItem
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, price, role_id FROM shop_items WHERE id = $1`,
		itemID).Scan(&item.ID, &item.Name, &item.Price, &item.RoleID)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	var balance int64
	err = tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if balance < item.Price {
		return nil, ErrInsufficientFunds
	}

	newBalance, err := s.ledger.AdjustBalanceTx(ctx, tx, userID, -item.Price, "PURCHASE")
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_records (user_id, item_id, created_at)
		VALUES ($1, $2, $3)`,
		userID, itemID, time.Now()); err != nil {
		return nil, err
	}

	// Grant before commit: a directory failure rolls the debit and the
	// inventory row back together.
	if err := s.directory.Grant(ctx, userID, item.RoleID); err != nil {
		s.audit.LogGrant(fmt.Sprintf("item-%d", itemID), userID, item.RoleID, "FAILED")
		return nil, fmt.Errorf("%w: %v", ErrDirectoryGrant, err)
	}

	if err := tx.Commit(); err != nil {
		// The role is already granted but the debit was lost; queue a revoke
		// so the reconciler walks the grant back.
		log.Printf("[SHOP] Commit failed after grant, queueing revoke: user=%s role=%s err=%v", userID, item.RoleID, err)
		s.reconciler.Enqueue(ctx, GrantTask{UserID: userID, RoleID: item.RoleID, Action: ActionRevoke})
		return nil, err
	}

	s.audit.LogGrant(fmt.Sprintf("item-%d", itemID), userID, item.RoleID, "SUCCESS")
	log.Printf("[SHOP] Purchase: user=%s item=%q price=%d role=%s", userID, item.Name, item.Price, item.RoleID)
	return &PurchaseReceipt{
		ItemID:      item.ID,
		ItemName:    item.Name,
		Price:       item.Price,
		GrantedRole: item.RoleID,
		NewBalance:  newBalance,
	}, nil
}

// Revoke removes a purchased entitlement from a user. The actor must hold one
// of the allow-listed management entitlements. Returns the name of the shop
// item bound to the role, falling back to the raw role id when no item
// references it.
func (s *ShopService) Revoke(ctx context.Context, userID, roleID string, actorEntitlements []string) (string, error) {
	if !s.config.CanRevoke(actorEntitlements) {
		return "", ErrNotAuthorized
	}

	held, err := s.directory.UserEntitlements(ctx, userID)
	if err != nil {
		return "", err
	}
	if !containsRole(held, roleID) {
		return "", ErrEntitlementNotHeld
	}

	if err := s.directory.Revoke(ctx, userID, roleID); err != nil {
		log.Printf("[SHOP] Revoke failed: user=%s role=%s err=%v", userID, roleID, err)
		return "", err
	}

	itemName := roleID
	err = s.db.QueryRowContext(ctx, `
		SELECT name FROM shop_items WHERE role_id = $1 ORDER BY id LIMIT 1`,
		roleID).Scan(&itemName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	log.Printf("[SHOP] Revoked: user=%s role=%s item=%q", userID, roleID, itemName)
	return itemName, nil
}

func containsRole(roles []string, target string) bool {
	for _, r := range roles {
		if r == target {
			return true
		}
	}
	return false
}
