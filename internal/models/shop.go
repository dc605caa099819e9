package models

import "time"

type ShopItem struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Price     int64     `json:"price" db:"price"`
	RoleID    string    `json:"role_id" db:"role_id"` // entitlement granted on purchase
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// InventoryRecord is append-only; the same user may purchase the same item
// more than once.
type InventoryRecord struct {
	UserID    string    `json:"user_id" db:"user_id"`
	ItemID    int64     `json:"item_id" db:"item_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
