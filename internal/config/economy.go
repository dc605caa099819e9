package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EconomyConfig carries the authorization roles and economy knobs. Values are
// injected at construction so tests can override them.
type EconomyConfig struct {
	WageAdminEntitlement string
	ShopAdminEntitlement string
	RevokeEntitlements   []string // allow-list for revoking purchased roles
	CurrencySymbol       string
	MaxWagersPerUser     int
	WagerRateWindow      time.Duration
}

func LoadEconomyConfig() *EconomyConfig {
	return &EconomyConfig{
		WageAdminEntitlement: getEnv("ECONOMY_WAGE_ADMIN_ROLE", "economy-admin"),
		ShopAdminEntitlement: getEnv("ECONOMY_SHOP_ADMIN_ROLE", "economy-admin"),
		RevokeEntitlements:   getEnvAsList("ECONOMY_REVOKE_ROLES", []string{"economy-admin", "moderator"}),
		CurrencySymbol:       getEnv("ECONOMY_CURRENCY_SYMBOL", "$"),
		MaxWagersPerUser:     getEnvAsInt("ECONOMY_MAX_WAGERS_PER_WINDOW", 30),
		WagerRateWindow:      getEnvAsDuration("ECONOMY_WAGER_RATE_WINDOW", 1*time.Hour),
	}
}

// CanManageWages reports whether any of the actor's entitlements is the
// configured wage administration role.
func (c *EconomyConfig) CanManageWages(entitlements []string) bool {
	return contains(entitlements, c.WageAdminEntitlement)
}

func (c *EconomyConfig) CanManageShop(entitlements []string) bool {
	return contains(entitlements, c.ShopAdminEntitlement)
}

// CanRevoke checks the actor against the revocation allow-list.
func (c *EconomyConfig) CanRevoke(entitlements []string) bool {
	for _, allowed := range c.RevokeEntitlements {
		if contains(entitlements, allowed) {
			return true
		}
	}
	return false
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultVal
}
