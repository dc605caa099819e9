package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Directory is the external identity/role service. The chat-platform gateway
// owns role membership; the economy engine only reads entitlement sets and
// grants or revokes roles bought in the shop.
type Directory interface {
	UserEntitlements(ctx context.Context, userID string) ([]string, error)
	Grant(ctx context.Context, userID, roleID string) error
	Revoke(ctx context.Context, userID, roleID string) error
}

// HTTPDirectory talks to the gateway's roles API.
type HTTPDirectory struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPDirectory() *HTTPDirectory {
	viper.SetDefault("directory.base_url", "http://localhost:9090")
	viper.SetDefault("directory.timeout", 10*time.Second)

	return &HTTPDirectory{
		baseURL: viper.GetString("directory.base_url"),
		token:   viper.GetString("directory.token"),
		client:  &http.Client{Timeout: viper.GetDuration("directory.timeout")},
	}
}

func (d *HTTPDirectory) UserEntitlements(ctx context.Context, userID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/users/%s/roles", d.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	d.authorize(req)

	resp, err := d.client.Do(req)
	if err != nil {
		log.Printf("[DIRECTORY] Entitlement lookup failed for user %s: %v", userID, err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[DIRECTORY] Entitlement lookup returned status %d for user %s", resp.StatusCode, userID)
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var result struct {
		Roles []string `json:"roles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Roles, nil
}

func (d *HTTPDirectory) Grant(ctx context.Context, userID, roleID string) error {
	return d.modifyRole(ctx, http.MethodPut, userID, roleID)
}

func (d *HTTPDirectory) Revoke(ctx context.Context, userID, roleID string) error {
	return d.modifyRole(ctx, http.MethodDelete, userID, roleID)
}

func (d *HTTPDirectory) modifyRole(ctx context.Context, method, userID, roleID string) error {
	endpoint := fmt.Sprintf("%s/users/%s/roles/%s", d.baseURL, url.PathEscape(userID), url.PathEscape(roleID))
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return err
	}
	d.authorize(req)

	resp, err := d.client.Do(req)
	if err != nil {
		log.Printf("[DIRECTORY] %s role %s for user %s failed: %v", method, roleID, userID, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		log.Printf("[DIRECTORY] %s role %s for user %s returned status %d", method, roleID, userID, resp.StatusCode)
		return fmt.Errorf("directory returned status %d", resp.StatusCode)
	}
	return nil
}

func (d *HTTPDirectory) authorize(req *http.Request) {
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}
}
