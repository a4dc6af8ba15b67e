// Package token owns the credential lifecycle for connected accounts:
// expiry checking, provider refresh, and revocation handling.
package token

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/reviewpilot/reviewpilot/internal/db/models"
	"github.com/reviewpilot/reviewpilot/internal/gbp"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// expirySkew is how far in the future a stored token must remain valid
// to be handed out without a refresh.
const expirySkew = 5 * time.Minute

// Manager returns currently-valid access tokens for connected accounts,
// refreshing through the provider when needed. Refreshes for the same
// account are deduplicated: concurrent callers share one provider call.
type Manager struct {
	db    *gorm.DB
	cfg   *oauth2.Config
	group singleflight.Group
}

// NewManager creates a token manager over the credential store.
func NewManager(db *gorm.DB, cfg *oauth2.Config) *Manager {
	return &Manager{db: db, cfg: cfg}
}

// GetValidToken returns an access token valid for at least the expiry skew,
// refreshing it first if necessary.
func (m *Manager) GetValidToken(ctx context.Context, accountID string) (string, error) {
	var account models.ConnectedAccount
	if err := m.db.First(&account, "id = ?", accountID).Error; err != nil {
		return "", gbp.Errorf(gbp.KindResourceNotFound, "connected account %s not found", accountID)
	}

	if account.ExpiresAt.After(time.Now().Add(expirySkew)) {
		return account.AccessToken, nil
	}

	return m.refresh(ctx, accountID, false)
}

// ForceRefresh refreshes the account's token regardless of the stored
// expiry. Used when the provider rejects a token the store believes valid.
func (m *Manager) ForceRefresh(ctx context.Context, accountID string) (string, error) {
	return m.refresh(ctx, accountID, true)
}

// refresh funnels all refreshes for one account through a single flight.
// The in-flight entry is removed when the shared call completes, success
// or failure.
func (m *Manager) refresh(ctx context.Context, accountID string, force bool) (string, error) {
	v, err, _ := m.group.Do(accountID, func() (interface{}, error) {
		return m.doRefresh(ctx, accountID, force)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) doRefresh(ctx context.Context, accountID string, force bool) (string, error) {
	var account models.ConnectedAccount
	if err := m.db.First(&account, "id = ?", accountID).Error; err != nil {
		return "", gbp.Errorf(gbp.KindResourceNotFound, "connected account %s not found", accountID)
	}

	// Another caller may have refreshed while we waited on the flight.
	if !force && account.ExpiresAt.After(time.Now().Add(expirySkew)) {
		return account.AccessToken, nil
	}

	if account.RefreshToken == "" {
		log.Printf("🔒 Account %s has no refresh token, reconnect required", account.Email)
		return "", gbp.Errorf(gbp.KindCredentialRevoked, "no refresh token for account %s", accountID)
	}

	source := m.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: account.RefreshToken})
	newToken, err := source.Token()
	if err != nil {
		if isPermanentRefreshError(err) {
			// The grant itself is dead. Clear both credentials so callers
			// surface a reconnect action instead of retrying forever.
			m.db.Model(&account).Updates(map[string]interface{}{
				"access_token":  "",
				"refresh_token": "",
			})
			log.Printf("🔒 Refresh grant revoked for %s, credentials cleared", account.Email)
			return "", gbp.NewError(gbp.KindCredentialRevoked, err)
		}
		log.Printf("⏳ Transient refresh failure for %s: %v", account.Email, err)
		return "", gbp.NewError(gbp.KindCredentialExpired, err)
	}

	account.AccessToken = newToken.AccessToken
	account.ExpiresAt = newToken.Expiry
	// Persist rotated refresh token if provided (RFC 6749 compliance)
	if newToken.RefreshToken != "" && newToken.RefreshToken != account.RefreshToken {
		log.Printf("🔄 Rotating refresh token for: %s", account.Email)
		account.RefreshToken = newToken.RefreshToken
	}
	if err := m.db.Save(&account).Error; err != nil {
		// The fresh token is still good even if we could not store it.
		log.Printf("⚠️ Failed to persist refreshed token for %s: %v", account.Email, err)
	} else {
		log.Printf("✅ Refreshed token for: %s (expires: %s)", account.Email, newToken.Expiry.Format(time.RFC3339))
	}

	return newToken.AccessToken, nil
}

func isPermanentRefreshError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	permanentMarkers := []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
