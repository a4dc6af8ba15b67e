package google

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reviewpilot/reviewpilot/internal/db/models"
	"github.com/reviewpilot/reviewpilot/internal/gbp"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// HandleCallback processes the OAuth callback from Google: validates the
// state blob, exchanges the code, fetches the profile and upserts the
// connected account. The browser always ends up back on the settings
// surface with either connected=1 or error=<code>.
func HandleCallback(db *gorm.DB, cfg *oauth2.Config, stateSecret []byte, settingsURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectErr := func(kind gbp.Kind) {
			http.Redirect(w, r, fmt.Sprintf("%s?error=%s", settingsURL, kind.Code()), http.StatusTemporaryRedirect)
		}

		if errParam := r.URL.Query().Get("error"); errParam != "" {
			// "access_denied" is the user clicking Cancel on the consent page.
			log.Printf("⚠️ Google consent returned error: %s", errParam)
			redirectErr(gbp.KindUserCancelled)
			return
		}

		state, err := DecodeState(stateSecret, r.URL.Query().Get("state"))
		if err != nil {
			log.Printf("⚠️ Rejected OAuth callback: %v", err)
			redirectErr(gbp.KindOf(err))
			return
		}

		code := r.URL.Query().Get("code")
		token, err := cfg.Exchange(r.Context(), code)
		if err != nil {
			log.Printf("❌ Token exchange failed: %v", err)
			redirectErr(gbp.KindProviderUnavailable)
			return
		}

		userInfo, err := fetchUserInfo(r.Context(), cfg, token)
		if err != nil {
			log.Printf("❌ Failed to fetch Google profile: %v", err)
			redirectErr(gbp.KindProviderUnavailable)
			return
		}

		if err := upsertAccount(db, state.UserID, userInfo, token); err != nil {
			log.Printf("❌ Failed to save connected account: %v", err)
			redirectErr(gbp.KindUnknown)
			return
		}

		log.Printf("✅ Connected Google account %s for user %s", userInfo.Email, state.UserID)
		http.Redirect(w, r, fmt.Sprintf("%s?connected=1&business_id=%s", settingsURL, state.BusinessID), http.StatusTemporaryRedirect)
	}
}

func fetchUserInfo(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) (*gbp.UserInfo, error) {
	client := cfg.Client(ctx, token)
	resp, err := client.Get(userInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}

	var info gbp.UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

// upsertAccount stores the grant, preserving the account UUID and any
// prior refresh token when Google omits one on re-consent.
func upsertAccount(db *gorm.DB, userID string, info *gbp.UserInfo, token *oauth2.Token) error {
	var existing models.ConnectedAccount
	err := db.Where("user_id = ? AND email = ?", userID, info.Email).First(&existing).Error

	account := models.ConnectedAccount{
		ID:           uuid.New().String(),
		UserID:       userID,
		Email:        info.Email,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Scopes:       strings.Join(Scopes, " "),
		ExpiresAt:    token.Expiry,
	}
	if err == nil {
		account.ID = existing.ID
		account.CreatedAt = existing.CreatedAt
		if account.RefreshToken == "" {
			account.RefreshToken = existing.RefreshToken
		}
	}
	if account.ExpiresAt.IsZero() {
		account.ExpiresAt = time.Now().Add(time.Hour)
	}

	return db.Save(&account).Error
}
