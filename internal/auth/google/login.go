package google

import (
	"log"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// HandleLogin starts the Business Profile OAuth flow by redirecting to
// Google's consent page. The dashboard passes the acting user via the
// X-User-ID header and the business as a query parameter.
func HandleLogin(cfg *oauth2.Config, stateSecret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		businessID := r.URL.Query().Get("business_id")
		if userID == "" || businessID == "" {
			http.Error(w, "user and business_id are required", http.StatusBadRequest)
			return
		}

		state, err := EncodeState(stateSecret, State{
			UserID:     userID,
			BusinessID: businessID,
			IssuedAt:   time.Now().Unix(),
		})
		if err != nil {
			http.Error(w, "failed to build state", http.StatusInternalServerError)
			return
		}

		// Offline access + forced consent so Google issues a refresh token
		// even for accounts that granted the app before.
		url := cfg.AuthCodeURL(state,
			oauth2.AccessTypeOffline,
			oauth2.ApprovalForce,
		)

		log.Printf("🔐 Starting Google connect for user %s, business %s", userID, businessID)
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
	}
}
