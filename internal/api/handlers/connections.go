package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reviewpilot/reviewpilot/internal/db/models"
	"github.com/reviewpilot/reviewpilot/internal/gbp"
	"gorm.io/gorm"
)

// AccountsHandler lists connected Google accounts. Credentials are never
// serialized outward.
func AccountsHandler(db *gorm.DB) http.HandlerFunc {
	type accountDTO struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		Scopes    string    `json:"scopes"`
		ExpiresAt time.Time `json:"expires_at"`
		Renewable bool      `json:"renewable"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var accounts []models.ConnectedAccount
		if err := db.Find(&accounts).Error; err != nil {
			writeCodeError(w, http.StatusInternalServerError, "storage_error", "Could not load accounts.")
			return
		}

		out := make([]accountDTO, 0, len(accounts))
		for _, acc := range accounts {
			out = append(out, accountDTO{
				ID:        acc.ID,
				Email:     acc.Email,
				Scopes:    acc.Scopes,
				ExpiresAt: acc.ExpiresAt,
				Renewable: acc.RefreshToken != "",
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": out})
	}
}

// LocationsHandler lists the provider locations visible to a connected
// account, for the post-OAuth location picker.
func LocationsHandler(client *gbp.Client) http.HandlerFunc {
	type locationDTO struct {
		Name      string `json:"name"` // v4 resource name used by the sync engine
		Title     string `json:"title"`
		StoreCode string `json:"store_code,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		accountID := r.URL.Query().Get("account_id")
		if accountID == "" {
			writeCodeError(w, http.StatusBadRequest, "bad_request", "account_id is required.")
			return
		}

		accounts, err := client.ListAccounts(r.Context(), accountID)
		if err != nil {
			writeKindError(w, err)
			return
		}

		var out []locationDTO
		for _, acc := range accounts {
			locations, err := client.ListLocations(r.Context(), accountID, acc.Name)
			if err != nil {
				writeKindError(w, err)
				return
			}
			for _, loc := range locations {
				// v4 review endpoints address locations as
				// accounts/{a}/locations/{l}.
				out = append(out, locationDTO{
					Name:      acc.Name + "/" + loc.Name,
					Title:     loc.Title,
					StoreCode: loc.StoreCode,
				})
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"locations": out})
	}
}

// CreateConnectionHandler binds a business to a provider location. A
// business holds at most one connection; re-posting replaces it.
func CreateConnectionHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			BusinessID   string `json:"business_id"`
			AccountID    string `json:"account_id"`
			LocationName string `json:"location_name"`
			Title        string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.BusinessID == "" || body.AccountID == "" || body.LocationName == "" {
			writeCodeError(w, http.StatusBadRequest, "bad_request", "business_id, account_id and location_name are required.")
			return
		}

		conn := models.LocationConnection{
			ID:           uuid.New().String(),
			BusinessID:   body.BusinessID,
			AccountID:    body.AccountID,
			LocationName: body.LocationName,
			Title:        body.Title,
			SyncEnabled:  true,
		}

		var existing models.LocationConnection
		if err := db.First(&existing, "business_id = ?", body.BusinessID).Error; err == nil {
			conn.ID = existing.ID
			conn.CreatedAt = existing.CreatedAt
		}
		if err := db.Save(&conn).Error; err != nil {
			writeCodeError(w, http.StatusInternalServerError, "storage_error", "Could not save connection.")
			return
		}

		log.Printf("✅ Connected business %s to location %s", body.BusinessID, body.LocationName)
		writeJSON(w, http.StatusOK, map[string]string{"id": conn.ID, "status": "connected"})
	}
}

// DeleteConnectionHandler disconnects a business from its location. The
// connected account is removed too once nothing references it.
func DeleteConnectionHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID := chi.URLParam(r, "businessID")

		var conn models.LocationConnection
		if err := db.First(&conn, "business_id = ?", businessID).Error; err != nil {
			writeCodeError(w, http.StatusNotFound, "not_found", "No connection exists for this business.")
			return
		}

		if err := db.Delete(&conn).Error; err != nil {
			writeCodeError(w, http.StatusInternalServerError, "storage_error", "Could not delete connection.")
			return
		}

		var remaining int64
		db.Model(&models.LocationConnection{}).Where("account_id = ?", conn.AccountID).Count(&remaining)
		if remaining == 0 {
			db.Delete(&models.ConnectedAccount{}, "id = ?", conn.AccountID)
			log.Printf("🔒 Removed connected account %s (no connections left)", conn.AccountID)
		}

		log.Printf("✅ Disconnected business %s", businessID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
	}
}
