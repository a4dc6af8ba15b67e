package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reviewpilot/reviewpilot/internal/db/models"
	syncengine "github.com/reviewpilot/reviewpilot/internal/sync"
	"gorm.io/gorm"
)

// SyncHandler triggers a synchronous review sync for one business.
// Long-running: bounded by the page cap and per-call timeouts, so callers
// should allow a generous client-side timeout.
func SyncHandler(engine *syncengine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID := chi.URLParam(r, "businessID")

		summary, err := engine.SyncBusiness(r.Context(), businessID)
		switch {
		case errors.Is(err, syncengine.ErrNoConnection):
			writeCodeError(w, http.StatusConflict, "no_connection", "This business has no Google location connected.")
			return
		case errors.Is(err, syncengine.ErrNoLocation):
			writeCodeError(w, http.StatusConflict, "no_location", "The Google connection has no location selected.")
			return
		case err != nil:
			writeKindError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, summary)
	}
}

// ReviewsHandler lists the locally stored reviews for a business, newest
// first.
func ReviewsHandler(db *gorm.DB) http.HandlerFunc {
	type reviewDTO struct {
		ID          string `json:"id"`
		Source      string `json:"source"`
		Author      string `json:"author"`
		Rating      int    `json:"rating"`
		Comment     string `json:"comment"`
		ReviewedAt  string `json:"reviewed_at"`
		ReplyPosted bool   `json:"reply_posted"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		businessID := chi.URLParam(r, "businessID")

		var reviews []models.Review
		if err := db.Where("business_id = ?", businessID).Order("reviewed_at DESC").Find(&reviews).Error; err != nil {
			writeCodeError(w, http.StatusInternalServerError, "storage_error", "Could not load reviews.")
			return
		}

		out := make([]reviewDTO, 0, len(reviews))
		for _, rv := range reviews {
			out = append(out, reviewDTO{
				ID:          rv.ID,
				Source:      rv.Source,
				Author:      rv.Author,
				Rating:      rv.Rating,
				Comment:     rv.Comment,
				ReviewedAt:  rv.ReviewedAt.Format("2006-01-02T15:04:05Z07:00"),
				ReplyPosted: rv.ReplyPosted,
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"reviews": out})
	}
}
