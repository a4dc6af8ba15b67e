// Package sync pulls the provider review feed into the local store.
package sync

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/reviewpilot/reviewpilot/internal/db/models"
	"github.com/reviewpilot/reviewpilot/internal/gbp"
	"github.com/reviewpilot/reviewpilot/internal/logging"
	"gorm.io/gorm"
)

const (
	// maxPagesPerSync bounds worst-case latency and provider cost per
	// invocation. A feed that keeps returning page tokens is cut off here
	// and finished on the next run.
	maxPagesPerSync = 10

	sourceGoogle = "google"
)

// Sentinel failures callers translate into a "connect your location" prompt.
var (
	ErrNoConnection = errors.New("business has no active location connection")
	ErrNoLocation   = errors.New("location connection has no provider location set")
)

// Summary reports what one sync invocation did.
type Summary struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// ReviewLister is the slice of the provider client the engine consumes.
type ReviewLister interface {
	ListReviews(ctx context.Context, accountID, locationName, pageToken string) (*gbp.ListReviewsResponse, error)
}

// Engine ingests provider reviews for connected businesses. It holds no
// mutable state of its own, so concurrent syncs of different businesses
// are safe; callers wanting to serialize syncs of the same business must
// do so themselves.
type Engine struct {
	db     *gorm.DB
	client ReviewLister
}

// NewEngine creates a sync engine over the store and provider client.
func NewEngine(db *gorm.DB, client ReviewLister) *Engine {
	return &Engine{db: db, client: client}
}

// SyncBusiness pages through the provider review feed for the business's
// connected location and upserts each review by its natural key
// (business, source, external id). Individual bad records are skipped,
// not fatal. The connection's last-synced stamp advances even when the
// feed is empty.
func (e *Engine) SyncBusiness(ctx context.Context, businessID string) (*Summary, error) {
	reqID := logging.GetRequestID(ctx)

	var conn models.LocationConnection
	if err := e.db.First(&conn, "business_id = ?", businessID).Error; err != nil {
		return nil, ErrNoConnection
	}
	if !conn.SyncEnabled {
		return nil, ErrNoConnection
	}
	if conn.LocationName == "" {
		return nil, ErrNoLocation
	}

	summary := &Summary{}
	pageToken := ""
	for page := 1; page <= maxPagesPerSync; page++ {
		resp, err := e.client.ListReviews(ctx, conn.AccountID, conn.LocationName, pageToken)
		if err != nil {
			return nil, err
		}

		for _, review := range resp.Reviews {
			switch outcome, err := e.upsert(businessID, review); {
			case err != nil:
				summary.Skipped++
				log.Printf("⚠️ [%s] Skipped review %s for business %s: %v", reqID, review.ReviewID, businessID, err)
			case outcome == outcomeUpdated:
				summary.Updated++
			default:
				summary.Imported++
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
		if page == maxPagesPerSync {
			log.Printf("⚠️ [%s] Page cap reached for business %s, finishing with partial results", reqID, businessID)
		}
	}

	now := time.Now()
	if err := e.db.Model(&conn).Update("last_synced_at", now).Error; err != nil {
		log.Printf("⚠️ [%s] Failed to stamp last sync for business %s: %v", reqID, businessID, err)
	}

	log.Printf("✅ [%s] Synced business %s: %d imported, %d updated, %d skipped",
		reqID, businessID, summary.Imported, summary.Updated, summary.Skipped)
	return summary, nil
}

type upsertOutcome int

const (
	outcomeImported upsertOutcome = iota
	outcomeUpdated
)

// upsert maps one provider review to the canonical shape and writes it.
// An existing natural-key match updates mutable fields only.
func (e *Engine) upsert(businessID string, review gbp.Review) (upsertOutcome, error) {
	externalID := review.ReviewID
	if externalID == "" {
		externalID = review.Name
	}
	if externalID == "" {
		return 0, errors.New("review has no external identifier")
	}

	reviewedAt := review.UpdateTime
	if reviewedAt.IsZero() {
		reviewedAt = review.CreateTime
	}

	var existing models.Review
	err := e.db.First(&existing, "business_id = ? AND source = ? AND external_id = ?",
		businessID, sourceGoogle, externalID).Error
	if err == nil {
		updates := map[string]interface{}{
			"rating":      review.StarRating.Score(),
			"comment":     review.Comment,
			"reviewed_at": reviewedAt,
		}
		if review.Reply != nil {
			updates["reply_posted"] = true
		}
		if err := e.db.Model(&existing).Updates(updates).Error; err != nil {
			return 0, err
		}
		return outcomeUpdated, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	record := models.Review{
		ID:          uuid.New().String(),
		BusinessID:  businessID,
		Source:      sourceGoogle,
		ExternalID:  externalID,
		Author:      review.Reviewer.DisplayName,
		Rating:      review.StarRating.Score(),
		Comment:     review.Comment,
		ReviewedAt:  reviewedAt,
		ReplyPosted: review.Reply != nil,
	}
	if err := e.db.Create(&record).Error; err != nil {
		return 0, err
	}
	return outcomeImported, nil
}

// SyncAll runs SyncBusiness for every sync-enabled connection. Used by
// the scheduler; per-business failures are logged and do not stop the rest.
func (e *Engine) SyncAll(ctx context.Context) {
	var conns []models.LocationConnection
	if err := e.db.Where("sync_enabled = ?", true).Find(&conns).Error; err != nil {
		log.Printf("❌ Scheduled sync could not list connections: %v", err)
		return
	}

	for _, conn := range conns {
		runCtx := logging.WithRequestID(ctx, logging.GenerateRequestID())
		if _, err := e.SyncBusiness(runCtx, conn.BusinessID); err != nil {
			log.Printf("⚠️ Scheduled sync failed for business %s: %v", conn.BusinessID, err)
		}
	}
}
