package reply

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reviewpilot/reviewpilot/internal/db/models"
	"github.com/reviewpilot/reviewpilot/internal/gbp"
	"gorm.io/gorm"
)

var (
	ErrReviewNotFound = errors.New("review not found")
	ErrReplyNotFound  = errors.New("reply not found")
	ErrAlreadyPosted  = errors.New("reply is already posted and immutable")
	ErrEmptyDraft     = errors.New("draft text is empty")
	ErrNoConnection   = errors.New("business has no active location connection")
	ErrBadTransition  = errors.New("transition not allowed from current status")
)

// ReplyPoster is the slice of the provider client the workflow consumes.
type ReplyPoster interface {
	UpdateReply(ctx context.Context, accountID, reviewName, comment string) (*gbp.ReviewReply, error)
}

// Service runs the reply lifecycle: draft → (approved) → posted | failed.
type Service struct {
	db          *gorm.DB
	client      ReplyPoster
	generator   Generator
	maxPerReply int
	maxPerDay   int
}

// NewService wires the reply workflow. Zero ceilings fall back to defaults.
func NewService(db *gorm.DB, client ReplyPoster, generator Generator, maxPerReply, maxPerDay int) *Service {
	if maxPerReply <= 0 {
		maxPerReply = DefaultMaxGenerationsPerReply
	}
	if maxPerDay <= 0 {
		maxPerDay = DefaultMaxGenerationsPerDay
	}
	return &Service{db: db, client: client, generator: generator, maxPerReply: maxPerReply, maxPerDay: maxPerDay}
}

// Generate drafts (or re-drafts) a reply for a review. Quota ceilings are
// checked before the generator is invoked; a posted reply is never
// regenerated.
func (s *Service) Generate(ctx context.Context, reviewID string) (*models.Reply, error) {
	var review models.Review
	if err := s.db.First(&review, "id = ?", reviewID).Error; err != nil {
		return nil, ErrReviewNotFound
	}

	var existing *models.Reply
	var found models.Reply
	err := s.db.First(&found, "review_id = ?", reviewID).Error
	if err == nil {
		if found.Status == models.ReplyStatusPosted {
			return nil, ErrAlreadyPosted
		}
		existing = &found
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.checkQuota(review.BusinessID, existing); err != nil {
		return nil, err
	}

	var business models.Business
	s.db.First(&business, "id = ?", review.BusinessID)

	result, err := s.generator.GenerateReply(ctx, GenerationRequest{
		BusinessName: business.Name,
		Author:       review.Author,
		Rating:       review.Rating,
		Comment:      review.Comment,
	})
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}

	if existing == nil {
		created := models.Reply{
			ID:              uuid.New().String(),
			ReviewID:        review.ID,
			BusinessID:      review.BusinessID,
			DraftText:       result.Text,
			Status:          models.ReplyStatusDraft,
			GenerationCount: 1,
			RiskLevel:       result.RiskLevel,
			Tags:            strings.Join(result.Tags, ","),
		}
		if err := s.db.Create(&created).Error; err != nil {
			return nil, err
		}
		log.Printf("✅ Generated first draft for review %s", reviewID)
		return &created, nil
	}

	existing.DraftText = result.Text
	existing.Status = models.ReplyStatusDraft
	existing.GenerationCount++
	existing.RiskLevel = result.RiskLevel
	existing.Tags = strings.Join(result.Tags, ",")
	existing.LastErrorCode = ""
	existing.LastErrorMsg = ""
	if err := s.db.Save(existing).Error; err != nil {
		return nil, err
	}
	log.Printf("✅ Regenerated draft for review %s (generation %d)", reviewID, existing.GenerationCount)
	return existing, nil
}

// Edit replaces the draft text. Allowed from Draft and Failed; a failed
// reply returns to Draft.
func (s *Service) Edit(ctx context.Context, replyID, text string) (*models.Reply, error) {
	var rep models.Reply
	if err := s.db.First(&rep, "id = ?", replyID).Error; err != nil {
		return nil, ErrReplyNotFound
	}
	switch rep.Status {
	case models.ReplyStatusDraft, models.ReplyStatusFailed:
	case models.ReplyStatusPosted:
		return nil, ErrAlreadyPosted
	default:
		return nil, ErrBadTransition
	}

	rep.DraftText = text
	rep.Status = models.ReplyStatusDraft
	if err := s.db.Save(&rep).Error; err != nil {
		return nil, err
	}
	return &rep, nil
}

// Approve marks a draft as reviewed by a human. UI-level, optional.
func (s *Service) Approve(ctx context.Context, replyID string) (*models.Reply, error) {
	var rep models.Reply
	if err := s.db.First(&rep, "id = ?", replyID).Error; err != nil {
		return nil, ErrReplyNotFound
	}
	if rep.Status != models.ReplyStatusDraft {
		return nil, ErrBadTransition
	}
	rep.Status = models.ReplyStatusApproved
	if err := s.db.Save(&rep).Error; err != nil {
		return nil, err
	}
	return &rep, nil
}

// PublishResult is what the caller gets back from a publish attempt.
type PublishResult struct {
	Status          string `json:"status"`
	ExternalReplyID string `json:"external_reply_id,omitempty"`
	ErrorCode       string `json:"error,omitempty"`
	ErrorMessage    string `json:"message,omitempty"`
	Retryable       bool   `json:"retryable"`
}

// Publish posts the reply to the provider. Idempotent at the boundary: a
// reply already posted returns its existing outcome without a provider
// call. draftOverride, when non-empty, is persisted as the final edit
// before publishing. A failed publish leaves the reply in Failed; retry
// is a new explicit Publish call.
func (s *Service) Publish(ctx context.Context, replyID, draftOverride string) (*PublishResult, error) {
	var rep models.Reply
	if err := s.db.First(&rep, "id = ?", replyID).Error; err != nil {
		return nil, ErrReplyNotFound
	}

	if rep.Status == models.ReplyStatusPosted {
		log.Printf("ℹ️ Reply %s already posted, returning existing outcome", replyID)
		return &PublishResult{Status: rep.Status, ExternalReplyID: rep.ExternalReplyID}, nil
	}

	if draftOverride != "" && draftOverride != rep.DraftText {
		rep.DraftText = draftOverride
		if err := s.db.Save(&rep).Error; err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(rep.DraftText) == "" {
		return nil, ErrEmptyDraft
	}

	var review models.Review
	if err := s.db.First(&review, "id = ?", rep.ReviewID).Error; err != nil {
		return nil, ErrReviewNotFound
	}
	var conn models.LocationConnection
	if err := s.db.First(&conn, "business_id = ?", rep.BusinessID).Error; err != nil {
		return nil, ErrNoConnection
	}

	reviewName := fmt.Sprintf("%s/reviews/%s", conn.LocationName, review.ExternalID)
	_, err := s.client.UpdateReply(ctx, conn.AccountID, reviewName, rep.DraftText)
	if err != nil {
		kind := gbp.KindOf(err)
		log.Printf("❌ Publish failed for reply %s: %v", replyID, err)
		s.db.Model(&rep).Updates(map[string]interface{}{
			"status":          models.ReplyStatusFailed,
			"last_error_code": kind.Code(),
			"last_error_msg":  kind.Message(),
		})
		return &PublishResult{
			Status:       models.ReplyStatusFailed,
			ErrorCode:    kind.Code(),
			ErrorMessage: kind.Message(),
			Retryable:    kind.Retryable(),
		}, nil
	}

	externalReplyID := reviewName + "/reply"
	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&rep).Updates(map[string]interface{}{
			"status":            models.ReplyStatusPosted,
			"final_text":        rep.DraftText,
			"external_reply_id": externalReplyID,
			"posted_at":         now,
			"last_error_code":   "",
			"last_error_msg":    "",
		}).Error; err != nil {
			return err
		}
		return tx.Model(&review).Update("reply_posted", true).Error
	})
	if err != nil {
		// The provider accepted the reply; losing the local write must not
		// look like a publish failure or a retry would double-post.
		log.Printf("⚠️ Publish succeeded but local state write failed for reply %s: %v", replyID, err)
	}

	log.Printf("✅ Published reply %s to %s", replyID, reviewName)
	return &PublishResult{Status: models.ReplyStatusPosted, ExternalReplyID: externalReplyID}, nil
}
