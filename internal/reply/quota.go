package reply

import (
	"log"
	"time"

	"github.com/reviewpilot/reviewpilot/internal/db/models"
	"github.com/reviewpilot/reviewpilot/internal/gbp"
)

// Default generation ceilings. Both are advisory read-then-increment
// checks, not compare-and-swap: a concurrent burst can overshoot by a
// small margin, which is acceptable at human request volume.
const (
	DefaultMaxGenerationsPerReply = 5
	DefaultMaxGenerationsPerDay   = 100
)

// checkQuota enforces the per-reply and per-business-per-day generation
// ceilings before any generator call is made.
func (s *Service) checkQuota(businessID string, existing *models.Reply) error {
	if existing != nil && existing.GenerationCount >= s.maxPerReply {
		return gbp.Errorf(gbp.KindRateLimited, "reply has reached the %d-generation limit", s.maxPerReply)
	}

	start, end := s.dayWindow(businessID)
	var todays int64
	if err := s.db.Model(&models.Reply{}).
		Where("business_id = ? AND created_at >= ? AND created_at < ?", businessID, start, end).
		Count(&todays).Error; err != nil {
		return gbp.Errorf(gbp.KindUnknown, "count daily generations: %w", err)
	}
	if todays >= int64(s.maxPerDay) {
		return gbp.Errorf(gbp.KindRateLimited, "business %s reached the daily generation limit of %d", businessID, s.maxPerDay)
	}
	return nil
}

// dayWindow returns the current calendar day in the business's timezone.
func (s *Service) dayWindow(businessID string) (time.Time, time.Time) {
	loc := time.UTC
	var business models.Business
	if err := s.db.First(&business, "id = ?", businessID).Error; err == nil && business.Timezone != "" {
		if l, err := time.LoadLocation(business.Timezone); err == nil {
			loc = l
		} else {
			log.Printf("⚠️ Business %s has invalid timezone %q, using UTC", businessID, business.Timezone)
		}
	}

	now := time.Now().In(loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return start, start.Add(24 * time.Hour)
}
