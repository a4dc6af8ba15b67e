package models

import "time"

// Review is the canonical local shape of an externally sourced review.
// (BusinessID, Source, ExternalID) is the natural key used by the sync
// engine to detect duplicates across runs.
type Review struct {
	ID          string `gorm:"primaryKey"` // UUID
	BusinessID  string `gorm:"uniqueIndex:idx_business_source_external"`
	Source      string `gorm:"uniqueIndex:idx_business_source_external"` // e.g. "google"
	ExternalID  string `gorm:"uniqueIndex:idx_business_source_external"`
	Author      string
	Rating      int // 1-5, 0 when the provider value is unknown
	Comment     string
	ReviewedAt  time.Time
	ReplyPosted bool `gorm:"default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Review) TableName() string {
	return "reviews"
}
