package models

import "time"

// Reply lifecycle states. Absence of a Reply row means nothing has been
// generated yet.
const (
	ReplyStatusDraft    = "draft"
	ReplyStatusApproved = "approved"
	ReplyStatusPosted   = "posted"
	ReplyStatusFailed   = "failed"
)

// Reply is a generated or hand-edited response to one Review. Rows are
// never deleted; posted replies are retained as the audit trail.
type Reply struct {
	ID              string `gorm:"primaryKey"` // UUID
	ReviewID        string `gorm:"uniqueIndex"`
	BusinessID      string `gorm:"index"`
	DraftText       string
	FinalText       string // set when posted, immutable afterwards
	Status          string `gorm:"default:draft"`
	LastErrorCode   string
	LastErrorMsg    string
	ExternalReplyID string
	GenerationCount int `gorm:"default:0"`
	RiskLevel       string // parsed from the generation response
	Tags            string // comma-separated category tags
	PostedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Reply) TableName() string {
	return "replies"
}
