package models

import "time"

// Business is the owning entity for connections, reviews and replies.
// Timezone is an IANA name used for the daily generation quota window.
type Business struct {
	ID        string `gorm:"primaryKey"` // UUID
	Name      string
	Timezone  string `gorm:"default:UTC"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Business) TableName() string {
	return "businesses"
}
