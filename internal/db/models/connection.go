package models

import "time"

// LocationConnection binds a business to one Google Business Profile
// location. At most one connection exists per business.
type LocationConnection struct {
	ID           string `gorm:"primaryKey"` // UUID
	BusinessID   string `gorm:"uniqueIndex"`
	AccountID    string `gorm:"index"` // references ConnectedAccount, not owned
	LocationName string // provider resource name, e.g. "accounts/123/locations/456"
	Title        string // display title of the location
	SyncEnabled  bool   `gorm:"default:true"`
	LastSyncedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (LocationConnection) TableName() string {
	return "location_connections"
}
