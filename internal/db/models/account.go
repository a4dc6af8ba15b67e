package models

import "time"

// ConnectedAccount stores the OAuth identity and tokens for one Google
// account granted to a local user.
type ConnectedAccount struct {
	ID           string `gorm:"primaryKey"` // UUID
	UserID       string `gorm:"uniqueIndex:idx_user_email"`
	Email        string `gorm:"uniqueIndex:idx_user_email"`
	AccessToken  string
	RefreshToken string // empty means the grant cannot be silently renewed
	Scopes       string // space-separated granted scopes
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ConnectedAccount) TableName() string {
	return "connected_accounts"
}
