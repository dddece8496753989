package model

import (
	"time"

	"gorm.io/gorm"
)

// AuthLevel values stored on an access token.
const (
	AuthLevelFull       = "full"
	AuthLevelRemembered = "remembered"
)

// AccessToken represents a bearer token issued to a user.
// A token issued while switching user references the token of the original session.
type AccessToken struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Value is the bearer token value (cryptographically secure random string)
	Value string `gorm:"uniqueIndex;not null" json:"-"`

	UserID uint `gorm:"not null;index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	// Level is either AuthLevelFull (interactive login) or AuthLevelRemembered (remember-me).
	Level string `gorm:"type:varchar(20);not null" json:"level"`

	// OriginalTokenID is set when this token was issued by switching user.
	// It points at the token of the session that performed the switch.
	OriginalTokenID *uint        `gorm:"index" json:"original_token_id,omitempty"`
	OriginalToken   *AccessToken `gorm:"foreignKey:OriginalTokenID" json:"-"`

	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`

	Revoked bool `gorm:"not null;default:false;index" json:"revoked"`
}

// TableName overrides the table name used by AccessToken
func (AccessToken) TableName() string {
	return "access_tokens"
}

// IsExpired checks if the access token has expired
func (t *AccessToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsValid checks if the token is valid (not revoked and not expired)
func (t *AccessToken) IsValid() bool {
	return !t.Revoked && !t.IsExpired()
}

// IsSwitched reports whether the token was issued by switching user.
func (t *AccessToken) IsSwitched() bool {
	return t.OriginalTokenID != nil
}
