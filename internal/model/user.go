package model

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is the principal recorded as the actor of audited changes.
type User struct {
	gorm.Model

	Username string `json:"username" gorm:"uniqueIndex;not null"`

	PasswordHash string `json:"-" gorm:"not null"`

	// Roles contains the role names granted to the user, e.g. ["ROLE_USER", "ROLE_ADMIN"].
	// storing the list as a JSON array keeps the schema flat.
	Roles datatypes.JSON `json:"roles" gorm:"type:jsonb"`
}

// GetUsername returns the name under which the user is recorded in audit data.
func (u *User) GetUsername() string {
	return u.Username
}

// GetID returns the user's primary key.
func (u *User) GetID() uint {
	return u.ID
}

// GetRoles unmarshals and returns the user's role names.
// Returns an empty slice if Roles is nil or empty.
func (u *User) GetRoles() []string {
	if u.Roles == nil {
		return []string{}
	}
	var roles []string
	if err := json.Unmarshal(u.Roles, &roles); err != nil {
		return []string{}
	}
	return roles
}
