package model

import (
	"time"

	"gorm.io/datatypes"
)

// LogEntry is one version of a loggable entity.
// A new entry is written in the same transaction as every create, update or remove of the entity.
type LogEntry struct {
	ID uint `json:"id" gorm:"primarykey"`

	// Action describes the change that produced this version.
	// Valid values: "create", "update", "remove"
	Action string `json:"action" gorm:"type:varchar(8);not null;index:idx_log_action"`

	LoggedAt time.Time `json:"logged_at" gorm:"not null;index"`

	// ObjectClass is the Go type name of the entity, e.g. "Document".
	ObjectClass string `json:"object_class" gorm:"type:varchar(191);not null;index:idx_log_object"`

	// ObjectID is the primary key of the entity rendered as a string.
	ObjectID string `json:"object_id" gorm:"type:varchar(64);not null;index:idx_log_object"`

	// Version starts at 1 for each object and grows by one with every entry.
	Version int `json:"version" gorm:"not null"`

	// Data holds the versioned fields of the entity after the change, keyed by column name.
	// It is null for "remove".
	Data datatypes.JSON `json:"data" gorm:"type:jsonb"`

	// Username is the attribution resolved for the request that made the change.
	Username string `json:"username" gorm:"type:varchar(255);index"`

	// IPAddress stores the client's IP address.
	// Empty for CLI operations or system actions.
	IPAddress string `json:"ip_address" gorm:"type:varchar(45)"` // IPv6 max length

	// UserAgent stores the client's user agent string.
	UserAgent string `json:"user_agent" gorm:"type:varchar(255)"`
}

// TableName overrides the table name used by LogEntry
func (LogEntry) TableName() string {
	return "log_entries"
}

// Log entry actions
const (
	LogActionCreate = "create"
	LogActionUpdate = "update"
	LogActionRemove = "remove"
)
