package types

import (
	"encoding/json"
	"time"
)

// LogEntry is one version of a loggable object.
type LogEntry struct {
	ID          uint            `json:"id"`
	Action      string          `json:"action"`
	LoggedAt    time.Time       `json:"logged_at"`
	ObjectClass string          `json:"object_class"`
	ObjectID    string          `json:"object_id"`
	Version     int             `json:"version"`
	Data        json.RawMessage `json:"data,omitempty"`
	Username    string          `json:"username"`
	IPAddress   string          `json:"ip_address,omitempty"`
}

// ListLogEntriesResponse is returned by the log entry listing endpoints.
type ListLogEntriesResponse struct {
	Entries []LogEntry `json:"entries"`
	Count   int        `json:"count"`
}
