package models

import "time"

// Event represents a loggable action in the system.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "poll.create", "user.delete"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	PollID    *int64    `json:"pollId,omitempty"` // Nullable for non-poll events
	CreatedAt time.Time `json:"createdAt"`
}
