// Package audit keeps an append-only record of registration lifecycle
// events in SQLite, for operator review and the live admin feed.
package audit

import "time"

// Action classifies one lifecycle event.
type Action string

const (
	ActionRequested    Action = "requested"
	ActionCreated      Action = "created"
	ActionQueued       Action = "queued"
	ActionAccepted     Action = "accepted"
	ActionAcceptFailed Action = "accept_failed"
	ActionConflict     Action = "rejected_conflict"
	ActionRemoved      Action = "removed"
)

// Event is one recorded registration event.
type Event struct {
	ID         string    `json:"id"`
	ServerName string    `json:"server"`
	Username   string    `json:"username"`
	Action     Action    `json:"action"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
