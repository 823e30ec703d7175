package events

import "time"

// SyncState describes the refresh loop state shown in logs and status output.
type SyncState string

const (
	SyncStateIdle       SyncState = "idle"
	SyncStateRefreshing SyncState = "refreshing"
	SyncStateFailed     SyncState = "failed"
)

// SyncStatus is a bus event snapshot of the current refresh status.
type SyncStatus struct {
	State      SyncState
	AccountDID string
	Err        string
	Convos     int
	Pages      int
	Timestamp  time.Time
}

// ConvoListChanged signals that some cached conversation list changed.
// Subscribers re-read the store; the payload carries nothing on purpose.
type ConvoListChanged struct{}

// BadgeUpdated is published whenever the unread badge value changes.
type BadgeUpdated struct {
	AccountDID string
	Count      int
	Display    string
	Timestamp  time.Time
}
