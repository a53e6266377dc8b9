package model

import "time"

// QueueItem is one durable batch of check-in operations awaiting remote
// acknowledgment. ID is generated client-side and doubles as the idempotency
// key the records API uses for duplicate detection.
type QueueItem struct {
	ID            string     `json:"id" gorm:"primaryKey;size:36"`
	Payload       string     `json:"payload" gorm:"type:text"`
	EnqueuedAt    time.Time  `json:"enqueued_at" gorm:"index"`
	Attempts      int        `json:"attempts" gorm:"default:0"`
	Status        int        `json:"status" gorm:"index"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
	LastError     string     `json:"last_error" gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const (
	StatusPending = 0
	StatusSyncing = 1
	StatusFailed  = 2
	StatusSuccess = 3
)

// StatusName maps a status constant to its display form.
func StatusName(status int) string {
	switch status {
	case StatusPending:
		return "pending"
	case StatusSyncing:
		return "syncing"
	case StatusFailed:
		return "failed"
	case StatusSuccess:
		return "success"
	default:
		return "unknown"
	}
}
