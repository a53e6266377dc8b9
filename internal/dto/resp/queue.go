package resp

import (
	"time"

	v1 "flocksync/pkg/api/v1"
)

type EnqueueResponse struct {
	ID string `json:"id"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

// QueueItemView is the UI-facing projection of a queue item; status is
// rendered as a string so the React side does not track the int constants.
type QueueItemView struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	Operations    int        `json:"operations"`
	Attempts      int        `json:"attempts"`
	EnqueuedAt    time.Time  `json:"enqueued_at"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

type ListResponse struct {
	Items []QueueItemView `json:"items"`
}

type DrainResponse struct {
	Synced  int             `json:"synced"`
	Failed  int             `json:"failed"`
	Results []v1.SyncResult `json:"results"`
}

type StatusResponse struct {
	Online  bool  `json:"online"`
	Pending int64 `json:"pending"`
}

type AuditListResponse struct {
	Total   int64          `json:"total"`
	Entries []AuditLogItem `json:"entries"`
}

type AuditLogItem struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	ItemID    string    `json:"item_id,omitempty"`
	Detail    string    `json:"detail"`
	Operator  string    `json:"operator"`
	CreatedAt time.Time `json:"created_at"`
}
