package v1

import (
	"encoding/json"
	"time"

	"flocksync/pkg/constraints"
)

// Operation is a single domain operation recorded at the kiosk. A batch of
// operations is submitted to the records API as one atomic unit.
type Operation struct {
	Kind       string            `json:"kind"`
	PersonID   string            `json:"person_id"`
	EventID    string            `json:"event_id"`
	RecordedAt time.Time         `json:"recorded_at"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// CheckinBatch is the wire unit sent to the central records API. BatchID
// doubles as the idempotency key the server uses for duplicate detection.
type CheckinBatch struct {
	BatchID    string      `json:"batch_id"`
	DeviceID   string      `json:"device_id"`
	Operations []Operation `json:"operations"`
}

// BatchResult is the records API's acknowledgment of an accepted batch.
type BatchResult struct {
	BatchID string `json:"batch_id"`
	Applied int    `json:"applied"`
}

// SyncResult reports the outcome of one queue item within a drain cycle.
type SyncResult struct {
	ID        string `json:"id"`
	Success   bool   `json:"success"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Error     string `json:"error,omitempty"`
}

// QueueEvent is pushed to stream clients so the kiosk UI can render badges
// and toasts without polling. Seq is assigned by the hub and is strictly
// increasing per process.
type QueueEvent struct {
	Seq    int64              `json:"seq"`
	Action constraints.Action `json:"action"`
	ItemID string             `json:"item_id,omitempty"`
	Count  int                `json:"count"`
	Error  string             `json:"error,omitempty"`
	At     time.Time          `json:"at"`
}

func (b *CheckinBatch) ToJSON() string {
	data, err := json.Marshal(b)
	if err != nil {
		panic("flocksync batch serialization failed: " + err.Error())
	}
	return string(data)
}
