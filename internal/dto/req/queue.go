package req

import "time"

type OperationRequest struct {
	Kind       string            `json:"kind" binding:"required"`
	PersonID   string            `json:"person_id" binding:"required"`
	EventID    string            `json:"event_id" binding:"required"`
	RecordedAt time.Time         `json:"recorded_at"`
	Fields     map[string]string `json:"fields"`
}

type EnqueueRequest struct {
	Operations []OperationRequest `json:"operations" binding:"required,min=1,dive"`
}

type GetItemRequest struct {
	ID string `uri:"id" binding:"required"`
}
