package model

import "time"

// AdminAudit records destructive queue operations (remove, clear) so a
// congregation admin can reconstruct why queued check-ins disappeared.
type AdminAudit struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Action    string    `json:"action" gorm:"size:32;index"`
	ItemID    string    `json:"item_id" gorm:"size:36;index"`
	Detail    string    `json:"detail" gorm:"type:text"`
	Operator  string    `json:"operator" gorm:"size:64"`
	TraceID   string    `json:"trace_id" gorm:"size:36;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
