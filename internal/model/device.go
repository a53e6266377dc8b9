package model

// KioskDevice is a registered check-in kiosk allowed to talk to this agent.
// The UI presents APIKey in the X-Flock-Key header.
type KioskDevice struct {
	ID       uint64 `gorm:"primaryKey"`
	Name     string `gorm:"size:64;not null"`
	APIKey   string `gorm:"size:64;not null"`
	Location string `gorm:"size:64"`
	Status   int    `gorm:"default:1"`
}
