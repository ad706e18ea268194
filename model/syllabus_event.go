package model

import "time"

// EventType is the kind of interaction recorded against a syllabus
type EventType string

const (
	EventView     EventType = "view"
	EventDownload EventType = "download"
	EventQRScan   EventType = "qr_scan"
)

// SyllabusEvent is an append-only analytics row
type SyllabusEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SyllabusID string    `gorm:"type:uuid;not null;index" json:"syllabus_id"`
	EventType  EventType `gorm:"type:varchar(20);not null;index" json:"event_type"`
	UserAgent  string    `gorm:"type:text" json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for SyllabusEvent
func (SyllabusEvent) TableName() string {
	return "syllabus_analytics"
}
