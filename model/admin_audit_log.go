package model

import (
	"time"

	"gorm.io/datatypes"
)

// AdminAuditLog records an admin action and its details
type AdminAuditLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	AdminID   *uint          `gorm:"index" json:"admin_id"`
	Action    string         `gorm:"type:varchar(100);not null;index" json:"action"` // create_syllabus, delete_syllabus, ...
	Details   datatypes.JSON `gorm:"type:jsonb" json:"details"`
	IPAddress string         `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent string         `gorm:"type:text" json:"user_agent"`
	CreatedAt time.Time      `json:"created_at"`
}

// TableName specifies the table name for AdminAuditLog
func (AdminAuditLog) TableName() string {
	return "admin_audit_logs"
}
