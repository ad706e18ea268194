package model

import "time"

// SiteContent is an editable text fragment of the marketing site
type SiteContent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Section     string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_site_content_section_key" json:"section"`
	Key         string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_site_content_section_key" json:"key"`
	Value       string    `gorm:"type:text;not null" json:"value"`
	ContentType string    `gorm:"type:varchar(20);default:'text'" json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for SiteContent
func (SiteContent) TableName() string {
	return "site_content"
}
