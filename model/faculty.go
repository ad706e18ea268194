package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Faculty is an academic department grouping syllabus documents
type Faculty struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Slug      string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"slug"`
	Icon      *string   `gorm:"type:varchar(50)" json:"icon"`
	Color     *string   `gorm:"type:varchar(7)" json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Syllabus []Syllabus `gorm:"foreignKey:FacultyID;constraint:OnDelete:RESTRICT" json:"syllabus,omitempty"`
}

// TableName specifies the table name for Faculty
func (Faculty) TableName() string {
	return "faculties"
}

func (f *Faculty) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
