package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyllabusStatus tracks the two-phase creation of a syllabus row
type SyllabusStatus string

const (
	// SyllabusStatusPending rows exist but have no final slug or qr_code yet
	SyllabusStatusPending SyllabusStatus = "pending"
	SyllabusStatusReady   SyllabusStatus = "ready"
)

// QRCodePlaceholder is stored in qr_code until the row is finalised
const QRCodePlaceholder = "temporary"

// SyllabusFlow is the admin flow a row was created through. It decides the
// shape of the link encoded in qr_code.
type SyllabusFlow string

const (
	FlowManagement SyllabusFlow = "management"
	FlowGenerator  SyllabusFlow = "generator"
)

// Syllabus is a course document attached to a faculty and a promotion
type Syllabus struct {
	ID          string         `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"type:varchar(200);not null" json:"title"`
	Professor   string         `gorm:"type:varchar(100);not null" json:"professor"`
	Year        Promotion      `gorm:"type:varchar(20);not null;index" json:"year"`
	Slug        *string        `gorm:"type:varchar(100);uniqueIndex" json:"slug"`
	FileURL     *string        `gorm:"type:text" json:"file_url"`
	FileKey     string         `gorm:"type:text" json:"-"`
	FileSize    string         `gorm:"type:varchar(20)" json:"file_size"`
	FileType    string         `gorm:"type:varchar(100)" json:"file_type,omitempty"`
	PageCount   int            `json:"page_count,omitempty"`
	QRCode      string         `gorm:"type:text;not null" json:"qr_code"`
	Status      SyllabusStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Flow        SyllabusFlow   `gorm:"type:varchar(20);not null;default:'management'" json:"flow"`
	Popular     bool           `gorm:"default:false" json:"popular"`
	Description *string        `gorm:"type:varchar(500)" json:"description,omitempty"`
	CompanyName *string        `gorm:"type:varchar(100)" json:"company_name,omitempty"`
	Website     *string        `gorm:"type:varchar(255)" json:"website,omitempty"`
	FacultyID   string         `gorm:"type:uuid;not null;index" json:"faculty_id"`
	CreatedBy   *uint          `json:"created_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	// Relationships
	Faculty *Faculty        `gorm:"foreignKey:FacultyID" json:"faculty,omitempty"`
	Events  []SyllabusEvent `gorm:"foreignKey:SyllabusID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Syllabus
func (Syllabus) TableName() string {
	return "syllabus"
}

func (s *Syllabus) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// HasFile reports whether a stored file is attached
func (s *Syllabus) HasFile() bool {
	return s.FileURL != nil && *s.FileURL != ""
}

// SlugOrID is the identifier used in public links
func (s *Syllabus) SlugOrID() string {
	if s.Slug != nil && *s.Slug != "" {
		return *s.Slug
	}
	return s.ID
}
