package validation

import (
	"errors"
	"fmt"
)

// FacultyInput is the create/update schema for a faculty.
// An empty Slug is derived from Name on create.
type FacultyInput struct {
	Name  string `json:"name" validate:"required,min=3,max=100,faculty_name"`
	Slug  string `json:"slug" validate:"omitempty,min=3,max=100,slug"`
	Icon  string `json:"icon" validate:"omitempty,max=50"`
	Color string `json:"color" validate:"omitempty,hexcolor6"`
}

// SyllabusInput is the schema shared by the management and generator flows.
type SyllabusInput struct {
	Title     string `json:"title" form:"title" validate:"required,min=3,max=200"`
	Professor string `json:"professor" form:"professor" validate:"required,min=2,max=100"`
	Year      string `json:"year" form:"year" validate:"required,promotion"`
	FacultyID string `json:"faculty_id" form:"faculty_id" validate:"required,uuid"`
	Popular   bool   `json:"popular" form:"popular"`

	// Generator flow only
	Description string `json:"description" form:"description" validate:"omitempty,max=500"`
	CompanyName string `json:"company_name" form:"company_name" validate:"omitempty,max=100"`
	Website     string `json:"website" form:"website" validate:"omitempty,url,max=255"`
}

// SyllabusUpdateInput allows partial updates; nil fields are left alone.
type SyllabusUpdateInput struct {
	Title     *string `json:"title" form:"title" validate:"omitempty,min=3,max=200"`
	Professor *string `json:"professor" form:"professor" validate:"omitempty,min=2,max=100"`
	Year      *string `json:"year" form:"year" validate:"omitempty,promotion"`
	FacultyID *string `json:"faculty_id" form:"faculty_id" validate:"omitempty,uuid"`
	Popular   *bool   `json:"popular" form:"popular"`
}

// SignUpInput and SignInInput carry credentials.
type SignUpInput struct {
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	RedirectTo string `json:"redirect_to" validate:"omitempty,url"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var (
	ErrFileRequired     = errors.New("file is required")
	ErrFileTooLarge     = errors.New("file too large")
	ErrFileTypeRejected = errors.New("file type not allowed")
)

// FileRule is a hard precondition on an uploaded file.
type FileRule struct {
	MaxMB        int
	AllowedTypes []string
	Required     bool
}

// Upload rules of the two admin flows.
var (
	ManagementFileRule = FileRule{MaxMB: 10, AllowedTypes: []string{"application/pdf"}}
	GeneratorFileRule  = FileRule{MaxMB: 20, AllowedTypes: []string{"application/pdf"}, Required: true}
)

// WithMaxMB returns a copy of r with a different size cap.
func (r FileRule) WithMaxMB(mb int) FileRule {
	if mb > 0 {
		r.MaxMB = mb
	}
	return r
}

// MaxBytes is the size cap in bytes.
func (r FileRule) MaxBytes() int64 {
	return int64(r.MaxMB) * 1024 * 1024
}

// Check validates an attachment described by its size and content type.
// present is false when no file was sent.
func (r FileRule) Check(present bool, size int64, contentType string) error {
	if !present {
		if r.Required {
			return ErrFileRequired
		}
		return nil
	}

	if size > r.MaxBytes() {
		return fmt.Errorf("%w: le fichier ne doit pas dépasser %dMB", ErrFileTooLarge, r.MaxMB)
	}

	for _, allowed := range r.AllowedTypes {
		if contentType == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: seuls les fichiers PDF sont acceptés", ErrFileTypeRejected)
}
