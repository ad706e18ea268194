package services

import (
	"context"
	"errors"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrFacultyNotFound      = errors.New("faculty not found")
	ErrFacultyInUse         = errors.New("faculty still has documents")
	ErrSlugTaken            = errors.New("slug already in use")
	ErrSyllabusNotFound     = errors.New("syllabus not found")
	ErrNoFile               = errors.New("syllabus has no file")
	ErrUpstream             = errors.New("upstream fetch failed")
	ErrStorageUnavailable   = errors.New("file storage is not configured")
	ErrInvalidPDF           = errors.New("invalid PDF file")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrContentNotFound      = errors.New("content item not found")
)

// FileStore is the object storage used for syllabus files
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(raw string) (string, bool)
}

// Actor identifies who triggered an admin action, for the audit log
type Actor struct {
	UserID    uint
	IPAddress string
	UserAgent string
}
