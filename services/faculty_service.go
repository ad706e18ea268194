package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/utils/slug"
	"github.com/CANDRY15/flashprint/utils/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FacultyService handles faculty CRUD
type FacultyService struct {
	db        *gorm.DB
	validator *validation.Validator
}

func NewFacultyService(db *gorm.DB) *FacultyService {
	return &FacultyService{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// List returns every faculty ordered by name
func (s *FacultyService) List(ctx context.Context) ([]model.Faculty, error) {
	var faculties []model.Faculty
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&faculties).Error; err != nil {
		return nil, fmt.Errorf("failed to list faculties: %w", err)
	}
	return faculties, nil
}

// Get finds a faculty by slug first, then by id
func (s *FacultyService) Get(ctx context.Context, slugOrID string) (*model.Faculty, error) {
	var faculty model.Faculty
	err := s.db.WithContext(ctx).Where("slug = ?", slugOrID).First(&faculty).Error
	if err == nil {
		return &faculty, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to fetch faculty: %w", err)
	}

	if _, perr := uuid.Parse(slugOrID); perr != nil {
		return nil, ErrFacultyNotFound
	}

	err = s.db.WithContext(ctx).Where("id = ?", slugOrID).First(&faculty).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFacultyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch faculty: %w", err)
	}
	return &faculty, nil
}

// Create validates in, derives the slug from the name when none is given,
// and stores the faculty
func (s *FacultyService) Create(ctx context.Context, in validation.FacultyInput) (*model.Faculty, error) {
	in = sanitizeFaculty(in)
	if in.Slug == "" {
		in.Slug = slug.Make(in.Name)
	}
	if err := s.validator.ValidateStruct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if err := s.ensureSlugFree(ctx, in.Slug, ""); err != nil {
		return nil, err
	}

	faculty := model.Faculty{
		Name:  in.Name,
		Slug:  in.Slug,
		Icon:  nullable(in.Icon),
		Color: nullable(in.Color),
	}
	if err := s.db.WithContext(ctx).Create(&faculty).Error; err != nil {
		return nil, fmt.Errorf("failed to create faculty: %w", err)
	}
	return &faculty, nil
}

// Update replaces the editable fields. The stored slug is kept unless in
// carries a new one.
func (s *FacultyService) Update(ctx context.Context, id string, in validation.FacultyInput) (*model.Faculty, error) {
	in = sanitizeFaculty(in)
	if err := s.validator.ValidateStruct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	var faculty model.Faculty
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&faculty).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFacultyNotFound
		}
		return nil, fmt.Errorf("failed to fetch faculty: %w", err)
	}

	if in.Slug != "" && in.Slug != faculty.Slug {
		if err := s.ensureSlugFree(ctx, in.Slug, faculty.ID); err != nil {
			return nil, err
		}
		faculty.Slug = in.Slug
	}
	faculty.Name = in.Name
	faculty.Icon = nullable(in.Icon)
	faculty.Color = nullable(in.Color)

	if err := s.db.WithContext(ctx).Save(&faculty).Error; err != nil {
		return nil, fmt.Errorf("failed to update faculty: %w", err)
	}
	return &faculty, nil
}

// Delete removes a faculty that no longer has documents
func (s *FacultyService) Delete(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Syllabus{}).Where("faculty_id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count faculty documents: %w", err)
	}
	if count > 0 {
		return ErrFacultyInUse
	}

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Faculty{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete faculty: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrFacultyNotFound
	}
	return nil
}

func (s *FacultyService) ensureSlugFree(ctx context.Context, value, exceptID string) error {
	query := s.db.WithContext(ctx).Model(&model.Faculty{}).Where("slug = ?", value)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check slug: %w", err)
	}
	if count > 0 {
		return ErrSlugTaken
	}
	return nil
}

func sanitizeFaculty(in validation.FacultyInput) validation.FacultyInput {
	in.Name = validation.SanitizeString(in.Name)
	in.Slug = validation.SanitizeString(in.Slug)
	in.Icon = validation.SanitizeString(in.Icon)
	in.Color = validation.SanitizeString(in.Color)
	return in
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
