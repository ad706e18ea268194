package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/CANDRY15/flashprint/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContentInput upserts one site-content fragment
type ContentInput struct {
	Section     string `json:"section" validate:"required,min=2,max=50"`
	Key         string `json:"key" validate:"required,min=1,max=100"`
	Value       string `json:"value" validate:"required"`
	ContentType string `json:"content_type" validate:"omitempty,oneof=text html markdown"`
}

// ContentService backs the site-content editor
type ContentService struct {
	db *gorm.DB
}

func NewContentService(db *gorm.DB) *ContentService {
	return &ContentService{db: db}
}

// Public returns section -> key -> value
func (s *ContentService) Public(ctx context.Context) (map[string]map[string]string, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]string)
	for _, r := range rows {
		if out[r.Section] == nil {
			out[r.Section] = make(map[string]string)
		}
		out[r.Section][r.Key] = r.Value
	}
	return out, nil
}

// List returns every row ordered by section, then key
func (s *ContentService) List(ctx context.Context) ([]model.SiteContent, error) {
	var rows []model.SiteContent
	err := s.db.WithContext(ctx).Order("section ASC").Order("key ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list site content: %w", err)
	}
	return rows, nil
}

// UpdateValue changes the value of one row and nothing else
func (s *ContentService) UpdateValue(ctx context.Context, id uint, value string) (*model.SiteContent, error) {
	var row model.SiteContent
	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch site content: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&row).Update("value", value).Error; err != nil {
		return nil, fmt.Errorf("failed to update site content: %w", err)
	}
	row.Value = value
	return &row, nil
}

// Upsert inserts or replaces the value at (section, key)
func (s *ContentService) Upsert(ctx context.Context, in ContentInput) (*model.SiteContent, error) {
	row := model.SiteContent{
		Section:     strings.TrimSpace(in.Section),
		Key:         strings.TrimSpace(in.Key),
		Value:       in.Value,
		ContentType: in.ContentType,
	}
	if row.ContentType == "" {
		row.ContentType = "text"
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "section"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "content_type", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert site content: %w", err)
	}

	var saved model.SiteContent
	if err := s.db.WithContext(ctx).Where("section = ? AND key = ?", row.Section, row.Key).First(&saved).Error; err != nil {
		return nil, fmt.Errorf("failed to reload site content: %w", err)
	}
	return &saved, nil
}
