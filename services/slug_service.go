package services

import (
	"context"
	"fmt"

	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/utils/slug"
	"gorm.io/gorm"
)

// fallbackSlug is used when a title has no ASCII-foldable characters
const fallbackSlug = "document"

// SlugService implements generate_slug(title)
type SlugService struct {
	db *gorm.DB
}

func NewSlugService(db *gorm.DB) *SlugService {
	return &SlugService{db: db}
}

// GenerateSlug folds title into a slug that no syllabus row uses yet
func (s *SlugService) GenerateSlug(ctx context.Context, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = fallbackSlug
	}

	out, err := slug.EnsureUnique(ctx, s.db, model.Syllabus{}.TableName(), "slug", base)
	if err != nil {
		return "", fmt.Errorf("failed to generate slug: %w", err)
	}
	return out, nil
}
