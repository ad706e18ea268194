package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/utils/cache"
	"github.com/CANDRY15/flashprint/utils/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleCache is the subset of cache.RedisCache used for role lookups
type RoleCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RoleService answers has_role(user_id, role)
type RoleService struct {
	db    *gorm.DB
	cache RoleCache
	ttl   time.Duration
	log   *logger.Logger
}

// NewRoleService creates a role service. rc may be nil.
func NewRoleService(db *gorm.DB, rc RoleCache, log *logger.Logger) *RoleService {
	return &RoleService{
		db:    db,
		cache: rc,
		ttl:   5 * time.Minute,
		log:   log,
	}
}

func roleCacheKey(userID uint, role string) string {
	return fmt.Sprintf("has_role:%d:%s", userID, role)
}

// HasRole reports whether userID holds role. Cache failures fall back to
// the database.
func (s *RoleService) HasRole(ctx context.Context, userID uint, role string) (bool, error) {
	key := roleCacheKey(userID, role)

	if s.cache != nil {
		val, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			return val == "1", nil
		case !errors.Is(err, cache.ErrNotFound):
			s.log.Warn("role cache read failed", "user_id", userID, "error", err)
		}
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	has := count > 0

	if s.cache != nil {
		val := "0"
		if has {
			val = "1"
		}
		if err := s.cache.Set(ctx, key, val, s.ttl); err != nil {
			s.log.Warn("role cache write failed", "user_id", userID, "error", err)
		}
	}

	return has, nil
}

// Grant gives role to userID. Granting twice is a no-op.
func (s *RoleService) Grant(ctx context.Context, userID uint, role string) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserRole{UserID: userID, Role: role}).Error
	if err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}
	s.invalidate(ctx, userID, role)
	return nil
}

func (s *RoleService) invalidate(ctx context.Context, userID uint, role string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, roleCacheKey(userID, role)); err != nil {
		s.log.Warn("role cache invalidation failed", "user_id", userID, "error", err)
	}
}
