package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/services/background"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditService implements log_admin_action(action, details)
type AuditService struct {
	db     *gorm.DB
	runner background.Runner
}

func NewAuditService(db *gorm.DB, runner background.Runner) *AuditService {
	return &AuditService{db: db, runner: runner}
}

// LogAdminAction records the action in the background. It never fails the
// caller.
func (s *AuditService) LogAdminAction(actor Actor, action string, details map[string]interface{}) {
	s.runner.Dispatch("audit."+action, func(ctx context.Context) error {
		return s.write(ctx, actor, action, details)
	})
}

func (s *AuditService) write(ctx context.Context, actor Actor, action string, details map[string]interface{}) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	entry := model.AdminAuditLog{
		Action:    action,
		Details:   datatypes.JSON(raw),
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	}
	if actor.UserID != 0 {
		id := actor.UserID
		entry.AdminID = &id
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// List returns audit entries newest first
func (s *AuditService) List(ctx context.Context, action string, page, limit int) ([]model.AdminAuditLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.AdminAuditLog{})
	if action != "" {
		query = query.Where("action = ?", action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	var logs []model.AdminAuditLog
	err := query.Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}
	return logs, total, nil
}
