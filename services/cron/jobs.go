package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CANDRY15/flashprint/model"
)

const (
	JobRepairPendingSyllabus = "repair_pending_syllabus"
	JobCleanupTokenBlacklist = "cleanup_token_blacklist"
	JobCleanupCronLogs       = "cleanup_cron_logs"
)

// cronLogRetention bounds how long job logs are kept
const cronLogRetention = 30 * 24 * time.Hour

// RepairPendingSyllabus finishes rows whose slug or qr_code was never set.
// Ready rows are never touched.
func (m *CronManager) RepairPendingSyllabus(ctx context.Context) (int, string, error) {
	report, err := m.repairer.Repair(ctx)
	if err != nil {
		return report.Repaired, "", fmt.Errorf("repair failed: %w", err)
	}

	msg := fmt.Sprintf("Scanned %d pending rows, repaired %d, failed %d", report.Scanned, report.Repaired, report.Failed)
	if report.Failed > 0 {
		return report.Repaired, "", fmt.Errorf("%s: %s", msg, strings.Join(report.Errors, "; "))
	}
	return report.Repaired, msg, nil
}

// CleanupTokenBlacklist removes revoked tokens that have expired anyway
func (m *CronManager) CleanupTokenBlacklist(ctx context.Context) (int, string, error) {
	removed, err := m.blacklist.CleanupExpiredTokens(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("failed to cleanup token blacklist: %w", err)
	}
	return int(removed), fmt.Sprintf("Removed %d expired tokens", removed), nil
}

// CleanupCronLogs removes job logs older than the retention window
func (m *CronManager) CleanupCronLogs(ctx context.Context) (int, string, error) {
	cutoff := m.now().Add(-cronLogRetention)
	result := m.db.WithContext(ctx).
		Where("started_at < ?", cutoff).
		Delete(&model.CronJobLog{})
	if result.Error != nil {
		return 0, "", fmt.Errorf("failed to cleanup cron logs: %w", result.Error)
	}
	return int(result.RowsAffected), fmt.Sprintf("Removed %d job logs", result.RowsAffected), nil
}
