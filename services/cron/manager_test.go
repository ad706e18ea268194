package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepairer struct {
	report services.RepairReport
	err    error
	calls  int
}

func (f *fakeRepairer) Repair(ctx context.Context) (services.RepairReport, error) {
	f.calls++
	return f.report, f.err
}

func TestRunJobRecordsCompletion(t *testing.T) {
	db := testutil.NewDB(t)
	repairer := &fakeRepairer{report: services.RepairReport{Scanned: 2, Repaired: 2}}
	m := NewCronManager(db, repairer, logger.NewNop())

	m.RunJob(JobRepairPendingSyllabus, m.RepairPendingSyllabus)

	var entry model.CronJobLog
	require.NoError(t, db.Where("job_name = ?", JobRepairPendingSyllabus).First(&entry).Error)
	assert.Equal(t, "completed", entry.Status)
	assert.Equal(t, 2, entry.RecordsProcessed)
	assert.NotNil(t, entry.CompletedAt)
	assert.Contains(t, entry.Message, "repaired 2")
	assert.Equal(t, 1, repairer.calls)
}

func TestRunJobRecordsFailure(t *testing.T) {
	db := testutil.NewDB(t)
	m := NewCronManager(db, &fakeRepairer{err: errors.New("db down")}, logger.NewNop())

	m.RunJob(JobRepairPendingSyllabus, m.RepairPendingSyllabus)

	var entry model.CronJobLog
	require.NoError(t, db.Where("job_name = ?", JobRepairPendingSyllabus).First(&entry).Error)
	assert.Equal(t, "failed", entry.Status)
	assert.Contains(t, entry.ErrorMsg, "db down")
}

func TestRepairWithFailedRowsIsReportedAsError(t *testing.T) {
	db := testutil.NewDB(t)
	m := NewCronManager(db, &fakeRepairer{report: services.RepairReport{
		Scanned: 2, Repaired: 1, Failed: 1, Errors: []string{"abc: slug"},
	}}, logger.NewNop())

	processed, _, err := m.RepairPendingSyllabus(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, processed)
	assert.Contains(t, err.Error(), "abc: slug")
}

func TestCleanupTokenBlacklist(t *testing.T) {
	db := testutil.NewDB(t)
	m := NewCronManager(db, &fakeRepairer{}, logger.NewNop())

	require.NoError(t, db.Create(&model.JWTTokenBlacklist{Token: "expired", UserID: 1, ExpiresAt: time.Now().Add(-time.Hour)}).Error)
	require.NoError(t, db.Create(&model.JWTTokenBlacklist{Token: "live", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)}).Error)

	removed, _, err := m.CleanupTokenBlacklist(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	var left []model.JWTTokenBlacklist
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "live", left[0].Token)
}

func TestCleanupCronLogsKeepsRecentEntries(t *testing.T) {
	db := testutil.NewDB(t)
	m := NewCronManager(db, &fakeRepairer{}, logger.NewNop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, db.Create(&model.CronJobLog{JobName: "old", Status: "completed", StartedAt: now.Add(-40 * 24 * time.Hour)}).Error)
	require.NoError(t, db.Create(&model.CronJobLog{JobName: "recent", Status: "completed", StartedAt: now.Add(-time.Hour)}).Error)

	removed, _, err := m.CleanupCronLogs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	var names []string
	require.NoError(t, db.Model(&model.CronJobLog{}).Pluck("job_name", &names).Error)
	assert.Equal(t, []string{"recent"}, names)
}

func TestRegisterJobs(t *testing.T) {
	m := NewCronManager(testutil.NewDB(t), &fakeRepairer{}, logger.NewNop())
	require.NoError(t, m.registerJobs())
	assert.Len(t, m.cron.Entries(), 3)
}
