package cron

import (
	"context"
	"time"

	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/utils/auth"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Repairer finishes syllabus rows left pending by a failed create
type Repairer interface {
	Repair(ctx context.Context) (services.RepairReport, error)
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron      *cron.Cron
	db        *gorm.DB
	log       *logger.Logger
	repairer  Repairer
	blacklist *auth.BlacklistService
	now       func() time.Time
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, repairer Repairer, log *logger.Logger) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:      c,
		db:        db,
		log:       log.With("component", "cron"),
		repairer:  repairer,
		blacklist: auth.NewBlacklistService(db),
		now:       time.Now,
	}
}

// Start registers every job and starts the scheduler
func (m *CronManager) Start() error {
	m.log.Info("Starting cron jobs")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	m.log.Info("Cron jobs started", "jobs", len(m.cron.Entries()))
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (m *CronManager) Stop() {
	m.log.Info("Stopping cron jobs")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	jobs := []struct {
		spec string
		name string
		run  func(ctx context.Context) (int, string, error)
	}{
		// Every 5 minutes: finish syllabus rows stuck in pending
		{"0 */5 * * * *", JobRepairPendingSyllabus, m.RepairPendingSyllabus},
		// Daily at 3 AM: drop expired revoked tokens
		{"0 0 3 * * *", JobCleanupTokenBlacklist, m.CleanupTokenBlacklist},
		// Daily at 2 AM: drop old job logs
		{"0 0 2 * * *", JobCleanupCronLogs, m.CleanupCronLogs},
	}

	for _, job := range jobs {
		job := job
		if _, err := m.cron.AddFunc(job.spec, func() { m.RunJob(job.name, job.run) }); err != nil {
			return err
		}
	}

	m.log.Info("All cron jobs registered successfully")
	return nil
}

// RunJob runs one job with a timeout and records it in cron_job_logs
func (m *CronManager) RunJob(name string, run func(ctx context.Context) (int, string, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	entry := m.logJobStart(name)
	processed, message, err := run(ctx)
	if err != nil {
		m.logJobError(entry, processed, err)
		return
	}
	m.logJobComplete(entry, processed, message)
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) *model.CronJobLog {
	m.log.Info("Starting job", "job", jobName)

	entry := &model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: m.now(),
	}
	if err := m.db.Create(entry).Error; err != nil {
		m.log.Warn("failed to record job start", "job", jobName, "error", err)
	}
	return entry
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(entry *model.CronJobLog, processed int, message string) {
	m.log.Info("Completed job", "job", entry.JobName, "message", message)
	m.finish(entry, map[string]interface{}{
		"status":            "completed",
		"records_processed": processed,
		"message":           message,
	})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(entry *model.CronJobLog, processed int, err error) {
	m.log.Error("Job failed", "job", entry.JobName, "error", err)
	m.finish(entry, map[string]interface{}{
		"status":            "failed",
		"records_processed": processed,
		"error_msg":         err.Error(),
	})
}

func (m *CronManager) finish(entry *model.CronJobLog, updates map[string]interface{}) {
	if entry.ID == 0 {
		return
	}
	completed := m.now()
	updates["completed_at"] = completed
	updates["duration_ms"] = completed.Sub(entry.StartedAt).Milliseconds()

	if err := m.db.Model(entry).Updates(updates).Error; err != nil {
		m.log.Warn("failed to record job result", "job", entry.JobName, "error", err)
	}
}
