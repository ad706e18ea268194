package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/services/background"
	"github.com/CANDRY15/flashprint/utils/logger"
	"gorm.io/gorm"
)

// DocumentRef is the slice of a syllabus row the aggregation needs
type DocumentRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// EventRef is the slice of an analytics row the aggregation needs
type EventRef struct {
	SyllabusID string          `json:"syllabus_id"`
	EventType  model.EventType `json:"event_type"`
}

// DocumentStats holds the per-document counters
type DocumentStats struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Views     int    `json:"views"`
	Downloads int    `json:"downloads"`
	QRScans   int    `json:"qr_scans"`
	Total     int    `json:"total"`
}

// AnalyticsReport is the result of an aggregation
type AnalyticsReport struct {
	Documents      []DocumentStats `json:"documents"`
	TotalViews     int             `json:"total_views"`
	TotalDownloads int             `json:"total_downloads"`
	TotalQRScans   int             `json:"total_qr_scans"`
	TotalEvents    int             `json:"total_events"`
}

// DashboardCounts backs the admin dashboard cards
type DashboardCounts struct {
	Documents        int64 `json:"documents"`
	Faculties        int64 `json:"faculties"`
	PopularDocuments int64 `json:"popular_documents"`
	PendingDocuments int64 `json:"pending_documents"`
}

type AnalyticsService struct {
	db     *gorm.DB
	runner background.Runner
	log    *logger.Logger
}

func NewAnalyticsService(db *gorm.DB, runner background.Runner, log *logger.Logger) *AnalyticsService {
	return &AnalyticsService{db: db, runner: runner, log: log}
}

// Record appends an event in the background. Failures only reach the log.
func (s *AnalyticsService) Record(syllabusID string, eventType model.EventType, userAgent string) {
	s.runner.Dispatch("analytics."+string(eventType), func(ctx context.Context) error {
		event := model.SyllabusEvent{
			SyllabusID: syllabusID,
			EventType:  eventType,
			UserAgent:  userAgent,
		}
		if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
			return fmt.Errorf("failed to record %s event: %w", eventType, err)
		}
		return nil
	})
}

// Report loads documents and events with two independent queries and
// aggregates them
func (s *AnalyticsService) Report(ctx context.Context) (*AnalyticsReport, error) {
	var docs []DocumentRef
	err := s.db.WithContext(ctx).
		Model(&model.Syllabus{}).
		Select("id", "title").
		Order("title ASC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	var events []EventRef
	err = s.db.WithContext(ctx).
		Model(&model.SyllabusEvent{}).
		Select("syllabus_id", "event_type").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	report := AggregateEvents(docs, events)
	return &report, nil
}

// AggregateEvents groups events per document. Events of unknown documents
// are ignored. Rows are ordered by total desc, then title, then id, so the
// output does not depend on input order.
func AggregateEvents(docs []DocumentRef, events []EventRef) AnalyticsReport {
	byID := make(map[string]*DocumentStats, len(docs))
	stats := make([]DocumentStats, len(docs))
	for i, d := range docs {
		stats[i] = DocumentStats{ID: d.ID, Title: d.Title}
	}
	for i := range stats {
		byID[stats[i].ID] = &stats[i]
	}

	var report AnalyticsReport
	for _, e := range events {
		row, ok := byID[e.SyllabusID]
		if !ok {
			continue
		}
		switch e.EventType {
		case model.EventView:
			row.Views++
			report.TotalViews++
		case model.EventDownload:
			row.Downloads++
			report.TotalDownloads++
		case model.EventQRScan:
			row.QRScans++
			report.TotalQRScans++
		default:
			continue
		}
		row.Total++
		report.TotalEvents++
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Total != stats[j].Total {
			return stats[i].Total > stats[j].Total
		}
		if stats[i].Title != stats[j].Title {
			return stats[i].Title < stats[j].Title
		}
		return stats[i].ID < stats[j].ID
	})

	report.Documents = stats
	return report
}

// Dashboard counts documents, faculties, popular and pending documents
func (s *AnalyticsService) Dashboard(ctx context.Context) (*DashboardCounts, error) {
	var counts DashboardCounts
	db := s.db.WithContext(ctx)

	if err := db.Model(&model.Syllabus{}).Count(&counts.Documents).Error; err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if err := db.Model(&model.Faculty{}).Count(&counts.Faculties).Error; err != nil {
		return nil, fmt.Errorf("failed to count faculties: %w", err)
	}
	if err := db.Model(&model.Syllabus{}).Where("popular = ?", true).Count(&counts.PopularDocuments).Error; err != nil {
		return nil, fmt.Errorf("failed to count popular documents: %w", err)
	}
	if err := db.Model(&model.Syllabus{}).Where("status = ?", model.SyllabusStatusPending).Count(&counts.PendingDocuments).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending documents: %w", err)
	}
	return &counts, nil
}
