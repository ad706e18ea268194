package services

import (
	"context"
	"testing"

	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/services/background"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAnalytics() ([]DocumentRef, []EventRef) {
	docs := []DocumentRef{
		{ID: "a", Title: "Anatomie Générale"},
		{ID: "b", Title: "Droit Civil I"},
		{ID: "c", Title: "Chimie Organique"},
		{ID: "d", Title: "Droit Civil I"},
	}
	events := []EventRef{
		{SyllabusID: "b", EventType: model.EventView},
		{SyllabusID: "b", EventType: model.EventDownload},
		{SyllabusID: "b", EventType: model.EventQRScan},
		{SyllabusID: "c", EventType: model.EventView},
		{SyllabusID: "a", EventType: model.EventQRScan},
		{SyllabusID: "d", EventType: model.EventDownload},
		{SyllabusID: "ghost", EventType: model.EventView},
	}
	return docs, events
}

func TestAggregateEvents(t *testing.T) {
	docs, events := sampleAnalytics()
	report := AggregateEvents(docs, events)

	require.Len(t, report.Documents, 4)
	assert.Equal(t, DocumentStats{ID: "b", Title: "Droit Civil I", Views: 1, Downloads: 1, QRScans: 1, Total: 3}, report.Documents[0])

	// ties on total are broken by title, then id
	var order []string
	for _, d := range report.Documents {
		order = append(order, d.ID)
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, order)

	assert.Equal(t, 2, report.TotalViews)
	assert.Equal(t, 2, report.TotalDownloads)
	assert.Equal(t, 2, report.TotalQRScans)
	assert.Equal(t, 6, report.TotalEvents, "events of unknown documents are ignored")
}

func TestAggregateEventsIsIdempotentAndOrderIndependent(t *testing.T) {
	docs, events := sampleAnalytics()

	first := AggregateEvents(docs, events)
	second := AggregateEvents(docs, events)
	assert.Equal(t, first, second)

	reversedDocs := make([]DocumentRef, len(docs))
	for i, d := range docs {
		reversedDocs[len(docs)-1-i] = d
	}
	reversedEvents := make([]EventRef, len(events))
	for i, e := range events {
		reversedEvents[len(events)-1-i] = e
	}
	assert.Equal(t, first, AggregateEvents(reversedDocs, reversedEvents))

	// inputs are left untouched
	assert.Equal(t, "a", docs[0].ID)
}

func TestAggregateEventsEmpty(t *testing.T) {
	report := AggregateEvents(nil, nil)
	assert.Empty(t, report.Documents)
	assert.Zero(t, report.TotalEvents)
}

func TestAnalyticsReportAndDashboard(t *testing.T) {
	db := testutil.NewDB(t)
	log := logger.NewNop()
	svc := NewAnalyticsService(db, background.Inline{Log: log}, log)
	ctx := context.Background()

	faculty := model.Faculty{Name: "Médecine", Slug: "medecine"}
	require.NoError(t, db.Create(&faculty).Error)
	docs := []model.Syllabus{
		{Title: "Anatomie Générale", Professor: "Dr. Kasongo", Year: model.PromotionBac1, FacultyID: faculty.ID, QRCode: "FP-MED-ANAT-2024", Status: model.SyllabusStatusReady, Popular: true},
		{Title: "Physiologie Humaine", Professor: "Dr. Mulamba", Year: model.PromotionBac2, FacultyID: faculty.ID, QRCode: model.QRCodePlaceholder, Status: model.SyllabusStatusPending},
	}
	require.NoError(t, db.Create(&docs).Error)

	svc.Record(docs[1].ID, model.EventView, "Mozilla/5.0")
	svc.Record(docs[1].ID, model.EventQRScan, "Mozilla/5.0")
	svc.Record(docs[0].ID, model.EventDownload, "curl/8.0")

	report, err := svc.Report(ctx)
	require.NoError(t, err)
	require.Len(t, report.Documents, 2)
	assert.Equal(t, "Physiologie Humaine", report.Documents[0].Title)
	assert.Equal(t, 2, report.Documents[0].Total)
	assert.Equal(t, 3, report.TotalEvents)

	counts, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, DashboardCounts{Documents: 2, Faculties: 1, PopularDocuments: 1, PendingDocuments: 1}, *counts)
}
