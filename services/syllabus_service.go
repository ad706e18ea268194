package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/services/background"
	"github.com/CANDRY15/flashprint/services/storage"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/pdfvalidation"
	"github.com/CANDRY15/flashprint/utils/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FileUpload describes an attachment before its bytes are read, so size
// and type rules can run first
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// SyllabusFilter narrows a fetched list in memory
type SyllabusFilter struct {
	Query     string
	Year      string
	FacultyID string
}

// RepairReport summarises a repair run
type RepairReport struct {
	Scanned  int      `json:"scanned"`
	Repaired int      `json:"repaired"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// SyllabusService owns the syllabus lifecycle: Pending -> Ready creation,
// repair of stuck rows, updates and deletion with file cleanup
type SyllabusService struct {
	db        *gorm.DB
	files     FileStore
	slugs     *SlugService
	audit     *AuditService
	links     *LinkBuilder
	runner    background.Runner
	validator *validation.Validator
	rules     map[model.SyllabusFlow]validation.FileRule
	log       *logger.Logger
	now       func() time.Time
}

// SyllabusDeps groups the collaborators of SyllabusService
type SyllabusDeps struct {
	Files  FileStore
	Slugs  *SlugService
	Audit  *AuditService
	Links  *LinkBuilder
	Runner background.Runner
	Log    *logger.Logger
	// Upload caps in MB; zero keeps the defaults of 10 and 20
	ManagementMaxMB int
	GeneratorMaxMB  int
}

func NewSyllabusService(db *gorm.DB, deps SyllabusDeps) *SyllabusService {
	return &SyllabusService{
		db:        db,
		files:     deps.Files,
		slugs:     deps.Slugs,
		audit:     deps.Audit,
		links:     deps.Links,
		runner:    deps.Runner,
		validator: validation.NewValidator(),
		rules: map[model.SyllabusFlow]validation.FileRule{
			model.FlowManagement: validation.ManagementFileRule.WithMaxMB(deps.ManagementMaxMB),
			model.FlowGenerator:  validation.GeneratorFileRule.WithMaxMB(deps.GeneratorMaxMB),
		},
		log: deps.Log,
		now: time.Now,
	}
}

// FileRule returns the upload rule enforced for flow
func (s *SyllabusService) FileRule(flow model.SyllabusFlow) validation.FileRule {
	return s.rules[flow]
}

// Create runs the two-phase creation:
//  1. validate input and file (no I/O before this passes)
//  2. upload the file, if any
//  3. insert the row as pending with a placeholder qr_code
//  4. generate the slug and final qr_code, mark ready
//  5. log the admin action in the background
//
// A failure after step 3 leaves a pending row that Repair can finish.
func (s *SyllabusService) Create(ctx context.Context, actor Actor, flow model.SyllabusFlow, in validation.SyllabusInput, file *FileUpload) (*model.Syllabus, error) {
	in = sanitizeSyllabus(in)
	if err := s.validator.ValidateStruct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	rule, ok := s.rules[flow]
	if !ok {
		return nil, fmt.Errorf("unknown flow %q", flow)
	}
	if err := checkFile(rule, file); err != nil {
		return nil, err
	}

	if err := s.ensureFaculty(ctx, in.FacultyID); err != nil {
		return nil, err
	}

	row := model.Syllabus{
		Title:     in.Title,
		Professor: in.Professor,
		Year:      model.Promotion(in.Year),
		FacultyID: in.FacultyID,
		Popular:   in.Popular,
		QRCode:    model.QRCodePlaceholder,
		Status:    model.SyllabusStatusPending,
		Flow:      flow,
	}
	if flow == model.FlowGenerator {
		company := in.CompanyName
		if company == "" {
			company = "FlashPrint"
		}
		row.CompanyName = &company
		row.Description = nullable(in.Description)
		row.Website = nullable(in.Website)
	}
	if actor.UserID != 0 {
		id := actor.UserID
		row.CreatedBy = &id
	}

	if file != nil {
		if err := s.attach(ctx, &row, file); err != nil {
			return nil, err
		}
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create syllabus: %w", err)
	}

	if err := s.finalize(ctx, &row); err != nil {
		return &row, err
	}

	s.audit.LogAdminAction(actor, "create_syllabus", map[string]interface{}{
		"title":   row.Title,
		"qr_code": row.QRCode,
	})

	return &row, nil
}

// finalize moves a pending row to ready. A slug already set is kept, and a
// qr_code that is not the placeholder is left untouched.
func (s *SyllabusService) finalize(ctx context.Context, row *model.Syllabus) error {
	if row.Status == model.SyllabusStatusReady {
		return nil
	}

	if row.Slug == nil || *row.Slug == "" {
		generated, err := s.slugs.GenerateSlug(ctx, row.Title)
		if err != nil {
			return err
		}
		row.Slug = &generated
	}

	if s.links.Classify(row.QRCode) == QRPayloadPlaceholder {
		row.QRCode = s.links.QRCodeFor(row)
	}

	result := s.db.WithContext(ctx).
		Model(&model.Syllabus{}).
		Where("id = ? AND status = ?", row.ID, model.SyllabusStatusPending).
		Updates(map[string]interface{}{
			"slug":    *row.Slug,
			"qr_code": row.QRCode,
			"status":  model.SyllabusStatusReady,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to finalize syllabus: %w", result.Error)
	}

	row.Status = model.SyllabusStatusReady
	return nil
}

// Repair finishes every pending row. Running it again is a no-op.
func (s *SyllabusService) Repair(ctx context.Context) (RepairReport, error) {
	var pending []model.Syllabus
	err := s.db.WithContext(ctx).
		Where("status = ?", model.SyllabusStatusPending).
		Order("created_at ASC").
		Find(&pending).Error
	if err != nil {
		return RepairReport{}, fmt.Errorf("failed to list pending syllabus: %w", err)
	}

	report := RepairReport{Scanned: len(pending)}
	for i := range pending {
		if err := s.finalize(ctx, &pending[i]); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", pending[i].ID, err))
			s.log.Warn("syllabus repair failed", "syllabus_id", pending[i].ID, "error", err)
			continue
		}
		report.Repaired++
	}
	return report, nil
}

// Get loads a syllabus by id with its faculty
func (s *SyllabusService) Get(ctx context.Context, id string) (*model.Syllabus, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSyllabusNotFound
	}

	var row model.Syllabus
	err := s.db.WithContext(ctx).Preload("Faculty").Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSyllabusNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch syllabus: %w", err)
	}
	return &row, nil
}

// Resolve finds a document by slug, falling back to its id. A slug match
// always wins.
func (s *SyllabusService) Resolve(ctx context.Context, slugOrID string) (*model.Syllabus, error) {
	slugOrID = strings.TrimSpace(slugOrID)
	if slugOrID == "" {
		return nil, ErrSyllabusNotFound
	}

	var row model.Syllabus
	err := s.db.WithContext(ctx).Preload("Faculty").Where("slug = ?", slugOrID).First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to resolve syllabus: %w", err)
	}

	return s.Get(ctx, slugOrID)
}

// List fetches every row, newest first, then filters in memory
func (s *SyllabusService) List(ctx context.Context, filter SyllabusFilter) ([]model.Syllabus, error) {
	var rows []model.Syllabus
	err := s.db.WithContext(ctx).
		Preload("Faculty").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list syllabus: %w", err)
	}
	return FilterSyllabus(rows, filter), nil
}

// FilterSyllabus applies a case-insensitive substring match on title and
// professor plus exact year and faculty matches
func FilterSyllabus(rows []model.Syllabus, filter SyllabusFilter) []model.Syllabus {
	q := strings.ToLower(strings.TrimSpace(filter.Query))

	out := make([]model.Syllabus, 0, len(rows))
	for _, row := range rows {
		if filter.Year != "" && string(row.Year) != filter.Year {
			continue
		}
		if filter.FacultyID != "" && row.FacultyID != filter.FacultyID {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(row.Title), q) &&
			!strings.Contains(strings.ToLower(row.Professor), q) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// Update applies the non-nil fields of in and optionally replaces the file.
// The previous file is removed in the background.
func (s *SyllabusService) Update(ctx context.Context, actor Actor, id string, in validation.SyllabusUpdateInput, file *FileUpload) (*model.Syllabus, error) {
	if err := s.validator.ValidateStruct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if file != nil {
		if err := checkFile(s.rules[model.FlowManagement], file); err != nil {
			return nil, err
		}
	}

	row, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		row.Title = validation.SanitizeString(*in.Title)
	}
	if in.Professor != nil {
		row.Professor = validation.SanitizeString(*in.Professor)
	}
	if in.Year != nil {
		row.Year = model.Promotion(*in.Year)
	}
	if in.FacultyID != nil && *in.FacultyID != row.FacultyID {
		if err := s.ensureFaculty(ctx, *in.FacultyID); err != nil {
			return nil, err
		}
		row.FacultyID = *in.FacultyID
		row.Faculty = nil
	}
	if in.Popular != nil {
		row.Popular = *in.Popular
	}

	oldKey := s.fileKey(row)
	if file != nil {
		if err := s.attach(ctx, row, file); err != nil {
			return nil, err
		}
	}

	if err := s.db.WithContext(ctx).Omit("Faculty").Save(row).Error; err != nil {
		return nil, fmt.Errorf("failed to update syllabus: %w", err)
	}

	if file != nil && oldKey != "" && oldKey != row.FileKey {
		s.removeFile(oldKey)
	}

	s.audit.LogAdminAction(actor, "update_syllabus", map[string]interface{}{
		"syllabus_id": row.ID,
		"title":       row.Title,
	})
	return row, nil
}

// Delete removes the row, then removes its stored file in the background.
// A storage failure is logged and never restores the row.
func (s *SyllabusService) Delete(ctx context.Context, actor Actor, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	row, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Where("id = ?", row.ID).Delete(&model.Syllabus{}).Error; err != nil {
		return fmt.Errorf("failed to delete syllabus: %w", err)
	}

	if key := s.fileKey(row); key != "" {
		s.removeFile(key)
	}

	s.audit.LogAdminAction(actor, "delete_syllabus", map[string]interface{}{
		"syllabus_id": row.ID,
		"title":       row.Title,
	})
	return nil
}

func (s *SyllabusService) attach(ctx context.Context, row *model.Syllabus, file *FileUpload) error {
	if s.files == nil {
		return ErrStorageUnavailable
	}

	data, err := readUpload(file)
	if err != nil {
		return err
	}

	pages, err := pdfvalidation.Inspect(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	key := storage.ObjectKey("syllabus", file.Filename, s.now())
	url, err := s.files.Upload(ctx, key, data, file.ContentType)
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	row.FileURL = &url
	row.FileKey = key
	row.FileSize = storage.HumanSize(file.Size)
	row.FileType = file.ContentType
	row.PageCount = pages
	return nil
}

func (s *SyllabusService) fileKey(row *model.Syllabus) string {
	if row.FileKey != "" {
		return row.FileKey
	}
	if !row.HasFile() || s.files == nil {
		return ""
	}
	key, _ := s.files.KeyFromURL(*row.FileURL)
	return key
}

// fileDeleteTimeout bounds the inline delete used when the queue refuses it
const fileDeleteTimeout = 30 * time.Second

// removeFile attempts the storage delete exactly once: on the background
// queue when it has room, inline otherwise
func (s *SyllabusService) removeFile(key string) {
	if s.files == nil {
		return
	}
	task := func(ctx context.Context) error {
		return s.files.Delete(ctx, key)
	}
	if s.runner.Dispatch("storage.delete", task) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), fileDeleteTimeout)
	defer cancel()
	if err := task(ctx); err != nil {
		s.log.Warn("storage delete failed", "key", key, "error", err)
	}
}

func (s *SyllabusService) ensureFaculty(ctx context.Context, facultyID string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Faculty{}).Where("id = ?", facultyID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check faculty: %w", err)
	}
	if count == 0 {
		return ErrFacultyNotFound
	}
	return nil
}

func checkFile(rule validation.FileRule, file *FileUpload) error {
	if file == nil {
		return rule.Check(false, 0, "")
	}
	return rule.Check(true, file.Size, file.ContentType)
}

func readUpload(file *FileUpload) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}

func sanitizeSyllabus(in validation.SyllabusInput) validation.SyllabusInput {
	in.Title = validation.SanitizeString(in.Title)
	in.Professor = validation.SanitizeString(in.Professor)
	in.Description = validation.SanitizeString(in.Description)
	in.CompanyName = validation.SanitizeString(in.CompanyName)
	in.Website = validation.SanitizeString(in.Website)
	return in
}
