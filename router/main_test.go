package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/CANDRY15/flashprint/config"
	"github.com/CANDRY15/flashprint/database"
	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/router"
	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/services/background"
	"github.com/CANDRY15/flashprint/services/interstitial"
	"github.com/CANDRY15/flashprint/services/storage"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/testutil"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	adminEmail    = "admin@flashprint.test"
	adminPassword = "s3cret-password"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeFiles struct {
	mu      sync.Mutex
	uploads []string
	deletes []string
}

func (f *fakeFiles) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, key)
	return "https://cdn.flashprint.test/" + key, nil
}

func (f *fakeFiles) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeFiles) KeyFromURL(raw string) (string, bool) {
	return storage.KeyFromPublicURL(raw, "syllabus-files", "https://cdn.flashprint.test")
}

type fakeMailer struct {
	mu    sync.Mutex
	links map[string]string
}

func (m *fakeMailer) SendConfirmationEmail(to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[to] = link
	return nil
}

type fixture struct {
	app    *fiber.App
	db     *gorm.DB
	clock  *fakeClock
	files  *fakeFiles
	mailer *fakeMailer
}

func testEnv() *config.EnvironmentVariable {
	return &config.EnvironmentVariable{
		ENVIRONMENT:                        "test",
		JWT_SECRET:                         "test-secret",
		JWT_ISSUER:                         "flashprint-test",
		JWT_EXPIRY_HOURS:                   1,
		REFRESH_TOKEN_EXPIRY_HOURS:         24,
		PUBLIC_BASE_URL:                    "https://flashprint.test",
		FILE_PROXY_BASE:                    "/functions/v1/syllabus-file",
		WHATSAPP_NUMBER:                    "2430815050397",
		ALLOWED_ORIGINS:                    "http://localhost:5173",
		INTERSTITIAL_COUNTDOWN_SECONDS:     5,
		INTERSTITIAL_INITIAL_DELAY_SECONDS: 3,
		MAX_UPLOAD_MB_MANAGEMENT:           10,
		MAX_UPLOAD_MB_GENERATOR:            20,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	log := logger.NewNop()
	require.NoError(t, database.NewSeeder(db, services.NewRoleService(db, nil, log), log).SeedAll(adminEmail, adminPassword))

	f := &fixture{
		db:     db,
		clock:  &fakeClock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)},
		files:  &fakeFiles{},
		mailer: &fakeMailer{links: map[string]string{}},
	}

	deps := router.Deps{
		Env:        testEnv(),
		Log:        log,
		Files:      f.files,
		Runner:     background.Inline{Log: log},
		GateStore:  interstitial.NewMemoryStore(f.clock),
		Clock:      f.clock,
		HTTPClient: http.DefaultClient,
		Mailer:     f.mailer,
	}

	f.app = fiber.New()
	svc := router.NewServices(db, deps)
	require.NoError(t, router.SetupRoutes(f.app, database.NewGORMStore(db, log), svc, deps))
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return f.do(t, req)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func (f *fixture) signIn(t *testing.T, email, password string) string {
	t.Helper()
	resp := f.request(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data struct {
		Session struct {
			AccessToken string `json:"access_token"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &data))
	require.NotEmpty(t, data.Session.AccessToken)
	return data.Session.AccessToken
}

func (f *fixture) faculty(t *testing.T) *model.Faculty {
	t.Helper()
	faculty := &model.Faculty{Name: "Faculté de Droit", Slug: "faculte-de-droit"}
	require.NoError(t, f.db.Create(faculty).Error)
	return faculty
}

func (f *fixture) document(t *testing.T, facultyID, slug, fileURL string) *model.Syllabus {
	t.Helper()
	doc := &model.Syllabus{
		Title:     "Droit Civil",
		Professor: "Prof. Kabila",
		Year:      model.PromotionBac1,
		FacultyID: facultyID,
		QRCode:    "https://flashprint.test/syllabus/x",
		Status:    model.SyllabusStatusReady,
	}
	if slug != "" {
		doc.Slug = &slug
	}
	if fileURL != "" {
		doc.FileURL = &fileURL
	}
	require.NoError(t, f.db.Create(doc).Error)
	return doc
}

func upstream(t *testing.T, body []byte, contentType string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFileProxyRoundTrip(t *testing.T) {
	f := newFixture(t)
	pdf := testutil.MinimalPDF(2)
	srv := upstream(t, pdf, "application/pdf", http.StatusOK)
	doc := f.document(t, f.faculty(t).ID, "droit-civil", srv.URL+"/syllabus/droit-civil.pdf")

	for _, path := range []string{
		"/functions/v1/syllabus-file/droit-civil",
		"/files/" + doc.ID,
	} {
		resp := f.request(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)

		got, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, pdf, got)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.Equal(t, `inline; filename="Droit Civil"`, resp.Header.Get("Content-Disposition"))
		assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestFileProxyErrors(t *testing.T) {
	f := newFixture(t)
	faculty := f.faculty(t)
	broken := upstream(t, []byte("nope"), "text/plain", http.StatusInternalServerError)
	f.document(t, faculty.ID, "broken", broken.URL+"/broken.pdf")
	f.document(t, faculty.ID, "no-file", "")

	cases := []struct {
		path    string
		status  int
		message string
	}{
		{"/functions/v1/syllabus-file", http.StatusBadRequest, "Slug ou ID manquant"},
		{"/functions/v1/syllabus-file/unknown", http.StatusNotFound, "Fichier non trouvé"},
		{"/functions/v1/syllabus-file/no-file", http.StatusNotFound, "Fichier non trouvé"},
		{"/functions/v1/syllabus-file/broken", http.StatusInternalServerError, "Erreur lors de la récupération du fichier"},
	}
	for _, tc := range cases {
		resp := f.request(t, http.MethodGet, tc.path, "", nil)
		assert.Equal(t, tc.status, resp.StatusCode, tc.path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, tc.message, body["error"], tc.path)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestFileProxyPreflight(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodOptions, "/functions/v1/syllabus-file/anything", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", resp.Header.Get("Access-Control-Allow-Headers"))
}

func TestDocumentViewUnknownSlugRedirectsHome(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodGet, "/api/v1/documents/does-not-exist", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	env := decode(t, resp)
	require.NotNil(t, env.Error)
	assert.Equal(t, "/", env.Error.Details["redirect"])
}

func TestDocumentViewRecordsQRScan(t *testing.T) {
	f := newFixture(t)
	doc := f.document(t, f.faculty(t).ID, "droit-civil", "https://cdn.flashprint.test/syllabus/droit-civil.pdf")

	resp := f.request(t, http.MethodGet, "/api/v1/documents/droit-civil?src=qr", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view struct {
		Kind     string `json:"kind"`
		ProxyURL string `json:"proxy_url"`
		Preview  struct {
			Inline bool `json:"inline"`
		} `json:"preview"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &view))
	assert.Equal(t, "PDF", view.Kind)
	assert.True(t, view.Preview.Inline)
	assert.Equal(t, "/functions/v1/syllabus-file/droit-civil", view.ProxyURL)

	var events []model.SyllabusEvent
	require.NoError(t, f.db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, doc.ID, events[0].SyllabusID)
	assert.Equal(t, model.EventQRScan, events[0].EventType)
}

func TestDownloadSetsAttachmentName(t *testing.T) {
	f := newFixture(t)
	srv := upstream(t, testutil.MinimalPDF(1), "application/pdf", http.StatusOK)
	f.document(t, f.faculty(t).ID, "droit-civil", srv.URL+"/file")

	resp := f.request(t, http.MethodGet, "/api/v1/documents/droit-civil/download", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="Droit Civil.pdf"`, resp.Header.Get("Content-Disposition"))

	var count int64
	require.NoError(t, f.db.Model(&model.SyllabusEvent{}).Where("event_type = ?", model.EventDownload).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFileNameHeadersEscapeQuotes(t *testing.T) {
	f := newFixture(t)
	srv := upstream(t, testutil.MinimalPDF(1), "application/pdf", http.StatusOK)
	doc := f.document(t, f.faculty(t).ID, "cours-avance", srv.URL+"/file")
	require.NoError(t, f.db.Model(doc).Update("title", `Cours "Avancé"`).Error)

	for path, want := range map[string]string{
		"/api/v1/documents/cours-avance/download": `Cours "Avancé".pdf`,
		"/functions/v1/syllabus-file/cours-avance": `Cours "Avancé"`,
	} {
		resp := f.request(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)

		_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
		require.NoError(t, err, path)
		assert.Equal(t, want, params["filename"], path)
	}
}

func TestInterstitialCountdown(t *testing.T) {
	f := newFixture(t)
	f.document(t, f.faculty(t).ID, "droit-civil", "https://cdn.flashprint.test/syllabus/droit-civil.pdf")

	resp := f.request(t, http.MethodPost, "/api/v1/documents/droit-civil/intents", "", map[string]string{"action": "download"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var state interstitial.State
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &state))
	assert.Equal(t, 5, state.RemainingSeconds)
	assert.False(t, state.Dismissible)
	assert.Equal(t, "Fermeture dans 5s", state.Message)

	dismiss := "/api/v1/interstitials/" + state.Ticket + "/dismiss"

	f.clock.Advance(4 * time.Second)
	resp = f.request(t, http.MethodPost, dismiss, "", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, float64(1), decode(t, resp).Error.Details["remaining_seconds"])

	f.clock.Advance(time.Second)
	resp = f.request(t, http.MethodPost, dismiss, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &result))
	assert.Equal(t, "/api/v1/documents/droit-civil/download", result["download_url"])

	resp = f.request(t, http.MethodPost, dismiss, "", nil)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestInterstitialStreamEndsWhenReady(t *testing.T) {
	f := newFixture(t)
	f.document(t, f.faculty(t).ID, "droit-civil", "https://cdn.flashprint.test/syllabus/droit-civil.pdf")

	resp := f.request(t, http.MethodPost, "/api/v1/documents/droit-civil/intents", "", map[string]string{"action": "view"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var state interstitial.State
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &state))

	f.clock.Advance(5 * time.Second)

	resp = f.request(t, http.MethodGet, "/api/v1/interstitials/"+state.Ticket+"/stream", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "event: ready\n")
	assert.Contains(t, string(body), `"dismissible":true`)

	resp = f.request(t, http.MethodGet, "/api/v1/interstitials/unknown/stream", "", nil)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestInterstitialConfig(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodGet, "/api/v1/interstitials/config", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var schedule interstitial.Schedule
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &schedule))
	assert.Equal(t, interstitial.Schedule{InitialDelaySeconds: 3, CountdownSeconds: 5}, schedule)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodGet, "/api/v1/admin/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.request(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": "student@flashprint.test", "password": "long-enough-pw",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	student := f.signIn(t, "student@flashprint.test", "long-enough-pw")

	resp = f.request(t, http.MethodGet, "/api/v1/admin/dashboard", student, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := f.signIn(t, adminEmail, adminPassword)
	resp = f.request(t, http.MethodGet, "/api/v1/admin/dashboard", admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminFacultyRoutes(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, adminEmail, adminPassword)

	resp := f.request(t, http.MethodPost, "/api/v1/admin/faculties", token, map[string]string{"name": "Faculté de Médecine"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var faculty model.Faculty
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &faculty))
	assert.Equal(t, "faculte-de-medecine", faculty.Slug)

	resp = f.request(t, http.MethodPost, "/api/v1/admin/faculties", token, map[string]string{"name": "Faculté de Médecine"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.request(t, http.MethodPost, "/api/v1/admin/faculties", token, map[string]string{"name": "M3d"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = f.request(t, http.MethodPut, "/api/v1/admin/faculties/"+faculty.ID, token, map[string]string{
		"name": "Faculté de Médecine", "color": "#1E40AF",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &faculty))
	require.NotNil(t, faculty.Color)
	assert.Equal(t, "#1E40AF", *faculty.Color)

	resp = f.request(t, http.MethodGet, "/api/v1/admin/faculties", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []model.Faculty
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &listed))
	assert.Len(t, listed, 1)

	doc := f.document(t, faculty.ID, "anatomie", "")
	resp = f.request(t, http.MethodDelete, "/api/v1/admin/faculties/"+faculty.ID, token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	require.NoError(t, f.db.Unscoped().Delete(doc).Error)
	resp = f.request(t, http.MethodDelete, "/api/v1/admin/faculties/"+faculty.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.request(t, http.MethodDelete, "/api/v1/admin/faculties/"+faculty.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminContentRoutes(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, adminEmail, adminPassword)

	resp := f.request(t, http.MethodGet, "/api/v1/admin/content", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []model.SiteContent
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &rows))

	var phone *model.SiteContent
	for i := range rows {
		if rows[i].Section == "contact" && rows[i].Key == "phone" {
			phone = &rows[i]
		}
	}
	require.NotNil(t, phone)

	resp = f.request(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/content/%d", phone.ID), token, map[string]string{"value": "+243 999 000 111"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.request(t, http.MethodPut, "/api/v1/admin/content/abc", token, map[string]string{"value": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.request(t, http.MethodPost, "/api/v1/admin/content", token, map[string]string{"section": "promo", "key": "banner"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = f.request(t, http.MethodPost, "/api/v1/admin/content", token, map[string]string{
		"section": "promo", "key": "banner", "value": "Rentrée académique",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/api/v1/content", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var content map[string]map[string]string
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &content))
	assert.Equal(t, "+243 999 000 111", content["contact"]["phone"])
	assert.Equal(t, "Rentrée académique", content["promo"]["banner"])
}

func TestAdminAuditLogRoute(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, adminEmail, adminPassword)

	resp := f.request(t, http.MethodPost, "/api/v1/admin/faculties", token, map[string]string{"name": "Faculté de Médecine"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = f.request(t, http.MethodPost, "/api/v1/admin/content", token, map[string]string{
		"section": "promo", "key": "banner", "value": "Rentrée académique",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/api/v1/admin/audit-logs?action=create_faculty", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Data       []model.AdminAuditLog `json:"data"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(1), page.Pagination.Total)
	assert.Equal(t, "create_faculty", page.Data[0].Action)
	require.NotNil(t, page.Data[0].AdminID)
	assert.Contains(t, string(page.Data[0].Details), "Faculté de Médecine")

	resp = f.request(t, http.MethodGet, "/api/v1/admin/audit-logs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminSyllabusValidationRejectsBeforeAnyWrite(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, adminEmail, adminPassword)
	faculty := f.faculty(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "ab"))
	require.NoError(t, w.WriteField("professor", "Prof. Kabila"))
	require.NoError(t, w.WriteField("year", "Bac1"))
	require.NoError(t, w.WriteField("faculty_id", faculty.ID))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/syllabus", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp := f.do(t, req)

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, resp).Error.Code)

	var count int64
	require.NoError(t, f.db.Model(&model.Syllabus{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.files.uploads)
}

func TestAdminSyllabusCreateAndDelete(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, adminEmail, adminPassword)
	faculty := f.faculty(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "Droit Constitutionnel"))
	require.NoError(t, w.WriteField("professor", "Prof. Mbuyi"))
	require.NoError(t, w.WriteField("year", "Bac2"))
	require.NoError(t, w.WriteField("faculty_id", faculty.ID))
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="droit const.pdf"`}
	header["Content-Type"] = []string{"application/pdf"}
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(testutil.MinimalPDF(1))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/syllabus", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp := f.do(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created model.Syllabus
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &created))
	assert.Equal(t, model.SyllabusStatusReady, created.Status)
	assert.Equal(t, "https://flashprint.test/syllabus/"+created.ID, created.QRCode)
	require.Len(t, f.files.uploads, 1)
	assert.True(t, strings.HasPrefix(f.files.uploads[0], "syllabus/"))

	resp = f.request(t, http.MethodDelete, "/api/v1/admin/syllabus/"+created.ID, token, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "confirmation required", decode(t, resp).Error.Message)

	resp = f.request(t, http.MethodDelete, "/api/v1/admin/syllabus/"+created.ID+"?confirm=true", token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, f.files.uploads, f.files.deletes)
}

func TestSignOutRevokesToken(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, adminEmail, adminPassword)

	resp := f.request(t, http.MethodGet, "/api/v1/auth/session", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session struct {
		IsAdmin bool `json:"is_admin"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &session))
	assert.True(t, session.IsAdmin)

	resp = f.request(t, http.MethodPost, "/api/v1/auth/signout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Vous êtes déconnecté", decode(t, resp).Message)

	resp = f.request(t, http.MethodGet, "/api/v1/auth/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignUpConfirmationRedirects(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": "New@FlashPrint.test", "password": "long-enough-pw", "redirect_to": "https://flashprint.test/bienvenue",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	link := f.mailer.links["new@flashprint.test"]
	require.NotEmpty(t, link)
	path := link[strings.Index(link, "/api/v1/auth/confirm"):]

	resp = f.request(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://flashprint.test/bienvenue", resp.Header.Get("Location"))

	var user model.User
	require.NoError(t, f.db.Where("email = ?", "new@flashprint.test").First(&user).Error)
	assert.True(t, user.IsConfirmed())

	resp = f.request(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSignUpRejectsForeignRedirect(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": "victim@flashprint.test", "password": "long-enough-pw", "redirect_to": "https://evil.example/phish",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var count int64
	require.NoError(t, f.db.Model(&model.User{}).Where("email = ?", "victim@flashprint.test").Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.mailer.links["victim@flashprint.test"])

	resp = f.request(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": "dev@flashprint.test", "password": "long-enough-pw", "redirect_to": "http://localhost:5173/merci",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestConfirmIgnoresStoredForeignRedirect(t *testing.T) {
	f := newFixture(t)

	token := "legacy-token"
	user := model.User{Email: "old@flashprint.test", PasswordHash: "x", ConfirmationToken: &token, RedirectTo: "https://evil.example/phish"}
	require.NoError(t, f.db.Create(&user).Error)

	resp := f.request(t, http.MethodGet, "/api/v1/auth/confirm?token="+token, "", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://flashprint.test/", resp.Header.Get("Location"))
}

func TestLibraryAndContent(t *testing.T) {
	f := newFixture(t)
	faculty := f.faculty(t)
	f.document(t, faculty.ID, "droit-civil", "")

	resp := f.request(t, http.MethodGet, "/api/v1/library?faculty=unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.request(t, http.MethodGet, "/api/v1/library?faculty=faculte-de-droit&year=Bac1&q=civil", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		Empty bool `json:"empty"`
		Tabs  []struct {
			Promotion string `json:"promotion"`
			Count     int    `json:"count"`
		} `json:"tabs"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &view))
	assert.False(t, view.Empty)
	require.Len(t, view.Tabs, len(model.Promotions))
	assert.Equal(t, "Bac1", view.Tabs[0].Promotion)
	assert.Equal(t, 1, view.Tabs[0].Count)

	resp = f.request(t, http.MethodGet, "/api/v1/content", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var content map[string]map[string]string
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &content))
	assert.Equal(t, "+243 815 050 397", content["contact"]["phone"])
}
