package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/utils/validation"
)

// Faculties lists every faculty
func (c *Client) Faculties(ctx context.Context) ([]model.Faculty, error) {
	var out []model.Faculty
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/admin/faculties", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateFaculty(ctx context.Context, in validation.FacultyInput) (*model.Faculty, error) {
	var out model.Faculty
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/admin/faculties", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteFaculty(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/admin/faculties/"+url.PathEscape(id), nil, nil)
}

// Syllabus lists syllabus rows, newest first
func (c *Client) Syllabus(ctx context.Context, filter services.SyllabusFilter) ([]model.Syllabus, error) {
	q := url.Values{}
	if filter.Query != "" {
		q.Set("q", filter.Query)
	}
	if filter.Year != "" {
		q.Set("year", filter.Year)
	}
	if filter.FacultyID != "" {
		q.Set("faculty_id", filter.FacultyID)
	}

	path := "/api/v1/admin/syllabus"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []model.Syllabus
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Attachment is a file sent with an upload
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadSyllabus creates a row through the management flow, or the QR
// generator flow when flow is model.FlowGenerator. file may be nil for the
// management flow.
func (c *Client) UploadSyllabus(ctx context.Context, flow model.SyllabusFlow, in validation.SyllabusInput, file *Attachment) (*model.Syllabus, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"title", in.Title},
		{"professor", in.Professor},
		{"year", in.Year},
		{"faculty_id", in.FacultyID},
		{"popular", strconv.FormatBool(in.Popular)},
		{"description", in.Description},
		{"company_name", in.CompanyName},
		{"website", in.Website},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", f.name, err)
		}
	}

	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Filename))
		header.Set("Content-Type", file.ContentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, fmt.Errorf("write file part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	path := "/api/v1/admin/syllabus"
	if flow == model.FlowGenerator {
		path += "/qr-generator"
	}

	var out model.Syllabus
	if err := c.request(ctx, http.MethodPost, path, &buf, w.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSyllabus removes a row and its file. The server refuses unless
// confirmed is true.
func (c *Client) DeleteSyllabus(ctx context.Context, id string, confirmed bool) error {
	path := "/api/v1/admin/syllabus/" + url.PathEscape(id)
	if confirmed {
		path += "?confirm=true"
	}
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) RepairSyllabus(ctx context.Context) (*services.RepairReport, error) {
	var out services.RepairReport
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/admin/syllabus/repair", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QRCodePNG downloads the rendered code. variant is "stored" or "whatsapp".
func (c *Client) QRCodePNG(ctx context.Context, id, variant string, size int) ([]byte, error) {
	q := url.Values{}
	if variant != "" {
		q.Set("variant", variant)
	}
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}

	path := "/api/v1/admin/syllabus/" + url.PathEscape(id) + "/qr.png"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := c.send(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decode(resp, nil)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) Analytics(ctx context.Context) (*services.AnalyticsReport, error) {
	var out services.AnalyticsReport
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/admin/analytics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Dashboard(ctx context.Context) (*services.DashboardCounts, error) {
	var out services.DashboardCounts
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/admin/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Content(ctx context.Context) ([]model.SiteContent, error) {
	var out []model.SiteContent
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/admin/content", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetContent upserts one fragment by section and key
func (c *Client) SetContent(ctx context.Context, in services.ContentInput) (*model.SiteContent, error) {
	var out model.SiteContent
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/admin/content", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
