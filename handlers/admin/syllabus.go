package admin

import (
	"errors"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/CANDRY15/flashprint/handlers"
	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/utils/response"
	"github.com/CANDRY15/flashprint/utils/validation"
	"github.com/gofiber/fiber/v2"
)

var errBadForm = errors.New("invalid multipart form")

// upload returns the "file" part of a multipart request, or nil when the
// request carries no file
func upload(c *fiber.Ctx) (*services.FileUpload, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, errBadForm
	}
	files := form.File["file"]
	if len(files) == 0 {
		return nil, nil
	}
	return fileUpload(files[0]), nil
}

func fileUpload(fh *multipart.FileHeader) *services.FileUpload {
	return &services.FileUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// ListSyllabus returns every syllabus, newest first, filtered in memory
// GET /api/v1/admin/syllabus?q=&year=&faculty_id=
func (h *AdminHandler) ListSyllabus(c *fiber.Ctx) error {
	rows, err := h.syllabus.List(c.Context(), services.SyllabusFilter{
		Query:     c.Query("q"),
		Year:      c.Query("year"),
		FacultyID: c.Query("faculty_id"),
	})
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, rows)
}

// CreateSyllabus is the management flow: the PDF is optional
// POST /api/v1/admin/syllabus
func (h *AdminHandler) CreateSyllabus(c *fiber.Ctx) error {
	return h.create(c, model.FlowManagement)
}

// GenerateQR is the QR generator flow: the PDF is required and the code
// points at the scan route
// POST /api/v1/admin/syllabus/qr-generator
func (h *AdminHandler) GenerateQR(c *fiber.Ctx) error {
	return h.create(c, model.FlowGenerator)
}

func (h *AdminHandler) create(c *fiber.Ctx, flow model.SyllabusFlow) error {
	var req validation.SyllabusInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	file, err := upload(c)
	if err != nil {
		return response.BadRequest(c, "Invalid multipart form")
	}

	row, err := h.syllabus.Create(c.Context(), actor(c), flow, req, file)
	if err != nil {
		if row != nil {
			h.log.Warn("syllabus left pending", "syllabus_id", row.ID, "error", err)
		}
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Created(c, row)
}

// UpdateSyllabus edits metadata and optionally replaces the file
// PUT /api/v1/admin/syllabus/:id
func (h *AdminHandler) UpdateSyllabus(c *fiber.Ctx) error {
	var req validation.SyllabusUpdateInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	file, err := upload(c)
	if err != nil {
		return response.BadRequest(c, "Invalid multipart form")
	}

	row, err := h.syllabus.Update(c.Context(), actor(c), c.Params("id"), req, file)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, row)
}

// DeleteSyllabus removes a syllabus and its file; ?confirm=true is required
// DELETE /api/v1/admin/syllabus/:id?confirm=true
func (h *AdminHandler) DeleteSyllabus(c *fiber.Ctx) error {
	confirmed := c.QueryBool("confirm", false)
	if err := h.syllabus.Delete(c.Context(), actor(c), c.Params("id"), confirmed); err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.NoContent(c)
}

// RepairSyllabus finishes every pending row
// POST /api/v1/admin/syllabus/repair
func (h *AdminHandler) RepairSyllabus(c *fiber.Ctx) error {
	report, err := h.syllabus.Repair(c.Context())
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, report)
}

// QRCodePNG renders the stored payload, or the order deep link with
// ?variant=whatsapp
// GET /api/v1/admin/syllabus/:id/qr.png?size=&variant=stored|whatsapp
func (h *AdminHandler) QRCodePNG(c *fiber.Ctx) error {
	row, err := h.syllabus.Resolve(c.Context(), c.Params("id"))
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	var content string
	switch c.Query("variant", "stored") {
	case "stored":
		if h.links.Classify(row.QRCode) == services.QRPayloadPlaceholder {
			return response.Conflict(c, "Le QR code n'est pas encore généré")
		}
		content = row.QRCode
	case "whatsapp":
		content = h.links.OrderLink(row.Title, row.QRCode)
	default:
		return response.BadRequest(c, "variant must be one of: stored whatsapp")
	}

	size, _ := strconv.Atoi(c.Query("size"))
	png, err := services.RenderQRPNG(content, size)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="qr-`+row.SlugOrID()+`.png"`)
	return c.Send(png)
}

// ShareSyllabus returns the share deep link and what the stored payload is
// GET /api/v1/admin/syllabus/:id/share
func (h *AdminHandler) ShareSyllabus(c *fiber.Ctx) error {
	row, err := h.syllabus.Resolve(c.Context(), c.Params("id"))
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	return response.Success(c, fiber.Map{
		"link":    h.links.ShareLink(row),
		"kind":    h.links.Classify(row.QRCode),
		"qr_code": row.QRCode,
	})
}
