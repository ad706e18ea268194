package admin

import (
	"github.com/CANDRY15/flashprint/handlers"
	"github.com/CANDRY15/flashprint/utils/response"
	"github.com/CANDRY15/flashprint/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// ListFaculties returns every faculty ordered by name
// GET /api/v1/admin/faculties
func (h *AdminHandler) ListFaculties(c *fiber.Ctx) error {
	faculties, err := h.faculties.List(c.Context())
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, faculties)
}

// CreateFaculty validates and stores a faculty; an empty slug is derived
// from the name
// POST /api/v1/admin/faculties
func (h *AdminHandler) CreateFaculty(c *fiber.Ctx) error {
	var req validation.FacultyInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	faculty, err := h.faculties.Create(c.Context(), req)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	h.audit.LogAdminAction(actor(c), "create_faculty", map[string]interface{}{
		"faculty_id": faculty.ID,
		"name":       faculty.Name,
	})
	return response.Created(c, faculty)
}

// UpdateFaculty replaces the editable fields of a faculty
// PUT /api/v1/admin/faculties/:id
func (h *AdminHandler) UpdateFaculty(c *fiber.Ctx) error {
	var req validation.FacultyInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	faculty, err := h.faculties.Update(c.Context(), c.Params("id"), req)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	h.audit.LogAdminAction(actor(c), "update_faculty", map[string]interface{}{
		"faculty_id": faculty.ID,
		"name":       faculty.Name,
	})
	return response.Success(c, faculty)
}

// DeleteFaculty removes a faculty without documents
// DELETE /api/v1/admin/faculties/:id
func (h *AdminHandler) DeleteFaculty(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.faculties.Delete(c.Context(), id); err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	h.audit.LogAdminAction(actor(c), "delete_faculty", map[string]interface{}{
		"faculty_id": id,
	})
	return response.NoContent(c)
}
