package admin

import (
	"strconv"

	"github.com/CANDRY15/flashprint/handlers"
	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/utils/response"
	"github.com/gofiber/fiber/v2"
)

type contentValueRequest struct {
	Value string `json:"value" validate:"required"`
}

// ListContent returns every site-content row ordered by section, then key
// GET /api/v1/admin/content
func (h *AdminHandler) ListContent(c *fiber.Ctx) error {
	rows, err := h.content.List(c.Context())
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, rows)
}

// UpdateContent changes the value of one row
// PUT /api/v1/admin/content/:id
func (h *AdminHandler) UpdateContent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "Invalid content ID")
	}

	var req contentValueRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	row, err := h.content.UpdateValue(c.Context(), uint(id), req.Value)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	h.audit.LogAdminAction(actor(c), "update_content", map[string]interface{}{
		"section": row.Section,
		"key":     row.Key,
	})
	return response.Success(c, row)
}

// UpsertContent inserts or replaces the value at (section, key)
// POST /api/v1/admin/content
func (h *AdminHandler) UpsertContent(c *fiber.Ctx) error {
	var req services.ContentInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	row, err := h.content.Upsert(c.Context(), req)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	h.audit.LogAdminAction(actor(c), "upsert_content", map[string]interface{}{
		"section": row.Section,
		"key":     row.Key,
	})
	return response.Success(c, row)
}
