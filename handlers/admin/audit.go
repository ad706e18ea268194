package admin

import (
	"strconv"

	"github.com/CANDRY15/flashprint/handlers"
	"github.com/CANDRY15/flashprint/utils/response"
	"github.com/gofiber/fiber/v2"
)

// ListAuditLogs retrieves admin audit logs with pagination
// GET /api/v1/admin/audit-logs?page=&limit=&action=
func (h *AdminHandler) ListAuditLogs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	logs, total, err := h.audit.List(c.Context(), c.Query("action"), page, limit)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	return response.Paginated(c, logs, response.CalculatePagination(page, limit, total))
}
