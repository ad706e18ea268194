package admin

import (
	"github.com/CANDRY15/flashprint/handlers"
	"github.com/CANDRY15/flashprint/utils/response"
	"github.com/gofiber/fiber/v2"
)

// GetAnalytics returns per-document views, downloads and QR scans with the
// grand totals
// GET /api/v1/admin/analytics
func (h *AdminHandler) GetAnalytics(c *fiber.Ctx) error {
	report, err := h.analytics.Report(c.Context())
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, report)
}

// GetDashboard returns the admin dashboard counters
// GET /api/v1/admin/dashboard
func (h *AdminHandler) GetDashboard(c *fiber.Ctx) error {
	counts, err := h.analytics.Dashboard(c.Context())
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, counts)
}
