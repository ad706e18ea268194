package admin

import (
	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/middleware"
	"github.com/CANDRY15/flashprint/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler serves every /api/v1/admin route. Routes are mounted behind
// AuthMiddleware.Required and RequireAdmin.
type AdminHandler struct {
	faculties *services.FacultyService
	syllabus  *services.SyllabusService
	analytics *services.AnalyticsService
	content   *services.ContentService
	audit     *services.AuditService
	links     *services.LinkBuilder
	validator *validation.Validator
	log       *logger.Logger
}

// Deps groups the collaborators of the admin handler
type Deps struct {
	Faculties *services.FacultyService
	Syllabus  *services.SyllabusService
	Analytics *services.AnalyticsService
	Content   *services.ContentService
	Audit     *services.AuditService
	Links     *services.LinkBuilder
	Log       *logger.Logger
}

func NewAdminHandler(deps Deps) *AdminHandler {
	return &AdminHandler{
		faculties: deps.Faculties,
		syllabus:  deps.Syllabus,
		analytics: deps.Analytics,
		content:   deps.Content,
		audit:     deps.Audit,
		links:     deps.Links,
		validator: validation.NewValidator(),
		log:       deps.Log,
	}
}

// actor identifies the admin behind a request for the audit log
func actor(c *fiber.Ctx) services.Actor {
	userID, _ := middleware.GetUserID(c)
	return services.Actor{
		UserID:    userID,
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}
