package library

import (
	"github.com/CANDRY15/flashprint/handlers"
	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/response"
	"github.com/gofiber/fiber/v2"
)

// LibraryHandler serves the public library browser
type LibraryHandler struct {
	library   *services.LibraryService
	faculties *services.FacultyService
	log       *logger.Logger
}

func NewLibraryHandler(library *services.LibraryService, faculties *services.FacultyService, log *logger.Logger) *LibraryHandler {
	return &LibraryHandler{library: library, faculties: faculties, log: log}
}

// Browse returns the promotion tabs of a faculty
// GET /api/v1/library?faculty=<slug|id>&year=<promotion>&q=<text>
func (h *LibraryHandler) Browse(c *fiber.Ctx) error {
	faculty := c.Query("faculty")
	if faculty == "" {
		return response.BadRequest(c, "faculty is required")
	}

	view, err := h.library.Browse(c.Context(), faculty, c.Query("year"), c.Query("q"))
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, view)
}

// Seed returns the static showcase catalogue
// GET /api/v1/library/seed?q=<text>
func (h *LibraryHandler) Seed(c *fiber.Ctx) error {
	return response.Success(c, services.Showcase(c.Query("q")))
}

// Faculties lists faculties for the faculty picker
// GET /api/v1/faculties
func (h *LibraryHandler) Faculties(c *fiber.Ctx) error {
	faculties, err := h.faculties.List(c.Context())
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, faculties)
}

// Faculty returns one faculty by slug or id
// GET /api/v1/faculties/:slugOrId
func (h *LibraryHandler) Faculty(c *fiber.Ctx) error {
	faculty, err := h.faculties.Get(c.Context(), c.Params("slugOrId"))
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, faculty)
}
