package content

import (
	"github.com/CANDRY15/flashprint/handlers"
	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/response"
	"github.com/gofiber/fiber/v2"
)

// ContentHandler serves the public site copy
type ContentHandler struct {
	content *services.ContentService
	log     *logger.Logger
}

func NewContentHandler(content *services.ContentService, log *logger.Logger) *ContentHandler {
	return &ContentHandler{content: content, log: log}
}

// Public returns section -> key -> value
// GET /api/v1/content
func (h *ContentHandler) Public(c *fiber.Ctx) error {
	content, err := h.content.Public(c.Context())
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, content)
}
