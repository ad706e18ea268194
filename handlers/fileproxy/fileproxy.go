package fileproxy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/response"
	"github.com/gofiber/fiber/v2"
)

const (
	allowHeaders = "authorization, x-client-info, apikey, content-type"
	cacheControl = "public, max-age=3600"
)

// Handler streams stored syllabus files to QR scans and preview frames.
// Errors use the bare {"error": msg} shape.
type Handler struct {
	proxy *services.FileProxyService
	log   *logger.Logger
}

func NewHandler(proxy *services.FileProxyService, log *logger.Logger) *Handler {
	return &Handler{proxy: proxy, log: log}
}

func setCORS(c *fiber.Ctx) {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowHeaders, allowHeaders)
}

// Preflight answers OPTIONS with the CORS headers only
func (h *Handler) Preflight(c *fiber.Ctx) error {
	setCORS(c)
	return c.SendStatus(fiber.StatusOK)
}

// Serve proxies the file of a syllabus resolved by slug, then id
// GET /functions/v1/syllabus-file/:slugOrId
func (h *Handler) Serve(c *fiber.Ctx) (err error) {
	setCORS(c)

	defer func() {
		if r := recover(); r != nil {
			h.log.Error("file proxy panic", "panic", fmt.Sprint(r))
			err = response.ProxyError(c, fiber.StatusInternalServerError, "Erreur serveur")
		}
	}()

	slugOrID := strings.TrimSpace(c.Params("slugOrId"))
	if slugOrID == "" {
		return response.ProxyError(c, fiber.StatusBadRequest, "Slug ou ID manquant")
	}

	file, err := h.proxy.Open(c.Context(), slugOrID)
	switch {
	case errors.Is(err, services.ErrSyllabusNotFound), errors.Is(err, services.ErrNoFile):
		return response.ProxyError(c, fiber.StatusNotFound, "Fichier non trouvé")
	case errors.Is(err, services.ErrUpstream):
		h.log.Warn("file proxy upstream failed", "slug_or_id", slugOrID, "error", err)
		return response.ProxyError(c, fiber.StatusInternalServerError, "Erreur lors de la récupération du fichier")
	case err != nil:
		h.log.Error("file proxy failed", "slug_or_id", slugOrID, "error", err)
		return response.ProxyError(c, fiber.StatusInternalServerError, "Erreur serveur")
	}

	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, response.ContentDisposition("inline", file.Document.Title))
	c.Set(fiber.HeaderCacheControl, cacheControl)
	return c.SendStream(file.Body, int(file.Size))
}
