package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/CANDRY15/flashprint/handlers"
	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/services/interstitial"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/response"
	"github.com/gofiber/fiber/v2"
)

// DocumentHandler serves the public document viewer, downloads and the
// interstitial countdown in front of them
type DocumentHandler struct {
	docs      services.DocumentResolver
	viewer    *services.ViewerService
	proxy     *services.FileProxyService
	analytics *services.AnalyticsService
	links     *services.LinkBuilder
	gate      *interstitial.Gate
	log       *logger.Logger
}

// Deps groups the collaborators of the document handler
type Deps struct {
	Docs      services.DocumentResolver
	Viewer    *services.ViewerService
	Proxy     *services.FileProxyService
	Analytics *services.AnalyticsService
	Links     *services.LinkBuilder
	Gate      *interstitial.Gate
	Log       *logger.Logger
}

func NewDocumentHandler(deps Deps) *DocumentHandler {
	return &DocumentHandler{
		docs:      deps.Docs,
		viewer:    deps.Viewer,
		proxy:     deps.Proxy,
		analytics: deps.Analytics,
		links:     deps.Links,
		gate:      deps.Gate,
		log:       deps.Log,
	}
}

// notFound sends the client back to the home page
func notFound(c *fiber.Ctx) error {
	return response.NotFoundRedirect(c, "Document introuvable", "/")
}

// View returns the viewer payload and records a view, or a qr_scan with
// ?src=qr
// GET /api/v1/documents/:slugOrId
func (h *DocumentHandler) View(c *fiber.Ctx) error {
	view, err := h.viewer.View(c.Context(), c.Params("slugOrId"), c.Query("src") == "qr", c.Get(fiber.HeaderUserAgent))
	if errors.Is(err, services.ErrSyllabusNotFound) {
		return notFound(c)
	}
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, view)
}

// Download streams the file as an attachment and records a download
// GET /api/v1/documents/:slugOrId/download
func (h *DocumentHandler) Download(c *fiber.Ctx) error {
	file, err := h.proxy.Open(c.Context(), c.Params("slugOrId"))
	switch {
	case errors.Is(err, services.ErrSyllabusNotFound), errors.Is(err, services.ErrNoFile):
		return notFound(c)
	case err != nil:
		return handlers.ServiceError(c, h.log, err)
	}

	h.analytics.Record(file.Document.ID, model.EventDownload, c.Get(fiber.HeaderUserAgent))

	doc := file.Document
	name := services.DownloadFilename(doc.Title, file.ContentType, *doc.FileURL)
	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, response.ContentDisposition("attachment", name))
	return c.SendStream(file.Body, int(file.Size))
}

// OrderLink returns the messaging deep link used to order a printed copy
// GET /api/v1/documents/:slugOrId/order-link
func (h *DocumentHandler) OrderLink(c *fiber.Ctx) error {
	doc, err := h.docs.Resolve(c.Context(), c.Params("slugOrId"))
	if errors.Is(err, services.ErrSyllabusNotFound) {
		return notFound(c)
	}
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, fiber.Map{
		"link": h.links.OrderLink(doc.Title, doc.QRCode),
	})
}

type intentRequest struct {
	Action string `json:"action"`
}

// CreateIntent starts the countdown in front of a view or a download
// POST /api/v1/documents/:slugOrId/intents
func (h *DocumentHandler) CreateIntent(c *fiber.Ctx) error {
	var req intentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	action := interstitial.Action(req.Action)
	if !action.IsValid() {
		return response.BadRequest(c, "action must be one of: view download")
	}

	doc, err := h.docs.Resolve(c.Context(), c.Params("slugOrId"))
	if errors.Is(err, services.ErrSyllabusNotFound) {
		return notFound(c)
	}
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	state, err := h.gate.Issue(c.Context(), action, doc.SlugOrID())
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(response.Response{Success: true, Data: state})
}

// InterstitialState reports the countdown of a ticket
// GET /api/v1/interstitials/:ticket
func (h *DocumentHandler) InterstitialState(c *fiber.Ctx) error {
	state, err := h.gate.State(c.Context(), c.Params("ticket"))
	if errors.Is(err, interstitial.ErrTicketGone) {
		return response.Gone(c, "Cette annonce a expiré")
	}
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, state)
}

// Dismiss consumes a ticket whose countdown is over and returns the result
// of the deferred action
// POST /api/v1/interstitials/:ticket/dismiss
func (h *DocumentHandler) Dismiss(c *fiber.Ctx) error {
	var result interface{}
	err := h.gate.Dismiss(c.Context(), c.Params("ticket"), func(t interstitial.Ticket) error {
		out, err := h.runAction(c, t)
		result = out
		return err
	})

	var notReady *interstitial.NotReadyError
	switch {
	case errors.As(err, &notReady):
		return response.ErrorWithDetails(c, fiber.StatusConflict,
			fmt.Sprintf("Fermeture dans %ds", notReady.Remaining), "NOT_READY",
			fiber.Map{"remaining_seconds": notReady.Remaining})
	case errors.Is(err, interstitial.ErrTicketGone):
		return response.Gone(c, "Cette annonce a déjà été fermée")
	case errors.Is(err, services.ErrSyllabusNotFound):
		return notFound(c)
	case err != nil:
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, result)
}

func (h *DocumentHandler) runAction(c *fiber.Ctx, t interstitial.Ticket) (interface{}, error) {
	ctx := c.Context()
	switch t.Action {
	case interstitial.ActionView:
		return h.viewer.View(ctx, t.Target, false, c.Get(fiber.HeaderUserAgent))
	case interstitial.ActionDownload:
		return h.downloadTarget(ctx, t.Target)
	}
	return nil, interstitial.ErrInvalidAction
}

func (h *DocumentHandler) downloadTarget(ctx context.Context, target string) (fiber.Map, error) {
	doc, err := h.docs.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	if !doc.HasFile() {
		return nil, services.ErrSyllabusNotFound
	}
	return fiber.Map{
		"action":       interstitial.ActionDownload,
		"download_url": "/api/v1/documents/" + doc.SlugOrID() + "/download",
	}, nil
}

// InterstitialConfig exposes the delayed-ad schedule
// GET /api/v1/interstitials/config
func (h *DocumentHandler) InterstitialConfig(c *fiber.Ctx) error {
	return response.Success(c, h.gate.Schedule())
}
