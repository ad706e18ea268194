package handlers

import (
	"errors"
	"strings"

	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/response"
	"github.com/CANDRY15/flashprint/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// ServiceError maps a service sentinel error to its HTTP response. Anything
// unrecognised is logged and answered with a generic 500.
func ServiceError(c *fiber.Ctx, log *logger.Logger, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return response.ValidationError(c, err)
	case errors.Is(err, validation.ErrFileRequired):
		return response.BadRequest(c, "Veuillez sélectionner un fichier PDF")
	case errors.Is(err, validation.ErrFileTooLarge):
		return response.PayloadTooLarge(c, detail(err))
	case errors.Is(err, validation.ErrFileTypeRejected):
		return response.UnsupportedMediaType(c, detail(err))
	case errors.Is(err, services.ErrInvalidPDF):
		return response.BadRequest(c, "Le fichier PDF est invalide ou corrompu")
	case errors.Is(err, services.ErrConfirmationRequired):
		return response.BadRequest(c, "confirmation required")
	case errors.Is(err, services.ErrFacultyNotFound):
		return response.NotFound(c, "Faculté introuvable")
	case errors.Is(err, services.ErrSyllabusNotFound):
		return response.NotFound(c, "Document introuvable")
	case errors.Is(err, services.ErrContentNotFound):
		return response.NotFound(c, "Contenu introuvable")
	case errors.Is(err, services.ErrSlugTaken):
		return response.Conflict(c, "Ce slug est déjà utilisé")
	case errors.Is(err, services.ErrFacultyInUse):
		return response.Conflict(c, "Cette faculté contient encore des documents")
	case errors.Is(err, services.ErrStorageUnavailable):
		return response.ServiceUnavailable(c, "Le stockage des fichiers n'est pas configuré")
	case errors.Is(err, services.ErrUpstream):
		return response.BadGateway(c, "Erreur lors de la récupération du fichier")
	}

	log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return response.InternalServerError(c, "")
}

// detail is the user-facing part of a "sentinel: message" error
func detail(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
