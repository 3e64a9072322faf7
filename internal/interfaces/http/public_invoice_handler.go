package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/moisestafur/odoo-webhookv1/internal/application/billing"
	"github.com/moisestafur/odoo-webhookv1/internal/domain"
	"github.com/moisestafur/odoo-webhookv1/pkg/logger"
)

// Respuestas en texto plano del endpoint público.
const (
	msgInvalidLink    = "Enlace inválido o expirado."
	msgReportNotFound = "Reporte no encontrado."
	msgPDFFailed      = "No se pudo generar el PDF."
)

// PublicInvoiceHandler descarga pública del PDF con el token de la factura (sin JWT).
type PublicInvoiceHandler struct {
	uc  *billing.PDFUseCase
	log *logger.Logger
}

// NewPublicInvoiceHandler construye el handler.
func NewPublicInvoiceHandler(uc *billing.PDFUseCase, log *logger.Logger) *PublicInvoiceHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &PublicInvoiceHandler{uc: uc, log: log.Named("public_pdf")}
}

// DownloadPDF GET /public/invoice/pdf/:id/:token
// Id no numérico, factura inexistente o token incorrecto responden igual (404).
func (h *PublicInvoiceHandler) DownloadPDF(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusNotFound).SendString(msgInvalidLink)
	}

	content, filename, err := h.uc.DownloadPublicPDF(c.Context(), id, c.Params("token"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).SendString(msgInvalidLink)
		case errors.Is(err, billing.ErrReportNotFound):
			h.log.Error().Err(err).Int64("invoice_id", id).Msg("reporte PDF no configurado")
			return c.Status(fiber.StatusInternalServerError).SendString(msgReportNotFound)
		default:
			h.log.Error().Err(err).Int64("invoice_id", id).Msg("error generando PDF público")
			return c.Status(fiber.StatusInternalServerError).SendString(msgPDFFailed)
		}
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate, max-age=0")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")
	return c.Status(fiber.StatusOK).Send(content)
}
