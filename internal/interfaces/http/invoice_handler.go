package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/moisestafur/odoo-webhookv1/internal/application/billing"
	"github.com/moisestafur/odoo-webhookv1/internal/application/dto"
)

// InvoiceHandler maneja las peticiones HTTP de facturas (protegido).
type InvoiceHandler struct {
	uc      *billing.InvoiceUseCase
	stateUC *billing.UpdateStateUseCase
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(uc *billing.InvoiceUseCase, stateUC *billing.UpdateStateUseCase) *InvoiceHandler {
	return &InvoiceHandler{uc: uc, stateUC: stateUC}
}

// Create crea una factura; el token de descarga pública se emite en el alta.
// POST /api/invoices
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.CreateInvoice(c.Context(), companyID, in)
	if err != nil {
		return writeError(c, err, "factura no encontrada")
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID detalle de la factura con documentos EDI e historial.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}
	out, err := h.uc.GetInvoice(c.Context(), GetCompanyID(c), id)
	if err != nil {
		return writeError(c, err, "factura no encontrada")
	}
	return c.JSON(out)
}

// List facturas de la empresa del token.
// GET /api/invoices?limit=&offset=
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()
	list, err := h.uc.ListInvoices(c.Context(), GetCompanyID(c), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err, "factura no encontrada")
	}
	return c.JSON(fiber.Map{"items": list, "page": dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// UpdateBatch escritura en lote: {ids, changes}. Devuelve las notificaciones disparadas.
// PATCH /api/invoices
func (h *InvoiceHandler) UpdateBatch(c *fiber.Ctx) error {
	var in dto.UpdateInvoicesRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	return h.update(c, in.IDs, in.Changes)
}

// Update escritura sobre una sola factura.
// PATCH /api/invoices/:id
func (h *InvoiceHandler) Update(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}
	var in dto.InvoiceChangesRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	return h.update(c, []int64{id}, in)
}

func (h *InvoiceHandler) update(c *fiber.Ctx, ids []int64, req dto.InvoiceChangesRequest) error {
	changes, err := billing.ToInvoiceChanges(req)
	if err != nil {
		return writeError(c, err, "factura no encontrada")
	}
	res, err := h.stateUC.UpdateInvoices(c.Context(), GetCompanyID(c), ids, changes)
	if err != nil {
		return writeError(c, err, "factura no encontrada")
	}
	return c.JSON(toUpdateResultResponse(len(res.Invoices), res.Notifications))
}

// CreateEDIDocument registra un documento EDI para la factura.
// POST /api/invoices/:id/edi-documents
func (h *InvoiceHandler) CreateEDIDocument(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}
	var in dto.CreateEDIDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.CreateEDIDocument(c.Context(), GetCompanyID(c), id, in)
	if err != nil {
		return writeError(c, err, "factura no encontrada")
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Audit historial de notas de la factura, en orden de creación.
// GET /api/invoices/:id/audit
func (h *InvoiceHandler) Audit(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return invalidID(c)
	}
	notes, err := h.uc.ListAudit(c.Context(), GetCompanyID(c), id)
	if err != nil {
		return writeError(c, err, "factura no encontrada")
	}
	return c.JSON(notes)
}

func toUpdateResultResponse(updated int, ns []billing.Notification) dto.UpdateResultResponse {
	out := dto.UpdateResultResponse{Updated: updated, Notifications: make([]dto.NotificationResponse, 0, len(ns))}
	for _, n := range ns {
		out.Notifications = append(out.Notifications, dto.NotificationResponse{InvoiceID: n.InvoiceID, EDIState: n.Label})
	}
	return out
}
