package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/moisestafur/odoo-webhookv1/internal/application/billing"
	"github.com/moisestafur/odoo-webhookv1/internal/application/dto"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
)

// EDIDocumentHandler escrituras sobre documentos EDI (protegido).
type EDIDocumentHandler struct {
	stateUC *billing.UpdateStateUseCase
}

// NewEDIDocumentHandler construye el handler.
func NewEDIDocumentHandler(stateUC *billing.UpdateStateUseCase) *EDIDocumentHandler {
	return &EDIDocumentHandler{stateUC: stateUC}
}

// UpdateBatch escritura en lote sobre documentos EDI; notifica a la factura dueña.
// PATCH /api/edi-documents
func (h *EDIDocumentHandler) UpdateBatch(c *fiber.Ctx) error {
	var in dto.UpdateEDIDocumentsRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	changes := entity.EDIDocumentChanges{State: in.Changes.State, Error: in.Changes.Error}
	res, err := h.stateUC.UpdateEDIDocuments(c.Context(), GetCompanyID(c), in.IDs, changes)
	if err != nil {
		return writeError(c, err, "documento EDI no encontrado")
	}
	return c.JSON(toUpdateResultResponse(len(res.Documents), res.Notifications))
}
