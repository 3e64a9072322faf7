package repository

import (
	"context"

	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
)

// AuditRepository historial de notas de la factura (append-only).
type AuditRepository interface {
	Append(ctx context.Context, note *entity.AuditNote) error
	ListByInvoice(ctx context.Context, invoiceID int64) ([]*entity.AuditNote, error)
}
