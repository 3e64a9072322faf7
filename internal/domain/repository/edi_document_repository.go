package repository

import (
	"context"

	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
)

// EDIDocumentRepository define el puerto de persistencia para EDIDocument.
type EDIDocumentRepository interface {
	Create(ctx context.Context, doc *entity.EDIDocument) error
	GetByIDsForUpdate(ctx context.Context, ids []int64) ([]*entity.EDIDocument, error)
	Update(ctx context.Context, ids []int64, changes entity.EDIDocumentChanges) error
	ListByInvoice(ctx context.Context, invoiceID int64) ([]*entity.EDIDocument, error)
}
