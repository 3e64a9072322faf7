package repository

import (
	"context"

	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para Invoice.
type InvoiceRepository interface {
	// Create persiste la factura y asigna su ID. RetrievalToken debe venir ya asignado.
	Create(ctx context.Context, invoice *entity.Invoice) error
	// GetByID devuelve (nil, nil) si la factura no existe.
	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)
	// GetByIDsForUpdate lee y bloquea las facturas (dentro de una transacción).
	// Las que no existen simplemente no aparecen en el resultado.
	GetByIDsForUpdate(ctx context.Context, ids []int64) ([]*entity.Invoice, error)
	// Update es la primitiva de escritura: aplica el lote a todas las facturas o a ninguna.
	Update(ctx context.Context, ids []int64, changes entity.InvoiceChanges) error
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Invoice, error)
}
