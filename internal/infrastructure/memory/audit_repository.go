package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/repository"
)

// AuditRepository historial de notas en memoria (append-only).
type AuditRepository struct {
	store *Store
}

// NewAuditRepository crea el repositorio.
func NewAuditRepository(store *Store) *AuditRepository {
	return &AuditRepository{store: store}
}

var _ repository.AuditRepository = (*AuditRepository)(nil)

// Append agrega la nota; asigna ID y fecha si vienen vacíos.
func (r *AuditRepository) Append(ctx context.Context, note *entity.AuditNote) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = r.store.now()
	}
	r.store.notes = append(r.store.notes, *note)
	return nil
}

// ListByInvoice notas de la factura en orden de inserción.
func (r *AuditRepository) ListByInvoice(ctx context.Context, invoiceID int64) ([]*entity.AuditNote, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*entity.AuditNote, 0)
	for _, n := range r.store.notes {
		if n.InvoiceID == invoiceID {
			n := n
			out = append(out, &n)
		}
	}
	return out, nil
}
