package memory

import (
	"context"
	"sort"

	"github.com/moisestafur/odoo-webhookv1/internal/domain"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/repository"
)

// EDIDocumentRepository implementación en memoria de repository.EDIDocumentRepository.
type EDIDocumentRepository struct {
	store *Store
	inTx  bool
}

// NewEDIDocumentRepository crea el repositorio fuera de transacción.
func NewEDIDocumentRepository(store *Store) *EDIDocumentRepository {
	return &EDIDocumentRepository{store: store}
}

var _ repository.EDIDocumentRepository = (*EDIDocumentRepository)(nil)

func (r *EDIDocumentRepository) Create(ctx context.Context, doc *entity.EDIDocument) error {
	defer r.store.lock(r.inTx)()
	if _, ok := r.store.invoices[doc.InvoiceID]; !ok {
		return domain.ErrNotFound
	}
	r.store.nextDocID++
	doc.ID = r.store.nextDocID
	r.store.documents[doc.ID] = *doc
	return nil
}

func (r *EDIDocumentRepository) GetByIDsForUpdate(ctx context.Context, ids []int64) ([]*entity.EDIDocument, error) {
	defer r.store.lock(r.inTx)()
	out := make([]*entity.EDIDocument, 0, len(ids))
	for _, id := range ids {
		if d, ok := r.store.documents[id]; ok {
			d := d
			out = append(out, &d)
		}
	}
	return out, nil
}

func (r *EDIDocumentRepository) Update(ctx context.Context, ids []int64, changes entity.EDIDocumentChanges) error {
	defer r.store.lock(r.inTx)()
	for _, id := range ids {
		if _, ok := r.store.documents[id]; !ok {
			return domain.ErrNotFound
		}
	}
	now := r.store.now()
	for _, id := range ids {
		d := r.store.documents[id]
		changes.Apply(&d, now)
		r.store.documents[id] = d
	}
	return nil
}

func (r *EDIDocumentRepository) ListByInvoice(ctx context.Context, invoiceID int64) ([]*entity.EDIDocument, error) {
	defer r.store.lock(r.inTx)()
	var out []*entity.EDIDocument
	for _, d := range r.store.documents {
		if d.InvoiceID == invoiceID {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
