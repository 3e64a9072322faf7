package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/moisestafur/odoo-webhookv1/internal/domain"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/repository"
)

// InvoiceRepository implementación en memoria de repository.InvoiceRepository.
type InvoiceRepository struct {
	store *Store
	inTx  bool
}

// NewInvoiceRepository crea el repositorio fuera de transacción.
func NewInvoiceRepository(store *Store) *InvoiceRepository {
	return &InvoiceRepository{store: store}
}

var _ repository.InvoiceRepository = (*InvoiceRepository)(nil)

// Create asigna el ID y guarda una copia.
func (r *InvoiceRepository) Create(ctx context.Context, inv *entity.Invoice) error {
	defer r.store.lock(r.inTx)()
	if inv.RetrievalToken == "" {
		return fmt.Errorf("%w: factura sin token de descarga", domain.ErrInvalidInput)
	}
	for _, existing := range r.store.invoices {
		if existing.RetrievalToken == inv.RetrievalToken {
			return fmt.Errorf("%w: token de descarga repetido", domain.ErrDuplicate)
		}
	}
	r.store.nextInvoiceID++
	inv.ID = r.store.nextInvoiceID
	r.store.invoices[inv.ID] = *cloneInvoice(*inv)
	return nil
}

// GetByID devuelve (nil, nil) si no existe.
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	defer r.store.lock(r.inTx)()
	inv, ok := r.store.invoices[id]
	if !ok {
		return nil, nil
	}
	return cloneInvoice(inv), nil
}

// GetByIDsForUpdate devuelve las facturas existentes en el orden de ids.
func (r *InvoiceRepository) GetByIDsForUpdate(ctx context.Context, ids []int64) ([]*entity.Invoice, error) {
	defer r.store.lock(r.inTx)()
	out := make([]*entity.Invoice, 0, len(ids))
	for _, id := range ids {
		if inv, ok := r.store.invoices[id]; ok {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

// Update aplica el lote a todas las facturas o a ninguna.
func (r *InvoiceRepository) Update(ctx context.Context, ids []int64, changes entity.InvoiceChanges) error {
	defer r.store.lock(r.inTx)()
	for _, id := range ids {
		if _, ok := r.store.invoices[id]; !ok {
			return domain.ErrNotFound
		}
	}
	now := r.store.now()
	for _, id := range ids {
		inv := r.store.invoices[id]
		changes.Apply(&inv, now)
		r.store.invoices[id] = *cloneInvoice(inv)
	}
	return nil
}

// ListByCompany lista por empresa, más recientes primero.
func (r *InvoiceRepository) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Invoice, error) {
	defer r.store.lock(r.inTx)()
	var all []*entity.Invoice
	for _, inv := range r.store.invoices {
		if inv.CompanyID == companyID {
			all = append(all, cloneInvoice(inv))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if offset >= len(all) {
		return []*entity.Invoice{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}
