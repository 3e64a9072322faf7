// Package memory implementa los repositorios en memoria (STORAGE_DRIVER=memory y tests).
// Los datos se pierden al reiniciar el proceso.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/moisestafur/odoo-webhookv1/internal/application/billing"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/repository"
)

// Store estado compartido por los repositorios en memoria.
// Una transacción (RunInvoices) toma el mutex durante toda su duración.
type Store struct {
	mu            sync.Mutex
	invoices      map[int64]entity.Invoice
	documents     map[int64]entity.EDIDocument
	notes         []entity.AuditNote
	nextInvoiceID int64
	nextDocID     int64
	now           func() time.Time
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		invoices:  make(map[int64]entity.Invoice),
		documents: make(map[int64]entity.EDIDocument),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock reemplaza el reloj (tests).
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// lock toma el mutex salvo que el repo ya corra dentro de una transacción.
func (s *Store) lock(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	invoices      map[int64]entity.Invoice
	documents     map[int64]entity.EDIDocument
	notes         int
	nextInvoiceID int64
	nextDocID     int64
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		invoices:      make(map[int64]entity.Invoice, len(s.invoices)),
		documents:     make(map[int64]entity.EDIDocument, len(s.documents)),
		notes:         len(s.notes),
		nextInvoiceID: s.nextInvoiceID,
		nextDocID:     s.nextDocID,
	}
	for k, v := range s.invoices {
		snap.invoices[k] = v
	}
	for k, v := range s.documents {
		snap.documents[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.invoices = snap.invoices
	s.documents = snap.documents
	s.notes = s.notes[:snap.notes]
	s.nextInvoiceID = snap.nextInvoiceID
	s.nextDocID = snap.nextDocID
}

// ── Transacciones ─────────────────────────────────────────────────────────────

// TxRunner ejecuta funciones con repos ligados a una "transacción" en memoria:
// se serializan con el mutex del Store y se deshacen si fn devuelve error.
type TxRunner struct {
	store *Store
}

// NewTxRunner crea el runner.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

var _ billing.InvoiceTxRunner = (*TxRunner)(nil)

// RunInvoices implementa billing.InvoiceTxRunner.
func (r *TxRunner) RunInvoices(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	ediRepo repository.EDIDocumentRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	snap := r.store.snapshot()
	err := fn(
		&InvoiceRepository{store: r.store, inTx: true},
		&EDIDocumentRepository{store: r.store, inTx: true},
	)
	if err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

func cloneInvoice(inv entity.Invoice) *entity.Invoice {
	out := inv
	if inv.InvoiceDate != nil {
		d := *inv.InvoiceDate
		out.InvoiceDate = &d
	}
	return &out
}
