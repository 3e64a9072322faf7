package billing

import (
	"context"
	"fmt"

	"github.com/moisestafur/odoo-webhookv1/internal/domain"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/edi"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/repository"
	"github.com/moisestafur/odoo-webhookv1/pkg/logger"
)

// Notification transición que calificó para webhook.
type Notification struct {
	InvoiceID int64
	Label     string
}

// UpdateResult resultado de una escritura en lote.
type UpdateResult struct {
	Invoices      []*entity.Invoice
	Documents     []*entity.EDIDocument
	Notifications []Notification
}

// UpdateStateUseCase envuelve la primitiva de escritura: captura el estado previo,
// delega en el repositorio, compara y notifica las transiciones que califican.
type UpdateStateUseCase struct {
	txRunner InvoiceTxRunner
	notifier Notifier
	log      *logger.Logger
}

// NewUpdateStateUseCase construye el caso de uso. notifier puede ser nil (sin webhook).
func NewUpdateStateUseCase(txRunner InvoiceTxRunner, notifier Notifier, log *logger.Logger) *UpdateStateUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UpdateStateUseCase{txRunner: txRunner, notifier: notifier, log: log.Named("transition")}
}

// UpdateInvoices aplica changes a todas las facturas ids (todas o ninguna) y notifica,
// después del commit, cada factura cuyo edi_state pasó a sent, error o cancelled.
func (uc *UpdateStateUseCase) UpdateInvoices(ctx context.Context, companyID string, ids []int64, changes entity.InvoiceChanges) (*UpdateResult, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: ids vacío", domain.ErrInvalidInput)
	}
	if changes.IsEmpty() {
		return nil, fmt.Errorf("%w: changes vacío", domain.ErrInvalidInput)
	}

	oldStates := make(map[int64]string, len(ids))
	var updated []*entity.Invoice

	err := uc.txRunner.RunInvoices(ctx, func(invoiceRepo repository.InvoiceRepository, _ repository.EDIDocumentRepository) error {
		current, err := invoiceRepo.GetByIDsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		if err := checkInvoices(current, len(ids), companyID); err != nil {
			return err
		}
		for _, inv := range current {
			oldStates[inv.ID] = inv.EDIState
		}

		if err := invoiceRepo.Update(ctx, ids, changes); err != nil {
			return err
		}

		updated, err = invoiceRepo.GetByIDsForUpdate(ctx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &UpdateResult{Invoices: updated}
	for _, inv := range updated {
		label, ok := edi.InvoiceNotification(oldStates[inv.ID], inv.EDIState, changes.EDIState != nil)
		if !ok {
			continue
		}
		res.Notifications = append(res.Notifications, Notification{InvoiceID: inv.ID, Label: label})
		uc.notify(ctx, inv, label)
	}
	return res, nil
}

// UpdateEDIDocuments aplica changes a los documentos EDI ids. Por documento gana la primera
// regla: cambio de state a un valor que califica, y si no, detalle de error presente.
func (uc *UpdateStateUseCase) UpdateEDIDocuments(ctx context.Context, companyID string, ids []int64, changes entity.EDIDocumentChanges) (*UpdateResult, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: ids vacío", domain.ErrInvalidInput)
	}
	if changes.IsEmpty() {
		return nil, fmt.Errorf("%w: changes vacío", domain.ErrInvalidInput)
	}

	oldStates := make(map[int64]string, len(ids))
	var updated []*entity.EDIDocument
	invoices := make(map[int64]*entity.Invoice)

	err := uc.txRunner.RunInvoices(ctx, func(invoiceRepo repository.InvoiceRepository, ediRepo repository.EDIDocumentRepository) error {
		current, err := ediRepo.GetByIDsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		if len(current) != len(ids) {
			return domain.ErrNotFound
		}
		invoiceIDs := make([]int64, 0, len(current))
		for _, d := range current {
			oldStates[d.ID] = d.State
			invoiceIDs = append(invoiceIDs, d.InvoiceID)
		}
		invoiceIDs = uniqueIDs(invoiceIDs)

		owners, err := invoiceRepo.GetByIDsForUpdate(ctx, invoiceIDs)
		if err != nil {
			return err
		}
		if err := checkInvoices(owners, len(invoiceIDs), companyID); err != nil {
			return err
		}
		for _, inv := range owners {
			invoices[inv.ID] = inv
		}

		if err := ediRepo.Update(ctx, ids, changes); err != nil {
			return err
		}

		updated, err = ediRepo.GetByIDsForUpdate(ctx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &UpdateResult{Documents: updated}
	for _, d := range updated {
		label, ok := edi.DocumentNotification(oldStates[d.ID], d.State, d.Error, changes.State != nil, changes.Error != nil)
		if !ok {
			continue
		}
		inv := invoices[d.InvoiceID]
		if inv == nil {
			continue
		}
		res.Notifications = append(res.Notifications, Notification{InvoiceID: inv.ID, Label: label})
		uc.notify(ctx, inv, label)
	}
	return res, nil
}

func (uc *UpdateStateUseCase) notify(ctx context.Context, inv *entity.Invoice, label string) {
	uc.log.Info().
		Int64("invoice_id", inv.ID).
		Str("label", label).
		Msg("transición EDI calificada, notificando")
	if uc.notifier == nil {
		return
	}
	uc.notifier.Notify(ctx, inv, label)
}

// checkInvoices verifica que existan todas y que pertenezcan a la empresa.
// companyID vacío = contexto de sistema, sin verificación de empresa.
func checkInvoices(list []*entity.Invoice, want int, companyID string) error {
	if len(list) != want {
		return domain.ErrNotFound
	}
	if companyID == "" {
		return nil
	}
	for _, inv := range list {
		if inv.CompanyID != companyID {
			return domain.ErrForbidden
		}
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
