package billing

import (
	"context"
	"errors"

	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/repository"
)

// ErrReportNotFound el renderizador no conoce la plantilla pedida (o no hay renderizador).
var ErrReportNotFound = errors.New("reporte no encontrado")

// InvoiceTxRunner ejecuta una función dentro de una transacción con los repos de facturación.
// Si fn retorna error se hace rollback y el error se devuelve sin envolver.
type InvoiceTxRunner interface {
	RunInvoices(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		ediRepo repository.EDIDocumentRepository,
	) error) error
}

// Notifier recibe las transiciones EDI que califican. Nunca devuelve error: una
// notificación fallida no puede hacer fallar la escritura que la originó.
type Notifier interface {
	Notify(ctx context.Context, invoice *entity.Invoice, label string)
}

// InvoiceRenderer genera la representación gráfica de una factura con una plantilla fija.
type InvoiceRenderer interface {
	Render(ctx context.Context, reportName string, invoiceID int64) (content []byte, contentType string, err error)
}
