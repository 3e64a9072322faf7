package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estado de negocio de la factura (ortogonal al estado EDI).
const (
	InvoiceStatusDraft  = "draft"
	InvoiceStatusPosted = "posted"
	InvoiceStatusCancel = "cancel"
)

// Estados EDI frente al intermediario de la autoridad tributaria (OSE/SUNAT).
// Cualquier otro valor se acepta pero nunca dispara notificación.
const (
	EDIStateUnset     = ""
	EDIStateToSend    = "to_send"
	EDIStateSent      = "sent"
	EDIStateError     = "error"
	EDIStateCancelled = "cancelled"
)

// Invoice representa la cabecera de una factura electrónica.
type Invoice struct {
	ID             int64
	CompanyID      string
	Name           string // número de factura; vacío en borradores
	Status         string
	EDIState       string
	RetrievalToken string // se asigna una sola vez al crear; nunca se regenera
	PartnerName    string
	AmountTotal    decimal.Decimal
	Currency       string
	InvoiceDate    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// InvoiceChanges es el lote de campos de una escritura. Un puntero nil significa
// "campo ausente en la actualización". No incluye el token: ninguna escritura puede regenerarlo.
type InvoiceChanges struct {
	Name        *string
	Status      *string
	EDIState    *string
	PartnerName *string
	AmountTotal *decimal.Decimal
	Currency    *string
	InvoiceDate *time.Time
	// ClearInvoiceDate deja la fecha en NULL (InvoiceDate debe ser nil).
	ClearInvoiceDate bool
}

// IsEmpty indica si el lote no trae ningún campo.
func (c InvoiceChanges) IsEmpty() bool {
	return c.Name == nil && c.Status == nil && c.EDIState == nil && c.PartnerName == nil &&
		c.AmountTotal == nil && c.Currency == nil && c.InvoiceDate == nil && !c.ClearInvoiceDate
}

// Apply aplica los campos presentes sobre inv (usado por el almacenamiento en memoria).
func (c InvoiceChanges) Apply(inv *Invoice, now time.Time) {
	if c.Name != nil {
		inv.Name = *c.Name
	}
	if c.Status != nil {
		inv.Status = *c.Status
	}
	if c.EDIState != nil {
		inv.EDIState = *c.EDIState
	}
	if c.PartnerName != nil {
		inv.PartnerName = *c.PartnerName
	}
	if c.AmountTotal != nil {
		inv.AmountTotal = *c.AmountTotal
	}
	if c.Currency != nil {
		inv.Currency = *c.Currency
	}
	if c.InvoiceDate != nil {
		d := *c.InvoiceDate
		inv.InvoiceDate = &d
	} else if c.ClearInvoiceDate {
		inv.InvoiceDate = nil
	}
	inv.UpdatedAt = now
}
