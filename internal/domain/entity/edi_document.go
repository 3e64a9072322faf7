package entity

import "time"

// EDIDocument es el documento de estado EDI asociado a una factura: lleva su propio
// estado y el detalle de error devuelto por el OSE/SUNAT.
type EDIDocument struct {
	ID        int64
	InvoiceID int64
	State     string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EDIDocumentChanges lote de campos para actualizar documentos EDI.
type EDIDocumentChanges struct {
	State *string
	Error *string
}

// IsEmpty indica si el lote no trae ningún campo.
func (c EDIDocumentChanges) IsEmpty() bool {
	return c.State == nil && c.Error == nil
}

// Apply aplica los campos presentes sobre d.
func (c EDIDocumentChanges) Apply(d *EDIDocument, now time.Time) {
	if c.State != nil {
		d.State = *c.State
	}
	if c.Error != nil {
		d.Error = *c.Error
	}
	d.UpdatedAt = now
}
