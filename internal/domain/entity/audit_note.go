package entity

import "time"

// AuditNote nota del historial de la factura (solo se agregan, nunca se editan).
type AuditNote struct {
	ID        string
	InvoiceID int64
	Body      string
	CreatedAt time.Time
}
