package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest body para POST /api/invoices.
// RetrievalToken es opcional: si va vacío el servidor genera uno.
type CreateInvoiceRequest struct {
	Name           string          `json:"name"`
	Status         string          `json:"status"`
	EDIState       string          `json:"edi_state"`
	PartnerName    string          `json:"partner_name"`
	AmountTotal    decimal.Decimal `json:"amount_total"`
	Currency       string          `json:"currency"`
	InvoiceDate    string          `json:"invoice_date,omitempty"` // YYYY-MM-DD
	RetrievalToken string          `json:"retrieval_token,omitempty"`
}

// InvoiceChangesRequest campos a modificar; los ausentes (null) no se tocan.
// InvoiceDate = "" deja la fecha en NULL.
type InvoiceChangesRequest struct {
	Name        *string          `json:"name,omitempty"`
	Status      *string          `json:"status,omitempty"`
	EDIState    *string          `json:"edi_state,omitempty"`
	PartnerName *string          `json:"partner_name,omitempty"`
	AmountTotal *decimal.Decimal `json:"amount_total,omitempty"`
	Currency    *string          `json:"currency,omitempty"`
	InvoiceDate *string          `json:"invoice_date,omitempty"`
}

// UpdateInvoicesRequest body para PATCH /api/invoices (escritura en lote).
type UpdateInvoicesRequest struct {
	IDs     []int64               `json:"ids"`
	Changes InvoiceChangesRequest `json:"changes"`
}

// InvoiceResponse factura en respuestas de la API administrativa. Nunca incluye el token.
type InvoiceResponse struct {
	ID           int64                 `json:"id"`
	CompanyID    string                `json:"company_id"`
	Name         string                `json:"name"`
	Status       string                `json:"status"`
	EDIState     string                `json:"edi_state"`
	PartnerName  string                `json:"partner_name"`
	AmountTotal  decimal.Decimal       `json:"amount_total"`
	Currency     string                `json:"currency"`
	InvoiceDate  *string               `json:"invoice_date"`
	EDIDocuments []EDIDocumentResponse `json:"edi_documents,omitempty"`
	AuditTrail   []AuditNoteResponse   `json:"audit_trail,omitempty"`
}

// CreateEDIDocumentRequest body para POST /api/invoices/:id/edi-documents.
type CreateEDIDocumentRequest struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// EDIDocumentChangesRequest campos a modificar de un documento EDI.
type EDIDocumentChangesRequest struct {
	State *string `json:"state,omitempty"`
	Error *string `json:"error,omitempty"`
}

// UpdateEDIDocumentsRequest body para PATCH /api/edi-documents.
type UpdateEDIDocumentsRequest struct {
	IDs     []int64                   `json:"ids"`
	Changes EDIDocumentChangesRequest `json:"changes"`
}

// EDIDocumentResponse documento EDI en respuestas.
type EDIDocumentResponse struct {
	ID        int64  `json:"id"`
	InvoiceID int64  `json:"invoice_id"`
	State     string `json:"state"`
	Error     string `json:"error,omitempty"`
}

// AuditNoteResponse nota del historial.
type AuditNoteResponse struct {
	ID        string `json:"id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"` // RFC3339
}

// NotificationResponse notificación disparada por una escritura.
type NotificationResponse struct {
	InvoiceID int64  `json:"invoice_id"`
	EDIState  string `json:"edi_state"`
}

// UpdateResultResponse respuesta de las escrituras en lote.
type UpdateResultResponse struct {
	Updated       int                    `json:"updated"`
	Notifications []NotificationResponse `json:"notifications"`
}

// InvoiceWebhookPayload cuerpo JSON del webhook de salida.
// Los campos puntero se serializan como null cuando no hay valor.
type InvoiceWebhookPayload struct {
	InvoiceNumber *string     `json:"invoice_number"`
	PartnerName   *string     `json:"partner_name"`
	AmountTotal   json.Number `json:"amount_total"`
	Currency      *string     `json:"currency"`
	InvoiceDate   *string     `json:"invoice_date"` // YYYY-MM-DD
	State         string      `json:"state"`
	EDIState      string      `json:"edi_state"`
	PDFURL        *string     `json:"pdf_url"`
}
