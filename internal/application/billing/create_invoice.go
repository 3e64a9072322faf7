package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/moisestafur/odoo-webhookv1/internal/application/dto"
	"github.com/moisestafur/odoo-webhookv1/internal/domain"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/repository"
)

const dateLayout = "2006-01-02"

// InvoiceUseCase alta y consulta de facturas y documentos EDI (API administrativa).
type InvoiceUseCase struct {
	txRunner    InvoiceTxRunner
	invoiceRepo repository.InvoiceRepository
	ediRepo     repository.EDIDocumentRepository
	auditRepo   repository.AuditRepository
	newToken    func() (string, error)
	now         func() time.Time
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(
	txRunner InvoiceTxRunner,
	invoiceRepo repository.InvoiceRepository,
	ediRepo repository.EDIDocumentRepository,
	auditRepo repository.AuditRepository,
) *InvoiceUseCase {
	return &InvoiceUseCase{
		txRunner:    txRunner,
		invoiceRepo: invoiceRepo,
		ediRepo:     ediRepo,
		auditRepo:   auditRepo,
		newToken:    NewRetrievalToken,
		now:         time.Now,
	}
}

// CreateInvoice crea la factura. El token de descarga se asigna antes del INSERT y se
// guarda en la misma transacción, así ningún lector ve la factura sin token.
func (uc *InvoiceUseCase) CreateInvoice(ctx context.Context, companyID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if companyID == "" {
		return nil, domain.ErrUnauthorized
	}
	if in.AmountTotal.IsNegative() {
		return nil, fmt.Errorf("%w: amount_total no puede ser negativo", domain.ErrInvalidInput)
	}
	invoiceDate, err := parseDate(in.InvoiceDate)
	if err != nil {
		return nil, err
	}

	token := strings.TrimSpace(in.RetrievalToken)
	if token == "" {
		token, err = uc.newToken()
		if err != nil {
			return nil, err
		}
	} else if !ValidRetrievalToken(token) {
		return nil, fmt.Errorf("%w: retrieval_token debe usar el alfabeto base64url (16-128 caracteres)", domain.ErrInvalidInput)
	}

	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = entity.InvoiceStatusDraft
	}

	now := uc.now()
	inv := &entity.Invoice{
		CompanyID:      companyID,
		Name:           strings.TrimSpace(in.Name),
		Status:         status,
		EDIState:       strings.TrimSpace(in.EDIState),
		RetrievalToken: token,
		PartnerName:    in.PartnerName,
		AmountTotal:    in.AmountTotal,
		Currency:       strings.ToUpper(strings.TrimSpace(in.Currency)),
		InvoiceDate:    invoiceDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = uc.txRunner.RunInvoices(ctx, func(invoiceRepo repository.InvoiceRepository, _ repository.EDIDocumentRepository) error {
		return invoiceRepo.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// GetInvoice devuelve la factura con sus documentos EDI e historial.
func (uc *InvoiceUseCase) GetInvoice(ctx context.Context, companyID string, id int64) (*dto.InvoiceResponse, error) {
	inv, err := uc.ownedInvoice(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	out := toInvoiceResponse(inv)

	docs, err := uc.ediRepo.ListByInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out.EDIDocuments = append(out.EDIDocuments, toEDIDocumentResponse(d))
	}

	notes, err := uc.auditRepo.ListByInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	out.AuditTrail = toAuditResponses(notes)
	return out, nil
}

// ListInvoices lista facturas de la empresa.
func (uc *InvoiceUseCase) ListInvoices(ctx context.Context, companyID string, limit, offset int) ([]*dto.InvoiceResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	list, err := uc.invoiceRepo.ListByCompany(ctx, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.InvoiceResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, toInvoiceResponse(inv))
	}
	return out, nil
}

// ListAudit historial de notas de la factura.
func (uc *InvoiceUseCase) ListAudit(ctx context.Context, companyID string, id int64) ([]dto.AuditNoteResponse, error) {
	if _, err := uc.ownedInvoice(ctx, companyID, id); err != nil {
		return nil, err
	}
	notes, err := uc.auditRepo.ListByInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAuditResponses(notes), nil
}

// CreateEDIDocument registra un documento EDI para la factura. El alta no notifica:
// solo las escrituras posteriores pasan por el detector de transiciones.
func (uc *InvoiceUseCase) CreateEDIDocument(ctx context.Context, companyID string, invoiceID int64, in dto.CreateEDIDocumentRequest) (*dto.EDIDocumentResponse, error) {
	now := uc.now()
	doc := &entity.EDIDocument{
		InvoiceID: invoiceID,
		State:     strings.TrimSpace(in.State),
		Error:     in.Error,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := uc.txRunner.RunInvoices(ctx, func(invoiceRepo repository.InvoiceRepository, ediRepo repository.EDIDocumentRepository) error {
		invs, err := invoiceRepo.GetByIDsForUpdate(ctx, []int64{invoiceID})
		if err != nil {
			return err
		}
		if len(invs) == 0 {
			return domain.ErrNotFound
		}
		if invs[0].CompanyID != companyID {
			return domain.ErrForbidden
		}
		return ediRepo.Create(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	out := toEDIDocumentResponse(doc)
	return &out, nil
}

func (uc *InvoiceUseCase) ownedInvoice(ctx context.Context, companyID string, id int64) (*entity.Invoice, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("obtener factura: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return inv, nil
}

// ToInvoiceChanges traduce el body de la API al lote de la primitiva de escritura.
func ToInvoiceChanges(in dto.InvoiceChangesRequest) (entity.InvoiceChanges, error) {
	ch := entity.InvoiceChanges{
		Name:        in.Name,
		Status:      in.Status,
		EDIState:    in.EDIState,
		PartnerName: in.PartnerName,
		AmountTotal: in.AmountTotal,
		Currency:    in.Currency,
	}
	if in.AmountTotal != nil && in.AmountTotal.IsNegative() {
		return ch, fmt.Errorf("%w: amount_total no puede ser negativo", domain.ErrInvalidInput)
	}
	if in.InvoiceDate != nil {
		d, err := parseDate(*in.InvoiceDate)
		if err != nil {
			return ch, err
		}
		ch.InvoiceDate = d
		ch.ClearInvoiceDate = d == nil
	}
	return ch, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: invoice_date debe tener formato YYYY-MM-DD", domain.ErrInvalidInput)
	}
	return &d, nil
}

func toInvoiceResponse(inv *entity.Invoice) *dto.InvoiceResponse {
	out := &dto.InvoiceResponse{
		ID:          inv.ID,
		CompanyID:   inv.CompanyID,
		Name:        inv.Name,
		Status:      inv.Status,
		EDIState:    inv.EDIState,
		PartnerName: inv.PartnerName,
		AmountTotal: inv.AmountTotal,
		Currency:    inv.Currency,
	}
	if inv.InvoiceDate != nil {
		s := inv.InvoiceDate.Format(dateLayout)
		out.InvoiceDate = &s
	}
	return out
}

func toEDIDocumentResponse(d *entity.EDIDocument) dto.EDIDocumentResponse {
	return dto.EDIDocumentResponse{ID: d.ID, InvoiceID: d.InvoiceID, State: d.State, Error: d.Error}
}

func toAuditResponses(notes []*entity.AuditNote) []dto.AuditNoteResponse {
	out := make([]dto.AuditNoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, dto.AuditNoteResponse{
			ID:        n.ID,
			Body:      n.Body,
			CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
