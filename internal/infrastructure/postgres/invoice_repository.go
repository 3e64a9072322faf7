package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/moisestafur/odoo-webhookv1/internal/domain"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

const invoiceColumns = `id, company_id, COALESCE(name, ''), status, COALESCE(edi_state, ''), retrieval_token,
	COALESCE(partner_name, ''), amount_total, COALESCE(currency, ''), invoice_date, created_at, updated_at`

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste la factura; el ID lo asigna la secuencia (BIGSERIAL).
func (r *InvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	if invoice.RetrievalToken == "" {
		return fmt.Errorf("%w: factura sin token de descarga", domain.ErrInvalidInput)
	}
	query := `
		INSERT INTO invoices (company_id, name, status, edi_state, retrieval_token, partner_name,
		                      amount_total, currency, invoice_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		invoice.CompanyID, nullIfEmpty(invoice.Name), invoice.Status, nullIfEmpty(invoice.EDIState),
		invoice.RetrievalToken, nullIfEmpty(invoice.PartnerName), invoice.AmountTotal,
		nullIfEmpty(invoice.Currency), invoice.InvoiceDate, invoice.CreatedAt, invoice.UpdatedAt,
	).Scan(&invoice.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: token de descarga repetido", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID obtiene una factura por ID. Devuelve (nil, nil) si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// GetByIDsForUpdate lee las facturas con SELECT ... FOR UPDATE, en orden de id
// para que dos escrituras concurrentes bloqueen en el mismo orden.
func (r *InvoiceRepo) GetByIDsForUpdate(ctx context.Context, ids []int64) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("lock invoices: %w", err)
	}
	defer rows.Close()
	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// Update aplica el lote a todas las facturas ids con un único UPDATE.
// Si alguna no existe devuelve domain.ErrNotFound (la transacción hará rollback).
func (r *InvoiceRepo) Update(ctx context.Context, ids []int64, changes entity.InvoiceChanges) error {
	set := newSetBuilder(2) // $1 = ids
	if changes.Name != nil {
		set.add("name", nullIfEmpty(*changes.Name))
	}
	if changes.Status != nil {
		set.add("status", *changes.Status)
	}
	if changes.EDIState != nil {
		set.add("edi_state", nullIfEmpty(*changes.EDIState))
	}
	if changes.PartnerName != nil {
		set.add("partner_name", nullIfEmpty(*changes.PartnerName))
	}
	if changes.AmountTotal != nil {
		set.add("amount_total", *changes.AmountTotal)
	}
	if changes.Currency != nil {
		set.add("currency", nullIfEmpty(*changes.Currency))
	}
	if changes.InvoiceDate != nil {
		set.add("invoice_date", *changes.InvoiceDate)
	} else if changes.ClearInvoiceDate {
		set.add("invoice_date", nil)
	}
	set.add("updated_at", time.Now().UTC())

	query := `UPDATE invoices SET ` + set.clause() + ` WHERE id = ANY($1)`
	tag, err := r.q.Exec(ctx, query, append([]any{ids}, set.args...)...)
	if err != nil {
		return fmt.Errorf("update invoices: %w", err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return domain.ErrNotFound
	}
	return nil
}

// ListByCompany lista facturas de la empresa, más recientes primero.
func (r *InvoiceRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE company_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.Name, &inv.Status, &inv.EDIState, &inv.RetrievalToken,
		&inv.PartnerName, &inv.AmountTotal, &inv.Currency, &inv.InvoiceDate,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// setBuilder arma la cláusula SET de un UPDATE parcial con placeholders numerados.
type setBuilder struct {
	next  int
	parts []string
	args  []any
}

func newSetBuilder(firstPlaceholder int) *setBuilder {
	return &setBuilder{next: firstPlaceholder}
}

func (b *setBuilder) add(column string, value any) {
	b.parts = append(b.parts, fmt.Sprintf("%s = $%d", column, b.next))
	b.args = append(b.args, value)
	b.next++
}

func (b *setBuilder) clause() string {
	return strings.Join(b.parts, ", ")
}
