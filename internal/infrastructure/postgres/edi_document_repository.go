package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/moisestafur/odoo-webhookv1/internal/domain"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/repository"
)

var _ repository.EDIDocumentRepository = (*EDIDocumentRepo)(nil)

const ediDocumentColumns = `id, invoice_id, COALESCE(state, ''), COALESCE(error, ''), created_at, updated_at`

// EDIDocumentRepo implementación de EDIDocumentRepository (usable con pool o tx).
type EDIDocumentRepo struct {
	q Querier
}

// NewEDIDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEDIDocumentRepository(q Querier) *EDIDocumentRepo {
	return &EDIDocumentRepo{q: q}
}

func (r *EDIDocumentRepo) Create(ctx context.Context, doc *entity.EDIDocument) error {
	query := `
		INSERT INTO edi_documents (invoice_id, state, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		doc.InvoiceID, nullIfEmpty(doc.State), nullIfEmpty(doc.Error), doc.CreatedAt, doc.UpdatedAt,
	).Scan(&doc.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert edi document: %w", err)
	}
	return nil
}

func (r *EDIDocumentRepo) GetByIDsForUpdate(ctx context.Context, ids []int64) ([]*entity.EDIDocument, error) {
	query := `SELECT ` + ediDocumentColumns + ` FROM edi_documents WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	return r.list(ctx, query, ids)
}

func (r *EDIDocumentRepo) Update(ctx context.Context, ids []int64, changes entity.EDIDocumentChanges) error {
	set := newSetBuilder(2)
	if changes.State != nil {
		set.add("state", nullIfEmpty(*changes.State))
	}
	if changes.Error != nil {
		set.add("error", nullIfEmpty(*changes.Error))
	}
	set.add("updated_at", time.Now().UTC())

	tag, err := r.q.Exec(ctx, `UPDATE edi_documents SET `+set.clause()+` WHERE id = ANY($1)`, append([]any{ids}, set.args...)...)
	if err != nil {
		return fmt.Errorf("update edi documents: %w", err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EDIDocumentRepo) ListByInvoice(ctx context.Context, invoiceID int64) ([]*entity.EDIDocument, error) {
	query := `SELECT ` + ediDocumentColumns + ` FROM edi_documents WHERE invoice_id = $1 ORDER BY id`
	return r.list(ctx, query, invoiceID)
}

func (r *EDIDocumentRepo) list(ctx context.Context, query string, args ...any) ([]*entity.EDIDocument, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list edi documents: %w", err)
	}
	defer rows.Close()
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.EDIDocument, error) {
		var d entity.EDIDocument
		err := row.Scan(&d.ID, &d.InvoiceID, &d.State, &d.Error, &d.CreatedAt, &d.UpdatedAt)
		return &d, err
	})
}
