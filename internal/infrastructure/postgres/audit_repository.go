package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo historial de notas de la factura (tabla invoice_audit_notes, solo INSERT).
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador.
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Append inserta la nota. Asigna ID y fecha si vienen vacíos.
func (r *AuditRepo) Append(ctx context.Context, note *entity.AuditNote) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO invoice_audit_notes (id, invoice_id, body, created_at) VALUES ($1, $2, $3, $4)`,
		note.ID, note.InvoiceID, note.Body, note.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit note: %w", err)
	}
	return nil
}

// ListByInvoice notas en orden cronológico (y de inserción ante empate).
func (r *AuditRepo) ListByInvoice(ctx context.Context, invoiceID int64) ([]*entity.AuditNote, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, invoice_id, body, created_at FROM invoice_audit_notes WHERE invoice_id = $1 ORDER BY created_at, seq`,
		invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit notes: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.AuditNote, 0)
	for rows.Next() {
		var n entity.AuditNote
		if err := rows.Scan(&n.ID, &n.InvoiceID, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit note: %w", err)
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}
