// Package queue desacopla la entrega del webhook de la escritura usando asynq sobre Redis.
// El contrato de reintentos vive en webhook.Dispatcher.Deliver; asynq no reintenta.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/moisestafur/odoo-webhookv1/internal/application/dto"
	"github.com/moisestafur/odoo-webhookv1/internal/application/webhook"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
)

// Tipo de tarea y cola de las entregas de webhook.
const (
	TypeInvoiceWebhook = "webhook:invoice"
	QueueWebhooks      = "webhooks"
)

// InvoiceWebhookTask payload de la tarea: la foto del payload se toma al detectar la transición.
type InvoiceWebhookTask struct {
	InvoiceID int64                     `json:"invoice_id"`
	Label     string                    `json:"label"`
	Payload   dto.InvoiceWebhookPayload `json:"payload"`
}

// NewInvoiceWebhookTask serializa la tarea.
func NewInvoiceWebhookTask(invoiceID int64, label string, payload dto.InvoiceWebhookPayload) (*asynq.Task, error) {
	raw, err := json.Marshal(InvoiceWebhookTask{InvoiceID: invoiceID, Label: label, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("serializar tarea webhook: %w", err)
	}
	return asynq.NewTask(TypeInvoiceWebhook, raw, asynq.Queue(QueueWebhooks), asynq.MaxRetry(0)), nil
}

// Deliverer lo que la cola necesita del Dispatcher.
type Deliverer interface {
	Enabled() bool
	BuildPayload(inv *entity.Invoice, label string) dto.InvoiceWebhookPayload
	Deliver(ctx context.Context, invoiceID int64, label string, payload dto.InvoiceWebhookPayload) webhook.Result
}

var _ Deliverer = (*webhook.Dispatcher)(nil)

// Enqueuer subconjunto de *asynq.Client usado para encolar.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

var _ Enqueuer = (*asynq.Client)(nil)
