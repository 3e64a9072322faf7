package queue

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/moisestafur/odoo-webhookv1/internal/application/billing"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
	"github.com/moisestafur/odoo-webhookv1/pkg/logger"
)

// Notifier implementa billing.Notifier encolando la entrega. Si Redis no acepta la tarea
// entrega en línea, así la escritura nunca pierde la notificación ni falla por ella.
type Notifier struct {
	enqueuer  Enqueuer
	deliverer Deliverer
	log       *logger.Logger
}

// NewNotifier construye el notificador en modo cola.
func NewNotifier(enqueuer Enqueuer, deliverer Deliverer, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{enqueuer: enqueuer, deliverer: deliverer, log: log.Named("webhook_queue")}
}

var _ billing.Notifier = (*Notifier)(nil)

// Notify encola la entrega con el payload tomado en este momento.
func (n *Notifier) Notify(ctx context.Context, inv *entity.Invoice, label string) {
	if !n.deliverer.Enabled() {
		n.log.Warn().Int64("invoice_id", inv.ID).Str("label", label).Msg("WEBHOOK_URL no configurada, notificación omitida")
		return
	}
	ctx = context.WithoutCancel(ctx)
	payload := n.deliverer.BuildPayload(inv, label)

	task, err := NewInvoiceWebhookTask(inv.ID, label, payload)
	if err == nil {
		var info *asynq.TaskInfo
		if info, err = n.enqueuer.EnqueueContext(ctx, task); err == nil {
			ev := n.log.Info().Int64("invoice_id", inv.ID).Str("label", label)
			if info != nil {
				ev = ev.Str("task_id", info.ID)
			}
			ev.Msg("webhook encolado")
			return
		}
	}

	n.log.Error().Err(err).Int64("invoice_id", inv.ID).Str("label", label).Msg("no se pudo encolar el webhook, entregando en línea")
	n.deliverer.Deliver(ctx, inv.ID, label, payload)
}
