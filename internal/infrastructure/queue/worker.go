package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/moisestafur/odoo-webhookv1/pkg/config"
	"github.com/moisestafur/odoo-webhookv1/pkg/logger"
)

// WebhookTaskHandler procesa las tareas webhook:invoice.
type WebhookTaskHandler struct {
	deliverer Deliverer
	log       *logger.Logger
}

// NewWebhookTaskHandler construye el handler.
func NewWebhookTaskHandler(deliverer Deliverer, log *logger.Logger) *WebhookTaskHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WebhookTaskHandler{deliverer: deliverer, log: log.Named("webhook_worker")}
}

var _ asynq.Handler = (*WebhookTaskHandler)(nil)

// ProcessTask entrega la notificación. Solo un payload ilegible devuelve error (sin reintento):
// el desenlace de la entrega ya queda en el historial de la factura.
func (h *WebhookTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p InvoiceWebhookTask
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.log.Error().Err(err).Str("type", t.Type()).Msg("payload de tarea inválido")
		return fmt.Errorf("decodificar tarea webhook: %v: %w", err, asynq.SkipRetry)
	}
	res := h.deliverer.Deliver(ctx, p.InvoiceID, p.Label, p.Payload)
	h.log.Debug().
		Int64("invoice_id", p.InvoiceID).
		Bool("delivered", res.Delivered).
		Int("attempts", res.Attempts).
		Msg("tarea webhook procesada")
	return nil
}

// RedisOpt opciones de conexión de asynq a partir de la configuración.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

// NewClient cliente asynq para encolar.
func NewClient(cfg config.RedisConfig) *asynq.Client {
	return asynq.NewClient(RedisOpt(cfg))
}

// NewServer servidor asynq que consume solo la cola de webhooks.
// Concurrencia 1: FIFO por proceso, igual que la entrega en línea.
func NewServer(cfg config.RedisConfig, log *logger.Logger) *asynq.Server {
	if log == nil {
		log = logger.Nop()
	}
	return asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{QueueWebhooks: 1},
		Logger:      asynqLogger{log: log.Named("asynq")},
	})
}

// NewServeMux registra el handler de webhooks.
func NewServeMux(h *WebhookTaskHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeInvoiceWebhook, h)
	return mux
}

// asynqLogger adapta el Logger de la app a la interfaz asynq.Logger.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
