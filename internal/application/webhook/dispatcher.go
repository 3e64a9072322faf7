package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/moisestafur/odoo-webhookv1/internal/application/billing"
	"github.com/moisestafur/odoo-webhookv1/internal/application/dto"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/repository"
	"github.com/moisestafur/odoo-webhookv1/pkg/logger"
)

const dateLayout = "2006-01-02"

// StatusError el receptor respondió con un código fuera de 2xx.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("respuesta HTTP %d", e.Code)
}

// Retryable indica si el código merece otro intento (5xx y 429).
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Result desenlace de una entrega (intentos incluidos). Solo informativo: nunca se propaga.
type Result struct {
	Delivered  bool
	Attempts   int
	StatusCode int
	Err        error
}

// Dispatcher entrega el webhook con reintentos y deja constancia en el historial.
type Dispatcher struct {
	cfg    Config
	audit  repository.AuditRepository
	client *http.Client
	timer  backoff.Timer
	now    func() time.Time
	log    *logger.Logger
}

// Option personaliza el Dispatcher (tests).
type Option func(*Dispatcher)

// WithHTTPClient reemplaza el cliente HTTP.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithTimer reemplaza el temporizador de espera entre intentos.
func WithTimer(t backoff.Timer) Option {
	return func(d *Dispatcher) { d.timer = t }
}

// WithClock reemplaza el reloj usado en las notas de historial.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher construye el Dispatcher. audit puede ser nil (sin historial).
func NewDispatcher(cfg Config, audit repository.AuditRepository, log *logger.Logger, opts ...Option) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		cfg:    cfg,
		audit:  audit,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    func() time.Time { return time.Now().UTC() },
		log:    log.Named("webhook"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ billing.Notifier = (*Dispatcher)(nil)

// Enabled indica si hay URL configurada.
func (d *Dispatcher) Enabled() bool {
	return d.cfg.Enabled()
}

// Notify implementa billing.Notifier: construye el payload y lo entrega en la misma
// llamada. La cancelación del llamador no interrumpe la entrega.
func (d *Dispatcher) Notify(ctx context.Context, inv *entity.Invoice, label string) {
	if !d.Enabled() {
		d.log.Warn().
			Int64("invoice_id", inv.ID).
			Str("label", label).
			Msg("WEBHOOK_URL no configurada, notificación omitida")
		return
	}
	d.Deliver(context.WithoutCancel(ctx), inv.ID, label, d.BuildPayload(inv, label))
}

// BuildPayload arma el cuerpo JSON. pdf_url solo se informa para sent, con token y URL base.
func (d *Dispatcher) BuildPayload(inv *entity.Invoice, label string) dto.InvoiceWebhookPayload {
	p := dto.InvoiceWebhookPayload{
		InvoiceNumber: nullable(inv.Name),
		PartnerName:   nullable(inv.PartnerName),
		AmountTotal:   json.Number(inv.AmountTotal.String()),
		Currency:      nullable(inv.Currency),
		State:         inv.Status,
		EDIState:      label,
	}
	if inv.InvoiceDate != nil {
		s := inv.InvoiceDate.Format(dateLayout)
		p.InvoiceDate = &s
	}
	base := strings.TrimRight(strings.TrimSpace(d.cfg.BaseURL), "/")
	if label == entity.EDIStateSent && inv.RetrievalToken != "" && base != "" {
		u := base + billing.PublicPDFPath(inv.ID, inv.RetrievalToken)
		p.PDFURL = &u
	}
	return p
}

// Deliver envía payload con hasta MaxAttempts intentos y RetryDelay entre ellos.
// Errores de red y (si está habilitado) 5xx/429 se reintentan; otro código no-2xx es final.
// Nunca devuelve error: el desenlace queda en logs, en el historial y en Result.
func (d *Dispatcher) Deliver(ctx context.Context, invoiceID int64, label string, payload dto.InvoiceWebhookPayload) Result {
	log := d.log.With().Int64("invoice_id", invoiceID).Str("label", label).Logger()

	if !d.Enabled() {
		log.Warn().Msg("WEBHOOK_URL no configurada, notificación omitida")
		return Result{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("no se pudo serializar el payload del webhook")
		return Result{Err: err}
	}

	var res Result
	op := func() error {
		res.Attempts++
		status, err := d.post(ctx, body)
		res.StatusCode = status
		if err != nil {
			log.Error().Err(err).Int("attempt", res.Attempts).Msg("error de red enviando webhook")
			return err
		}
		if status >= 200 && status < 300 {
			return nil
		}
		serr := &StatusError{Code: status}
		log.Error().Int("attempt", res.Attempts).Int("status_code", status).Msg("el receptor rechazó el webhook")
		if d.cfg.RetryOnServerError && serr.Retryable() {
			return serr
		}
		return backoff.Permanent(serr)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(d.cfg.RetryDelay), uint64(d.cfg.MaxAttempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		log.Debug().Dur("wait", wait).Int("next_attempt", res.Attempts+1).Msg("reintentando webhook")
	}

	err = backoff.RetryNotifyWithTimer(op, policy, notify, d.timer)
	if err != nil {
		res.Err = err
		log.Error().Err(err).Int("attempts", res.Attempts).Msg("webhook no entregado")
		d.appendNote(ctx, invoiceID, failureNote(label, res.Attempts, err))
		return res
	}

	res.Delivered = true
	log.Info().Int("attempt", res.Attempts).Int("status_code", res.StatusCode).Msg("webhook entregado")
	d.appendNote(ctx, invoiceID, successNote(label, res.Attempts))
	return res
}

func (d *Dispatcher) post(ctx context.Context, body []byte) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, d.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.cfg.Token != "" {
		req.Header.Set(HeaderToken, d.cfg.Token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}

func (d *Dispatcher) appendNote(ctx context.Context, invoiceID int64, body string) {
	if d.audit == nil {
		return
	}
	note := &entity.AuditNote{InvoiceID: invoiceID, Body: body, CreatedAt: d.now()}
	if err := d.audit.Append(ctx, note); err != nil {
		d.log.Error().Err(err).Int64("invoice_id", invoiceID).Msg("no se pudo registrar la nota de historial")
	}
}

// IsStatusError indica si err es un rechazo HTTP del receptor y devuelve el código.
func IsStatusError(err error) (int, bool) {
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.Code, true
	}
	return 0, false
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
