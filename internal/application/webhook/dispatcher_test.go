package webhook_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moisestafur/odoo-webhookv1/internal/application/webhook"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
	"github.com/moisestafur/odoo-webhookv1/internal/infrastructure/memory"
)

const hookURL = "https://erp.example.com/hooks/invoice"

// fakeTimer dispara de inmediato y registra cada espera pedida.
type fakeTimer struct {
	mu     sync.Mutex
	delays []time.Duration
	c      chan time.Time
}

func (f *fakeTimer) Start(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays = append(f.delays, d)
	f.c = make(chan time.Time, 1)
	f.c <- time.Now()
}

func (f *fakeTimer) Stop() {}

func (f *fakeTimer) C() <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.c
}

func (f *fakeTimer) Delays() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.delays...)
}

type env struct {
	dispatcher *webhook.Dispatcher
	timer      *fakeTimer
	audit      *memory.AuditRepository
}

func newEnv(t *testing.T, cfg webhook.Config) *env {
	t.Helper()
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	timer := &fakeTimer{}
	audit := memory.NewAuditRepository(memory.NewStore())
	return &env{
		dispatcher: webhook.NewDispatcher(cfg, audit, nil, webhook.WithHTTPClient(client), webhook.WithTimer(timer)),
		timer:      timer,
		audit:      audit,
	}
}

func defaultConfig() webhook.Config {
	return webhook.Config{
		URL:                hookURL,
		Token:              "s3cr3t",
		BaseURL:            "https://facturas.example.com/",
		Timeout:            5 * time.Second,
		MaxAttempts:        3,
		RetryDelay:         2 * time.Second,
		RetryOnServerError: true,
	}
}

func sampleInvoice() *entity.Invoice {
	d := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	return &entity.Invoice{
		ID:             42,
		Name:           "F001-42",
		Status:         entity.InvoiceStatusPosted,
		EDIState:       entity.EDIStateSent,
		RetrievalToken: "tok_abcdefghijklmnopqrstuvwxyz",
		PartnerName:    "ACME SAC",
		AmountTotal:    decimal.RequireFromString("1180.50"),
		Currency:       "PEN",
		InvoiceDate:    &d,
	}
}

func notes(t *testing.T, e *env, invoiceID int64) []string {
	t.Helper()
	list, err := e.audit.ListByInvoice(context.Background(), invoiceID)
	require.NoError(t, err)
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = append(out, n.Body)
	}
	return out
}

// ── Reintentos ────────────────────────────────────────────────────────────────

func TestDeliver_ErrorDeRedTresIntentosConEspera(t *testing.T) {
	e := newEnv(t, defaultConfig())
	httpmock.RegisterResponder(http.MethodPost, hookURL, httpmock.NewErrorResponder(errors.New("connection refused")))

	inv := sampleInvoice()
	var res webhook.Result
	assert.NotPanics(t, func() {
		res = e.dispatcher.Deliver(context.Background(), inv.ID, entity.EDIStateSent, e.dispatcher.BuildPayload(inv, entity.EDIStateSent))
	})

	assert.False(t, res.Delivered)
	assert.Equal(t, 3, res.Attempts)
	assert.Error(t, res.Err)
	assert.Equal(t, 3, httpmock.GetCallCountInfo()["POST "+hookURL])
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, e.timer.Delays(), "una espera tras el 1.º y el 2.º fallo, ninguna tras el último")

	got := notes(t, e, inv.ID)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "No se pudo notificar el webhook")
}

func TestDeliver_ExitoDetieneLosReintentosYRegistraNota(t *testing.T) {
	e := newEnv(t, defaultConfig())
	calls := 0
	httpmock.RegisterResponder(http.MethodPost, hookURL, func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("i/o timeout")
		}
		return httpmock.NewStringResponse(200, `{"ok":true}`), nil
	})

	inv := sampleInvoice()
	res := e.dispatcher.Deliver(context.Background(), inv.ID, entity.EDIStateSent, e.dispatcher.BuildPayload(inv, entity.EDIStateSent))

	assert.True(t, res.Delivered)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 200, res.StatusCode)
	assert.NoError(t, res.Err)
	assert.Len(t, e.timer.Delays(), 1)
	assert.Equal(t, []string{"Factura enviada y validada correctamente por SUNAT (intento 2)."}, notes(t, e, inv.ID))
}

func TestDeliver_CabecerasYCuerpo(t *testing.T) {
	e := newEnv(t, defaultConfig())
	var (
		header http.Header
		body   map[string]any
	)
	httpmock.RegisterResponder(http.MethodPost, hookURL, func(req *http.Request) (*http.Response, error) {
		header = req.Header.Clone()
		raw, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(raw, &body)
		return httpmock.NewStringResponse(204, ""), nil
	})

	inv := sampleInvoice()
	res := e.dispatcher.Deliver(context.Background(), inv.ID, entity.EDIStateSent, e.dispatcher.BuildPayload(inv, entity.EDIStateSent))
	require.True(t, res.Delivered)

	assert.Equal(t, "application/json", header.Get("Content-Type"))
	assert.Equal(t, "s3cr3t", header.Get(webhook.HeaderToken))
	assert.Equal(t, "F001-42", body["invoice_number"])
	assert.Equal(t, "ACME SAC", body["partner_name"])
	assert.Equal(t, 1180.5, body["amount_total"])
	assert.Equal(t, "PEN", body["currency"])
	assert.Equal(t, "2026-10-17", body["invoice_date"])
	assert.Equal(t, "posted", body["state"])
	assert.Equal(t, "sent", body["edi_state"])
	assert.Equal(t, "https://facturas.example.com/public/invoice/pdf/42/tok_abcdefghijklmnopqrstuvwxyz", body["pdf_url"])
}

func TestDeliver_SinTokenNoEnviaCabecera(t *testing.T) {
	cfg := defaultConfig()
	cfg.Token = ""
	e := newEnv(t, cfg)
	var present bool
	httpmock.RegisterResponder(http.MethodPost, hookURL, func(req *http.Request) (*http.Response, error) {
		_, present = req.Header[webhook.HeaderToken]
		return httpmock.NewStringResponse(200, ""), nil
	})

	inv := sampleInvoice()
	e.dispatcher.Deliver(context.Background(), inv.ID, entity.EDIStateError, e.dispatcher.BuildPayload(inv, entity.EDIStateError))
	assert.False(t, present)
}

func TestDeliver_4xxNoSeReintenta(t *testing.T) {
	e := newEnv(t, defaultConfig())
	httpmock.RegisterResponder(http.MethodPost, hookURL, httpmock.NewStringResponder(401, "token inválido"))

	inv := sampleInvoice()
	res := e.dispatcher.Deliver(context.Background(), inv.ID, entity.EDIStateSent, e.dispatcher.BuildPayload(inv, entity.EDIStateSent))

	assert.False(t, res.Delivered)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 401, res.StatusCode)
	code, ok := webhook.IsStatusError(res.Err)
	assert.True(t, ok)
	assert.Equal(t, 401, code)
	assert.Empty(t, e.timer.Delays())
	assert.Len(t, notes(t, e, inv.ID), 1)
}

func TestDeliver_5xxSeReintenta(t *testing.T) {
	e := newEnv(t, defaultConfig())
	httpmock.RegisterResponder(http.MethodPost, hookURL, httpmock.NewStringResponder(503, "mantenimiento"))

	inv := sampleInvoice()
	res := e.dispatcher.Deliver(context.Background(), inv.ID, entity.EDIStateSent, e.dispatcher.BuildPayload(inv, entity.EDIStateSent))

	assert.False(t, res.Delivered)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, httpmock.GetCallCountInfo()["POST "+hookURL])
}

func TestDeliver_5xxSinReintentoSiEstaDeshabilitado(t *testing.T) {
	cfg := defaultConfig()
	cfg.RetryOnServerError = false
	e := newEnv(t, cfg)
	httpmock.RegisterResponder(http.MethodPost, hookURL, httpmock.NewStringResponder(500, "boom"))

	inv := sampleInvoice()
	res := e.dispatcher.Deliver(context.Background(), inv.ID, entity.EDIStateSent, e.dispatcher.BuildPayload(inv, entity.EDIStateSent))
	assert.Equal(t, 1, res.Attempts)
}

func TestNotify_SinURLNoHaceNada(t *testing.T) {
	cfg := defaultConfig()
	cfg.URL = ""
	e := newEnv(t, cfg)

	assert.NotPanics(t, func() {
		e.dispatcher.Notify(context.Background(), sampleInvoice(), entity.EDIStateSent)
	})
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
	assert.Empty(t, notes(t, e, 42))
}

func TestNotify_IgnoraCancelacionDelLlamador(t *testing.T) {
	e := newEnv(t, defaultConfig())
	httpmock.RegisterResponder(http.MethodPost, hookURL, httpmock.NewStringResponder(200, ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.dispatcher.Notify(ctx, sampleInvoice(), entity.EDIStateCancelled)

	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Equal(t, []string{"Factura cancelada en SUNAT (intento 1)."}, notes(t, e, 42))
}

// ── Payload ───────────────────────────────────────────────────────────────────

func TestBuildPayload_PDFURLSoloParaSentConToken(t *testing.T) {
	d := webhook.NewDispatcher(defaultConfig(), nil, nil)
	for _, label := range []string{entity.EDIStateToSend, entity.EDIStateSent, entity.EDIStateError, entity.EDIStateCancelled, "otro"} {
		p := d.BuildPayload(sampleInvoice(), label)
		if label == entity.EDIStateSent {
			require.NotNil(t, p.PDFURL, label)
			assert.Equal(t, "https://facturas.example.com/public/invoice/pdf/42/tok_abcdefghijklmnopqrstuvwxyz", *p.PDFURL)
		} else {
			assert.Nil(t, p.PDFURL, label)
		}
	}

	inv := sampleInvoice()
	inv.RetrievalToken = ""
	assert.Nil(t, d.BuildPayload(inv, entity.EDIStateSent).PDFURL, "sin token no hay enlace")

	cfg := defaultConfig()
	cfg.BaseURL = ""
	assert.Nil(t, webhook.NewDispatcher(cfg, nil, nil).BuildPayload(sampleInvoice(), entity.EDIStateSent).PDFURL, "sin URL base no hay enlace")
}

func TestBuildPayload_CamposVaciosSonNull(t *testing.T) {
	d := webhook.NewDispatcher(defaultConfig(), nil, nil)
	inv := &entity.Invoice{ID: 9, Status: entity.InvoiceStatusDraft, AmountTotal: decimal.Zero}

	raw, err := json.Marshal(d.BuildPayload(inv, entity.EDIStateError))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"invoice_number": null,
		"partner_name": null,
		"amount_total": 0,
		"currency": null,
		"invoice_date": null,
		"state": "draft",
		"edi_state": "error",
		"pdf_url": null
	}`, string(raw))
}

func TestStateMessage(t *testing.T) {
	assert.Equal(t, "Factura pendiente de envío a SUNAT.", webhook.StateMessage(entity.EDIStateToSend))
	assert.Equal(t, "Error en validación con SUNAT/OSE.", webhook.StateMessage(entity.EDIStateError))
	assert.Equal(t, "Estado EDI actualizado a rechazado.", webhook.StateMessage("rechazado"))
}
