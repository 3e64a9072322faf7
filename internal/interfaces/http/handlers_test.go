package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moisestafur/odoo-webhookv1/internal/application/billing"
	"github.com/moisestafur/odoo-webhookv1/internal/application/dto"
	"github.com/moisestafur/odoo-webhookv1/internal/application/webhook"
	"github.com/moisestafur/odoo-webhookv1/internal/infrastructure/memory"
	"github.com/moisestafur/odoo-webhookv1/internal/infrastructure/pdf"
	apphttp "github.com/moisestafur/odoo-webhookv1/internal/interfaces/http"
)

const (
	hookURL = "https://erp.example.com/hooks/invoice"
	baseURL = "https://facturas.example.com"
)

// ── Entorno completo: memoria + dispatcher con httpmock + maroto ───────────

type server struct {
	app *fiber.App

	mu    sync.Mutex
	hooks []map[string]interface{}
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{}

	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder(http.MethodPost, hookURL, func(req *http.Request) (*http.Response, error) {
		var body map[string]interface{}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return httpmock.NewStringResponse(http.StatusBadRequest, ""), nil
		}
		s.mu.Lock()
		s.hooks = append(s.hooks, body)
		s.mu.Unlock()
		return httpmock.NewStringResponse(http.StatusOK, `{"ok":true}`), nil
	})

	store := memory.NewStore()
	invRepo := memory.NewInvoiceRepository(store)
	ediRepo := memory.NewEDIDocumentRepository(store)
	auditRepo := memory.NewAuditRepository(store)
	tx := memory.NewTxRunner(store)

	dispatcher := webhook.NewDispatcher(webhook.Config{
		URL:         hookURL,
		Token:       "s3cr3t",
		BaseURL:     baseURL,
		Timeout:     time.Second,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	}, auditRepo, nil, webhook.WithHTTPClient(client))
	renderer := pdf.NewMarotoRenderer(invRepo, ediRepo, auditRepo, pdf.Issuer{Name: "Mi Empresa SAC", TaxID: "20123456789"})

	s.app = fiber.New()
	apphttp.Router(s.app, apphttp.RouterDeps{
		InvoiceUC: billing.NewInvoiceUseCase(tx, invRepo, ediRepo, auditRepo),
		StateUC:   billing.NewUpdateStateUseCase(tx, dispatcher, nil),
		PDFUC:     billing.NewPDFUseCase(invRepo, renderer, pdf.ReportInvoice, nil),
		JWTSecret: testJWTSecret,
	})
	return s
}

func (s *server) webhooks() []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]interface{}(nil), s.hooks...)
}

func (s *server) do(t *testing.T, method, path string, body interface{}, auth string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func (s *server) createInvoice(t *testing.T, auth string) dto.InvoiceResponse {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/invoices", map[string]interface{}{
		"name":         "F001-100",
		"status":       "posted",
		"edi_state":    "to_send",
		"partner_name": "Comercial Andina SAC",
		"amount_total": "1180.00",
		"currency":     "PEN",
		"invoice_date": "2026-10-17",
	}, auth)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out dto.InvoiceResponse
	decode(t, resp, &out)
	return out
}

// ── Flujo completo ─────────────────────────────────────────────────────────

func TestFlujo_EnviadaNotificaYEnlaceDescargaPDF(t *testing.T) {
	s := newServer(t)
	auth := tokenForRole(t, apphttp.RoleFacturador)
	inv := s.createInvoice(t, auth)

	resp := s.do(t, http.MethodPatch, "/api/invoices/"+strconv.FormatInt(inv.ID, 10), map[string]string{"edi_state": "sent"}, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res dto.UpdateResultResponse
	decode(t, resp, &res)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, "sent", res.Notifications[0].EDIState)

	hooks := s.webhooks()
	require.Len(t, hooks, 1, "la transición a sent debe notificar una vez")
	assert.Equal(t, "F001-100", hooks[0]["invoice_number"])
	assert.Equal(t, "sent", hooks[0]["edi_state"])
	assert.Equal(t, "posted", hooks[0]["state"])
	assert.Equal(t, "2026-10-17", hooks[0]["invoice_date"])

	pdfURL, ok := hooks[0]["pdf_url"].(string)
	require.True(t, ok, "sent con token debe incluir pdf_url")
	u, err := url.Parse(pdfURL)
	require.NoError(t, err)
	prefix := "/public/invoice/pdf/" + strconv.FormatInt(inv.ID, 10) + "/"
	require.True(t, strings.HasPrefix(u.Path, prefix), "pdf_url debe apuntar a la descarga pública de la factura")
	assert.Greater(t, len(u.Path), len(prefix), "pdf_url debe incluir el token")

	// Un token distinto se rechaza.
	resp = s.do(t, http.MethodGet, prefix+"wrong-token", nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// El enlace del webhook descarga el PDF sin JWT.
	resp = s.do(t, http.MethodGet, u.Path, nil, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="F001-100.pdf"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "no-store, no-cache, must-revalidate, max-age=0", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no-cache", resp.Header.Get("Pragma"))
	assert.Equal(t, "0", resp.Header.Get("Expires"))
	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))

	// El historial registra la entrega.
	resp = s.do(t, http.MethodGet, "/api/invoices/"+strconv.FormatInt(inv.ID, 10)+"/audit", nil, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var notes []dto.AuditNoteResponse
	decode(t, resp, &notes)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Body, "(intento 1)")
}

func TestFlujo_MismoEstadoNoNotifica(t *testing.T) {
	s := newServer(t)
	auth := tokenForRole(t, apphttp.RoleAdmin)
	inv := s.createInvoice(t, auth)

	resp := s.do(t, http.MethodPatch, "/api/invoices", map[string]interface{}{
		"ids":     []int64{inv.ID},
		"changes": map[string]string{"edi_state": "to_send"},
	}, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res dto.UpdateResultResponse
	decode(t, resp, &res)
	assert.Empty(t, res.Notifications)
	assert.Empty(t, s.webhooks())
}

func TestFlujo_DocumentoEDIConErrorNotificaError(t *testing.T) {
	s := newServer(t)
	auth := tokenForRole(t, apphttp.RoleFacturador)
	inv := s.createInvoice(t, auth)

	resp := s.do(t, http.MethodPost, "/api/invoices/"+strconv.FormatInt(inv.ID, 10)+"/edi-documents", map[string]string{"state": "to_send"}, auth)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var doc dto.EDIDocumentResponse
	decode(t, resp, &doc)

	resp = s.do(t, http.MethodPatch, "/api/edi-documents", map[string]interface{}{
		"ids":     []int64{doc.ID},
		"changes": map[string]string{"error": "Rechazo 2800"},
	}, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	hooks := s.webhooks()
	require.Len(t, hooks, 1)
	assert.Equal(t, "error", hooks[0]["edi_state"])
	assert.Nil(t, hooks[0]["pdf_url"])
}

// ── Descarga pública ───────────────────────────────────────────────────────

func TestDescargaPublica_RechazosResponden404(t *testing.T) {
	s := newServer(t)
	inv := s.createInvoice(t, tokenForRole(t, apphttp.RoleAdmin))
	id := strconv.FormatInt(inv.ID, 10)

	for name, path := range map[string]string{
		"token incorrecto":    "/public/invoice/pdf/" + id + "/token-que-no-es-el-suyo",
		"factura inexistente": "/public/invoice/pdf/9999/token-que-no-es-el-suyo",
		"id no numérico":      "/public/invoice/pdf/abc/token-que-no-es-el-suyo",
	} {
		resp := s.do(t, http.MethodGet, path, nil, "")
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, name)
		assert.Equal(t, "Enlace inválido o expirado.", string(body), name)
	}
}

// ── API administrativa ─────────────────────────────────────────────────────

func TestAPI_RespuestaNoExponeToken(t *testing.T) {
	s := newServer(t)
	auth := tokenForRole(t, apphttp.RoleAdmin)
	inv := s.createInvoice(t, auth)

	resp := s.do(t, http.MethodGet, "/api/invoices/"+strconv.FormatInt(inv.ID, 10), nil, auth)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "retrieval_token")
}

func TestAPI_ErroresDeValidacion(t *testing.T) {
	s := newServer(t)
	auth := tokenForRole(t, apphttp.RoleAdmin)

	resp := s.do(t, http.MethodPatch, "/api/invoices/abc", map[string]string{"edi_state": "sent"}, auth)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "id no numérico")

	resp = s.do(t, http.MethodPatch, "/api/invoices/9999", map[string]string{"edi_state": "sent"}, auth)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "factura inexistente")

	resp = s.do(t, http.MethodPost, "/api/invoices", map[string]interface{}{"amount_total": "-1"}, auth)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "monto negativo")

	resp = s.do(t, http.MethodGet, "/api/invoices", nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "sin token")
}
