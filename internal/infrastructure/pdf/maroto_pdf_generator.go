// Package pdf implementa el renderizador de la representación gráfica de la factura.
//
// Plantillas disponibles (el nombre llega desde la configuración, nunca desde la petición):
//
//	invoice             cabecera + receptor + totales + estado EDI + QR
//	invoice_with_audit  lo anterior más el historial de notas de la factura
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón Social + RUC  │  N° Factura + Fecha          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RECEPTOR: Nombre                                           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Moneda / TOTAL                                    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ESTADO: estado / estado EDI / documentos EDI + QR          │
//	│  HISTORIAL (solo invoice_with_audit)                        │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	appbilling "github.com/moisestafur/odoo-webhookv1/internal/application/billing"
	"github.com/moisestafur/odoo-webhookv1/internal/domain"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/repository"
)

// Nombres de plantilla.
const (
	ReportInvoice          = "invoice"
	ReportInvoiceWithAudit = "invoice_with_audit"
)

// ContentType tipo MIME de lo que genera el renderizador.
const ContentType = "application/pdf"

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// Issuer datos del emisor impresos en la cabecera.
type Issuer struct {
	Name  string
	TaxID string
}

// ── Renderer ──────────────────────────────────────────────────────────────────

// MarotoRenderer implementa billing.InvoiceRenderer usando Maroto v2.
type MarotoRenderer struct {
	invoiceRepo repository.InvoiceRepository
	ediRepo     repository.EDIDocumentRepository
	auditRepo   repository.AuditRepository
	issuer      Issuer
}

// NewMarotoRenderer construye el renderizador. ediRepo y auditRepo pueden ser nil.
func NewMarotoRenderer(
	invoiceRepo repository.InvoiceRepository,
	ediRepo repository.EDIDocumentRepository,
	auditRepo repository.AuditRepository,
	issuer Issuer,
) *MarotoRenderer {
	return &MarotoRenderer{invoiceRepo: invoiceRepo, ediRepo: ediRepo, auditRepo: auditRepo, issuer: issuer}
}

var _ appbilling.InvoiceRenderer = (*MarotoRenderer)(nil)

// Render genera el PDF de la factura con la plantilla reportName.
func (g *MarotoRenderer) Render(ctx context.Context, reportName string, invoiceID int64) ([]byte, string, error) {
	withAudit := false
	switch reportName {
	case ReportInvoice:
	case ReportInvoiceWithAudit:
		withAudit = true
	default:
		return nil, "", fmt.Errorf("%w: %q", appbilling.ErrReportNotFound, reportName)
	}

	invoice, err := g.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener factura: %w", err)
	}
	if invoice == nil {
		return nil, "", domain.ErrNotFound
	}

	var docs []*entity.EDIDocument
	if g.ediRepo != nil {
		if docs, err = g.ediRepo.ListByInvoice(ctx, invoiceID); err != nil {
			return nil, "", fmt.Errorf("pdf: obtener documentos EDI: %w", err)
		}
	}
	var notes []*entity.AuditNote
	if withAudit && g.auditRepo != nil {
		if notes, err = g.auditRepo.ListByInvoice(ctx, invoiceID); err != nil {
			return nil, "", fmt.Errorf("pdf: obtener historial: %w", err)
		}
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Factura Electrónica", true).
		WithAuthor(nonEmpty(g.issuer.Name, "Emisor"), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(invoice, g.issuer))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(receptorRow(invoice))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(invoice))
	m.AddRows(line.NewRow(3))
	m.AddRows(statusRows(invoice, docs)...)

	if withAudit {
		m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
		m.AddRows(auditRows(notes)...)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), ContentType, nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: Razón social + RUC (izq) y N° Factura + Fecha (der).
func headerRow(invoice *entity.Invoice, issuer Issuer) core.Row {
	fecha := "-"
	if invoice.InvoiceDate != nil {
		fecha = invoice.InvoiceDate.Format("02/01/2006")
	}

	return row.New(18).Add(
		col.New(7).Add(
			text.New(nonEmpty(issuer.Name, "-"), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("RUC: "+nonEmpty(issuer.TaxID, "-"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("FACTURA ELECTRÓNICA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(invoice.Name, "BORRADOR"), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// receptorRow: datos del comprador.
func receptorRow(invoice *entity.Invoice) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("RECEPTOR / ADQUIRIENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(invoice.PartnerName, "-"), props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
		),
	)
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(invoice *entity.Invoice) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	grand := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1, Top: 6,
		})
	}

	return row.New(16).Add(
		col.New(6),
		col.New(3).Add(
			label("Moneda: "+nonEmpty(invoice.Currency, "-")),
		),
		col.New(3).Add(
			grand("TOTAL: "+formatAmount(invoice.AmountTotal)),
		),
	)
}

// statusRows: estado de negocio, estado EDI, documentos EDI y QR de verificación.
func statusRows(invoice *entity.Invoice, docs []*entity.EDIDocument) []core.Row {
	rows := []core.Row{
		row.New(8).Add(col.New(12).Add(
			text.New("ESTADO ELECTRÓNICO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorWhite, Top: 2, Left: 1,
			}),
		)).WithStyle(&props.Cell{BackgroundColor: colorPrimary}),
	}

	detail := []core.Component{
		text.New(fmt.Sprintf("Estado: %s   |   Estado EDI: %s",
			nonEmpty(invoice.Status, "-"), nonEmpty(invoice.EDIState, "sin enviar"),
		), props.Text{Size: 8, Top: 3, Left: 3}),
	}
	top := 9.0
	for _, d := range docs {
		msg := fmt.Sprintf("Documento EDI #%d: %s", d.ID, nonEmpty(d.State, "-"))
		if d.Error != "" {
			msg += " (" + d.Error + ")"
		}
		detail = append(detail, text.New(msg, props.Text{Size: 7, Top: top, Left: 3, Color: colorGray}))
		top += 5
	}

	height := top + 5
	if height < 40 {
		height = 40
	}
	rows = append(rows, row.New(height).Add(
		col.New(8).Add(detail...),
		col.New(4).Add(code.NewQr(qrData(invoice), props.Rect{Percent: 90, Center: true})),
	))
	return rows
}

// auditRows: historial de notas, una fila por nota.
func auditRows(notes []*entity.AuditNote) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("HISTORIAL", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
		)),
	}
	if len(notes) == 0 {
		return append(rows, row.New(5).Add(col.New(12).Add(
			text.New("Sin notas.", props.Text{Size: 7, Color: colorGray, Left: 2}),
		)))
	}
	for _, n := range notes {
		rows = append(rows, row.New(5).Add(
			col.New(3).Add(text.New(n.CreatedAt.Format("02/01/2006 15:04"), props.Text{Size: 7, Color: colorGray, Left: 2})),
			col.New(9).Add(text.New(n.Body, props.Text{Size: 7})),
		))
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// qrData texto del QR: número|total|moneda|fecha.
func qrData(invoice *entity.Invoice) string {
	fecha := ""
	if invoice.InvoiceDate != nil {
		fecha = invoice.InvoiceDate.Format("2006-01-02")
	}
	return strings.Join([]string{
		nonEmpty(invoice.Name, fmt.Sprintf("%d", invoice.ID)),
		invoice.AmountTotal.StringFixed(2),
		invoice.Currency,
		fecha,
	}, "|")
}

// formatAmount formatea con separador de miles '.' y decimales ','.
// Ej: 1180.5 → "1.180,50"
func formatAmount(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	out := formatMoney(intPart) + "," + frac
	if d.IsNegative() {
		return "-" + out
	}
	return out
}

// formatMoney inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "1000000" → "1.000.000"
func formatMoney(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
