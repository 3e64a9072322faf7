package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/moisestafur/odoo-webhookv1/internal/domain"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/repository"
	"github.com/moisestafur/odoo-webhookv1/pkg/logger"
)

// PDFUseCase sirve la representación gráfica (PDF) de una factura a través del
// enlace público con token. No hay sesión: el token es la única autorización.
type PDFUseCase struct {
	invoiceRepo repository.InvoiceRepository
	renderer    InvoiceRenderer
	reportName  string
	log         *logger.Logger
}

// NewPDFUseCase construye el caso de uso. reportName es la plantilla configurada,
// nunca un valor que venga en la petición. renderer puede ser nil.
func NewPDFUseCase(
	invoiceRepo repository.InvoiceRepository,
	renderer InvoiceRenderer,
	reportName string,
	log *logger.Logger,
) *PDFUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &PDFUseCase{
		invoiceRepo: invoiceRepo,
		renderer:    renderer,
		reportName:  reportName,
		log:         log.Named("public_pdf"),
	}
}

// DownloadPublicPDF valida el token presentado y genera el PDF.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si el token coincide y el render funciona.
//   - domain.ErrNotFound         si la factura no existe o el token no coincide (mismo error en ambos casos).
//   - ErrReportNotFound          si no hay renderizador o no conoce la plantilla.
//   - otro error envuelto        si el render falla.
func (uc *PDFUseCase) DownloadPublicPDF(ctx context.Context, invoiceID int64, token string) (pdfBytes []byte, filename string, err error) {
	// ── 1. Cargar factura (contexto elevado: sin filtro de empresa) ───────────
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, "", domain.ErrNotFound
	}

	// ── 2. Comparar token ─────────────────────────────────────────────────────
	if !TokensMatch(inv.RetrievalToken, token) {
		uc.log.Warn().Int64("invoice_id", invoiceID).Msg("token de descarga no coincide")
		return nil, "", domain.ErrNotFound
	}

	// ── 3. Renderizar ─────────────────────────────────────────────────────────
	if uc.renderer == nil || strings.TrimSpace(uc.reportName) == "" {
		return nil, "", ErrReportNotFound
	}
	pdfBytes, _, err = uc.renderer.Render(ctx, uc.reportName, invoiceID)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			return nil, "", ErrReportNotFound
		}
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}

	return pdfBytes, PDFFilename(inv.ID, inv.Name), nil
}

// PDFFilename nombre del adjunto: el número de factura sin espacios, o factura-<id>.
func PDFFilename(invoiceID int64, name string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '"' || r == '/' || r == '\\' {
			return -1
		}
		return r
	}, name)
	if clean == "" {
		return fmt.Sprintf("factura-%d.pdf", invoiceID)
	}
	return clean + ".pdf"
}
