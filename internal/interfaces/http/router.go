package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/moisestafur/odoo-webhookv1/internal/application/billing"
	"github.com/moisestafur/odoo-webhookv1/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	InvoiceUC *billing.InvoiceUseCase
	StateUC   *billing.UpdateStateUseCase
	PDFUC     *billing.PDFUseCase
	JWTSecret string
	Logger    *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	// Descarga pública del PDF (sin JWT; el token de la factura es la credencial)
	publicHandler := NewPublicInvoiceHandler(deps.PDFUC, deps.Logger)
	app.Get(billing.PublicPDFRoute, publicHandler.DownloadPDF)

	// Rutas protegidas (Bearer Token + rol)
	api := app.Group("/api",
		AuthMiddleware(deps.JWTSecret),
		RequireRole(RoleAdmin, RoleFacturador),
		RequireCompany(),
	)

	// Invoices
	invoices := api.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.InvoiceUC, deps.StateUC)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/", invoiceHandler.List)
	invoices.Patch("/", invoiceHandler.UpdateBatch)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Patch("/:id", invoiceHandler.Update)
	invoices.Get("/:id/audit", invoiceHandler.Audit)
	invoices.Post("/:id/edi-documents", invoiceHandler.CreateEDIDocument)

	// EDI documents
	ediHandler := NewEDIDocumentHandler(deps.StateUC)
	api.Patch("/edi-documents", ediHandler.UpdateBatch)
}
