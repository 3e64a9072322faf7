package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"

	"github.com/moisestafur/odoo-webhookv1/internal/application/billing"
	"github.com/moisestafur/odoo-webhookv1/internal/application/webhook"
	"github.com/moisestafur/odoo-webhookv1/internal/domain/repository"
	"github.com/moisestafur/odoo-webhookv1/internal/infrastructure/memory"
	infrapdf "github.com/moisestafur/odoo-webhookv1/internal/infrastructure/pdf"
	"github.com/moisestafur/odoo-webhookv1/internal/infrastructure/postgres"
	"github.com/moisestafur/odoo-webhookv1/internal/infrastructure/queue"
	httpRouter "github.com/moisestafur/odoo-webhookv1/internal/interfaces/http"
	"github.com/moisestafur/odoo-webhookv1/pkg/config"
	"github.com/moisestafur/odoo-webhookv1/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Str("webhook_mode", cfg.Webhook.Mode).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET requerido para la API administrativa")
	}

	// ── Almacenamiento ─────────────────────────────────────────────────────
	var (
		txRunner    billing.InvoiceTxRunner
		invoiceRepo repository.InvoiceRepository
		ediRepo     repository.EDIDocumentRepository
		auditRepo   repository.AuditRepository
	)
	ctx := context.Background()
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		log.Warn().Msg("STORAGE_DRIVER=memory: los datos se pierden al reiniciar")
		store := memory.NewStore()
		txRunner = memory.NewTxRunner(store)
		invoiceRepo = memory.NewInvoiceRepository(store)
		ediRepo = memory.NewEDIDocumentRepository(store)
		auditRepo = memory.NewAuditRepository(store)
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		txRunner = postgres.NewTxRunner(pool)
		invoiceRepo = postgres.NewInvoiceRepository(pool)
		ediRepo = postgres.NewEDIDocumentRepository(pool)
		auditRepo = postgres.NewAuditRepository(pool)
	}

	// ── Webhook ────────────────────────────────────────────────────────────
	dispatcher := webhook.NewDispatcher(webhook.ConfigFrom(cfg.Webhook), auditRepo, log)
	if !dispatcher.Enabled() {
		log.Warn().Msg("WEBHOOK_URL vacía: las transiciones EDI no se notificarán")
	}

	var notifier billing.Notifier = dispatcher
	var worker *asynq.Server
	if cfg.Webhook.Mode == config.WebhookModeQueue {
		client := queue.NewClient(cfg.Redis)
		defer client.Close()
		notifier = queue.NewNotifier(client, dispatcher, log)

		if cfg.Webhook.WorkerInProcess {
			worker = queue.NewServer(cfg.Redis, log)
			if err := worker.Start(queue.NewServeMux(queue.NewWebhookTaskHandler(dispatcher, log))); err != nil {
				log.Fatal().Err(err).Msg("iniciar worker de webhooks")
			}
		}
	}

	// ── Casos de uso ───────────────────────────────────────────────────────
	renderer := infrapdf.NewMarotoRenderer(invoiceRepo, ediRepo, auditRepo, infrapdf.Issuer{
		Name:  cfg.PDF.CompanyName,
		TaxID: cfg.PDF.CompanyTaxID,
	})
	invoiceUC := billing.NewInvoiceUseCase(txRunner, invoiceRepo, ediRepo, auditRepo)
	stateUC := billing.NewUpdateStateUseCase(txRunner, notifier, log)
	pdfUC := billing.NewPDFUseCase(invoiceRepo, renderer, cfg.PDF.ReportName, log)

	// ── HTTP ───────────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Minute, // cubre la entrega en línea con reintentos
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.Docs.SwaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.Docs.SwaggerFile,
			Path:     "docs",
			Title:    "Invoice Webhook API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		InvoiceUC: invoiceUC,
		StateUC:   stateUC,
		PDFUC:     pdfUC,
		JWTSecret: cfg.JWT.Secret,
		Logger:    log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if worker != nil {
		worker.Shutdown()
	}

	log.Info().Msg("aplicación detenida")
}
