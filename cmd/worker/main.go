// Command worker consume la cola de webhooks (WEBHOOK_MODE=queue) y entrega cada
// notificación con la misma política de reintentos que la entrega en línea.
package main

import (
	"context"

	"github.com/moisestafur/odoo-webhookv1/internal/application/webhook"
	"github.com/moisestafur/odoo-webhookv1/internal/infrastructure/postgres"
	"github.com/moisestafur/odoo-webhookv1/internal/infrastructure/queue"
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

	if cfg.Storage.Driver != config.StoragePostgres {
		log.Fatal().Str("storage", cfg.Storage.Driver).Msg("el worker requiere STORAGE_DRIVER=postgres (use WEBHOOK_WORKER_INPROCESS con memory)")
	}

	pool, err := postgres.NewPool(context.Background(), cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	dispatcher := webhook.NewDispatcher(webhook.ConfigFrom(cfg.Webhook), postgres.NewAuditRepository(pool), log)
	if !dispatcher.Enabled() {
		log.Warn().Msg("WEBHOOK_URL vacía: las tareas se descartarán sin entrega")
	}

	srv := queue.NewServer(cfg.Redis, log)
	mux := queue.NewServeMux(queue.NewWebhookTaskHandler(dispatcher, log))

	log.Info().Str("redis", cfg.Redis.Addr).Str("queue", queue.QueueWebhooks).Msg("worker de webhooks iniciado")
	// Run bloquea hasta SIGINT/SIGTERM y drena las tareas en curso.
	if err := srv.Run(mux); err != nil {
		log.Fatal().Err(err).Msg("worker de webhooks")
	}
	log.Info().Msg("worker detenido")
}
