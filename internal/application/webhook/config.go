// Package webhook construye y entrega la notificación de salida cuando una factura
// cambia a un estado EDI que califica, con reintentos acotados.
package webhook

import (
	"strings"
	"time"

	"github.com/moisestafur/odoo-webhookv1/pkg/config"
)

// HeaderToken cabecera con el secreto compartido que espera el receptor.
const HeaderToken = "X-Odoo-Token"

// Config parámetros del webhook de salida (solo lectura una vez construido el Dispatcher).
type Config struct {
	URL                string
	Token              string
	BaseURL            string
	Timeout            time.Duration
	MaxAttempts        int
	RetryDelay         time.Duration
	RetryOnServerError bool
}

// Enabled indica si hay URL de entrega configurada.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

// ConfigFrom toma los parámetros de la configuración de la aplicación.
func ConfigFrom(c config.WebhookConfig) Config {
	return Config{
		URL:                strings.TrimSpace(c.URL),
		Token:              c.Token,
		BaseURL:            c.BaseURL,
		Timeout:            c.Timeout,
		MaxAttempts:        c.MaxAttempts,
		RetryDelay:         c.RetryDelay,
		RetryOnServerError: c.RetryOnServerError,
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	return c
}
