package webhook

import (
	"fmt"
	"strings"

	"github.com/moisestafur/odoo-webhookv1/internal/domain/entity"
)

var stateMessages = map[string]string{
	entity.EDIStateSent:      "Factura enviada y validada correctamente por SUNAT.",
	entity.EDIStateToSend:    "Factura pendiente de envío a SUNAT.",
	entity.EDIStateError:     "Error en validación con SUNAT/OSE.",
	entity.EDIStateCancelled: "Factura cancelada en SUNAT.",
}

// StateMessage texto de historial para la etiqueta notificada.
func StateMessage(label string) string {
	if msg, ok := stateMessages[label]; ok {
		return msg
	}
	return fmt.Sprintf("Estado EDI actualizado a %s.", label)
}

// successNote nota de historial tras una entrega exitosa.
func successNote(label string, attempt int) string {
	return fmt.Sprintf("%s (intento %d).", strings.TrimSuffix(StateMessage(label), "."), attempt)
}

// failureNote nota de historial cuando se agotan los intentos o el receptor rechaza.
func failureNote(label string, attempts int, err error) string {
	return fmt.Sprintf("No se pudo notificar el webhook (estado %s, %d intento(s)): %v", label, attempts, err)
}
