// Package edi contiene las reglas puras que deciden si un cambio de estado EDI
// debe notificarse al sistema externo. No conoce persistencia ni transporte.
package edi

import "github.com/moisestafur/odoo-webhookv1/internal/domain/entity"

// invoiceQualifying estados que disparan el webhook al cambiar edi_state de una factura.
var invoiceQualifying = map[string]bool{
	entity.EDIStateSent:      true,
	entity.EDIStateError:     true,
	entity.EDIStateCancelled: true,
}

// documentQualifying estados que disparan el webhook al cambiar el estado de un documento EDI.
// Incluye to_send, a diferencia de la factura.
var documentQualifying = map[string]bool{
	entity.EDIStateToSend:    true,
	entity.EDIStateSent:      true,
	entity.EDIStateError:     true,
	entity.EDIStateCancelled: true,
}

// IsInvoiceQualifying indica si el paso old → new de edi_state en una factura se notifica.
func IsInvoiceQualifying(oldState, newState string) bool {
	return oldState != newState && invoiceQualifying[newState]
}

// InvoiceNotification decide la etiqueta a notificar para una factura tras una escritura.
// statePresent indica si edi_state venía en el lote; sin él nunca se notifica.
func InvoiceNotification(oldState, newState string, statePresent bool) (label string, ok bool) {
	if !statePresent || !IsInvoiceQualifying(oldState, newState) {
		return "", false
	}
	return newState, true
}

// DocumentNotification decide la etiqueta para un documento EDI tras una escritura.
//
// Orden de reglas (gana la primera):
//  1. state o error venían en el lote, el estado cambió y el nuevo valor califica → nuevo estado.
//  2. state o error venían en el lote y el documento tiene detalle de error → "error".
//
// Como máximo una notificación por documento y por escritura.
func DocumentNotification(oldState, newState, errDetail string, statePresent, errorPresent bool) (label string, ok bool) {
	if !statePresent && !errorPresent {
		return "", false
	}
	if oldState != newState && documentQualifying[newState] {
		return newState, true
	}
	if errDetail != "" {
		return entity.EDIStateError, true
	}
	return "", false
}
