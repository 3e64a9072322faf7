package billing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"regexp"
)

// retrievalTokenBytes bytes aleatorios antes de codificar (256 bits).
const retrievalTokenBytes = 32

// PublicPDFRoute ruta pública de descarga (formato Fiber).
const PublicPDFRoute = "/public/invoice/pdf/:id/:token"

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{16,128}$`)

// NewRetrievalToken genera un token de descarga: 32 bytes de crypto/rand en base64url sin relleno.
func NewRetrievalToken() (string, error) {
	b := make([]byte, retrievalTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generar token de descarga: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidRetrievalToken indica si un token suministrado por el cliente es utilizable
// como segmento de URL (alfabeto base64url, 16 a 128 caracteres).
func ValidRetrievalToken(token string) bool {
	return tokenPattern.MatchString(token)
}

// TokensMatch compara el token guardado con el presentado en tiempo constante.
// Un token vacío en cualquiera de los dos lados nunca coincide.
func TokensMatch(stored, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// PublicPDFPath ruta pública de descarga para una factura concreta.
func PublicPDFPath(invoiceID int64, token string) string {
	return fmt.Sprintf("/public/invoice/pdf/%d/%s", invoiceID, token)
}
