// Command issue-token emite un JWT de operador para la API administrativa.
//
//	issue-token --company acme --role facturador --minutes 480
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/moisestafur/odoo-webhookv1/pkg/config"
	"github.com/moisestafur/odoo-webhookv1/pkg/jwt"
)

func main() {
	userID := pflag.String("user", "", "id del operador (por defecto un UUID nuevo)")
	companyID := pflag.String("company", "", "empresa a la que queda acotado el token (requerido)")
	role := pflag.String("role", "facturador", "rol: admin | facturador")
	minutes := pflag.Int("minutes", 0, "vigencia en minutos (por defecto JWT_EXPIRATION_MINUTES)")
	pflag.Parse()

	if *companyID == "" {
		fmt.Fprintln(os.Stderr, "--company es requerido")
		pflag.Usage()
		os.Exit(2)
	}
	if *role != "admin" && *role != "facturador" {
		fmt.Fprintf(os.Stderr, "rol desconocido: %q\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		os.Exit(1)
	}
	if *userID == "" {
		*userID = uuid.NewString()
	}
	exp := cfg.JWT.Expiration
	if *minutes > 0 {
		exp = *minutes
	}

	token, err := jwt.Generate(cfg.JWT.Secret, *userID, *companyID, *role, cfg.JWT.Issuer, exp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "generar token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
