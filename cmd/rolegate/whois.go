package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/rolegate/internal/app"
	"github.com/dropDatabas3/rolegate/internal/observability/logger"
)

// whoisCmd lista las cuentas autenticadas con un ID institucional. Solo lee
// el store, no necesita credenciales de la plataforma.
func whoisCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "whois <institutional-id>",
		Short: "Muestra qué cuentas se autenticaron con un ID institucional",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logger.ToContext(cmd.Context(), logger.L())
			s, err := app.OpenStore(ctx, g.cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			auths, err := s.Verifications().ListByInstitutionalID(ctx, args[0])
			if err != nil {
				return err
			}
			if len(auths) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No accounts are authenticated as '%s'\n", args[0])
				return nil
			}
			for _, a := range auths {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", a.Requester, a.RoleID, a.GrantedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}
