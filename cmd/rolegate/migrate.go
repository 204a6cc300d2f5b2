package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/rolegate/internal/app"
	"github.com/dropDatabas3/rolegate/internal/observability/logger"
)

func migrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL pendientes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.cfg.Storage.Driver != "postgres" {
				return errors.New("migrate requires storage.driver=postgres")
			}
			ctx := logger.ToContext(cmd.Context(), logger.L())
			s, err := app.OpenPostgres(ctx, g.cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := app.Migrate(ctx, s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied=%v skipped=%v (%s)\n", res.Applied, res.Skipped, res.Duration)
			return nil
		},
	}
}
