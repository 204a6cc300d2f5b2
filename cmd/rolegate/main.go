// Command rolegate expone el motor de verificación y aprovisionamiento de
// roles por HTTP y ofrece comandos de mantenimiento sobre el mismo store.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/rolegate/internal/app"
	"github.com/dropDatabas3/rolegate/internal/config"
	"github.com/dropDatabas3/rolegate/internal/observability/logger"
)

var version = "dev"

type globals struct {
	configPath string
	envFile    string
	cfg        *config.Config
}

func main() {
	g := &globals{
		configPath: envOr("ROLEGATE_CONFIG", ""),
		envFile:    envOr("ROLEGATE_ENV_FILE", ".env"),
	}

	root := &cobra.Command{
		Use:           "rolegate",
		Short:         "Verificación institucional y aprovisionamiento de roles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(g.envFile); err != nil && !os.IsNotExist(err) {
				log.Printf("rolegate: loading %s: %v (continuing with process env)", g.envFile, err)
			}
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			g.cfg = cfg
			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: "rolegate",
				Version:     version,
			})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", g.configPath, "ruta del YAML de configuración (env ROLEGATE_CONFIG)")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", g.envFile, "archivo .env a cargar si existe (env ROLEGATE_ENV_FILE)")

	root.AddCommand(
		serveCmd(g),
		migrateCmd(g),
		linksCmd(g),
		whoisCmd(g),
		versionCmd(),
	)

	err := root.ExecuteContext(context.Background())
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// container arma el grafo completo para los comandos de mantenimiento.
// Las métricas van a un registry propio: estos comandos no sirven /metrics.
func (g *globals) container(ctx context.Context) (*app.Container, error) {
	reg := prometheus.NewRegistry()
	return app.Build(logger.ToContext(ctx, logger.L()), g.cfg, app.Options{Registry: reg, Gatherer: reg})
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
