package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/rolegate/internal/app"
	rgHTTP "github.com/dropDatabas3/rolegate/internal/http"
	"github.com/dropDatabas3/rolegate/internal/observability/logger"
)

const shutdownTimeout = 15 * time.Second

func serveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, g)
		},
	}
}

func serve(ctx context.Context, g *globals) error {
	log := logger.Named("serve")
	ctx = logger.ToContext(ctx, logger.L())

	c, err := app.Build(ctx, g.cfg, app.Options{})
	if err != nil {
		return err
	}
	defer c.Close()

	srv := rgHTTP.NewServer(g.cfg.Server.Addr, c.Handler, g.cfg.Server.ReadTimeout, g.cfg.Server.WriteTimeout)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info("listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := eg.Wait(); err != nil {
		log.Error("server stopped", logger.Err(err))
		return err
	}
	log.Info("bye")
	return nil
}
