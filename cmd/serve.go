package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/tarpush/internal/httpserve"
)

const shutdownGrace = 10 * time.Second

func NewServeCommand(c *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server accepting docker image archives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.loadApp()
			if err != nil {
				return err
			}
			defer a.Shutdown()

			if err := a.PrepareUploadDir(); err != nil {
				return err
			}
			// The daemon may come up later; uploads fail with 500 until it does.
			if _, err := a.CheckEngine(cmd.Context()); err != nil {
				a.Log.Warn("Docker daemon is not reachable yet", "error", err)
			}

			e := httpserve.NewRouter(a, nil)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.Log.Info("Starting HTTP server",
					"port", a.Config.Http.Port,
					"registry", a.Registry.URL(),
					"version", a.Config.GetVersion())
				errCh <- e.Start(":" + a.Config.Http.Port)
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			a.Log.Info("Received shutdown signal")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				a.Log.Error("Server shutdown failed", "error", err)
				return err
			}
			a.Log.Info("Server stopped")
			return nil
		},
	}
}
