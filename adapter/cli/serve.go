package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskcal/adapter/api"
)

var (
	serveAddr    string
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured store over HTTP",
	Long: `Serve the configured store as a JSON document store, so that other
taskcal instances can use it with TASKCAL_STORE=http.

Routes:
  GET    /tasks
  POST   /tasks
  PATCH  /tasks/{id}
  DELETE /tasks/{id}
  GET    /views/dashboard?date=YYYY-MM-DD&month=YYYY-MM
  GET    /health`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := RequireApp()
		if err != nil {
			return err
		}
		c := a.Container

		cfg := api.DefaultServerConfig()
		cfg.Addr = serveAddr
		if cfg.Addr == "" {
			cfg.Addr = c.Config.ServeAddr
		}
		if len(serveOrigins) > 0 {
			cfg.AllowedOrigins = serveOrigins
		}

		handler := api.NewTaskHandler(c.Gateway, c.Projector, time.Now, c.Logger)
		server := api.NewServer(cfg, handler, c.Health, c.Metrics, c.Logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return <-errCh
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default TASKCAL_SERVE_ADDR)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "allow-origin", nil, "CORS allowed origins (default *)")

	rootCmd.AddCommand(serveCmd)
}
