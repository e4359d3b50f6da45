package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gihan9a/entityschema/internal/server"
	"gihan9a/entityschema/internal/tls"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the schema HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	cfg := c.cfg

	// Set up the TLS certificate if needed
	if cfg.TLS.Enabled && cfg.TLS.GenerateCert {
		if err := tls.EnsureCertificate(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil {
			return fmt.Errorf("failed to set up TLS certificate: %w", err)
		}
	}

	st, err := c.loadStore()
	if err != nil {
		return err
	}

	schemaServer, err := server.NewSchemaServer(cfg, st)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer schemaServer.Close()

	if cfg.Watch && cfg.DataDir != "" {
		if err := schemaServer.SetupWatchers(); err != nil {
			return fmt.Errorf("failed to set up file watchers: %w", err)
		}
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           schemaServer.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	source := cfg.DataDir
	if source == "" {
		source = "embedded"
	}
	scheme := "http"
	if cfg.TLS.Enabled {
		scheme = "https"
	}
	slog.Info("schema server running",
		"url", fmt.Sprintf("%s://localhost%s", scheme, httpServer.Addr),
		"data", source,
		"latest", st.Latest().String(),
		"watch", cfg.Watch,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLS.Enabled {
			slog.Info("using TLS certificate", "cert", cfg.TLS.CertFile, "key", cfg.TLS.KeyFile)
			errCh <- httpServer.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			errCh <- httpServer.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
