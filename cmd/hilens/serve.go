package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/hilens/internal/api"
	"github.com/dgallion1/hilens/internal/pipeline"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hilens HTTP API",
	Long: `Start the hilens HTTP API.

Uploaded PDFs are extracted once and kept in memory until they expire.
ChunkSets are cached by content hash (memory or Redis) so a re-upload
skips extraction.

Examples:
  hilens serve
  hilens serve --addr :9000
  HILENS_SERVER_API_KEY=secret hilens serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		log := newLogger(os.Stdout, cfg.Log.Level, true)

		svc, err := pipeline.New(cfg, log)
		if err != nil {
			log.Error("failed to start pipeline", "error", err)
			return err
		}
		defer svc.Close()

		runCtx, stop := context.WithCancel(ctx)
		defer stop()
		go svc.Run(runCtx)

		httpServer := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      api.NewServer(svc, log, cfg.Server),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown.
		errCh := make(chan error, 1)
		go func() {
			log.Info("starting hilens", "addr", cfg.Server.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				log.Error("server error", "error", err)
				return err
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down...")
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "address to listen on (overrides server.addr)")
}
