package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ericstone57/dl-history/api"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only inspection API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		// Log endpoints are served only when category files are being written
		logsDir := ""
		if s.multiLog != nil {
			logsDir = s.multiLog.GetLogsDir()
		}

		addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
		server := &http.Server{
			Addr:              addr,
			Handler:           api.SetupRouter(s.store, s.log, logsDir),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			s.log.Info("HTTP server listening", zap.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to start server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			s.log.Info("Shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				s.log.Error("Server forced to shutdown", zap.Error(err))
			}
			return nil
		})

		err = g.Wait()
		s.log.Info("Server exited")
		return err
	},
}
