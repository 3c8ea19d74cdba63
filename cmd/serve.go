package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfgpkg "github.com/KaramelBytes/chartloom/internal/config"
	"github.com/KaramelBytes/chartloom/internal/session"
	"github.com/KaramelBytes/chartloom/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard web UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			c.Addr = serveAddr
		}
		switch {
		case debug:
			gin.SetMode(gin.DebugMode)
		case c.GinMode != "":
			gin.SetMode(c.GinMode)
		}

		logger := cfgpkg.Logger
		store := session.NewStore(c.SessionTTL(), c.MaxSessions)
		srv, err := web.New(c, store, logger)
		if err != nil {
			return fmt.Errorf("init server: %w", err)
		}
		server := &http.Server{
			Addr:              c.Addr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Starting HTTP server", "addr", c.Addr, "gin_mode", gin.Mode())
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			return nil
		case <-ctx.Done():
		}
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		logger.Info("Server gracefully stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config, default :8501)")
}
