package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/s1prep/internal/api"
	"github.com/robert-malhotra/s1prep/internal/catalog"
)

var serveFlags struct {
	baseURL string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the processed scenes in OUTPUT_PATH as a STAC catalog",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.baseURL, "base-url", "", "Public base URL used in links (default: relative)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid server settings: %w", err)
	}

	store := catalog.NewStore(cfg.Preprocess.OutputPath)
	handlers := api.NewHandlers(store, api.Options{BaseURL: serveFlags.baseURL}, logger)
	router := api.NewRouter(handlers, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("starting catalog server",
		"addr", server.Addr,
		"catalog_dir", store.Dir(),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-cmd.Context().Done():
		logger.Info("received shutdown signal")
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
