package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joeshaw/bods-gtfs/internal/api"
	"github.com/joeshaw/bods-gtfs/internal/metrics"
	"github.com/joeshaw/bods-gtfs/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the loaded timetable as a JSON:API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	_ = viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

func runServe(ctx context.Context) error {
	path := cfg.DatabasePath()
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no database at %s, run ingest first: %w", path, err)
	}

	dataStore, err := store.Open(path, store.Options{
		MaxOpenConns: cfg.MaxOpenConns,
		BusyTimeout:  cfg.BusyTimeout,
	})
	if err != nil {
		return err
	}
	defer dataStore.Close()

	apiServer := api.NewServer(dataStore, metrics.New(nil), logger)
	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: apiServer.Router(),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Infof("Server listening on %s", cfg.Listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exited properly")
	return nil
}
