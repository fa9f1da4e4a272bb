package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recipeatlas/recipeatlas/internal/core/api"
	"github.com/recipeatlas/recipeatlas/internal/core/db"
	"github.com/recipeatlas/recipeatlas/internal/core/server"
	"github.com/recipeatlas/recipeatlas/internal/logging"
	"github.com/recipeatlas/recipeatlas/internal/rules"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP admin API and the gRPC rule service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "listen host")
	serveCmd.Flags().Int("http-port", 8080, "HTTP admin API port")
	serveCmd.Flags().Int("grpc-port", 50051, "gRPC rule service port")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	database, err := openMigrated(cfg)
	if err != nil {
		return err
	}
	store, err := db.NewStore(database)
	if err != nil {
		database.Close()
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer store.Close()

	ruleService := api.NewRuleService(rules.NewEngine(cfg.Rules.Limits()), cfg.Qualification.Thresholds())
	collections, err := api.NewCollectionService(store, ruleService)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	httpServer, err := server.NewHTTPServer(&cfg.Server, api.NewRouter(api.NewHandler(collections), cfg.Server.RequestTimeout))
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	grpcServer, err := server.NewGRPCServer(&cfg.Server, ruleService)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("version", Version).
		Str("host", cfg.Server.Host).
		Int("http_port", cfg.Server.HTTPPort).
		Int("grpc_port", cfg.Server.GRPCPort).
		Msg("Starting recipeatlas")

	errChan := make(chan error, 2)
	go func() { errChan <- httpServer.Start(ctx) }()
	go func() { errChan <- grpcServer.Start(ctx) }()

	var serveErr error
	select {
	case serveErr = <-errChan:
		logging.Error().Err(serveErr).Msg("Server stopped unexpectedly")
	case <-ctx.Done():
		logging.Info().Msg("Shutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, err)
	}
	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, err)
	}
	return serveErr
}
