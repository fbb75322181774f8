package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/amqppool/internal/broker"
	"github.com/rickgao/amqppool/internal/config"
	"github.com/rickgao/amqppool/internal/journal"
	"github.com/rickgao/amqppool/internal/pool"
	"github.com/rickgao/amqppool/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/poold.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting poold",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"clients", len(cfg.Pool.Clients),
		"journal_enabled", cfg.Journal.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Optional Postgres event journal
	var writer *journal.Writer
	opts := []pool.Option{pool.WithLogger(logger)}
	if cfg.Journal.Enabled {
		logger.Info("connecting to journal database",
			"host", cfg.Journal.Database.Host,
			"port", cfg.Journal.Database.Port,
			"database", cfg.Journal.Database.Name,
		)

		db, err := journal.Connect(ctx, cfg.Journal.Database)
		if err != nil {
			logger.Error("failed to connect to journal database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		writer = journal.NewWriter(cfg.Journal, db, logger)
		if err := writer.Start(ctx); err != nil {
			logger.Error("failed to start journal writer", "error", err)
			os.Exit(1)
		}
		opts = append(opts, pool.WithEventSink(writer))
	}

	// Build the connection pools. This blocks until every configured
	// connection and channel is established.
	logger.Info("building connection pools...")
	registry, err := pool.New(ctx, cfg.Pool, broker.NewAMQPDialer(), opts...)
	if err != nil {
		logger.Error("failed to build connection pools", "error", err)
		os.Exit(1)
	}

	// Health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(registry, cfg.Health.Path),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Health.Port, "path", cfg.Health.Path)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	logger.Info("poold running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d%s", cfg.Health.Port, cfg.Health.Path),
	)

	// Wait for shutdown
	if err := g.Wait(); err != nil {
		logger.Error("runtime error", "error", err)
	}

	logger.Info("shutting down...")

	registry.Close()

	if writer != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		writer.Stop(stopCtx)
	}

	logger.Info("poold stopped")
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(registry *pool.Registry, path string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		stats := registry.Stats()

		health := struct {
			Status  string                `json:"status"`
			Version string                `json:"version"`
			Clients map[string]pool.Stats `json:"clients"`
		}{
			Status:  "healthy",
			Version: version.String(),
			Clients: stats,
		}

		for _, st := range stats {
			if st.ReadyConnections == 0 {
				health.Status = "unhealthy"
				break
			}
			if st.ReadyConnections < st.Connections || st.ReadyChannels < st.Channels {
				health.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
