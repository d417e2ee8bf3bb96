package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/logbookhq/logbook-server/internal/agents"
	internalhttp "github.com/logbookhq/logbook-server/internal/api/http"
	"github.com/logbookhq/logbook-server/internal/db"
	"github.com/logbookhq/logbook-server/internal/housekeeping"
	"github.com/logbookhq/logbook-server/internal/ingest"
	"github.com/logbookhq/logbook-server/internal/logs"
	"github.com/logbookhq/logbook-server/internal/metrics"
	"github.com/logbookhq/logbook-server/internal/sink/search"
	"github.com/logbookhq/logbook-server/internal/sink/timeseries"
)

var AppVersion string

func main() {
	InitConfig()

	slog.Info("Logbook Server", "version", AppVersion)

	if err := db.RunMigrations(config.Database.Url, config.Database.Schema); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.InitDB(ctx, config.Database.Url, config.Database.Schema)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	searchWriter, err := search.NewWriter(config.Elasticsearch)
	if err != nil {
		slog.Error("Failed to create Elasticsearch client", "error", err)
		os.Exit(1)
	}
	// Missing template only degrades the index mapping, not ingestion.
	if err := searchWriter.EnsureIndexTemplate(ctx); err != nil {
		slog.Warn("Failed to ensure log index template", "error", err)
	}

	tsWriter := timeseries.NewWriter(config.Influxdb)
	defer tsWriter.Close()

	agentService := agents.NewService(agents.NewPostgresStore(pool))
	logStore := logs.NewStore(pool)
	metricStore := metrics.NewStore(pool)

	services := &internalhttp.Services{
		AgentService:      agentService,
		LogCoordinator:    ingest.NewLogCoordinator(agentService, logStore, searchWriter),
		MetricCoordinator: ingest.NewMetricCoordinator(agentService, metricStore, tsWriter),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"PUT", "PATCH", "GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, config.Http, services)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Http.Port),
		Handler: engine,
	}

	hkCtx, hkCancel := context.WithCancel(ctx)
	runner := housekeeping.NewRunner(config.Housekeeping, agentService, map[string]housekeeping.RetentionStore{
		"logs":    logStore,
		"metrics": metricStore,
	})
	go runner.Run(hkCtx)

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("Server error", "error", err)
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	}

	slog.Info("Shutting down...")
	hkCancel()

	var wg sync.WaitGroup
	shutdownTimeout := 10 * time.Second

	wg.Add(1)
	go func() {
		defer wg.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server stopped")
		}
	}()

	wg.Wait()
	slog.Info("Shutdown complete")
}
