package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/medledger/ehr-dlt/internal/gateway"
	"github.com/medledger/ehr-dlt/pkg/config"
	"github.com/medledger/ehr-dlt/pkg/logger"
	"github.com/medledger/ehr-dlt/pkg/monitoring"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger := logger.New(cfg.LogLevel)

	// Connect to the Fabric gateway peer
	fabricClient, err := gateway.Connect(&cfg.Fabric)
	if err != nil {
		appLogger.WithComponent("fabric").Fatalf("Failed to connect to Fabric gateway: %v", err)
	}
	defer fabricClient.Close()

	// Metrics
	var metrics *monitoring.MetricsCollector
	if cfg.Monitoring.Enabled {
		metrics = monitoring.NewMetricsCollector("ehr-gateway")
	}

	service := gateway.NewService(cfg, fabricClient, appLogger, metrics)

	go func() {
		appLogger.WithFields(map[string]interface{}{
			"host": cfg.Server.Host,
			"port": cfg.Server.Port,
		}).Info("Starting EHR gateway server")

		if err := service.Start(); err != nil && err != http.ErrServerClosed {
			appLogger.WithComponent("server").Errorf("Server stopped: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down EHR gateway server...")

	if err := service.Stop(); err != nil {
		appLogger.Errorf("Failed to shutdown server gracefully: %v", err)
		os.Exit(1)
	}

	appLogger.Info("EHR gateway server stopped")
}
