package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"mldash/adapters/api"
	"mldash/internal/browse"
	"mldash/internal/config"
	"mldash/internal/logging"
	"mldash/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logging.NewLogger(appConfig.Log.Level)
	gin.SetMode(appConfig.Server.GinMode)

	backend := api.NewClient(appConfig.Backend.BaseURL, appConfig.Backend.Timeout, log)
	server := ui.NewServer(backend, browse.OptionsFromConfig(appConfig.Browse), appConfig.Server.SessionTTL, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := backend.Health(ctx); err != nil {
		log.WithError(err).Warnf("Backend at %s is not reachable yet", backend.BaseURL())
	}

	log.WithFields(logrus.Fields{
		"port":    appConfig.Server.Port,
		"backend": backend.BaseURL(),
	}).Info("Starting dashboard server")
	if err := server.Start(ctx, ":"+appConfig.Server.Port); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
	log.Info("Dashboard server stopped")
}
