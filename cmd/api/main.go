package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/adventure-engine/internal/config"
	"github.com/jwebster45206/adventure-engine/internal/handlers"
	"github.com/jwebster45206/adventure-engine/internal/logger"
	"github.com/jwebster45206/adventure-engine/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Adventure Engine proxy",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"text_provider", cfg.TextProvider,
		"image_provider", cfg.ImageProvider,
		"model_name", cfg.ModelName)

	if err := cfg.ValidateServer(); err != nil {
		log.Error("Invalid server configuration", "error", err)
		os.Exit(1)
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	providers, err := services.NewProviders(initCtx, cfg, log)
	initCancel()
	if err != nil {
		log.Error("Failed to initialize providers", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handlers.NewRouter(cfg, providers, log),
		ReadTimeout: 15 * time.Second,
		// Provider calls are bounded by REQUEST_TIMEOUT; leave headroom for encoding.
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := providers.Close(); err != nil {
		log.Error("Error closing providers", "error", err)
	}

	log.Info("Server exited")
}
